// Package helper provides testing utilities for the trade workload:
// spies for the logging, metrics and tracing interfaces, a fake clock and a scripted randomizer.
// Helpers to create, seed and inspect the trading schema in a real database live in postgreswrapper.
package helper
