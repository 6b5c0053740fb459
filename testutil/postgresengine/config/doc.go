// Package config provides database connections for the trade workload integration tests.
//
// The DSN is read from the TRADE_WORKLOAD_TEST_DSN environment variable. Tests that need a real
// PostgreSQL or CockroachDB database call PostgresTestDSN and skip when it is empty.
// Factories exist for every connection type the engine supports (pgx.Pool, sql.DB, sqlx.DB, gorm.DB).
package config
