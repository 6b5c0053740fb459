// Package adapters provide database adapter implementations for the trade workload engine.
//
// This package implements the adapter pattern to support multiple PostgreSQL database libraries:
// pgx (single connection or pool), sql.DB, sqlx.DB, and gorm.DB. All adapters provide equivalent
// transactional functionality through a common DBAdapter interface, allowing the engine to run its
// submit and drain transactions on any supported connection type.
package adapters
