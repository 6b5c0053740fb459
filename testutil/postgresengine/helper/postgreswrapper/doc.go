// Package postgreswrapper creates trade workload engines on top of every supported connection type
// for integration tests.
//
// The connection type is selected with the ADAPTER_TYPE environment variable
// (pgx.pool, sql.db, sqlx.db, gorm). The wrapper also offers the table level helpers the tests need
// to arrange and verify database state: creating the schema, truncating workload tables, counting rows
// and reading instrument prices.
package postgreswrapper
