// Package failover acquires a live database connection from a set of regional endpoints.
//
// On every pass the Manager visits all endpoints of the pool in a fresh uniformly random order
// and returns the first connection that could be opened and pinged. When a whole pass fails it
// waits for the retry delay and starts the next pass. After the configured number of passes
// it gives up with an error matching tradeorder.ErrConnectionExhausted.
//
// The Manager is generic over the connection type. Dialers for *pgx.Conn, *sql.DB (lib/pq),
// *sqlx.DB and *gorm.DB are provided:
//
//	manager, err := failover.NewManager(pool, failover.PGXDialer(),
//		failover.WithMaxRetries(5),
//		failover.WithRetryDelay(5*time.Second),
//		failover.WithLogger(slog.Default()),
//	)
//	conn, err := manager.Acquire(ctx)
//
// Every attempt is logged with the redacted endpoint and counted in the
// tradeorder_connection_attempts_total metric. Credentials are never logged.
package failover
