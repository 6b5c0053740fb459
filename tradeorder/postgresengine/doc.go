// Package postgresengine runs the trade workload transactions on PostgreSQL compatible databases
// such as CockroachDB.
//
// The Engine exposes the two transactions a worker executes repeatedly:
//   - Submit synthesizes one random order, stores it with its order_received activity,
//     and moves the instrument price by one tick
//   - Drain claims every pending order with FOR UPDATE SKIP LOCKED and turns each into an
//     execution, an order_processed activity and a trade
//
// Both run as a single transaction; on any failure nothing becomes visible. Concurrent Drain calls
// from independent workers never claim the same order, because rows locked by a competing
// transaction are skipped and orders with an order_processed activity are excluded.
//
// Supported connection types: *pgx.Conn, *pgxpool.Pool, *sql.DB, *sqlx.DB and *gorm.DB.
//
// Usage examples:
//
//	conn, _ := manager.Acquire(ctx)
//	engine, _ := postgresengine.NewEngineFromPGXConn(
//		conn,
//		postgresengine.WithLogger(slog.Default()),
//		postgresengine.WithProcessingDelay(500*time.Millisecond),
//	)
//
//	version, _ := engine.Setup(ctx, workerID, totalWorkers)
//	submitted, err := engine.Submit(ctx)
//	if errors.Is(err, tradeorder.ErrTransactionConflict) {
//		// discard, try again on the next iteration
//	}
//	result, err := engine.Drain(ctx)
package postgresengine
