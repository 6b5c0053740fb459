// Package tradeorder provides the core abstractions of the synthetic trading workload:
// the order lifecycle data model, regional endpoints, worker configuration,
// the seedable randomness used to synthesize orders, and common error definitions.
//
// The workload emulates a simplified securities-trading pipeline on a distributed SQL store.
// Orders are submitted and queued by one transaction and asynchronously processed into
// executions and trades by another. Both transactions are executed repeatedly by many
// independent workers that only coordinate through the database itself.
//
// Key types:
//   - Order, OrderActivity, OrderProcessing, Trade: the persisted lifecycle records
//   - EndpointPool: the immutable set of regional connection targets
//   - WorkerConfig: the options a worker is set up with
//   - Randomizer: a uniform random choice / permutation primitive with a seedable source
//
// Common usage pattern:
//
//	pool, err := tradeorder.NewEndpointPool(tradeorder.DefaultEndpointURIs())
//	if err != nil {
//		// handle error
//	}
//
//	manager, _ := failover.NewManager(pool, failover.PGXDialer())
//	conn, err := manager.Acquire(ctx)
//	if err != nil {
//		// errors.Is(err, tradeorder.ErrConnectionExhausted)
//	}
//
//	engine, _ := postgresengine.NewEngineFromPGXConn(conn)
//	submitted, err := engine.Submit(ctx)
//	result, err := engine.Drain(ctx)
package tradeorder
