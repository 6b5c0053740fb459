package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jmoiron/sqlx"
	"gorm.io/gorm"

	"github.com/birdtrade/trade-workload-go/tradeorder"
	"github.com/birdtrade/trade-workload-go/tradeorder/failover"
	"github.com/birdtrade/trade-workload-go/tradeorder/postgresengine"
)

// orderEngine is the part of postgresengine.Engine a worker drives.
type orderEngine interface {
	Setup(ctx context.Context, workerID, totalWorkers int) (string, error)
	Submit(ctx context.Context) (tradeorder.SubmittedOrder, error)
	Drain(ctx context.Context) (tradeorder.DrainResult, error)
}

// session is one acquired connection together with the engine built on it.
type session struct {
	engine orderEngine
	// schema is only used by init-schema.
	schema *postgresengine.Engine
	close  func()
}

// connectFunc acquires a session through the failover manager.
type connectFunc func(ctx context.Context) (session, error)

// newConnector returns a connectFunc for the configured driver.
func newConnector(
	cfg Config,
	pool tradeorder.EndpointPool,
	managerOptions []failover.Option,
	engineOptions []postgresengine.Option,
) (connectFunc, error) {
	switch cfg.Driver {
	case driverPGX:
		return connector[*pgx.Conn](pool, failover.PGXDialer(), postgresengine.NewEngineFromPGXConn,
			func(conn *pgx.Conn) { _ = conn.Close(context.Background()) }, managerOptions, engineOptions)
	case driverSQL:
		return connector[*sql.DB](pool, failover.SQLDBDialer(), postgresengine.NewEngineFromSQLDB,
			func(db *sql.DB) { _ = db.Close() }, managerOptions, engineOptions)
	case driverSQLX:
		return connector[*sqlx.DB](pool, failover.SQLXDialer(), postgresengine.NewEngineFromSQLX,
			func(db *sqlx.DB) { _ = db.Close() }, managerOptions, engineOptions)
	case driverGORM:
		return connector[*gorm.DB](pool, failover.GORMDialer(), postgresengine.NewEngineFromGORM,
			closeGORM, managerOptions, engineOptions)
	default:
		return nil, fmt.Errorf("%w: unsupported driver %q", errInvalidConfig, cfg.Driver)
	}
}

func connector[C any](
	pool tradeorder.EndpointPool,
	dialer failover.Dialer[C],
	newEngine func(C, ...postgresengine.Option) (postgresengine.Engine, error),
	closeConn func(C),
	managerOptions []failover.Option,
	engineOptions []postgresengine.Option,
) (connectFunc, error) {
	manager, err := failover.NewManager(pool, dialer, managerOptions...)
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context) (session, error) {
		conn, acquireErr := manager.Acquire(ctx)
		if acquireErr != nil {
			return session{}, acquireErr
		}

		engine, engineErr := newEngine(conn, engineOptions...)
		if engineErr != nil {
			closeConn(conn)
			return session{}, engineErr
		}

		return session{
			engine: engine,
			schema: &engine,
			close:  func() { closeConn(conn) },
		}, nil
	}, nil
}

func closeGORM(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
