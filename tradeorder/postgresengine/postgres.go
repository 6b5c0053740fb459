package postgresengine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/birdtrade/trade-workload-go/tradeorder"
	"github.com/birdtrade/trade-workload-go/tradeorder/postgresengine/internal/adapters"
)

const (
	defaultProcessingDelay    = 500 * time.Millisecond
	defaultPriceTick          = "0.10"
	logMsgBuildQueryFailed    = "failed to build query"
	logMsgDBQueryFailed       = "database query execution failed"
	logMsgDBExecFailed        = "database statement execution failed"
	logMsgCloseRowsFailed     = "failed to close database rows"
	logMsgScanRowFailed       = "failed to scan database row"
	logMsgBeginFailed         = "failed to begin transaction"
	logMsgCommitFailed        = "failed to commit transaction"
	logMsgRollbackFailed      = "failed to roll back transaction"
	logMsgTransactionConflict = "transaction conflict detected"
	logMsgWorkerSetup         = "worker setup"
	logMsgOrderSubmitted      = "order submitted"
	logMsgOrderProcessed      = "order processed"
	logMsgDrainCompleted      = "drain completed"
	logMsgSQLExecuted         = "executed sql for: "
	logAttrError              = "error"
	logAttrQuery              = "query"
	logAttrDurationMS         = "duration_ms"
	logAttrWorkerID           = "worker_id"
	logAttrTotalWorkers       = "total_worker_count"
	logAttrVersion            = "version"
	logAttrOperation          = "operation"
	logAttrOrderNbr           = "order_nbr"
	logAttrOrderType          = "order_type"
	logAttrSymbol             = "symbol"
	logAttrAccountNbr         = "account_nbr"
	logAttrQuantity           = "quantity"
	logAttrUnitPrice          = "unit_price"
	logAttrTradePrice         = "trade_price"
	logAttrNewPrice           = "new_price"
	logAttrProcessedCount     = "processed_count"
	reportPricePlaces         = 2
)

// Engine executes the submit and drain transactions of the trade workload.
// An Engine holds no per-call state and may be shared, but each worker is expected to own one
// Engine on its own connection.
type Engine struct {
	db               adapters.DBAdapter
	logger           tradeorder.Logger
	contextualLogger tradeorder.ContextualLogger
	metricsCollector tradeorder.MetricsCollector
	tracingCollector tradeorder.TracingCollector
	randomizer       tradeorder.Randomizer
	clock            tradeorder.Clock
	processingDelay  time.Duration
	priceTick        decimal.Decimal
	drainBatchLimit  uint
}

// NewEngineFromPGXConn creates a new Engine on a single pgx connection with optional configuration.
func NewEngineFromPGXConn(db *pgx.Conn, options ...Option) (Engine, error) {
	if db == nil {
		return Engine{}, tradeorder.ErrNilDatabaseConnection
	}

	return newEngine(adapters.NewPGXAdapter(db), options...)
}

// NewEngineFromPGXPool creates a new Engine using a pgx Pool with optional configuration.
func NewEngineFromPGXPool(db *pgxpool.Pool, options ...Option) (Engine, error) {
	if db == nil {
		return Engine{}, tradeorder.ErrNilDatabaseConnection
	}

	return newEngine(adapters.NewPGXAdapter(db), options...)
}

// NewEngineFromSQLDB creates a new Engine using a sql.DB with optional configuration.
func NewEngineFromSQLDB(db *sql.DB, options ...Option) (Engine, error) {
	if db == nil {
		return Engine{}, tradeorder.ErrNilDatabaseConnection
	}

	return newEngine(adapters.NewSQLAdapter(db), options...)
}

// NewEngineFromSQLX creates a new Engine using a sqlx.DB with optional configuration.
func NewEngineFromSQLX(db *sqlx.DB, options ...Option) (Engine, error) {
	if db == nil {
		return Engine{}, tradeorder.ErrNilDatabaseConnection
	}

	return newEngine(adapters.NewSQLXAdapter(db), options...)
}

// NewEngineFromGORM creates a new Engine using a gorm.DB with optional configuration.
func NewEngineFromGORM(db *gorm.DB, options ...Option) (Engine, error) {
	if db == nil {
		return Engine{}, tradeorder.ErrNilDatabaseConnection
	}

	return newEngine(adapters.NewGORMAdapter(db), options...)
}

func newEngine(db adapters.DBAdapter, options ...Option) (Engine, error) {
	e := Engine{
		db:              db,
		randomizer:      tradeorder.NewTimeSeededRandomizer(),
		clock:           tradeorder.SystemClock{},
		processingDelay: defaultProcessingDelay,
		priceTick:       decimal.RequireFromString(defaultPriceTick),
	}

	for _, option := range options {
		if err := option(&e); err != nil {
			return Engine{}, err
		}
	}

	return e, nil
}

// Setup is a diagnostic hook called once per worker. It logs the worker identity
// and returns the version string reported by the database.
func (e Engine) Setup(ctx context.Context, workerID, totalWorkers int) (string, error) {
	if _, err := tradeorder.NewWorkerConfig(
		tradeorder.WithWorkerID(workerID),
		tradeorder.WithTotalWorkerCount(totalWorkers),
	); err != nil {
		return "", err
	}

	sqlQuery, buildErr := buildVersionQuery()
	if buildErr != nil {
		e.logError(ctx, logMsgBuildQueryFailed, buildErr)
		return "", errors.Join(tradeorder.ErrBuildingQueryFailed, buildErr)
	}

	start := time.Now()
	rows, queryErr := e.db.Query(ctx, sqlQuery)
	e.logQueryWithDuration(ctx, sqlQuery, actionVersion, time.Since(start))

	if queryErr != nil {
		e.logError(ctx, logMsgDBQueryFailed, queryErr, logAttrQuery, sqlQuery)
		return "", errors.Join(tradeorder.ErrQueryFailed, queryErr)
	}
	defer e.closeRows(ctx, rows)

	var version string
	if found, scanErr := scanSingleRow(rows, &version); scanErr != nil || !found {
		if scanErr == nil {
			scanErr = sql.ErrNoRows
		}

		e.logError(ctx, logMsgScanRowFailed, scanErr)

		return "", errors.Join(tradeorder.ErrScanFailed, scanErr)
	}

	e.logOperation(
		ctx,
		logMsgWorkerSetup,
		logAttrWorkerID, workerID,
		logAttrTotalWorkers, totalWorkers,
		logAttrVersion, version,
	)

	return version, nil
}

// inTransaction runs fn in one transaction, rolling back on any error and committing otherwise.
func (e Engine) inTransaction(ctx context.Context, fn func(tx adapters.DBTx) error) error {
	tx, beginErr := e.db.BeginTx(ctx)
	if beginErr != nil {
		e.logError(ctx, logMsgBeginFailed, beginErr)
		return errors.Join(tradeorder.ErrBeginTransactionFailed, beginErr)
	}

	if fnErr := fn(tx); fnErr != nil {
		if rollbackErr := tx.Rollback(context.WithoutCancel(ctx)); rollbackErr != nil {
			e.logWarn(ctx, logMsgRollbackFailed, logAttrError, rollbackErr.Error())
		}

		return fnErr
	}

	if commitErr := tx.Commit(ctx); commitErr != nil {
		e.logError(ctx, logMsgCommitFailed, commitErr)
		return errors.Join(tradeorder.ErrCommitFailed, commitErr)
	}

	return nil
}

// queryInTx executes a query within the transaction and logs it with its duration.
func (e Engine) queryInTx(ctx context.Context, tx adapters.DBTx, sqlQuery, action string) (adapters.DBRows, error) {
	start := time.Now()
	rows, queryErr := tx.Query(ctx, sqlQuery)
	e.logQueryWithDuration(ctx, sqlQuery, action, time.Since(start))

	if queryErr != nil {
		e.logError(ctx, logMsgDBQueryFailed, queryErr, logAttrQuery, sqlQuery)
		return nil, errors.Join(tradeorder.ErrQueryFailed, queryErr)
	}

	return rows, nil
}

// execInTx executes a statement within the transaction and returns the number of affected rows.
func (e Engine) execInTx(ctx context.Context, tx adapters.DBTx, sqlQuery, action string) (int64, error) {
	start := time.Now()
	result, execErr := tx.Exec(ctx, sqlQuery)
	e.logQueryWithDuration(ctx, sqlQuery, action, time.Since(start))

	if execErr != nil {
		e.logError(ctx, logMsgDBExecFailed, execErr, logAttrQuery, sqlQuery)
		return 0, errors.Join(tradeorder.ErrExecFailed, execErr)
	}

	rowsAffected, rowsAffectedErr := result.RowsAffected()
	if rowsAffectedErr != nil {
		return 0, errors.Join(tradeorder.ErrGettingRowsAffectedFail, rowsAffectedErr)
	}

	return rowsAffected, nil
}

// closeRows safely closes database rows and logs any errors.
func (e Engine) closeRows(ctx context.Context, rows adapters.DBRows) {
	if closeErr := rows.Close(); closeErr != nil {
		e.logWarn(ctx, logMsgCloseRowsFailed, logAttrError, closeErr.Error())
	}
}

// scanSingleRow scans the first row into dest and reports whether there was one.
func scanSingleRow(rows adapters.DBRows, dest ...any) (bool, error) {
	if !rows.Next() {
		return false, rows.Err()
	}

	if err := rows.Scan(dest...); err != nil {
		return false, err
	}

	return true, nil
}

func wrapBuildError(what string, err error) error {
	return errors.Join(tradeorder.ErrBuildingQueryFailed, fmt.Errorf("%s: %w", what, err))
}
