package postgreswrapper

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/birdtrade/trade-workload-go/testutil/postgresengine/config"
	"github.com/birdtrade/trade-workload-go/tradeorder"
	"github.com/birdtrade/trade-workload-go/tradeorder/postgresengine"
)

// Engine type constants
const (
	typePGXPool = "pgx.pool"
	typeSQLDB   = "sql.db"
	typeSQLXDB  = "sqlx.db"
	typeGORM    = "gorm"
)

// workloadTables are truncated by CleanUp, dependents first.
var workloadTables = []string{"trades", "order_processing", "order_activity", "orders"}

// Wrapper abstracts over the different connection types.
type Wrapper interface {
	GetEngine() postgresengine.Engine
	Close()
}

// PGXPoolWrapper wraps pgxpool-based testing
type PGXPoolWrapper struct {
	pool   *pgxpool.Pool
	engine postgresengine.Engine
}

func (w *PGXPoolWrapper) GetEngine() postgresengine.Engine {
	return w.engine
}

func (w *PGXPoolWrapper) Close() {
	w.pool.Close()
}

// SQLDBWrapper wraps sql.DB-based testing
type SQLDBWrapper struct {
	db     *sql.DB
	engine postgresengine.Engine
}

func (w *SQLDBWrapper) GetEngine() postgresengine.Engine {
	return w.engine
}

func (w *SQLDBWrapper) Close() {
	_ = w.db.Close() // ignore error
}

// SQLXWrapper wraps sqlx.DB-based testing
type SQLXWrapper struct {
	db     *sqlx.DB
	engine postgresengine.Engine
}

func (w *SQLXWrapper) GetEngine() postgresengine.Engine {
	return w.engine
}

func (w *SQLXWrapper) Close() {
	_ = w.db.Close() // ignore error
}

// GORMWrapper wraps gorm.DB-based testing
type GORMWrapper struct {
	db     *gorm.DB
	engine postgresengine.Engine
}

func (w *GORMWrapper) GetEngine() postgresengine.Engine {
	return w.engine
}

func (w *GORMWrapper) Close() {
	if sqlDB, err := w.db.DB(); err == nil {
		_ = sqlDB.Close() // ignore error
	}
}

// CreateWrapperWithTestConfig creates the wrapper selected by ADAPTER_TYPE on the integration test database.
// The test is skipped when no test DSN is configured.
func CreateWrapperWithTestConfig(t testing.TB, options ...postgresengine.Option) Wrapper {
	dsn := config.RequireTestDSN(t)
	engineTypeFromEnv := strings.ToLower(os.Getenv("ADAPTER_TYPE"))

	switch engineTypeFromEnv {
	case typePGXPool, "":
		connPool, err := pgxpool.NewWithConfig(context.Background(), config.PostgresPGXPoolTestConfig(dsn))
		require.NoError(t, err, "error connecting to DB pool in test setup")

		engine, err := postgresengine.NewEngineFromPGXPool(connPool, options...)
		require.NoError(t, err, "error creating engine")

		return &PGXPoolWrapper{pool: connPool, engine: engine}

	case typeSQLDB:
		db := config.PostgresSQLDBTestConfig(dsn)

		engine, err := postgresengine.NewEngineFromSQLDB(db, options...)
		require.NoError(t, err, "error creating engine")

		return &SQLDBWrapper{db: db, engine: engine}

	case typeSQLXDB:
		db := config.PostgresSQLXTestConfig(dsn)

		engine, err := postgresengine.NewEngineFromSQLX(db, options...)
		require.NoError(t, err, "error creating engine")

		return &SQLXWrapper{db: db, engine: engine}

	case typeGORM:
		db := config.PostgresGORMTestConfig(dsn)

		engine, err := postgresengine.NewEngineFromGORM(db, options...)
		require.NoError(t, err, "error creating engine")

		return &GORMWrapper{db: db, engine: engine}

	default: // neither one of the known types nor empty
		panic(fmt.Sprintf("unsupported wrapper type from env: %s", engineTypeFromEnv))
	}
}

// GivenSchemaWithMarket creates the schema, empties all workload tables and replaces the reference data
// with the given market.
func GivenSchemaWithMarket(t testing.TB, wrapper Wrapper, market tradeorder.Market) {
	t.Helper()

	err := wrapper.GetEngine().InitSchema(context.Background(), tradeorder.Market{})
	require.NoError(t, err, "error creating the schema")

	CleanUp(t, wrapper)
	exec(t, wrapper, "DELETE FROM accounts")
	exec(t, wrapper, "DELETE FROM instruments")

	err = wrapper.GetEngine().InitSchema(context.Background(), market)
	require.NoError(t, err, "error seeding the market")
}

// CleanUp empties the order, activity, processing and trade tables.
func CleanUp(t testing.TB, wrapper Wrapper) {
	t.Helper()

	for _, table := range workloadTables {
		exec(t, wrapper, "DELETE FROM "+table)
	}
}

// CountRows counts the rows of a table matching an optional where clause.
func CountRows(t testing.TB, wrapper Wrapper, table, where string) int {
	t.Helper()

	query := "SELECT count(*) FROM " + table
	if where != "" {
		query += " WHERE " + where
	}

	var cnt int64
	scanOne(t, wrapper, query, &cnt)

	return int(cnt)
}

// GetInstrumentPrice reads the current price of an instrument.
func GetInstrumentPrice(t testing.TB, wrapper Wrapper, symbol string) decimal.Decimal {
	t.Helper()

	var price string
	scanOne(t, wrapper, fmt.Sprintf("SELECT current_price::TEXT FROM instruments WHERE symbol = '%s'", symbol), &price)

	return decimal.RequireFromString(price)
}

func exec(t testing.TB, wrapper Wrapper, statement string) {
	var err error

	switch w := wrapper.(type) {
	case *PGXPoolWrapper:
		_, err = w.pool.Exec(context.Background(), statement)

	case *SQLDBWrapper:
		_, err = w.db.Exec(statement)

	case *SQLXWrapper:
		_, err = w.db.Exec(statement)

	case *GORMWrapper:
		err = w.db.Exec(statement).Error

	default:
		panic(fmt.Sprintf("unsupported wrapper type: %T", w))
	}

	require.NoError(t, err, "error executing: %s", statement)
}

func scanOne(t testing.TB, wrapper Wrapper, query string, dest any) {
	var err error

	switch w := wrapper.(type) {
	case *PGXPoolWrapper:
		err = w.pool.QueryRow(context.Background(), query).Scan(dest)

	case *SQLDBWrapper:
		err = w.db.QueryRow(query).Scan(dest)

	case *SQLXWrapper:
		err = w.db.QueryRow(query).Scan(dest)

	case *GORMWrapper:
		err = w.db.Raw(query).Row().Scan(dest)

	default:
		panic(fmt.Sprintf("unsupported wrapper type: %T", w))
	}

	require.NoError(t, err, "error querying: %s", query)
}
