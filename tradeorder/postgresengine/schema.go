package postgresengine

import (
	"context"
	"errors"

	"github.com/doug-martin/goqu/v9"

	"github.com/birdtrade/trade-workload-go/tradeorder"
	"github.com/birdtrade/trade-workload-go/tradeorder/postgresengine/internal/adapters"
)

const (
	actionCreateTable     = "create table"
	actionSeedInstruments = "seed instruments"
	actionSeedAccounts    = "seed accounts"
	logMsgSchemaReady     = "schema ready"
	logAttrInstruments    = "instruments"
	logAttrAccounts       = "accounts"
)

// schemaStatements creates the six workload tables. Every statement is idempotent.
// An order has at most one order_processing row.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS instruments (
		symbol        VARCHAR(16) PRIMARY KEY,
		current_price DECIMAL(12,2) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS accounts (
		account_nbr VARCHAR(32) PRIMARY KEY
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		order_id    UUID PRIMARY KEY,
		order_nbr   VARCHAR(32) NOT NULL,
		account_nbr VARCHAR(32) NOT NULL REFERENCES accounts (account_nbr),
		symbol      VARCHAR(16) NOT NULL REFERENCES instruments (symbol),
		entry_ts    TIMESTAMPTZ NOT NULL,
		total_qty   INT NOT NULL,
		order_type  VARCHAR(8) NOT NULL,
		unit_price  DECIMAL(12,2) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS order_activity (
		activity_id       UUID PRIMARY KEY,
		order_id          UUID NOT NULL REFERENCES orders (order_id),
		order_nbr         VARCHAR(32) NOT NULL,
		order_status      VARCHAR(32) NOT NULL,
		activity_entry_ts TIMESTAMPTZ NOT NULL,
		symbol            VARCHAR(16) NOT NULL,
		total_qty         INT NOT NULL,
		order_type        VARCHAR(8) NOT NULL,
		unit_price        DECIMAL(12,2) NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS order_activity_status_idx ON order_activity (order_status, order_id)`,
	`CREATE TABLE IF NOT EXISTS order_processing (
		execution_id      UUID PRIMARY KEY,
		order_id          UUID NOT NULL REFERENCES orders (order_id),
		order_status      VARCHAR(32) NOT NULL,
		order_nbr         VARCHAR(32) NOT NULL,
		order_executed_ts TIMESTAMPTZ NOT NULL,
		symbol            VARCHAR(16) NOT NULL,
		total_qty         INT NOT NULL,
		unit_price        DECIMAL(12,2) NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS order_processing_order_id_key ON order_processing (order_id)`,
	`CREATE TABLE IF NOT EXISTS trades (
		trade_id     UUID PRIMARY KEY,
		execution_id UUID NOT NULL REFERENCES order_processing (execution_id),
		symbol       VARCHAR(16) NOT NULL,
		order_type   VARCHAR(8) NOT NULL,
		trade_price  DECIMAL(12,2) NOT NULL,
		quantity     INT NOT NULL,
		trade_ts     TIMESTAMPTZ NOT NULL
	)`,
}

// InitSchema creates the workload tables if they do not exist and seeds the given market.
// Seeding skips instruments and accounts that already exist, so existing prices are kept.
func (e Engine) InitSchema(ctx context.Context, market tradeorder.Market) error {
	err := e.inTransaction(ctx, func(tx adapters.DBTx) error {
		for _, statement := range schemaStatements {
			if _, execErr := e.execInTx(ctx, tx, statement, actionCreateTable); execErr != nil {
				return execErr
			}
		}

		return e.seedMarket(ctx, tx, market)
	})
	if err != nil {
		return classifyError(err)
	}

	e.logOperation(
		ctx,
		logMsgSchemaReady,
		logAttrInstruments, len(market.Instruments),
		logAttrAccounts, len(market.Accounts),
	)

	return nil
}

func (e Engine) seedMarket(ctx context.Context, tx adapters.DBTx, market tradeorder.Market) error {
	if len(market.Instruments) > 0 {
		sqlQuery, buildErr := buildSeedInstrumentsQuery(market.Instruments)
		if buildErr != nil {
			return buildErr
		}

		if _, execErr := e.execInTx(ctx, tx, sqlQuery, actionSeedInstruments); execErr != nil {
			return execErr
		}
	}

	if len(market.Accounts) > 0 {
		sqlQuery, buildErr := buildSeedAccountsQuery(market.Accounts)
		if buildErr != nil {
			return buildErr
		}

		if _, execErr := e.execInTx(ctx, tx, sqlQuery, actionSeedAccounts); execErr != nil {
			return execErr
		}
	}

	return nil
}

func buildSeedInstrumentsQuery(instruments []tradeorder.Instrument) (string, error) {
	rows := make([]any, 0, len(instruments))
	for _, instrument := range instruments {
		if instrument.Symbol == "" {
			return "", wrapBuildError(actionSeedInstruments, errors.New("empty symbol"))
		}

		rows = append(rows, goqu.Record{
			colSymbol:       instrument.Symbol,
			colCurrentPrice: instrument.CurrentPrice.String(),
		})
	}

	sqlQuery, _, err := dialect().
		Insert(tableInstruments).
		Rows(rows...).
		OnConflict(goqu.DoNothing()).
		ToSQL()
	if err != nil {
		return "", wrapBuildError(actionSeedInstruments, err)
	}

	return sqlQuery, nil
}

func buildSeedAccountsQuery(accounts []tradeorder.Account) (string, error) {
	rows := make([]any, 0, len(accounts))
	for _, account := range accounts {
		if account.AccountNbr == "" {
			return "", wrapBuildError(actionSeedAccounts, errors.New("empty account number"))
		}

		rows = append(rows, goqu.Record{colAccountNbr: account.AccountNbr})
	}

	sqlQuery, _, err := dialect().
		Insert(tableAccounts).
		Rows(rows...).
		OnConflict(goqu.DoNothing()).
		ToSQL()
	if err != nil {
		return "", wrapBuildError(actionSeedAccounts, err)
	}

	return sqlQuery, nil
}
