package postgresengine

import (
	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/birdtrade/trade-workload-go/tradeorder"
)

const (
	dialectPostgres        = "postgres"
	tableInstruments       = "instruments"
	tableAccounts          = "accounts"
	tableOrders            = "orders"
	tableOrderActivity     = "order_activity"
	tableOrderProcessing   = "order_processing"
	tableTrades            = "trades"
	colSymbol              = "symbol"
	colCurrentPrice        = "current_price"
	colAccountNbr          = "account_nbr"
	colOrderID             = "order_id"
	colOrderNbr            = "order_nbr"
	colEntryTS             = "entry_ts"
	colTotalQty            = "total_qty"
	colOrderType           = "order_type"
	colUnitPrice           = "unit_price"
	colActivityID          = "activity_id"
	colOrderStatus         = "order_status"
	colActivityEntryTS     = "activity_entry_ts"
	colExecutionID         = "execution_id"
	colOrderExecutedTS     = "order_executed_ts"
	colTradeID             = "trade_id"
	colTradePrice          = "trade_price"
	colQuantity            = "quantity"
	colTradeTS             = "trade_ts"
	funcVersion            = "version"
	actionVersion          = "version"
	actionCountInstruments = "count instruments"
	actionPickInstrument   = "pick instrument"
	actionCountAccounts    = "count accounts"
	actionPickAccount      = "pick account"
	actionInsertOrder      = "insert order"
	actionInsertActivity   = "insert order activity"
	actionUpdatePrice      = "update instrument price"
	actionClaimPending     = "claim pending orders"
	actionInsertProcessing = "insert order processing"
	actionInsertTrade      = "insert trade"
	actionReadCurrentPrice = "read instrument price"
)

func dialect() goqu.DialectWrapper {
	return goqu.Dialect(dialectPostgres)
}

func buildVersionQuery() (string, error) {
	sqlQuery, _, err := dialect().Select(goqu.Func(funcVersion)).ToSQL()
	if err != nil {
		return "", wrapBuildError(actionVersion, err)
	}

	return sqlQuery, nil
}

func buildCountQuery(table string) (string, error) {
	sqlQuery, _, err := dialect().From(table).Select(goqu.COUNT(goqu.Star())).ToSQL()
	if err != nil {
		return "", wrapBuildError("count "+table, err)
	}

	return sqlQuery, nil
}

// buildPickInstrumentQuery selects the instrument at a stable position, ordered by symbol.
func buildPickInstrumentQuery(offset int) (string, error) {
	sqlQuery, _, err := dialect().
		From(tableInstruments).
		Select(colSymbol, colCurrentPrice).
		Order(goqu.C(colSymbol).Asc()).
		Limit(1).
		Offset(uint(offset)).
		ToSQL()
	if err != nil {
		return "", wrapBuildError(actionPickInstrument, err)
	}

	return sqlQuery, nil
}

// buildPickAccountQuery selects the account at a stable position, ordered by account number.
func buildPickAccountQuery(offset int) (string, error) {
	sqlQuery, _, err := dialect().
		From(tableAccounts).
		Select(colAccountNbr).
		Order(goqu.C(colAccountNbr).Asc()).
		Limit(1).
		Offset(uint(offset)).
		ToSQL()
	if err != nil {
		return "", wrapBuildError(actionPickAccount, err)
	}

	return sqlQuery, nil
}

func buildInsertOrderQuery(order tradeorder.Order) (string, error) {
	sqlQuery, _, err := dialect().
		Insert(tableOrders).
		Rows(goqu.Record{
			colOrderID:    order.OrderID.String(),
			colOrderNbr:   order.OrderNbr,
			colAccountNbr: order.AccountNbr,
			colSymbol:     order.Symbol,
			colEntryTS:    order.EntryTS,
			colTotalQty:   order.TotalQty,
			colOrderType:  string(order.OrderType),
			colUnitPrice:  order.UnitPrice.String(),
		}).
		ToSQL()
	if err != nil {
		return "", wrapBuildError(actionInsertOrder, err)
	}

	return sqlQuery, nil
}

func buildInsertActivityQuery(activity tradeorder.OrderActivity) (string, error) {
	sqlQuery, _, err := dialect().
		Insert(tableOrderActivity).
		Rows(goqu.Record{
			colActivityID:      activity.ActivityID.String(),
			colOrderID:         activity.OrderID.String(),
			colOrderNbr:        activity.OrderNbr,
			colOrderStatus:     string(activity.OrderStatus),
			colActivityEntryTS: activity.ActivityEntryTS,
			colSymbol:          activity.Symbol,
			colTotalQty:        activity.TotalQty,
			colOrderType:       string(activity.OrderType),
			colUnitPrice:       activity.UnitPrice.String(),
		}).
		ToSQL()
	if err != nil {
		return "", wrapBuildError(actionInsertActivity, err)
	}

	return sqlQuery, nil
}

func buildUpdatePriceQuery(instrument tradeorder.Instrument) (string, error) {
	sqlQuery, _, err := dialect().
		Update(tableInstruments).
		Set(goqu.Record{colCurrentPrice: instrument.CurrentPrice.String()}).
		Where(goqu.C(colSymbol).Eq(instrument.Symbol)).
		ToSQL()
	if err != nil {
		return "", wrapBuildError(actionUpdatePrice, err)
	}

	return sqlQuery, nil
}

// buildClaimPendingQuery selects every order_received activity without an order_processed counterpart,
// oldest first, locking the rows and skipping rows locked by concurrent transactions.
func buildClaimPendingQuery(limit uint) (string, error) {
	processedOrderIDs := dialect().
		From(tableOrderActivity).
		Select(colOrderID).
		Where(goqu.C(colOrderStatus).Eq(string(tradeorder.OrderStatusProcessed)))

	claim := dialect().
		From(tableOrderActivity).
		Select(
			colActivityID,
			colOrderID,
			colOrderNbr,
			colOrderStatus,
			colActivityEntryTS,
			colSymbol,
			colTotalQty,
			colOrderType,
			colUnitPrice,
		).
		Where(
			goqu.C(colOrderStatus).Eq(string(tradeorder.OrderStatusReceived)),
			goqu.C(colOrderID).NotIn(processedOrderIDs),
		).
		Order(goqu.C(colActivityEntryTS).Asc()).
		ForUpdate(exp.SkipLocked)

	if limit > 0 {
		claim = claim.Limit(limit)
	}

	sqlQuery, _, err := claim.ToSQL()
	if err != nil {
		return "", wrapBuildError(actionClaimPending, err)
	}

	return sqlQuery, nil
}

func buildInsertProcessingQuery(processing tradeorder.OrderProcessing) (string, error) {
	sqlQuery, _, err := dialect().
		Insert(tableOrderProcessing).
		Rows(goqu.Record{
			colExecutionID:     processing.ExecutionID.String(),
			colOrderID:         processing.OrderID.String(),
			colOrderStatus:     string(processing.OrderStatus),
			colOrderNbr:        processing.OrderNbr,
			colOrderExecutedTS: processing.OrderExecutedTS,
			colSymbol:          processing.Symbol,
			colTotalQty:        processing.TotalQty,
			colUnitPrice:       processing.UnitPrice.String(),
		}).
		ToSQL()
	if err != nil {
		return "", wrapBuildError(actionInsertProcessing, err)
	}

	return sqlQuery, nil
}

func buildInsertTradeQuery(trade tradeorder.Trade) (string, error) {
	sqlQuery, _, err := dialect().
		Insert(tableTrades).
		Rows(goqu.Record{
			colTradeID:     trade.TradeID.String(),
			colExecutionID: trade.ExecutionID.String(),
			colSymbol:      trade.Symbol,
			colOrderType:   string(trade.OrderType),
			colTradePrice:  trade.TradePrice.String(),
			colQuantity:    trade.Quantity,
			colTradeTS:     trade.TradeTS,
		}).
		ToSQL()
	if err != nil {
		return "", wrapBuildError(actionInsertTrade, err)
	}

	return sqlQuery, nil
}

func buildReadPriceQuery(symbol string) (string, error) {
	sqlQuery, _, err := dialect().
		From(tableInstruments).
		Select(colCurrentPrice).
		Where(goqu.C(colSymbol).Eq(symbol)).
		ToSQL()
	if err != nil {
		return "", wrapBuildError(actionReadCurrentPrice, err)
	}

	return sqlQuery, nil
}
