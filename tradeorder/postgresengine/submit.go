package postgresengine

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/birdtrade/trade-workload-go/tradeorder"
	"github.com/birdtrade/trade-workload-go/tradeorder/postgresengine/internal/adapters"
)

// submitContext carries the values of one Submit call between its steps. It is built fresh per call.
type submitContext struct {
	instrument tradeorder.Instrument
	account    tradeorder.Account
	order      tradeorder.Order
	activity   tradeorder.OrderActivity
	newPrice   decimal.Decimal
}

// Submit places one randomly synthesized order in a single transaction:
// it picks a random instrument and account, inserts the order and its order_received activity,
// and moves the instrument price one tick up for a buy or down for a sell.
//
// Returns an error matching tradeorder.ErrDataIntegrityViolation when there are no instruments or
// accounts, and tradeorder.ErrTransactionConflict when the database aborted the transaction due to
// contention. In both cases nothing was written.
func (e Engine) Submit(ctx context.Context) (tradeorder.SubmittedOrder, error) {
	observer, ctx := e.startObserving(ctx, spanNameSubmit, tradeorder.OperationSubmit, tradeorder.MetricSubmitDuration)

	var txCtx *submitContext

	err := e.inTransaction(ctx, func(tx adapters.DBTx) error {
		var submitErr error
		txCtx, submitErr = e.submitInTx(ctx, tx)

		return submitErr
	})

	if err != nil {
		err = classifyError(err)
		observer.finishError(err)

		return tradeorder.SubmittedOrder{}, err
	}

	duration := observer.finishSuccess(map[string]string{
		spanAttrOrderNbr: txCtx.order.OrderNbr,
		spanAttrSymbol:   txCtx.order.Symbol,
	})

	e.incrementCounter(ctx, tradeorder.MetricOrdersSubmitted, map[string]string{
		tradeorder.LabelOperation: tradeorder.OperationSubmit,
		tradeorder.LabelStatus:    tradeorder.StatusSuccess,
	})

	e.logOperation(
		ctx,
		logMsgOrderSubmitted,
		logAttrOrderNbr, txCtx.order.OrderNbr,
		logAttrOrderType, string(txCtx.order.OrderType),
		logAttrSymbol, txCtx.order.Symbol,
		logAttrAccountNbr, txCtx.order.AccountNbr,
		logAttrQuantity, txCtx.order.TotalQty,
		logAttrUnitPrice, txCtx.order.UnitPrice.String(),
		logAttrNewPrice, txCtx.newPrice.StringFixed(reportPricePlaces),
		logAttrDurationMS, toMilliseconds(duration),
	)

	return tradeorder.SubmittedOrder{
		Order:              txCtx.order,
		NewInstrumentPrice: txCtx.newPrice,
	}, nil
}

func (e Engine) submitInTx(ctx context.Context, tx adapters.DBTx) (*submitContext, error) {
	txCtx := &submitContext{}

	instrument, instrumentErr := e.pickInstrument(ctx, tx)
	if instrumentErr != nil {
		return nil, instrumentErr
	}
	txCtx.instrument = instrument

	account, accountErr := e.pickAccount(ctx, tx)
	if accountErr != nil {
		return nil, accountErr
	}
	txCtx.account = account

	txCtx.order = tradeorder.Order{
		OrderID:    uuid.New(),
		OrderNbr:   tradeorder.RandomOrderNbr(e.randomizer),
		AccountNbr: account.AccountNbr,
		Symbol:     instrument.Symbol,
		EntryTS:    e.clock.Now(),
		TotalQty:   tradeorder.RandomQuantity(e.randomizer),
		OrderType:  tradeorder.RandomOrderType(e.randomizer),
		UnitPrice:  instrument.CurrentPrice,
	}
	txCtx.activity = txCtx.order.ReceivedActivity(uuid.New())
	txCtx.newPrice = tradeorder.AdjustedPrice(instrument.CurrentPrice, txCtx.order.OrderType, e.priceTick)

	insertOrderQuery, buildErr := buildInsertOrderQuery(txCtx.order)
	if buildErr != nil {
		return nil, buildErr
	}

	if _, execErr := e.execInTx(ctx, tx, insertOrderQuery, actionInsertOrder); execErr != nil {
		return nil, execErr
	}

	insertActivityQuery, buildErr := buildInsertActivityQuery(txCtx.activity)
	if buildErr != nil {
		return nil, buildErr
	}

	if _, execErr := e.execInTx(ctx, tx, insertActivityQuery, actionInsertActivity); execErr != nil {
		return nil, execErr
	}

	updatePriceQuery, buildErr := buildUpdatePriceQuery(tradeorder.Instrument{
		Symbol:       instrument.Symbol,
		CurrentPrice: txCtx.newPrice,
	})
	if buildErr != nil {
		return nil, buildErr
	}

	rowsAffected, execErr := e.execInTx(ctx, tx, updatePriceQuery, actionUpdatePrice)
	if execErr != nil {
		return nil, execErr
	}

	if rowsAffected != 1 {
		return nil, errors.Join(
			tradeorder.ErrDataIntegrityViolation,
			tradeorder.ErrInstrumentNotUpdated,
			fmt.Errorf("%s: %d rows affected", instrument.Symbol, rowsAffected),
		)
	}

	return txCtx, nil
}

// pickInstrument reads one instrument chosen uniformly at random.
func (e Engine) pickInstrument(ctx context.Context, tx adapters.DBTx) (tradeorder.Instrument, error) {
	offset, countErr := e.randomOffset(ctx, tx, tableInstruments, actionCountInstruments, tradeorder.ErrNoInstruments)
	if countErr != nil {
		return tradeorder.Instrument{}, countErr
	}

	sqlQuery, buildErr := buildPickInstrumentQuery(offset)
	if buildErr != nil {
		return tradeorder.Instrument{}, buildErr
	}

	rows, queryErr := e.queryInTx(ctx, tx, sqlQuery, actionPickInstrument)
	if queryErr != nil {
		return tradeorder.Instrument{}, queryErr
	}
	defer e.closeRows(ctx, rows)

	var instrument tradeorder.Instrument
	found, scanErr := scanSingleRow(rows, &instrument.Symbol, &instrument.CurrentPrice)
	if scanErr != nil {
		e.logError(ctx, logMsgScanRowFailed, scanErr)
		return tradeorder.Instrument{}, errors.Join(tradeorder.ErrScanFailed, scanErr)
	}

	if !found {
		return tradeorder.Instrument{}, errors.Join(tradeorder.ErrDataIntegrityViolation, tradeorder.ErrNoInstruments)
	}

	return instrument, nil
}

// pickAccount reads one account chosen uniformly at random.
func (e Engine) pickAccount(ctx context.Context, tx adapters.DBTx) (tradeorder.Account, error) {
	offset, countErr := e.randomOffset(ctx, tx, tableAccounts, actionCountAccounts, tradeorder.ErrNoAccounts)
	if countErr != nil {
		return tradeorder.Account{}, countErr
	}

	sqlQuery, buildErr := buildPickAccountQuery(offset)
	if buildErr != nil {
		return tradeorder.Account{}, buildErr
	}

	rows, queryErr := e.queryInTx(ctx, tx, sqlQuery, actionPickAccount)
	if queryErr != nil {
		return tradeorder.Account{}, queryErr
	}
	defer e.closeRows(ctx, rows)

	var account tradeorder.Account
	found, scanErr := scanSingleRow(rows, &account.AccountNbr)
	if scanErr != nil {
		e.logError(ctx, logMsgScanRowFailed, scanErr)
		return tradeorder.Account{}, errors.Join(tradeorder.ErrScanFailed, scanErr)
	}

	if !found {
		return tradeorder.Account{}, errors.Join(tradeorder.ErrDataIntegrityViolation, tradeorder.ErrNoAccounts)
	}

	return account, nil
}

// randomOffset counts the rows of table and returns a uniformly random position in [0, count).
func (e Engine) randomOffset(
	ctx context.Context,
	tx adapters.DBTx,
	table, action string,
	emptyErr error,
) (int, error) {

	sqlQuery, buildErr := buildCountQuery(table)
	if buildErr != nil {
		return 0, buildErr
	}

	rows, queryErr := e.queryInTx(ctx, tx, sqlQuery, action)
	if queryErr != nil {
		return 0, queryErr
	}
	defer e.closeRows(ctx, rows)

	var count int64
	if _, scanErr := scanSingleRow(rows, &count); scanErr != nil {
		e.logError(ctx, logMsgScanRowFailed, scanErr)
		return 0, errors.Join(tradeorder.ErrScanFailed, scanErr)
	}

	if count <= 0 {
		return 0, errors.Join(tradeorder.ErrDataIntegrityViolation, emptyErr)
	}

	return e.randomizer.IntN(int(count)), nil
}
