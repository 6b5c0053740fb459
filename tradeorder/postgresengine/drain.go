package postgresengine

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/birdtrade/trade-workload-go/tradeorder"
	"github.com/birdtrade/trade-workload-go/tradeorder/postgresengine/internal/adapters"
)

// claimedRow holds the scanned columns of one pending order_received activity.
type claimedRow struct {
	activityID      uuid.UUID
	orderID         uuid.UUID
	orderNbr        string
	orderStatus     string
	activityEntryTS time.Time
	symbol          string
	totalQty        int64
	orderType       string
	unitPrice       decimal.Decimal
}

func (r claimedRow) toActivity() (tradeorder.OrderActivity, error) {
	orderType := tradeorder.OrderType(r.orderType)
	if orderType != tradeorder.OrderTypeBuy && orderType != tradeorder.OrderTypeSell {
		return tradeorder.OrderActivity{}, fmt.Errorf("order %s has unknown order type %q", r.orderNbr, r.orderType)
	}

	return tradeorder.OrderActivity{
		ActivityID:      r.activityID,
		OrderID:         r.orderID,
		OrderNbr:        r.orderNbr,
		OrderStatus:     tradeorder.OrderStatus(r.orderStatus),
		ActivityEntryTS: r.activityEntryTS,
		Symbol:          r.symbol,
		TotalQty:        int(r.totalQty),
		OrderType:       orderType,
		UnitPrice:       r.unitPrice,
	}, nil
}

// Drain waits for the processing delay, then claims every pending order in one transaction and
// processes each of them in claim order: it inserts an execution, an order_processed activity and
// a trade at the order's unit price, and re-reads the instrument price for reporting.
//
// Pending orders locked by a concurrent Drain are skipped, so every order is processed exactly once.
// When the transaction aborts none of the claimed orders are marked processed and they stay
// eligible for a later Drain. An empty claim commits and returns an empty DrainResult.
func (e Engine) Drain(ctx context.Context) (tradeorder.DrainResult, error) {
	if err := e.waitProcessingDelay(ctx); err != nil {
		return tradeorder.DrainResult{}, err
	}

	observer, ctx := e.startObserving(ctx, spanNameDrain, tradeorder.OperationDrain, tradeorder.MetricDrainDuration)

	var processed []tradeorder.ProcessedOrder

	err := e.inTransaction(ctx, func(tx adapters.DBTx) error {
		var drainErr error
		processed, drainErr = e.drainInTx(ctx, tx)

		return drainErr
	})

	if err != nil {
		err = classifyError(err)
		observer.finishError(err)

		return tradeorder.DrainResult{}, err
	}

	duration := observer.finishSuccess(map[string]string{
		spanAttrProcessedCnt: strconv.Itoa(len(processed)),
	})

	e.recordValue(ctx, tradeorder.MetricOrdersProcessed, float64(len(processed)), map[string]string{
		tradeorder.LabelOperation: tradeorder.OperationDrain,
		tradeorder.LabelStatus:    tradeorder.StatusSuccess,
	})

	for _, order := range processed {
		e.logOperation(
			ctx,
			logMsgOrderProcessed,
			logAttrOrderNbr, order.OrderNbr,
			logAttrOrderType, string(order.OrderType),
			logAttrSymbol, order.Symbol,
			logAttrTradePrice, order.TradePrice.String(),
			logAttrNewPrice, order.InstrumentPrice.StringFixed(reportPricePlaces),
		)
	}

	e.logOperation(
		ctx,
		logMsgDrainCompleted,
		logAttrProcessedCount, len(processed),
		logAttrDurationMS, toMilliseconds(duration),
	)

	return tradeorder.DrainResult{ProcessedOrders: processed}, nil
}

// waitProcessingDelay sleeps for the processing delay unless ctx is done earlier.
func (e Engine) waitProcessingDelay(ctx context.Context) error {
	if e.processingDelay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(e.processingDelay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e Engine) drainInTx(ctx context.Context, tx adapters.DBTx) ([]tradeorder.ProcessedOrder, error) {
	pending, claimErr := e.claimPending(ctx, tx)
	if claimErr != nil {
		return nil, claimErr
	}

	processed := make([]tradeorder.ProcessedOrder, 0, len(pending))

	for _, activity := range pending {
		processedOrder, processErr := e.processOrder(ctx, tx, activity)
		if processErr != nil {
			return nil, processErr
		}

		processed = append(processed, processedOrder)
	}

	return processed, nil
}

// claimPending locks and reads all claimable order_received activities. All rows are read and the
// result is closed before the caller issues further statements on the transaction.
func (e Engine) claimPending(ctx context.Context, tx adapters.DBTx) ([]tradeorder.OrderActivity, error) {
	sqlQuery, buildErr := buildClaimPendingQuery(e.drainBatchLimit)
	if buildErr != nil {
		e.logError(ctx, logMsgBuildQueryFailed, buildErr)
		return nil, buildErr
	}

	rows, queryErr := e.queryInTx(ctx, tx, sqlQuery, actionClaimPending)
	if queryErr != nil {
		return nil, queryErr
	}
	defer e.closeRows(ctx, rows)

	pending := make([]tradeorder.OrderActivity, 0)

	for rows.Next() {
		var row claimedRow
		scanErr := rows.Scan(
			&row.activityID,
			&row.orderID,
			&row.orderNbr,
			&row.orderStatus,
			&row.activityEntryTS,
			&row.symbol,
			&row.totalQty,
			&row.orderType,
			&row.unitPrice,
		)
		if scanErr != nil {
			e.logError(ctx, logMsgScanRowFailed, scanErr)
			return nil, errors.Join(tradeorder.ErrScanFailed, scanErr)
		}

		activity, convertErr := row.toActivity()
		if convertErr != nil {
			e.logError(ctx, logMsgScanRowFailed, convertErr)
			return nil, errors.Join(tradeorder.ErrScanFailed, convertErr)
		}

		pending = append(pending, activity)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		e.logError(ctx, logMsgDBQueryFailed, rowsErr, logAttrQuery, sqlQuery)
		return nil, errors.Join(tradeorder.ErrQueryFailed, rowsErr)
	}

	return pending, nil
}

// processOrder writes execution, order_processed activity and trade for one claimed order.
func (e Engine) processOrder(
	ctx context.Context,
	tx adapters.DBTx,
	activity tradeorder.OrderActivity,
) (tradeorder.ProcessedOrder, error) {

	executedAt := e.clock.Now()
	processing := activity.Processing(uuid.New(), executedAt)
	processedActivity := activity.ProcessedActivity(uuid.New(), executedAt)
	trade := processing.Trade(uuid.New(), activity.OrderType, executedAt)

	insertProcessingQuery, buildErr := buildInsertProcessingQuery(processing)
	if buildErr != nil {
		return tradeorder.ProcessedOrder{}, buildErr
	}

	if _, execErr := e.execInTx(ctx, tx, insertProcessingQuery, actionInsertProcessing); execErr != nil {
		return tradeorder.ProcessedOrder{}, execErr
	}

	insertActivityQuery, buildErr := buildInsertActivityQuery(processedActivity)
	if buildErr != nil {
		return tradeorder.ProcessedOrder{}, buildErr
	}

	if _, execErr := e.execInTx(ctx, tx, insertActivityQuery, actionInsertActivity); execErr != nil {
		return tradeorder.ProcessedOrder{}, execErr
	}

	insertTradeQuery, buildErr := buildInsertTradeQuery(trade)
	if buildErr != nil {
		return tradeorder.ProcessedOrder{}, buildErr
	}

	if _, execErr := e.execInTx(ctx, tx, insertTradeQuery, actionInsertTrade); execErr != nil {
		return tradeorder.ProcessedOrder{}, execErr
	}

	instrumentPrice, priceErr := e.readCurrentPrice(ctx, tx, activity.Symbol)
	if priceErr != nil {
		return tradeorder.ProcessedOrder{}, priceErr
	}

	return tradeorder.ProcessedOrder{
		OrderID:         activity.OrderID,
		OrderNbr:        activity.OrderNbr,
		Symbol:          activity.Symbol,
		OrderType:       activity.OrderType,
		Quantity:        trade.Quantity,
		TradePrice:      trade.TradePrice,
		ExecutionID:     processing.ExecutionID,
		TradeID:         trade.TradeID,
		InstrumentPrice: instrumentPrice,
	}, nil
}

// readCurrentPrice re-reads the instrument price, which reflects all transactions committed so far.
func (e Engine) readCurrentPrice(ctx context.Context, tx adapters.DBTx, symbol string) (decimal.Decimal, error) {
	sqlQuery, buildErr := buildReadPriceQuery(symbol)
	if buildErr != nil {
		return decimal.Decimal{}, buildErr
	}

	rows, queryErr := e.queryInTx(ctx, tx, sqlQuery, actionReadCurrentPrice)
	if queryErr != nil {
		return decimal.Decimal{}, queryErr
	}
	defer e.closeRows(ctx, rows)

	var price decimal.Decimal
	found, scanErr := scanSingleRow(rows, &price)
	if scanErr != nil {
		e.logError(ctx, logMsgScanRowFailed, scanErr)
		return decimal.Decimal{}, errors.Join(tradeorder.ErrScanFailed, scanErr)
	}

	if !found {
		return decimal.Decimal{}, errors.Join(
			tradeorder.ErrDataIntegrityViolation,
			fmt.Errorf("instrument %s not found", symbol),
		)
	}

	return price, nil
}
