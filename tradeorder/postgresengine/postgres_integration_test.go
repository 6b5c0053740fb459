package postgresengine_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/birdtrade/trade-workload-go/testutil/postgresengine/helper"                 //nolint:revive
	. "github.com/birdtrade/trade-workload-go/testutil/postgresengine/helper/postgreswrapper" //nolint:revive
	"github.com/birdtrade/trade-workload-go/tradeorder"
	"github.com/birdtrade/trade-workload-go/tradeorder/postgresengine"
)

func givenSingleInstrumentMarket(symbol, price string, numAccounts int) tradeorder.Market {
	market := tradeorder.DefaultMarket(numAccounts)
	market.Instruments = []tradeorder.Instrument{{Symbol: symbol, CurrentPrice: decimal.RequireFromString(price)}}

	return market
}

func Test_Integration_Buy_Then_Drain_Processes_The_Order_Once(t *testing.T) {
	// setup
	ctx := context.Background()
	logHandler := NewLogHandlerSpy(false)
	wrapper := CreateWrapperWithTestConfig(
		t,
		postgresengine.WithProcessingDelay(0),
		postgresengine.WithLogger(slog.New(logHandler)),
		// instrument 0, account 0, order nbr, quantity 10, buy
		postgresengine.WithRandomizer(NewScriptedRandomizer(0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 9, 0)),
	)
	defer wrapper.Close()
	engine := wrapper.GetEngine()

	// arrange
	GivenSchemaWithMarket(t, wrapper, givenSingleInstrumentMarket("AAPL", "100.00", 1))

	// act
	submitted, submitErr := engine.Submit(ctx)

	// assert
	require.NoError(t, submitErr)
	assert.Equal(t, tradeorder.OrderTypeBuy, submitted.Order.OrderType)
	assert.Equal(t, "100.10", GetInstrumentPrice(t, wrapper, "AAPL").StringFixed(2))
	assert.Equal(t, 1, CountRows(t, wrapper, "orders", ""))
	assert.Equal(t, 1, CountRows(t, wrapper, "order_activity", "order_status = 'order_received'"))

	// act
	drained, drainErr := engine.Drain(ctx)

	// assert
	require.NoError(t, drainErr)
	require.Equal(t, 1, drained.Count())
	assert.Equal(t, submitted.Order.OrderNbr, drained.ProcessedOrders[0].OrderNbr)
	assert.Equal(t, "100.00", drained.ProcessedOrders[0].TradePrice.StringFixed(2))
	assert.Equal(t, "100.10", drained.ProcessedOrders[0].InstrumentPrice.StringFixed(2))
	assert.Equal(t, 1, CountRows(t, wrapper, "order_processing", ""))
	assert.Equal(t, 1, CountRows(t, wrapper, "trades", "trade_price = 100.00 AND quantity = 10"))
	assert.Equal(t, 1, CountRows(t, wrapper, "order_activity", "order_status = 'order_processed'"))
	assert.True(t, logHandler.HasInfoLogWithMessage("order processed").WithAttrValue("new_price", "100.10").Assert())

	// act
	drainedAgain, drainAgainErr := engine.Drain(ctx)

	// assert
	require.NoError(t, drainAgainErr)
	assert.Equal(t, 0, drainedAgain.Count())
	assert.Equal(t, 1, CountRows(t, wrapper, "trades", ""))
}

func Test_Integration_Submit_Writes_Nothing_When_No_Accounts_Exist(t *testing.T) {
	// setup
	ctx := context.Background()
	wrapper := CreateWrapperWithTestConfig(t, postgresengine.WithProcessingDelay(0))
	defer wrapper.Close()

	// arrange
	GivenSchemaWithMarket(t, wrapper, givenSingleInstrumentMarket("MSFT", "310.00", 0))

	// act
	_, err := wrapper.GetEngine().Submit(ctx)

	// assert
	assert.ErrorIs(t, err, tradeorder.ErrDataIntegrityViolation)
	assert.ErrorIs(t, err, tradeorder.ErrNoAccounts)
	assert.Equal(t, 0, CountRows(t, wrapper, "orders", ""))
	assert.Equal(t, "310.00", GetInstrumentPrice(t, wrapper, "MSFT").StringFixed(2))
}

func Test_Integration_Concurrent_Drains_Process_Every_Order_Exactly_Once(t *testing.T) {
	// setup
	ctx := context.Background()
	const numOrders = 60
	const numDrainers = 8

	wrapper := CreateWrapperWithTestConfig(t, postgresengine.WithProcessingDelay(0))
	defer wrapper.Close()
	engine := wrapper.GetEngine()

	// arrange
	GivenSchemaWithMarket(t, wrapper, tradeorder.DefaultMarket(5))

	for submitted := 0; submitted < numOrders; {
		if _, err := engine.Submit(ctx); err != nil {
			require.ErrorIs(t, err, tradeorder.ErrTransactionConflict, "error in arranging test data")
			continue
		}
		submitted++
	}

	// act
	var processed atomic.Int64
	var wg sync.WaitGroup
	deadline := time.Now().Add(30 * time.Second)

	for range numDrainers {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for time.Now().Before(deadline) {
				result, err := engine.Drain(ctx)
				if errors.Is(err, tradeorder.ErrTransactionConflict) {
					continue
				}

				if !assert.NoError(t, err) {
					return
				}

				processed.Add(int64(result.Count()))

				if result.Count() == 0 {
					return
				}
			}
		}()
	}

	wg.Wait()

	// a drainer may have seen an empty claim while others still held locks
	for {
		result, err := engine.Drain(ctx)
		if errors.Is(err, tradeorder.ErrTransactionConflict) {
			continue
		}

		require.NoError(t, err)
		processed.Add(int64(result.Count()))

		if result.Count() == 0 {
			break
		}
	}

	// assert
	assert.Equal(t, int64(numOrders), processed.Load())
	assert.Equal(t, numOrders, CountRows(t, wrapper, "order_processing", ""))
	assert.Equal(t, numOrders, CountRows(t, wrapper, "trades", ""))
	assert.Equal(t, numOrders, CountRows(t, wrapper, "order_activity", "order_status = 'order_processed'"))
	assert.Equal(t, numOrders, CountRows(
		t,
		wrapper,
		"(SELECT DISTINCT order_id FROM order_processing) AS processed_orders",
		"",
	))
}

func Test_Integration_Concurrent_Submits_And_Drains_Process_Every_Order_Exactly_Once(t *testing.T) {
	// setup
	ctx := context.Background()
	const numSubmitters = 4
	const ordersPerSubmitter = 15
	const numDrainers = 4

	wrapper := CreateWrapperWithTestConfig(t, postgresengine.WithProcessingDelay(0))
	defer wrapper.Close()
	engine := wrapper.GetEngine()

	// arrange
	GivenSchemaWithMarket(t, wrapper, tradeorder.DefaultMarket(5))

	isRetryable := func(err error) bool {
		return errors.Is(err, tradeorder.ErrTransactionConflict) || errors.Is(err, tradeorder.ErrDataIntegrityViolation)
	}

	// act
	var submitted atomic.Int64
	var submitters sync.WaitGroup
	submitting := make(chan struct{})

	for range numSubmitters {
		submitters.Add(1)
		go func() {
			defer submitters.Done()

			for done := 0; done < ordersPerSubmitter; {
				if _, err := engine.Submit(ctx); err != nil {
					if !assert.True(t, isRetryable(err), err) {
						return
					}
					continue
				}
				done++
				submitted.Add(1)
			}
		}()
	}

	go func() {
		submitters.Wait()
		close(submitting)
	}()

	var drainers sync.WaitGroup

	for range numDrainers {
		drainers.Add(1)
		go func() {
			defer drainers.Done()

			for {
				select {
				case <-submitting:
					return
				default:
				}

				if _, err := engine.Drain(ctx); err != nil && !assert.True(t, isRetryable(err), err) {
					return
				}
			}
		}()
	}

	drainers.Wait()

	for {
		result, err := engine.Drain(ctx)
		if err != nil {
			require.True(t, isRetryable(err), err)
			continue
		}

		if result.Count() == 0 {
			break
		}
	}

	// assert
	total := int(submitted.Load())
	assert.Equal(t, numSubmitters*ordersPerSubmitter, total)
	assert.Equal(t, total, CountRows(t, wrapper, "order_processing", ""))
	assert.Equal(t, total, CountRows(
		t,
		wrapper,
		"(SELECT DISTINCT order_id FROM order_processing) AS processed_orders",
		"",
	))
	assert.Equal(t, total, CountRows(t, wrapper, "trades", ""))
	assert.Equal(t, total, CountRows(t, wrapper, "order_activity", "order_status = 'order_processed'"))
}
