package tradeorder

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderType is the side of an order.
type OrderType string

// OrderStatus is the lifecycle status recorded in the order_activity table.
type OrderStatus string

const (
	OrderTypeBuy  OrderType = "buy"
	OrderTypeSell OrderType = "sell"

	OrderStatusReceived  OrderStatus = "order_received"
	OrderStatusProcessed OrderStatus = "order_processed"
)

// OrderTypes lists the sides an order can be submitted with, in a stable order.
var OrderTypes = []OrderType{OrderTypeBuy, OrderTypeSell}

// OrderNbrLength is the length of a generated order number.
const OrderNbrLength = 14

const orderNbrAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Instrument is a tradable security with its current price.
type Instrument struct {
	Symbol       string
	CurrentPrice decimal.Decimal
}

// Account is a trading account. It is read-only for the workload.
type Account struct {
	AccountNbr string
}

// Order is created exactly once by a submit transaction and never changed afterward.
type Order struct {
	OrderID    uuid.UUID
	OrderNbr   string
	AccountNbr string
	Symbol     string
	EntryTS    time.Time
	TotalQty   int
	OrderType  OrderType
	UnitPrice  decimal.Decimal
}

// OrderActivity is one append-only status record of an order.
type OrderActivity struct {
	ActivityID      uuid.UUID
	OrderID         uuid.UUID
	OrderNbr        string
	OrderStatus     OrderStatus
	ActivityEntryTS time.Time
	Symbol          string
	TotalQty        int
	OrderType       OrderType
	UnitPrice       decimal.Decimal
}

// OrderProcessing records the execution of one order.
type OrderProcessing struct {
	ExecutionID     uuid.UUID
	OrderID         uuid.UUID
	OrderStatus     OrderStatus
	OrderNbr        string
	OrderExecutedTS time.Time
	Symbol          string
	TotalQty        int
	UnitPrice       decimal.Decimal
}

// Trade is the fill belonging to an execution.
type Trade struct {
	TradeID     uuid.UUID
	ExecutionID uuid.UUID
	Symbol      string
	OrderType   OrderType
	TradePrice  decimal.Decimal
	Quantity    int
	TradeTS     time.Time
}

// ReceivedActivity builds the order_received activity row for the order.
func (o Order) ReceivedActivity(activityID uuid.UUID) OrderActivity {
	return OrderActivity{
		ActivityID:      activityID,
		OrderID:         o.OrderID,
		OrderNbr:        o.OrderNbr,
		OrderStatus:     OrderStatusReceived,
		ActivityEntryTS: o.EntryTS,
		Symbol:          o.Symbol,
		TotalQty:        o.TotalQty,
		OrderType:       o.OrderType,
		UnitPrice:       o.UnitPrice,
	}
}

// ProcessedActivity builds the order_processed activity row that follows a received activity.
func (a OrderActivity) ProcessedActivity(activityID uuid.UUID, processedAt time.Time) OrderActivity {
	processed := a
	processed.ActivityID = activityID
	processed.OrderStatus = OrderStatusProcessed
	processed.ActivityEntryTS = processedAt

	return processed
}

// Processing builds the execution row for a received activity.
func (a OrderActivity) Processing(executionID uuid.UUID, executedAt time.Time) OrderProcessing {
	return OrderProcessing{
		ExecutionID:     executionID,
		OrderID:         a.OrderID,
		OrderStatus:     OrderStatusProcessed,
		OrderNbr:        a.OrderNbr,
		OrderExecutedTS: executedAt,
		Symbol:          a.Symbol,
		TotalQty:        a.TotalQty,
		UnitPrice:       a.UnitPrice,
	}
}

// Trade builds the trade of an execution. The trade price is the order's unit price.
func (p OrderProcessing) Trade(tradeID uuid.UUID, orderType OrderType, tradedAt time.Time) Trade {
	return Trade{
		TradeID:     tradeID,
		ExecutionID: p.ExecutionID,
		Symbol:      p.Symbol,
		OrderType:   orderType,
		TradePrice:  p.UnitPrice,
		Quantity:    p.TotalQty,
		TradeTS:     tradedAt,
	}
}

// AdjustedPrice moves a price by one tick: up for a buy, down for a sell. There is no floor.
func AdjustedPrice(price decimal.Decimal, orderType OrderType, tick decimal.Decimal) decimal.Decimal {
	if orderType == OrderTypeSell {
		return price.Sub(tick)
	}

	return price.Add(tick)
}

// SubmittedOrder is the outcome of a committed submit transaction.
type SubmittedOrder struct {
	Order              Order
	NewInstrumentPrice decimal.Decimal
}

// ProcessedOrder is one order claimed and executed by a committed drain transaction.
type ProcessedOrder struct {
	OrderID         uuid.UUID
	OrderNbr        string
	Symbol          string
	OrderType       OrderType
	Quantity        int
	TradePrice      decimal.Decimal
	ExecutionID     uuid.UUID
	TradeID         uuid.UUID
	InstrumentPrice decimal.Decimal
}

// DrainResult holds the orders processed by one drain transaction in claim order.
type DrainResult struct {
	ProcessedOrders []ProcessedOrder
}

// Count returns the number of processed orders.
func (r DrainResult) Count() int {
	return len(r.ProcessedOrders)
}
