package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"
)

var (
	ErrOrderTerminal   = errors.New("order: transition out of terminal state")
	ErrOrderTransition = errors.New("order: invalid status transition")
	ErrOrderOverfill   = errors.New("order: fill exceeds remaining quantity")
	ErrFillQuantity    = errors.New("order: fill quantity must be > 0")
)

// OrderIntent is a request to trade before it is accepted by a broker.
type OrderIntent struct {
	Symbol     string
	Side       Side
	Quantity   int64
	Type       OrderType
	LimitPrice decimal.Decimal
	StopPrice  decimal.Decimal
	SignalID   string
}

// Fill is an immutable execution record.
type Fill struct {
	Timestamp time.Time
	OrderID   string
	Symbol    string
	Side      Side
	Quantity  int64
	Price     decimal.Decimal
	Fee       decimal.Decimal
}

// Order is the tracked lifecycle object for a submitted intent.
type Order struct {
	ID            string
	BrokerOrderID string
	Symbol        string
	Side          Side
	Type          OrderType
	Quantity      int64
	LimitPrice    decimal.Decimal
	Status        OrderStatus
	FilledQty     int64
	AvgFillPrice  decimal.Decimal
	Fills         []Fill
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewOrder creates a pending order from an intent.
func NewOrder(intent OrderIntent, ts time.Time) *Order {
	return &Order{
		ID:         uuid.NewString(),
		Symbol:     intent.Symbol,
		Side:       intent.Side,
		Type:       intent.Type,
		Quantity:   intent.Quantity,
		LimitPrice: intent.LimitPrice,
		Status:     OrderStatusPending,
		CreatedAt:  ts,
		UpdatedAt:  ts,
	}
}

// Transition moves the order to the next status. Transitions are monotonic:
// a terminal order never changes and the lifecycle never runs backwards.
func (o *Order) Transition(next OrderStatus, ts time.Time) error {
	if o.Status.IsTerminal() {
		return ErrOrderTerminal
	}
	if next.rank() < o.Status.rank() {
		return ErrOrderTransition
	}
	o.Status = next
	o.UpdatedAt = ts
	return nil
}

// ApplyFill records an execution, keeping sum(fills) == FilledQty <= Quantity.
func (o *Order) ApplyFill(fill Fill) error {
	if o.Status.IsTerminal() {
		return ErrOrderTerminal
	}
	if fill.Quantity <= 0 {
		return ErrFillQuantity
	}
	if o.FilledQty+fill.Quantity > o.Quantity {
		return ErrOrderOverfill
	}

	prevNotional := o.AvgFillPrice.Mul(decimal.NewFromInt(o.FilledQty))
	fillNotional := fill.Price.Mul(decimal.NewFromInt(fill.Quantity))
	o.FilledQty += fill.Quantity
	o.AvgFillPrice = prevNotional.Add(fillNotional).Div(decimal.NewFromInt(o.FilledQty))

	o.Fills = append(o.Fills, fill)
	o.UpdatedAt = fill.Timestamp
	if o.FilledQty == o.Quantity {
		o.Status = OrderStatusFilled
	} else {
		o.Status = OrderStatusPartFilled
	}
	return nil
}

// Remaining returns the unfilled quantity.
func (o *Order) Remaining() int64 {
	return o.Quantity - o.FilledQty
}
