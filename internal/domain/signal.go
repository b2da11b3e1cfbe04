package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"
)

var (
	ErrSignalQuantity   = errors.New("signal: quantity must be > 0")
	ErrSignalPrice      = errors.New("signal: price must be > 0")
	ErrSignalConfidence = errors.New("signal: confidence outside [0, 1]")
)

// Signal is an immutable trade instruction emitted by strategy or algorithm
// logic. A signal is consumed exactly once by order translation.
type Signal struct {
	ID         string
	Symbol     string
	Kind       SignalKind
	Price      decimal.Decimal
	Quantity   int64
	Reason     string
	Confidence float64
	Timestamp  time.Time
}

// NewSignal builds a signal with a fresh id.
func NewSignal(symbol string, kind SignalKind, price decimal.Decimal, qty int64, reason string, confidence float64, ts time.Time) Signal {
	return Signal{
		ID:         uuid.NewString(),
		Symbol:     symbol,
		Kind:       kind,
		Price:      price,
		Quantity:   qty,
		Reason:     reason,
		Confidence: confidence,
		Timestamp:  ts,
	}
}

// Validate rejects signals that must not reach order translation.
func (s Signal) Validate() error {
	if s.Quantity <= 0 {
		return ErrSignalQuantity
	}
	if !s.Price.IsPositive() {
		return ErrSignalPrice
	}
	if s.Confidence < 0 || s.Confidence > 1 {
		return ErrSignalConfidence
	}
	return nil
}

// Side maps the signal kind onto an order side.
func (s Signal) Side() Side {
	switch s.Kind {
	case SignalEntry, SignalAddPosition:
		return SideBuy
	case SignalExit, SignalStopLoss, SignalTakeProfit:
		return SideSell
	default:
		return SideUnknown
	}
}
