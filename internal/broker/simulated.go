// Package broker provides the simulated execution venue used by backtests
// and dry runs. Orders fill against the last marked price with slippage and
// exchange fees applied through the microstructure rules.
package broker

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"

	"github.com/Ganesh-Kusundal/duckDbData-sub006/internal/domain"
	"github.com/Ganesh-Kusundal/duckDbData-sub006/internal/market"
	"github.com/Ganesh-Kusundal/duckDbData-sub006/internal/ports"
)

var (
	ErrInsufficientCash     = errors.New("broker: insufficient cash")
	ErrInsufficientQuantity = errors.New("broker: insufficient position quantity")
	ErrInvalidIntent        = errors.New("broker: invalid order intent")
)

// Config tunes the simulated venue.
type Config struct {
	InitialCash decimal.Decimal
	SlippageBps int64
}

// DefaultConfig returns a venue with 1M cash and 5 bps slippage.
func DefaultConfig() Config {
	return Config{
		InitialCash: decimal.NewFromInt(1_000_000),
		SlippageBps: 5,
	}
}

// Simulated implements ports.Broker in memory. Market orders fill
// immediately at the last marked price; limit orders rest until a mark
// crosses them. A single mutex guards all state, matching the single
// sequential portfolio path of the scheduler.
type Simulated struct {
	mu    sync.Mutex
	rules *market.Rules
	cfg   Config

	cash      decimal.Decimal
	positions map[string]*domain.Position
	orders    map[string]*domain.Order
	resting   []string
	lastPrice map[string]decimal.Decimal
	now       time.Time
	fills     []domain.Fill
}

var _ ports.Broker = (*Simulated)(nil)

// NewSimulated builds a simulated venue over the given microstructure rules.
func NewSimulated(rules *market.Rules, cfg Config) *Simulated {
	return &Simulated{
		rules:     rules,
		cfg:       cfg,
		cash:      cfg.InitialCash,
		positions: make(map[string]*domain.Position),
		orders:    make(map[string]*domain.Order),
		lastPrice: make(map[string]decimal.Decimal),
	}
}

// MarkPrice records the latest traded price for symbol, marks any open
// position and fills resting limit orders the price crosses. Returned fills
// are in order placement order.
func (s *Simulated) MarkPrice(symbol string, price decimal.Decimal, ts time.Time) []domain.Fill {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastPrice[symbol] = price
	s.now = ts
	if pos, ok := s.positions[symbol]; ok {
		pos.MarkPrice(price)
	}

	var fills []domain.Fill
	keep := s.resting[:0]
	for _, id := range s.resting {
		order := s.orders[id]
		if order.Symbol != symbol || !limitCrossed(order, price) {
			keep = append(keep, id)
			continue
		}
		fill, err := s.execute(order, order.LimitPrice, ts, false)
		if err != nil {
			// cash or inventory ran out while resting; reject and drop
			_ = order.Transition(domain.OrderStatusRejected, ts)
			continue
		}
		fills = append(fills, fill)
	}
	s.resting = keep
	return fills
}

// PlaceOrder accepts an intent. Market orders execute immediately; limit
// orders execute when marketable, otherwise they rest.
func (s *Simulated) PlaceOrder(ctx context.Context, intent domain.OrderIntent) (*domain.Order, error) {
	if intent.Quantity <= 0 || intent.Side == domain.SideUnknown {
		return nil, errors.Wrapf(ErrInvalidIntent, "%s qty %d", intent.Symbol, intent.Quantity)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	last, seen := s.lastPrice[intent.Symbol]
	order := domain.NewOrder(intent, s.now)
	if err := order.Transition(domain.OrderStatusSubmitted, s.now); err != nil {
		return nil, err
	}
	s.orders[order.ID] = order

	switch intent.Type {
	case domain.OrderTypeMarket:
		if !seen {
			_ = order.Transition(domain.OrderStatusRejected, s.now)
			return nil, errors.Wrap(ports.ErrDataUnavailable, "no price for "+intent.Symbol)
		}
		if _, err := s.execute(order, last, s.now, true); err != nil {
			_ = order.Transition(domain.OrderStatusRejected, s.now)
			return nil, err
		}
	case domain.OrderTypeLimit:
		if !intent.LimitPrice.IsPositive() {
			_ = order.Transition(domain.OrderStatusRejected, s.now)
			return nil, errors.Wrap(ErrInvalidIntent, "limit order without limit price")
		}
		if seen && limitCrossed(order, last) {
			if _, err := s.execute(order, order.LimitPrice, s.now, false); err != nil {
				_ = order.Transition(domain.OrderStatusRejected, s.now)
				return nil, err
			}
		} else {
			s.resting = append(s.resting, order.ID)
		}
	default:
		_ = order.Transition(domain.OrderStatusRejected, s.now)
		return nil, errors.Wrapf(ports.ErrNotSupported, "order type %s", intent.Type)
	}

	copied := *order
	return &copied, nil
}

// AmendOrder updates price and quantity of a resting order.
func (s *Simulated) AmendOrder(ctx context.Context, orderID string, price decimal.Decimal, quantity int64) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[orderID]
	if !ok {
		return nil, errors.Wrap(ports.ErrOrderNotFound, orderID)
	}
	if order.Status.IsTerminal() {
		return nil, domain.ErrOrderTerminal
	}
	if price.IsPositive() {
		order.LimitPrice = s.rules.RoundToTick(price)
	}
	if quantity > 0 {
		order.Quantity = quantity
	}
	order.UpdatedAt = s.now

	copied := *order
	return &copied, nil
}

// CancelOrder cancels a resting order.
func (s *Simulated) CancelOrder(ctx context.Context, orderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[orderID]
	if !ok {
		return errors.Wrap(ports.ErrOrderNotFound, orderID)
	}
	if err := order.Transition(domain.OrderStatusCancelled, s.now); err != nil {
		return err
	}
	for i, id := range s.resting {
		if id == orderID {
			s.resting = append(s.resting[:i], s.resting[i+1:]...)
			break
		}
	}
	return nil
}

// OrderStatus returns a copy of the tracked order.
func (s *Simulated) OrderStatus(ctx context.Context, orderID string) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[orderID]
	if !ok {
		return nil, errors.Wrap(ports.ErrOrderNotFound, orderID)
	}
	copied := *order
	return &copied, nil
}

// Positions returns copies of all open positions, sorted by symbol.
func (s *Simulated) Positions(ctx context.Context) ([]domain.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	symbols := make([]string, 0, len(s.positions))
	for sym := range s.positions {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	out := make([]domain.Position, 0, len(symbols))
	for _, sym := range symbols {
		out = append(out, *s.positions[sym])
	}
	return out, nil
}

// AccountState recomputes the account snapshot from cash and positions.
func (s *Simulated) AccountState(ctx context.Context) (domain.AccountState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.ComputeAccountState(s.now, s.cash, s.positions), nil
}

// ApplySlippageAndFees previews execution: the returned intent carries the
// slipped, tick-rounded price in LimitPrice.
func (s *Simulated) ApplySlippageAndFees(ctx context.Context, intent domain.OrderIntent, marketPrice decimal.Decimal) (domain.OrderIntent, error) {
	if !marketPrice.IsPositive() {
		return intent, market.ErrInvalidPrice
	}
	slipped := s.rules.ApplySlippage(marketPrice, s.cfg.SlippageBps, intent.Side)
	intent.LimitPrice = s.rules.RoundToTick(slipped)
	return intent, nil
}

// Fills drains every fill recorded since the last call, in execution order.
func (s *Simulated) Fills() []domain.Fill {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.fills
	s.fills = nil
	return out
}

// execute fills order fully at refPrice. Market executions pay slippage;
// limit executions trade at their limit. The fill settles cash and the
// position book atomically.
func (s *Simulated) execute(order *domain.Order, refPrice decimal.Decimal, ts time.Time, slip bool) (domain.Fill, error) {
	price := refPrice
	if slip {
		price = s.rules.ApplySlippage(price, s.cfg.SlippageBps, order.Side)
	}
	price = s.rules.RoundToTick(price)

	value := price.Mul(decimal.NewFromInt(order.Remaining()))
	fees := s.rules.CalculateFees(value, order.Side == domain.SideSell)

	if order.Side == domain.SideBuy {
		if s.cash.LessThan(value.Add(fees.Total)) {
			return domain.Fill{}, errors.Wrapf(ErrInsufficientCash, "need %s, have %s", value.Add(fees.Total), s.cash)
		}
	} else {
		pos, ok := s.positions[order.Symbol]
		if !ok || pos.Quantity < order.Remaining() {
			return domain.Fill{}, errors.Wrap(ErrInsufficientQuantity, order.Symbol)
		}
	}

	fill := domain.Fill{
		Timestamp: ts,
		OrderID:   order.ID,
		Symbol:    order.Symbol,
		Side:      order.Side,
		Quantity:  order.Remaining(),
		Price:     price,
		Fee:       fees.Total,
	}
	if err := order.ApplyFill(fill); err != nil {
		return domain.Fill{}, err
	}

	pos, ok := s.positions[order.Symbol]
	if !ok {
		pos = &domain.Position{Symbol: order.Symbol}
		s.positions[order.Symbol] = pos
	}
	pos.ApplyFill(fill)

	if order.Side == domain.SideBuy {
		s.cash = s.cash.Sub(value).Sub(fees.Total)
	} else {
		s.cash = s.cash.Add(value).Sub(fees.Total)
	}
	if pos.Quantity == 0 {
		delete(s.positions, order.Symbol)
	}

	s.fills = append(s.fills, fill)
	return fill, nil
}

// limitCrossed reports whether price makes the limit order marketable.
func limitCrossed(order *domain.Order, price decimal.Decimal) bool {
	if order.Type != domain.OrderTypeLimit {
		return false
	}
	if order.Side == domain.SideBuy {
		return price.LessThanOrEqual(order.LimitPrice)
	}
	return price.GreaterThanOrEqual(order.LimitPrice)
}
