package domain

// Side is the direction of an order or fill.
type Side uint8

const (
	SideUnknown Side = iota
	SideBuy
	SideSell
)

func (s Side) String() string {
	switch s {
	case SideBuy:
		return "BUY"
	case SideSell:
		return "SELL"
	default:
		return "UNKNOWN"
	}
}

// Opposite returns the closing side for s.
func (s Side) Opposite() Side {
	switch s {
	case SideBuy:
		return SideSell
	case SideSell:
		return SideBuy
	default:
		return SideUnknown
	}
}

// OrderType describes how an order is priced.
type OrderType uint8

const (
	OrderTypeUnknown OrderType = iota
	OrderTypeMarket
	OrderTypeLimit
	OrderTypeStop
)

func (t OrderType) String() string {
	switch t {
	case OrderTypeMarket:
		return "MARKET"
	case OrderTypeLimit:
		return "LIMIT"
	case OrderTypeStop:
		return "STOP"
	default:
		return "UNKNOWN"
	}
}

// OrderStatus tracks the lifecycle of an order.
type OrderStatus uint8

const (
	OrderStatusUnknown OrderStatus = iota
	OrderStatusPending
	OrderStatusSubmitted
	OrderStatusPartFilled
	OrderStatusFilled
	OrderStatusCancelled
	OrderStatusRejected
)

func (s OrderStatus) String() string {
	switch s {
	case OrderStatusPending:
		return "PENDING"
	case OrderStatusSubmitted:
		return "SUBMITTED"
	case OrderStatusPartFilled:
		return "PARTIAL_FILL"
	case OrderStatusFilled:
		return "FILLED"
	case OrderStatusCancelled:
		return "CANCELLED"
	case OrderStatusRejected:
		return "REJECTED"
	default:
		return "UNKNOWN"
	}
}

// IsTerminal reports whether no further transitions are allowed.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusFilled, OrderStatusCancelled, OrderStatusRejected:
		return true
	default:
		return false
	}
}

// rank orders statuses along the lifecycle so transitions stay monotonic.
func (s OrderStatus) rank() int {
	switch s {
	case OrderStatusPending:
		return 1
	case OrderStatusSubmitted:
		return 2
	case OrderStatusPartFilled:
		return 3
	case OrderStatusFilled, OrderStatusCancelled, OrderStatusRejected:
		return 4
	default:
		return 0
	}
}

// SignalKind classifies what a signal asks the engine to do.
type SignalKind uint8

const (
	SignalUnknown SignalKind = iota
	SignalEntry
	SignalExit
	SignalAddPosition
	SignalStopLoss
	SignalTakeProfit
)

func (k SignalKind) String() string {
	switch k {
	case SignalEntry:
		return "ENTRY"
	case SignalExit:
		return "EXIT"
	case SignalAddPosition:
		return "ADD_POSITION"
	case SignalStopLoss:
		return "STOP_LOSS"
	case SignalTakeProfit:
		return "TAKE_PROFIT"
	default:
		return "UNKNOWN"
	}
}

// StopMode selects the trailing stop calculation for a stop level.
type StopMode uint8

const (
	StopModeUnknown StopMode = iota
	StopModeATR
	StopModeChandelier
	StopModeEMAClose
)

func (m StopMode) String() string {
	switch m {
	case StopModeATR:
		return "ATR"
	case StopModeChandelier:
		return "CHANDELIER"
	case StopModeEMAClose:
		return "EMA_CLOSE"
	default:
		return "UNKNOWN"
	}
}

// Timeframe is the sampling interval of a bar series.
type Timeframe string

const (
	TimeframeMinute        Timeframe = "1m"
	TimeframeFiveMinute    Timeframe = "5m"
	TimeframeFifteenMinute Timeframe = "15m"
	TimeframeDay           Timeframe = "1d"
)

// RunMode distinguishes backtest replay from live execution.
type RunMode string

const (
	RunModeBacktest RunMode = "backtest"
	RunModeLive     RunMode = "live"
)
