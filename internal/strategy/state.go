package strategy

// SessionState tracks where the intraday cycle currently is.
type SessionState uint8

const (
	StateWarmup SessionState = iota
	StateSelected
	StateEntered
	StateConsolidating
	StatePyramiding
	StateRotating
	StateFlat
)

func (s SessionState) String() string {
	switch s {
	case StateWarmup:
		return "WARMUP"
	case StateSelected:
		return "SELECTED"
	case StateEntered:
		return "ENTERED"
	case StateConsolidating:
		return "CONSOLIDATING"
	case StatePyramiding:
		return "PYRAMIDING"
	case StateRotating:
		return "ROTATING"
	case StateFlat:
		return "FLAT"
	default:
		return "UNKNOWN"
	}
}
