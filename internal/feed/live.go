package feed

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"
	"github.com/yanun0323/pkg/ws"

	"github.com/Ganesh-Kusundal/duckDbData-sub006/internal/domain"
	"github.com/Ganesh-Kusundal/duckDbData-sub006/internal/ports"
)

// LiveFeed streams bars from a websocket market data endpoint.
type LiveFeed struct {
	wss *ws.WebSocket
}

var _ ports.DataFeed = (*LiveFeed)(nil)

// NewLiveFeed prepares a websocket feed against url.
func NewLiveFeed(ctx context.Context, url string) *LiveFeed {
	return &LiveFeed{
		wss: ws.New(ctx, url),
	}
}

// Start opens the websocket connection.
func (f *LiveFeed) Start(ctx context.Context) error {
	if err := f.wss.Start(ctx); err != nil {
		return errors.Wrap(err, "start wss")
	}
	return nil
}

// Close tears the connection down.
func (f *LiveFeed) Close() {
	f.wss.Close()
}

type subscribeRequest struct {
	Method    string   `json:"method"`
	Symbols   []string `json:"symbols"`
	Timeframe string   `json:"timeframe"`
	ID        int64    `json:"id"`
}

type subscribeResponse struct {
	ID     int64 `json:"id"`
	Result any   `json:"result"`
}

func subscribeResponseParser(m ws.Message) (subscribeResponse, bool) {
	var resp subscribeResponse
	err := m.Unmarshal(&resp)
	return resp, err == nil
}

type barMessage struct {
	EventType string `json:"e"`
	Timestamp int64  `json:"t"` // unix milliseconds
	Symbol    string `json:"s"`
	Open      string `json:"o"`
	High      string `json:"h"`
	Low       string `json:"l"`
	Close     string `json:"c"`
	Volume    int64  `json:"v"`
	Timeframe string `json:"tf"`
}

// Subscribe requests bar events for symbols and streams them until the
// context is cancelled or the process shuts down.
func (f *LiveFeed) Subscribe(ctx context.Context, symbols []string, timeframe domain.Timeframe) (<-chan domain.Bar, error) {
	appendIntoRegister := true
	if err := f.wss.SendAndWait(ctx, ws.Sidecar{
		Sender: func(ctx context.Context, ws *ws.WebSocket) error {
			payload := subscribeRequest{
				Method:    "SUBSCRIBE",
				Symbols:   symbols,
				Timeframe: string(timeframe),
				ID:        1,
			}

			if err := ws.WriteJSON(payload); err != nil {
				return errors.Wrap(err, "write subscribe payload").With("payload", payload)
			}

			return nil
		},
		Waiter: func(ctx context.Context, m ws.Message) (bool, error) {
			resp, ok := subscribeResponseParser(m)
			if !ok || resp.ID != 1 {
				return false, nil
			}

			if resp.Result != nil {
				return false, errors.Errorf("subscribe bars, err: %+v", resp.Result)
			}
			return true, nil
		},
	}, appendIntoRegister); err != nil {
		return nil, errors.Wrap(err, "send and wait")
	}

	ch, cancel := f.wss.Subscribe()
	out := make(chan domain.Bar)
	go func() {
		defer close(out)
		defer cancel()
		for {
			select {
			case <-sys.Shutdown():
				return
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok {
					return
				}

				msg, ok := ws.ReadMessage[barMessage](m)
				if !ok || msg.EventType != "bar" {
					continue
				}

				bar, err := msg.toBar()
				if err != nil {
					logs.Errorf("drop malformed bar %s: %v", msg.Symbol, err)
					continue
				}

				select {
				case <-ctx.Done():
					return
				case out <- bar:
				}
			}
		}
	}()
	return out, nil
}

// HistoricalBars is not served over the live socket.
func (f *LiveFeed) HistoricalBars(ctx context.Context, symbol string, start, end time.Time, timeframe domain.Timeframe, session *ports.SessionWindow) ([]domain.Bar, error) {
	return nil, errors.Wrap(ports.ErrNotSupported, "live feed has no history")
}

// AvailableSymbols is not served over the live socket.
func (f *LiveFeed) AvailableSymbols(ctx context.Context) ([]string, error) {
	return nil, errors.Wrap(ports.ErrNotSupported, "live feed has no symbol directory")
}

func (m barMessage) toBar() (domain.Bar, error) {
	open, err := decimal.NewFromString(m.Open)
	if err != nil {
		return domain.Bar{}, errors.Wrap(err, "open")
	}
	high, err := decimal.NewFromString(m.High)
	if err != nil {
		return domain.Bar{}, errors.Wrap(err, "high")
	}
	low, err := decimal.NewFromString(m.Low)
	if err != nil {
		return domain.Bar{}, errors.Wrap(err, "low")
	}
	closePrice, err := decimal.NewFromString(m.Close)
	if err != nil {
		return domain.Bar{}, errors.Wrap(err, "close")
	}

	bar := domain.Bar{
		Timestamp: time.UnixMilli(m.Timestamp).UTC(),
		Symbol:    m.Symbol,
		Open:      open,
		High:      high,
		Low:       low,
		Close:     closePrice,
		Volume:    m.Volume,
		Timeframe: domain.Timeframe(m.Timeframe),
	}
	if err := bar.Validate(); err != nil {
		return domain.Bar{}, err
	}
	return bar, nil
}
