package binance

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	healthsvc "supertrend_bot/internal/modules/health/service"
	"supertrend_bot/pkg/logger"
)

// MarkPriceFeed keeps a websocket mark-price subscription alive for a
// symbol and mirrors connection state and the last streamed mark into
// health. The feed is advisory: the engine always confirms prices over
// REST, so a dropped stream degrades visibility, not trading.
type MarkPriceFeed struct {
	client *Client
	state  *healthsvc.State
}

func NewMarkPriceFeed(client *Client, state *healthsvc.State) *MarkPriceFeed {
	return &MarkPriceFeed{client: client, state: state}
}

// Run reconnects until ctx is cancelled. symbol() is re-read on every
// dial, so an admin symbol change takes effect on the next reconnect.
func (f *MarkPriceFeed) Run(ctx context.Context, symbol func() string) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		sym := strings.ToLower(symbol())
		if sym == "" {
			time.Sleep(time.Second)
			continue
		}

		url := f.client.wsURL + "/" + sym + "@markPrice"
		conn, _, err := f.client.wsDialer.DialContext(ctx, url, nil)
		if err != nil {
			logger.Error("markprice ws dial failed: %v", err)
			time.Sleep(3 * time.Second)
			continue
		}
		f.state.SetWSConnected(true)
		logger.Info("markprice ws connected: %s", sym)

		closed := make(chan struct{})
		go func() {
			select {
			case <-ctx.Done():
				_ = conn.Close()
			case <-closed:
			}
		}()

		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			var frame struct {
				Event string `json:"e"`
				Price string `json:"p"`
			}
			if sonic.Unmarshal(msg, &frame) != nil || frame.Event != "markPriceUpdate" {
				continue
			}
			if v, err := strconv.ParseFloat(frame.Price, 64); err == nil && v > 0 {
				f.state.SetMark(v)
			}
		}
		close(closed)
		_ = conn.Close()
		f.state.SetWSConnected(false)

		select {
		case <-ctx.Done():
			return
		default:
			time.Sleep(time.Second)
		}
	}
}
