// Package binance is the USD-M futures REST client behind the engine's
// Exchange port, plus an advisory mark-price websocket feed.
package binance

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"supertrend_bot/internal/engine"
	"supertrend_bot/internal/models"
)

// -2011 CANCEL_REJECTED: unknown order sent.
const codeUnknownOrder = -2011

type Client struct {
	http      *http.Client
	wsDialer  *websocket.Dialer
	baseURL   string
	wsURL     string
	apiKey    string
	apiSecret string
}

func NewClient(baseURL, wsURL, apiKey, apiSecret string) *Client {
	return &Client{
		http:      &http.Client{Timeout: 10 * time.Second},
		wsDialer:  &websocket.Dialer{},
		baseURL:   strings.TrimRight(baseURL, "/"),
		wsURL:     strings.TrimRight(wsURL, "/"),
		apiKey:    apiKey,
		apiSecret: apiSecret,
	}
}

func (c *Client) sign(query string) string {
	h := hmac.New(sha256.New, []byte(c.apiSecret))
	h.Write([]byte(query))
	return hex.EncodeToString(h.Sum(nil))
}

// signedRequest appends timestamp and signature and sends the request.
// All private futures endpoints take their parameters in the query
// string, including POST and DELETE.
func (c *Client) signedRequest(ctx context.Context, method, path string, params url.Values) ([]byte, error) {
	if c.apiKey == "" || c.apiSecret == "" {
		return nil, errors.New("api creds empty")
	}
	params.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
	params.Set("recvWindow", "5000")
	query := params.Encode()
	query += "&signature=" + c.sign(query)

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path+"?"+query, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-MBX-APIKEY", c.apiKey)
	return c.do(req)
}

func (c *Client) publicRequest(ctx context.Context, path string, params url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	rb, _ := io.ReadAll(resp.Body)
	if resp.StatusCode/100 != 2 {
		var apiErr struct {
			Code int    `json:"code"`
			Msg  string `json:"msg"`
		}
		if sonic.Unmarshal(rb, &apiErr) == nil && apiErr.Code == codeUnknownOrder {
			return nil, engine.ErrOrderNotFound
		}
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode, string(rb))
	}
	return rb, nil
}

// GET /fapi/v1/klines
// Klines come back as positional arrays; only OHLCV and the open time
// are kept.
func (c *Client) GetCandles(ctx context.Context, symbol, timeframe string, limit int) ([]models.Candle, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("interval", timeframe)
	params.Set("limit", strconv.Itoa(limit))

	rb, err := c.publicRequest(ctx, "/fapi/v1/klines", params)
	if err != nil {
		return nil, errors.Wrap(err, "binance klines")
	}

	var raw [][]any
	if err := sonic.Unmarshal(rb, &raw); err != nil {
		return nil, errors.Wrap(err, "binance klines decode")
	}

	res := make([]models.Candle, 0, len(raw))
	for _, k := range raw {
		if len(k) < 6 {
			return nil, fmt.Errorf("binance klines: short row, %d fields", len(k))
		}
		openTime, ok := k[0].(float64)
		if !ok {
			return nil, errors.New("binance klines: bad open time")
		}
		var vals [5]float64
		for i := 1; i <= 5; i++ {
			s, ok := k[i].(string)
			if !ok {
				return nil, fmt.Errorf("binance klines: field %d not a string", i)
			}
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, errors.Wrap(err, "binance klines parse")
			}
			vals[i-1] = v
		}
		res = append(res, models.Candle{
			OpenTime: time.UnixMilli(int64(openTime)).UTC(),
			Open:     vals[0],
			High:     vals[1],
			Low:      vals[2],
			Close:    vals[3],
			Volume:   vals[4],
		})
	}
	return res, nil
}

type orderResponse struct {
	OrderID   int64  `json:"orderId"`
	Symbol    string `json:"symbol"`
	Side      string `json:"side"`
	Type      string `json:"type"`
	StopPrice string `json:"stopPrice"`
	Price     string `json:"price"`
	OrigQty   string `json:"origQty"`
}

func (o orderResponse) toModel() models.Order {
	trigger, _ := strconv.ParseFloat(o.StopPrice, 64)
	limit, _ := strconv.ParseFloat(o.Price, 64)
	qty, _ := strconv.ParseFloat(o.OrigQty, 64)
	return models.Order{
		ID:           strconv.FormatInt(o.OrderID, 10),
		Side:         models.Side(o.Side),
		Type:         models.OrderType(o.Type),
		TriggerPrice: trigger,
		LimitPrice:   limit,
		Qty:          qty,
	}
}

// GET /fapi/v1/openOrders
func (c *Client) GetOpenOrders(ctx context.Context, symbol string) ([]models.Order, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	rb, err := c.signedRequest(ctx, http.MethodGet, "/fapi/v1/openOrders", params)
	if err != nil {
		return nil, errors.Wrap(err, "binance open orders")
	}

	var raw []orderResponse
	if err := sonic.Unmarshal(rb, &raw); err != nil {
		return nil, errors.Wrap(err, "binance open orders decode")
	}
	res := make([]models.Order, 0, len(raw))
	for _, o := range raw {
		res = append(res, o.toModel())
	}
	return res, nil
}

// POST /fapi/v1/order, type=STOP (stop-limit)
func (c *Client) PlaceStopOrder(ctx context.Context, symbol string, side models.Side, triggerPrice, limitPrice, qty float64) (models.Order, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("side", string(side))
	params.Set("type", string(models.OrderTypeStop))
	params.Set("timeInForce", "GTC")
	params.Set("stopPrice", formatDecimal(triggerPrice))
	params.Set("price", formatDecimal(limitPrice))
	params.Set("quantity", formatDecimal(qty))

	rb, err := c.signedRequest(ctx, http.MethodPost, "/fapi/v1/order", params)
	if err != nil {
		return models.Order{}, errors.Wrap(err, "binance place stop")
	}
	var resp orderResponse
	if err := sonic.Unmarshal(rb, &resp); err != nil {
		return models.Order{}, errors.Wrap(err, "binance place stop decode")
	}
	return resp.toModel(), nil
}

// DELETE /fapi/v1/order
func (c *Client) CancelOrder(ctx context.Context, symbol, orderID string) error {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("orderId", orderID)

	_, err := c.signedRequest(ctx, http.MethodDelete, "/fapi/v1/order", params)
	if errors.Is(err, engine.ErrOrderNotFound) {
		return engine.ErrOrderNotFound
	}
	return errors.Wrap(err, "binance cancel order")
}

// GET /fapi/v2/positionRisk. One-way position mode is assumed: at most
// one row per symbol, positionAmt signed. Zero amount means flat and
// maps to nil.
func (c *Client) GetPosition(ctx context.Context, symbol string) (*models.Position, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	rb, err := c.signedRequest(ctx, http.MethodGet, "/fapi/v2/positionRisk", params)
	if err != nil {
		return nil, errors.Wrap(err, "binance position")
	}

	var raw []struct {
		Symbol      string `json:"symbol"`
		PositionAmt string `json:"positionAmt"`
		EntryPrice  string `json:"entryPrice"`
	}
	if err := sonic.Unmarshal(rb, &raw); err != nil {
		return nil, errors.Wrap(err, "binance position decode")
	}

	for _, p := range raw {
		if p.Symbol != symbol {
			continue
		}
		amt, err := strconv.ParseFloat(p.PositionAmt, 64)
		if err != nil {
			return nil, errors.Wrap(err, "binance position parse")
		}
		if amt == 0 {
			return nil, nil
		}
		entry, _ := strconv.ParseFloat(p.EntryPrice, 64)
		side := models.SideBuy
		if amt < 0 {
			side = models.SideSell
			amt = -amt
		}
		return &models.Position{Side: side, Entry: entry, Qty: amt}, nil
	}
	return nil, nil
}

// GET /fapi/v1/premiumIndex
func (c *Client) GetMarkPrice(ctx context.Context, symbol string) (float64, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	rb, err := c.publicRequest(ctx, "/fapi/v1/premiumIndex", params)
	if err != nil {
		return 0, errors.Wrap(err, "binance mark price")
	}
	var raw struct {
		MarkPrice string `json:"markPrice"`
	}
	if err := sonic.Unmarshal(rb, &raw); err != nil {
		return 0, errors.Wrap(err, "binance mark price decode")
	}
	mark, err := strconv.ParseFloat(raw.MarkPrice, 64)
	if err != nil {
		return 0, errors.Wrap(err, "binance mark price parse")
	}
	return mark, nil
}

// ClosePositionMarket flattens whatever is open with a reduce-only
// market order on the opposite side. No-op when already flat.
func (c *Client) ClosePositionMarket(ctx context.Context, symbol string) error {
	pos, err := c.GetPosition(ctx, symbol)
	if err != nil {
		return err
	}
	if pos == nil {
		return nil
	}

	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("side", string(pos.Side.Opposite()))
	params.Set("type", string(models.OrderTypeMarket))
	params.Set("reduceOnly", "true")
	params.Set("quantity", formatDecimal(pos.Qty))

	_, err = c.signedRequest(ctx, http.MethodPost, "/fapi/v1/order", params)
	return errors.Wrap(err, "binance close position")
}

// formatDecimal keeps full precision: truncating to a fixed number of
// decimals would shift stop prices on fine-tick symbols, and the
// reconciler compares what the exchange echoes back against the
// recomputed value.
func formatDecimal(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
