package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
)

// BinanceREST 实现 ExecutionPort 的签名 REST 客户端（现货 /api/v3）。
type BinanceREST struct {
	client     *resty.Client
	apiKey     string
	secret     string
	limiter    RateLimiter
	recvWindow int64
}

// NewBinanceREST 创建客户端；limiter 可为 nil（不限流）。
func NewBinanceREST(baseURL, apiKey, secret string, limiter RateLimiter) *BinanceREST {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			// 仅对限流与服务端错误重试；4xx 业务错误直接上抛
			return err == nil && (r.StatusCode() == 429 || r.StatusCode() >= 500)
		})
	return &BinanceREST{
		client:     client,
		apiKey:     apiKey,
		secret:     secret,
		limiter:    limiter,
		recvWindow: 5000,
	}
}

type binanceOrderResp struct {
	OrderID             int64  `json:"orderId"`
	ClientOrderID       string `json:"clientOrderId"`
	Symbol              string `json:"symbol"`
	Side                string `json:"side"`
	Type                string `json:"type"`
	Price               string `json:"price"`
	OrigQty             string `json:"origQty"`
	ExecutedQty         string `json:"executedQty"`
	CummulativeQuoteQty string `json:"cummulativeQuoteQty"`
	Status              string `json:"status"`
	UpdateTime          int64  `json:"updateTime"`
}

func (r binanceOrderResp) toOrder() Order {
	price := parseFloat(r.Price)
	executed := parseFloat(r.ExecutedQty)
	o := Order{
		ID:          strconv.FormatInt(r.OrderID, 10),
		ClientID:    r.ClientOrderID,
		Symbol:      r.Symbol,
		Side:        Side(r.Side),
		Type:        OrderType(r.Type),
		Price:       price,
		Quantity:    parseFloat(r.OrigQty),
		ExecutedQty: executed,
		Status:      Status(r.Status),
	}
	if quote := parseFloat(r.CummulativeQuoteQty); quote > 0 && executed > 0 {
		o.AvgFillPrice = quote / executed
	}
	if r.UpdateTime > 0 {
		o.UpdatedAt = time.UnixMilli(r.UpdateTime)
	}
	return o
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// PlaceOrder 提交限价单（GTC）。
func (c *BinanceREST) PlaceOrder(ctx context.Context, req OrderRequest) (Order, error) {
	params := map[string]string{
		"symbol":   req.Symbol,
		"side":     string(req.Side),
		"type":     string(req.Type),
		"quantity": formatFloat(req.Quantity),
	}
	if req.Type == TypeLimit {
		params["timeInForce"] = "GTC"
		params["price"] = formatFloat(req.Price)
	}
	if req.ClientID != "" {
		params["newClientOrderId"] = req.ClientID
	}
	var out binanceOrderResp
	if err := c.signedCall(ctx, resty.MethodPost, "/api/v3/order", params, &out); err != nil {
		return Order{}, errors.Wrap(err, "place order")
	}
	return out.toOrder(), nil
}

// CancelOrder 撤销指定订单。
func (c *BinanceREST) CancelOrder(ctx context.Context, symbol, orderID string) error {
	params := map[string]string{
		"symbol":  symbol,
		"orderId": orderID,
	}
	if err := c.signedCall(ctx, resty.MethodDelete, "/api/v3/order", params, nil); err != nil {
		return errors.Wrapf(err, "cancel order %s", orderID)
	}
	return nil
}

// CancelAllOpenOrders 撤销该交易对全部挂单。
func (c *BinanceREST) CancelAllOpenOrders(ctx context.Context, symbol string) error {
	params := map[string]string{"symbol": symbol}
	if err := c.signedCall(ctx, resty.MethodDelete, "/api/v3/openOrders", params, nil); err != nil {
		return errors.Wrapf(err, "cancel all %s", symbol)
	}
	return nil
}

// GetOrder 查询订单状态。
func (c *BinanceREST) GetOrder(ctx context.Context, symbol, orderID string) (Order, error) {
	params := map[string]string{
		"symbol":  symbol,
		"orderId": orderID,
	}
	var out binanceOrderResp
	if err := c.signedCall(ctx, resty.MethodGet, "/api/v3/order", params, &out); err != nil {
		return Order{}, errors.Wrapf(err, "get order %s", orderID)
	}
	return out.toOrder(), nil
}

type binanceAccountResp struct {
	Balances []struct {
		Asset  string `json:"asset"`
		Free   string `json:"free"`
		Locked string `json:"locked"`
	} `json:"balances"`
}

// GetAccountInfo 查询账户余额。
func (c *BinanceREST) GetAccountInfo(ctx context.Context) (AccountInfo, error) {
	var out binanceAccountResp
	if err := c.signedCall(ctx, resty.MethodGet, "/api/v3/account", nil, &out); err != nil {
		return AccountInfo{}, errors.Wrap(err, "get account")
	}
	acct := AccountInfo{Balances: make([]Balance, 0, len(out.Balances))}
	for _, b := range out.Balances {
		acct.Balances = append(acct.Balances, Balance{
			Asset:  b.Asset,
			Free:   parseFloat(b.Free),
			Locked: parseFloat(b.Locked),
		})
	}
	return acct, nil
}

// signedCall 统一的签名请求入口。
func (c *BinanceREST) signedCall(ctx context.Context, method, path string, params map[string]string, out interface{}) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	if params == nil {
		params = map[string]string{}
	}
	params["timestamp"] = strconv.FormatInt(time.Now().UnixMilli(), 10)
	params["recvWindow"] = strconv.FormatInt(c.recvWindow, 10)
	query, sig := SignParams(params, c.secret)

	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("X-MBX-APIKEY", c.apiKey).
		SetQueryString(query + "&signature=" + sig).
		Execute(method, path)
	if err != nil {
		return errors.Wrap(err, "transport")
	}
	if resp.IsError() {
		return errors.Errorf("status %d: %s", resp.StatusCode(), resp.String())
	}
	if out != nil {
		if err := json.Unmarshal(resp.Body(), out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
