package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"ping-maker-go/market"
)

// WSFeed 订阅 bookTicker + trade combined stream 并推入 market.Service。
// 断线自动重连（指数退避）；核心引擎不感知连接生命周期。
type WSFeed struct {
	Endpoint string // 如 wss://stream.binance.com:9443
	Symbol   string
	Dialer   *websocket.Dialer
	Logger   *zap.Logger

	readTimeout time.Duration
	maxBackoff  time.Duration
}

func NewWSFeed(endpoint, symbol string, logger *zap.Logger) *WSFeed {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WSFeed{
		Endpoint:    endpoint,
		Symbol:      symbol,
		Dialer:      websocket.DefaultDialer,
		Logger:      logger,
		readTimeout: 60 * time.Second,
		maxBackoff:  30 * time.Second,
	}
}

// Run blocks until ctx is done, reconnecting on every stream failure.
func (f *WSFeed) Run(ctx context.Context, svc *market.Service) error {
	if f.Symbol == "" {
		return fmt.Errorf("symbol required")
	}
	backoff := time.Second
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := f.streamOnce(ctx, svc)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		f.Logger.Warn("feed disconnected, reconnecting",
			zap.String("symbol", f.Symbol),
			zap.Duration("backoff", backoff),
			zap.Error(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > f.maxBackoff {
			backoff = f.maxBackoff
		}
	}
}

func (f *WSFeed) streamOnce(ctx context.Context, svc *market.Service) error {
	lower := strings.ToLower(f.Symbol)
	streams := lower + "@bookTicker/" + lower + "@trade"
	u := url.URL{
		Scheme:   "wss",
		Host:     strings.TrimPrefix(f.Endpoint, "wss://"),
		Path:     "/stream",
		RawQuery: "streams=" + url.QueryEscape(streams),
	}

	conn, _, err := f.Dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()
	f.Logger.Info("feed connected", zap.String("symbol", f.Symbol))

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_ = conn.SetReadDeadline(time.Now().Add(f.readTimeout))
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		book, trade, err := ParseStreamMessage(raw)
		if err != nil {
			f.Logger.Debug("unparseable feed frame", zap.Error(err))
			continue
		}
		if book != nil {
			svc.OnBookTick(*book)
		}
		if trade != nil {
			svc.OnTrade(*trade)
		}
	}
}

type streamEnvelope struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

type bookTickerFrame struct {
	Symbol string `json:"s"`
	Bid    string `json:"b"`
	BidQty string `json:"B"`
	Ask    string `json:"a"`
	AskQty string `json:"A"`
}

type tradeFrame struct {
	Symbol       string `json:"s"`
	Price        string `json:"p"`
	Qty          string `json:"q"`
	BuyerIsMaker bool   `json:"m"`
	TradeTimeMs  int64  `json:"T"`
}

// ParseStreamMessage 解析 combined stream 帧；返回其中一种事件或双 nil。
func ParseStreamMessage(raw []byte) (*market.OrderBookTick, *market.TradeTick, error) {
	var env streamEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, nil, fmt.Errorf("envelope: %w", err)
	}
	switch {
	case strings.HasSuffix(env.Stream, "@bookTicker"):
		var bt bookTickerFrame
		if err := json.Unmarshal(env.Data, &bt); err != nil {
			return nil, nil, fmt.Errorf("bookTicker: %w", err)
		}
		tick := &market.OrderBookTick{
			Symbol:   bt.Symbol,
			BidPrice: parseFloat(bt.Bid),
			BidQty:   parseFloat(bt.BidQty),
			AskPrice: parseFloat(bt.Ask),
			AskQty:   parseFloat(bt.AskQty),
			Ts:       time.Now(),
		}
		return tick, nil, nil
	case strings.HasSuffix(env.Stream, "@trade"):
		var tf tradeFrame
		if err := json.Unmarshal(env.Data, &tf); err != nil {
			return nil, nil, fmt.Errorf("trade: %w", err)
		}
		side := "BUY"
		if tf.BuyerIsMaker {
			side = "SELL"
		}
		trade := &market.TradeTick{
			Symbol: tf.Symbol,
			Price:  parseFloat(tf.Price),
			Qty:    parseFloat(tf.Qty),
			Side:   side,
			Ts:     time.UnixMilli(tf.TradeTimeMs),
		}
		return nil, trade, nil
	default:
		return nil, nil, nil
	}
}
