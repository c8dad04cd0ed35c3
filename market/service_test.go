package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestServiceMid(t *testing.T) {
	s := NewService(nil)
	require.Equal(t, 0.0, s.Mid())

	now := time.Now()
	s.OnBookTick(OrderBookTick{Symbol: "ETHUSDC", BidPrice: 1999.5, BidQty: 3, AskPrice: 2000.5, AskQty: 2, Ts: now})
	require.Equal(t, 2000.0, s.Mid())
}

func TestServiceKeepsLastValidBook(t *testing.T) {
	s := NewService(nil)
	now := time.Now()
	s.OnBookTick(OrderBookTick{BidPrice: 100, AskPrice: 101, BidQty: 1, AskQty: 1, Ts: now})
	// 单边盘口不覆盖最新快照，但仍然刷新到达时间
	s.OnBookTick(OrderBookTick{BidPrice: 0, AskPrice: 101, Ts: now.Add(time.Second)})

	tick, ok := s.Latest()
	require.True(t, ok)
	require.Equal(t, 100.0, tick.BidPrice)
	require.Equal(t, time.Duration(0), s.BookStaleness(now.Add(time.Second)))
}

func TestServiceStaleness(t *testing.T) {
	s := NewService(nil)
	now := time.Now()
	require.Greater(t, s.BookStaleness(now), time.Hour)
	require.Greater(t, s.TradeStaleness(now), time.Hour)

	s.OnBookTick(OrderBookTick{BidPrice: 100, AskPrice: 101, Ts: now})
	s.OnTrade(TradeTick{Price: 100.5, Qty: 1, Ts: now})

	require.Equal(t, 5*time.Second, s.BookStaleness(now.Add(5*time.Second)))
	require.Equal(t, 10*time.Second, s.TradeStaleness(now.Add(10*time.Second)))
}

func TestPublisherFanout(t *testing.T) {
	p := NewPublisher()
	s := NewService(p)

	var books int
	var trades int
	p.SubscribeBook(func(OrderBookTick) { books++ })
	p.SubscribeTrade(func(TradeTick) { trades++ })

	s.OnBookTick(OrderBookTick{BidPrice: 1, AskPrice: 2, Ts: time.Now()})
	s.OnTrade(TradeTick{Price: 1.5, Qty: 1, Ts: time.Now()})
	s.OnTrade(TradeTick{Price: 1.6, Qty: 1, Ts: time.Now()})

	require.Equal(t, 1, books)
	require.Equal(t, 2, trades)
}

func TestTickHelpers(t *testing.T) {
	tick := OrderBookTick{BidPrice: 1999, AskPrice: 2001}
	require.Equal(t, 2000.0, tick.Mid())
	require.Equal(t, 2.0, tick.Spread())

	bad := OrderBookTick{BidPrice: 2001, AskPrice: 1999}
	require.False(t, bad.Valid())
	require.Equal(t, 0.0, bad.Mid())
}
