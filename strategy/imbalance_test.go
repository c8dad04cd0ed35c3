package strategy

import (
	"testing"

	"github.com/stretchr/testify/require"

	"ping-maker-go/market"
)

func TestBookImbalance(t *testing.T) {
	require.Equal(t, 0.5, BookImbalance(market.OrderBookTick{}))
	require.Equal(t, 0.75, BookImbalance(market.OrderBookTick{BidQty: 3, AskQty: 1}))
	require.Equal(t, 0.25, BookImbalance(market.OrderBookTick{BidQty: 1, AskQty: 3}))
}

func TestAdjustPricesNeutralZone(t *testing.T) {
	for _, imb := range []float64{0.4, 0.5, 0.6} {
		buy, sell := AdjustPricesForImbalance(99, 101, imb)
		require.Equal(t, 99.0, buy)
		require.Equal(t, 101.0, sell)
	}
}

func TestAdjustPricesBidHeavy(t *testing.T) {
	buy, sell := AdjustPricesForImbalance(99, 101, 0.8)
	require.Greater(t, buy, 99.0)
	require.Greater(t, sell, 101.0)
	// 价带保持不变，只是整体平移
	require.InDelta(t, 2.0, sell-buy, 1e-12)
	// 平移量在价带的 10%~15% 之间
	require.GreaterOrEqual(t, buy-99.0, 0.2-1e-12)
	require.LessOrEqual(t, buy-99.0, 0.3+1e-12)
}

func TestAdjustPricesAskHeavy(t *testing.T) {
	buy, sell := AdjustPricesForImbalance(99, 101, 0.1)
	require.Less(t, buy, 99.0)
	require.Less(t, sell, 101.0)
	require.InDelta(t, 2.0, sell-buy, 1e-12)
}

func TestAdjustPricesExtremes(t *testing.T) {
	// 失衡 1.0 → 最大平移 15%
	buy, _ := AdjustPricesForImbalance(99, 101, 1.0)
	require.InDelta(t, 99.0+2.0*0.15, buy, 1e-12)
	// 失衡 0 → 同理向下
	_, sell := AdjustPricesForImbalance(99, 101, 0.0)
	require.InDelta(t, 101.0-2.0*0.15, sell, 1e-12)
}

func TestAdjustPricesDegenerateBand(t *testing.T) {
	buy, sell := AdjustPricesForImbalance(101, 99, 0.9)
	require.Equal(t, 101.0, buy)
	require.Equal(t, 99.0, sell)
}
