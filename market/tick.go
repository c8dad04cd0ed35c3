package market

import "time"

// OrderBookTick 最优买卖档快照（bookTicker）。
type OrderBookTick struct {
	Symbol   string
	BidPrice float64
	BidQty   float64
	AskPrice float64
	AskQty   float64
	Ts       time.Time
}

// Valid reports whether the tick carries a usable two-sided book.
func (t OrderBookTick) Valid() bool {
	return t.BidPrice > 0 && t.AskPrice > 0 && t.AskPrice >= t.BidPrice
}

// Mid 返回中间价；无效盘口返回 0。
func (t OrderBookTick) Mid() float64 {
	if !t.Valid() {
		return 0
	}
	return (t.BidPrice + t.AskPrice) / 2
}

// Spread 返回盘口宽度。
func (t OrderBookTick) Spread() float64 {
	if !t.Valid() {
		return 0
	}
	return t.AskPrice - t.BidPrice
}

// TradeTick 逐笔成交。Side 可为空（部分行情源不提供）。
type TradeTick struct {
	Symbol string
	Price  float64
	Qty    float64
	Side   string // BUY/SELL，可为空
	Ts     time.Time
}
