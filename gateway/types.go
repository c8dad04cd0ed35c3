package gateway

import (
	"strings"
	"time"
)

// Side 订单方向。
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// OrderType 订单类型；本引擎只使用限价单（紧急平仓也用贴盘限价）。
type OrderType string

const (
	TypeLimit  OrderType = "LIMIT"
	TypeMarket OrderType = "MARKET"
)

// Status represents order lifecycle.
type Status string

const (
	StatusNew      Status = "NEW"
	StatusPartial  Status = "PARTIALLY_FILLED"
	StatusFilled   Status = "FILLED"
	StatusCanceled Status = "CANCELED"
	StatusRejected Status = "REJECTED"
	StatusExpired  Status = "EXPIRED"
)

// Done 订单是否已终结。
func (s Status) Done() bool {
	switch s {
	case StatusFilled, StatusCanceled, StatusRejected, StatusExpired:
		return true
	}
	return false
}

// OrderRequest 下单请求。
type OrderRequest struct {
	Symbol   string
	Side     Side
	Type     OrderType
	Price    float64
	Quantity float64
	ClientID string
}

// Order holds the exchange-side view of an order.
type Order struct {
	ID           string
	ClientID     string
	Symbol       string
	Side         Side
	Type         OrderType
	Price        float64
	Quantity     float64
	ExecutedQty  float64
	AvgFillPrice float64
	Status       Status
	UpdatedAt    time.Time
}

// FillPrice 成交均价；没有成交记录时退回委托价。
func (o Order) FillPrice() float64 {
	if o.AvgFillPrice > 0 {
		return o.AvgFillPrice
	}
	return o.Price
}

// Balance 单一资产余额。
type Balance struct {
	Asset  string
	Free   float64
	Locked float64
}

// AccountInfo 账户余额列表。
type AccountInfo struct {
	Balances []Balance
}

// Total 指定资产的 free+locked 合计。
func (a AccountInfo) Total(asset string) float64 {
	for _, b := range a.Balances {
		if b.Asset == asset {
			return b.Free + b.Locked
		}
	}
	return 0
}

// QuoteAsset 按常见后缀从交易对推导报价资产；未匹配返回空串。
func QuoteAsset(symbol string) string {
	sym := strings.ToUpper(symbol)
	for _, quote := range []string{"USDC", "USDT", "BUSD", "BTC"} {
		if strings.HasSuffix(sym, quote) && len(sym) > len(quote) {
			return quote
		}
	}
	return ""
}
