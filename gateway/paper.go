package gateway

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"ping-maker-go/market"
)

// PaperGateway 干跑执行端口：订单只在内存登记，
// 由盘口 tick 模拟成交（买单等 ask 砸到，卖单等 bid 顶到）。
type PaperGateway struct {
	mu      sync.Mutex
	orders  map[string]*Order
	account AccountInfo
}

func NewPaperGateway(account AccountInfo) *PaperGateway {
	return &PaperGateway{
		orders:  make(map[string]*Order),
		account: account,
	}
}

// PlaceOrder 登记订单，立即 ACK。
func (p *PaperGateway) PlaceOrder(_ context.Context, req OrderRequest) (Order, error) {
	o := Order{
		ID:        uuid.NewString(),
		ClientID:  req.ClientID,
		Symbol:    req.Symbol,
		Side:      req.Side,
		Type:      req.Type,
		Price:     req.Price,
		Quantity:  req.Quantity,
		Status:    StatusNew,
		UpdatedAt: time.Now(),
	}
	p.mu.Lock()
	p.orders[o.ID] = &o
	p.mu.Unlock()
	return o, nil
}

func (p *PaperGateway) CancelOrder(_ context.Context, _, orderID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	o, ok := p.orders[orderID]
	if !ok {
		return ErrUnknownOrder
	}
	if !o.Status.Done() {
		o.Status = StatusCanceled
		o.UpdatedAt = time.Now()
	}
	return nil
}

func (p *PaperGateway) CancelAllOpenOrders(_ context.Context, symbol string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, o := range p.orders {
		if o.Symbol == symbol && !o.Status.Done() {
			o.Status = StatusCanceled
			o.UpdatedAt = time.Now()
		}
	}
	return nil
}

func (p *PaperGateway) GetOrder(_ context.Context, _, orderID string) (Order, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	o, ok := p.orders[orderID]
	if !ok {
		return Order{}, ErrUnknownOrder
	}
	return *o, nil
}

func (p *PaperGateway) GetAccountInfo(context.Context) (AccountInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.account, nil
}

// OnBookTick 模拟撮合：限价买单在 ask<=price 时成交，卖单在 bid>=price 时成交。
// 成交价按委托价（保守，不给滑点优惠）。
func (p *PaperGateway) OnBookTick(t market.OrderBookTick) {
	if !t.Valid() {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, o := range p.orders {
		if o.Symbol != t.Symbol || o.Status.Done() {
			continue
		}
		filled := false
		switch o.Side {
		case SideBuy:
			filled = t.AskPrice <= o.Price
		case SideSell:
			filled = t.BidPrice >= o.Price
		}
		if filled {
			o.Status = StatusFilled
			o.ExecutedQty = o.Quantity
			o.AvgFillPrice = o.Price
			o.UpdatedAt = t.Ts
		}
	}
}

// OpenOrders 返回未终结订单数（测试与监控用）。
func (p *PaperGateway) OpenOrders(symbol string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, o := range p.orders {
		if o.Symbol == symbol && !o.Status.Done() {
			n++
		}
	}
	return n
}
