package market

import "sync"

// BookHandler 收到盘口快照时回调。
type BookHandler func(OrderBookTick)

// TradeHandler 收到成交时回调。
type TradeHandler func(TradeTick)

// Publisher 一个轻量事件分发器；回调在发布方 goroutine 内同步执行。
type Publisher struct {
	mu        sync.RWMutex
	bookSubs  []BookHandler
	tradeSubs []TradeHandler
}

func NewPublisher() *Publisher {
	return &Publisher{}
}

func (p *Publisher) SubscribeBook(h BookHandler) {
	if h == nil {
		return
	}
	p.mu.Lock()
	p.bookSubs = append(p.bookSubs, h)
	p.mu.Unlock()
}

func (p *Publisher) SubscribeTrade(h TradeHandler) {
	if h == nil {
		return
	}
	p.mu.Lock()
	p.tradeSubs = append(p.tradeSubs, h)
	p.mu.Unlock()
}

func (p *Publisher) PublishBook(t OrderBookTick) {
	p.mu.RLock()
	subs := p.bookSubs
	p.mu.RUnlock()
	for _, h := range subs {
		h(t)
	}
}

func (p *Publisher) PublishTrade(t TradeTick) {
	p.mu.RLock()
	subs := p.tradeSubs
	p.mu.RUnlock()
	for _, h := range subs {
		h(t)
	}
}
