package market

import (
	"sync"
	"time"
)

// neverSeen 表示从未收到过数据时的 staleness。
const neverSeen = 24 * 365 * time.Hour

// Service 维护最新盘口与成交时间，并向订阅者广播。
// Feed 适配器调用 OnBookTick/OnTrade，核心通过 Latest/Staleness 读取。
type Service struct {
	pub *Publisher

	mu        sync.RWMutex
	latest    OrderBookTick
	hasBook   bool
	lastBook  time.Time
	lastTrade time.Time
}

func NewService(pub *Publisher) *Service {
	if pub == nil {
		pub = NewPublisher()
	}
	return &Service{pub: pub}
}

// Publisher 返回底层分发器，供订阅回调使用。
func (s *Service) Publisher() *Publisher { return s.pub }

// OnBookTick 更新最新盘口并广播。无效 tick 也记录到达时间（feed 仍然活着）。
func (s *Service) OnBookTick(t OrderBookTick) {
	s.mu.Lock()
	s.lastBook = t.Ts
	if t.Valid() {
		s.latest = t
		s.hasBook = true
	}
	s.mu.Unlock()
	s.pub.PublishBook(t)
}

// OnTrade 记录成交时间并广播。
func (s *Service) OnTrade(t TradeTick) {
	s.mu.Lock()
	s.lastTrade = t.Ts
	s.mu.Unlock()
	s.pub.PublishTrade(t)
}

// Latest 返回最新有效盘口；第二个返回值指示是否收到过数据。
func (s *Service) Latest() (OrderBookTick, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest, s.hasBook
}

// Mid 返回当前中间价；若缺失则返回 0。
func (s *Service) Mid() float64 {
	t, ok := s.Latest()
	if !ok {
		return 0
	}
	return t.Mid()
}

// BookStaleness 返回距离上一个盘口 tick 的间隔。
func (s *Service) BookStaleness(now time.Time) time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastBook.IsZero() {
		return neverSeen
	}
	return now.Sub(s.lastBook)
}

// TradeStaleness 返回距离上一笔成交的间隔。
func (s *Service) TradeStaleness(now time.Time) time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastTrade.IsZero() {
		return neverSeen
	}
	return now.Sub(s.lastTrade)
}
