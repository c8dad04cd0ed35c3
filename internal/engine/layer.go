package engine

import "time"

// Phase 层状态机的可观测状态。IDLE 不显式建模：
// 空闲层直接离开活跃集合，等待再次创建。
type Phase string

const (
	PhasePendingBuy Phase = "PENDING_BUY"
	PhaseLongPing   Phase = "LONG_PING"
	PhaseCooldown   Phase = "COOLDOWN"
)

// phaseState 按状态收窄字段的标签联合：每个状态只携带自己需要的数据，
// 非法组合（比如 COOLDOWN 带着订单号）在类型层面不可表达。
type phaseState interface {
	Phase() Phase
}

// pendingBuy 买单已挂出，等待成交或过期。
type pendingBuy struct {
	BuyOrderID string
	BuyPrice   float64
	Quantity   float64
	ExpireAt   time.Time
	OpenedAt   time.Time
}

func (pendingBuy) Phase() Phase { return PhasePendingBuy }

// longPing 买单已成交、止盈卖单已挂出，等待止盈、止损或超时。
type longPing struct {
	SellOrderID string
	SellPrice   float64
	EntryPrice  float64
	Quantity    float64
	SLPrice     float64
	ExpireAt    time.Time
	OpenedAt    time.Time
	EntryAt     time.Time
}

func (longPing) Phase() Phase { return PhaseLongPing }

// cooldownState 紧急平仓后的静默期。
type cooldownState struct {
	ResumeAt time.Time
}

func (cooldownState) Phase() Phase { return PhaseCooldown }

// Layer 一次独立的回合交易尝试。
type Layer struct {
	ID    string
	state phaseState
}

// Phase 返回当前状态标签。
func (l *Layer) Phase() Phase {
	return l.state.Phase()
}
