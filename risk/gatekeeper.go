package risk

import (
	"errors"
	"sync"
	"time"

	"ping-maker-go/session"
)

var (
	ErrKillSwitchActive = errors.New("kill switch active")
	ErrDailyDrawdown    = errors.New("daily drawdown limit hit")
	ErrLossStreak       = errors.New("consecutive loss limit hit")
	ErrAPIErrorStorm    = errors.New("api error storm")
)

// API 错误滚动窗口参数：窗口内超过 block 阈值暂停开新仓，
// 超过 trip 阈值直接熔断。
const (
	apiErrorWindow     = 60 * time.Second
	apiErrorBlockCount = 10
	apiErrorTripCount  = 20
)

// GateConfig 门限配置。
type GateConfig struct {
	StopDayPercent       float64
	MaxConsecutiveLosses int
}

// TradingCalendar 交易时段钩子；核心内恒为 true。
type TradingCalendar interface {
	IsTradingTime(t time.Time) bool
}

type alwaysOpen struct{}

func (alwaysOpen) IsTradingTime(time.Time) bool { return true }

// Gatekeeper 最后一道闸门：会话级风控 + 粘性熔断开关。
// 熔断一旦触发，在显式 ResetKillSwitch 前拒绝一切交易动作。
type Gatekeeper struct {
	mu       sync.Mutex
	cfg      GateConfig
	clock    Clock
	calendar TradingCalendar

	killSwitch bool
	killReason string
	apiErrors  []time.Time

	onTrip func(reason string)
}

func NewGatekeeper(cfg GateConfig, clock Clock) *Gatekeeper {
	if clock == nil {
		clock = SystemClock
	}
	return &Gatekeeper{
		cfg:      cfg,
		clock:    clock,
		calendar: alwaysOpen{},
	}
}

// SetCalendar 替换交易时段钩子。
func (g *Gatekeeper) SetCalendar(c TradingCalendar) {
	g.mu.Lock()
	if c != nil {
		g.calendar = c
	}
	g.mu.Unlock()
}

// SetTripCallback 注册熔断回调（告警用）。
func (g *Gatekeeper) SetTripCallback(fn func(reason string)) {
	g.mu.Lock()
	g.onTrip = fn
	g.mu.Unlock()
}

// SetConfig 热更新门限。
func (g *Gatekeeper) SetConfig(cfg GateConfig) {
	g.mu.Lock()
	g.cfg = cfg
	g.mu.Unlock()
}

// Check 依次评估各道闸门，全部通过返回 nil。
func (g *Gatekeeper) Check(v session.View) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.killSwitch {
		return ErrKillSwitchActive
	}
	if v.DailyDrawdown < 0 && -v.DailyDrawdown >= g.cfg.StopDayPercent {
		g.tripLocked("daily drawdown limit")
		return ErrDailyDrawdown
	}
	if g.cfg.MaxConsecutiveLosses > 0 && v.ConsecutiveLosses >= g.cfg.MaxConsecutiveLosses {
		// 连亏只暂停，不熔断：盈利一笔即可恢复
		return ErrLossStreak
	}
	if g.apiErrorsInWindowLocked(g.clock.Now()) > apiErrorBlockCount {
		return ErrAPIErrorStorm
	}
	return nil
}

// CanTrade 布尔形式的 Check。
func (g *Gatekeeper) CanTrade(v session.View) bool {
	return g.Check(v) == nil
}

// RecordAPIError 登记一次外部接口错误；窗口内超限时熔断。
func (g *Gatekeeper) RecordAPIError() {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.clock.Now()
	g.apiErrors = append(g.apiErrors, now)
	if g.apiErrorsInWindowLocked(now) > apiErrorTripCount {
		g.tripLocked("api error storm")
	}
}

func (g *Gatekeeper) apiErrorsInWindowLocked(now time.Time) int {
	cutoff := now.Add(-apiErrorWindow)
	i := 0
	for ; i < len(g.apiErrors); i++ {
		if g.apiErrors[i].After(cutoff) {
			break
		}
	}
	if i > 0 {
		g.apiErrors = g.apiErrors[i:]
	}
	return len(g.apiErrors)
}

// TriggerKillSwitch 手动熔断。
func (g *Gatekeeper) TriggerKillSwitch(reason string) {
	g.mu.Lock()
	g.tripLocked(reason)
	g.mu.Unlock()
}

func (g *Gatekeeper) tripLocked(reason string) {
	if g.killSwitch {
		return
	}
	g.killSwitch = true
	g.killReason = reason
	if g.onTrip != nil {
		go g.onTrip(reason)
	}
}

// ResetKillSwitch 显式复位，同时清空错误窗口。
func (g *Gatekeeper) ResetKillSwitch() {
	g.mu.Lock()
	g.killSwitch = false
	g.killReason = ""
	g.apiErrors = nil
	g.mu.Unlock()
}

// KillSwitchActive 当前是否处于熔断。
func (g *Gatekeeper) KillSwitchActive() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.killSwitch
}

// KillReason 返回最近一次熔断原因。
func (g *Gatekeeper) KillReason() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.killReason
}

// IsMarketConditionSuitable 判断当前行情是否适合再开一层。
func (g *Gatekeeper) IsMarketConditionSuitable(spread, mid, sigma1s, bidQty, askQty, orderSize float64) bool {
	if mid <= 0 {
		return false
	}
	if spread < mid*0.0001 { // 0.01% of mid
		return false
	}
	if sigma1s < 0.0001 || sigma1s > 0.01 {
		return false
	}
	if bidQty < 2*orderSize || askQty < 2*orderSize {
		return false
	}
	g.mu.Lock()
	cal := g.calendar
	clock := g.clock
	g.mu.Unlock()
	return cal.IsTradingTime(clock.Now())
}
