package strategy

import (
	"math"
	"sync"
	"time"

	"ping-maker-go/market"
)

// maxReturnSamples 约等于 1 秒粒度下两分钟的窗口。
const maxReturnSamples = 120

// defaultSigma 样本不足时的波动率兜底值。
const defaultSigma = 0.001

// MicroStats 每个盘口 tick 重算一次的报价参数快照。
type MicroStats struct {
	Mid     float64
	Spread  float64
	Sigma1s float64 // 短周期波动率（对数收益率总体标准差）
	S       float64 // 报价半偏移
	Tp      float64 // 止盈距离
	Sl      float64 // 止损距离
	Ts      time.Time
}

// Params 微观统计引擎的可热更参数。
type Params struct {
	Ksig         float64 // 波动率乘数
	SMinPercent  float64 // 偏移下限，% of mid
	SMaxPercent  float64 // 偏移上限，% of mid
	TpMultiplier float64
	SlMultiplier float64
}

// Engine 将原始 tick 流转成 MicroStats。
// 内部只保留对数收益率滚动缓冲，不保留历史快照。
type Engine struct {
	mu      sync.Mutex
	params  Params
	returns []float64
	lastMid float64
	latest  MicroStats
	has     bool
}

func NewEngine(p Params) *Engine {
	return &Engine{
		params:  p,
		returns: make([]float64, 0, maxReturnSamples),
	}
}

// SetParams 热更新调参字段。
func (e *Engine) SetParams(p Params) {
	e.mu.Lock()
	e.params = p
	e.mu.Unlock()
}

// Latest 返回最近一次计算结果；第二个返回值指示是否已有数据。
func (e *Engine) Latest() (MicroStats, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.latest, e.has
}

// OnTick 推进滚动缓冲并派生报价参数。盘口不可用时返回 nil。
func (e *Engine) OnTick(t market.OrderBookTick) *MicroStats {
	if !t.Valid() {
		return nil
	}
	mid := t.Mid()
	spread := t.Spread()

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.lastMid > 0 {
		r := math.Log(mid / e.lastMid)
		e.returns = append(e.returns, r)
		if len(e.returns) > maxReturnSamples {
			e.returns = e.returns[len(e.returns)-maxReturnSamples:]
		}
	}
	e.lastMid = mid

	sigma := e.sigma1s()
	s := clampOffset(mid, spread, sigma, e.params)

	ms := MicroStats{
		Mid:     mid,
		Spread:  spread,
		Sigma1s: sigma,
		S:       s,
		Tp:      s * e.params.TpMultiplier,
		Sl:      s * e.params.SlMultiplier,
		Ts:      t.Ts,
	}
	e.latest = ms
	e.has = true
	return &ms
}

// sigma1s 总体标准差；样本不足 2 个时使用兜底值。
func (e *Engine) sigma1s() float64 {
	n := len(e.returns)
	if n < 2 {
		return defaultSigma
	}
	mean := 0.0
	for _, r := range e.returns {
		mean += r
	}
	mean /= float64(n)
	variance := 0.0
	for _, r := range e.returns {
		d := r - mean
		variance += d * d
	}
	variance /= float64(n)
	return math.Sqrt(variance)
}

// clampOffset 计算报价半偏移。
// 注意：minS > maxS（盘口相对配置过宽）时结果可超过 maxS，
// 下限在最后应用，这是刻意保留的边界行为。
func clampOffset(mid, spread, sigma float64, p Params) float64 {
	sRaw := mid * p.Ksig * sigma
	minS := math.Max(0.5*spread+TickSizeFor(mid), p.SMinPercent/100*mid)
	maxS := p.SMaxPercent / 100 * mid
	return math.Max(math.Min(sRaw, maxS), minS)
}

// TickSizeFor 按价格量级推导最小报价步长。
func TickSizeFor(price float64) float64 {
	switch {
	case price >= 10000:
		return 0.1
	case price >= 1000:
		return 0.01
	case price >= 100:
		return 0.001
	case price >= 10:
		return 0.0001
	case price >= 1:
		return 0.00001
	default:
		return 0.000001
	}
}
