// Package posttrade measures fill quality (markout / adverse selection).
// 买单成交后价格继续下跌、卖单成交后价格继续上涨，都说明报价被挑了。
package posttrade

import (
	"sync"
	"time"
)

// markout 观察点。
const (
	horizonShort = 1 * time.Second
	horizonLong  = 5 * time.Second
)

// Fill 一次待评估的成交。
type Fill struct {
	Side     string // BUY / SELL
	Price    float64
	At       time.Time
	midShort float64
	midLong  float64
	gotShort bool
	gotLong  bool
}

// Stats 聚合后的成交质量指标。markout 以成交价的比例表示，
// 正值代表方向有利，负值代表被逆向选择。
type Stats struct {
	TotalFills    int
	AnalyzedFills int
	AdverseRate   float64 // 1s markout 为负的比例
	AvgMarkout1s  float64
	AvgMarkout5s  float64
}

// Analyzer 无 goroutine 的轮询式评估器：调用方周期性喂入当前中间价。
type Analyzer struct {
	mu      sync.Mutex
	pending []*Fill
	done    []*Fill
	maxDone int
}

func NewAnalyzer() *Analyzer {
	return &Analyzer{maxDone: 1000}
}

// RecordFill 登记一次成交，等待后续 markout 采样。
func (a *Analyzer) RecordFill(side string, price float64, at time.Time) {
	if price <= 0 {
		return
	}
	a.mu.Lock()
	a.pending = append(a.pending, &Fill{Side: side, Price: price, At: at})
	a.mu.Unlock()
}

// Poll 用当前中间价推进所有待评估成交；到齐两个观察点后归档。
// 以 1s 左右的频率调用即可，观察点允许略微滞后。
func (a *Analyzer) Poll(now time.Time, mid float64) {
	if mid <= 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	kept := a.pending[:0]
	for _, f := range a.pending {
		age := now.Sub(f.At)
		if !f.gotShort && age >= horizonShort {
			f.midShort = mid
			f.gotShort = true
		}
		if !f.gotLong && age >= horizonLong {
			f.midLong = mid
			f.gotLong = true
		}
		if f.gotShort && f.gotLong {
			a.done = append(a.done, f)
			continue
		}
		kept = append(kept, f)
	}
	a.pending = kept
	if len(a.done) > a.maxDone {
		a.done = a.done[len(a.done)-a.maxDone:]
	}
}

// markout 方向化收益率：BUY 看涨幅，SELL 看跌幅。
func markout(f *Fill, mid float64) float64 {
	if f.Side == "SELL" {
		return (f.Price - mid) / f.Price
	}
	return (mid - f.Price) / f.Price
}

// Stats 计算当前聚合指标。
func (a *Analyzer) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()

	st := Stats{TotalFills: len(a.pending) + len(a.done)}
	if len(a.done) == 0 {
		return st
	}

	var adverse int
	var sum1s, sum5s float64
	for _, f := range a.done {
		m1 := markout(f, f.midShort)
		m5 := markout(f, f.midLong)
		sum1s += m1
		sum5s += m5
		if m1 < 0 {
			adverse++
		}
	}
	n := len(a.done)
	st.AnalyzedFills = n
	st.AdverseRate = float64(adverse) / float64(n)
	st.AvgMarkout1s = sum1s / float64(n)
	st.AvgMarkout5s = sum5s / float64(n)
	return st
}
