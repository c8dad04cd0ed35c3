// Package session aggregates per-run trading outcomes. The layer engine is
// the single writer; risk and adaptation read consistent snapshots.
package session

import (
	"sync"
	"time"
)

// fillRateWindow 成交率统计窗口。
const fillRateWindow = time.Minute

// View is an immutable snapshot of the session aggregate.
type View struct {
	TotalPnL          float64
	TotalTrades       int
	WinningTrades     int
	LosingTrades      int
	ConsecutiveLosses int
	FillsPerMinute    float64
	AvgTradeDuration  time.Duration
	DailyDrawdown     float64 // %，亏损时为负
	StartTime         time.Time
	LastTradeTime     time.Time
	LastFillTime      time.Time // 含买腿成交，不只是完整回合
}

// Stats 单一可变聚合，只由 layer engine 写入。
type Stats struct {
	mu sync.RWMutex

	initialEquity float64
	totalPnL      float64
	peakPnL       float64
	total         int
	wins          int
	losses        int
	lossStreak    int
	durationSum   time.Duration
	startTime     time.Time
	lastTrade     time.Time
	lastFill      time.Time
	fillTimes     []time.Time
}

// NewStats 创建会话统计。initialEquity 用于把回撤换算成百分比。
func NewStats(initialEquity float64, start time.Time) *Stats {
	if initialEquity <= 0 {
		initialEquity = 10000
	}
	return &Stats{
		initialEquity: initialEquity,
		startTime:     start,
	}
}

// RecordTrade 记录一笔已完成的回合交易。
func (s *Stats) RecordTrade(pnl float64, duration time.Duration, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.totalPnL += pnl
	if s.totalPnL > s.peakPnL {
		s.peakPnL = s.totalPnL
	}
	s.total++
	if pnl >= 0 {
		s.wins++
		s.lossStreak = 0
	} else {
		s.losses++
		s.lossStreak++
	}
	s.durationSum += duration
	s.lastTrade = now
	s.recordFillLocked(now)
}

// RecordFill 记录一次成交（不一定是完整回合），驱动 fills/minute。
func (s *Stats) RecordFill(now time.Time) {
	s.mu.Lock()
	s.recordFillLocked(now)
	s.mu.Unlock()
}

func (s *Stats) recordFillLocked(now time.Time) {
	s.lastFill = now
	s.fillTimes = append(s.fillTimes, now)
	cutoff := now.Add(-fillRateWindow)
	i := 0
	for ; i < len(s.fillTimes); i++ {
		if s.fillTimes[i].After(cutoff) {
			break
		}
	}
	if i > 0 {
		s.fillTimes = s.fillTimes[i:]
	}
}

// Snapshot 返回当前聚合的只读副本。
func (s *Stats) Snapshot(now time.Time) View {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v := View{
		TotalPnL:          s.totalPnL,
		TotalTrades:       s.total,
		WinningTrades:     s.wins,
		LosingTrades:      s.losses,
		ConsecutiveLosses: s.lossStreak,
		StartTime:         s.startTime,
		LastTradeTime:     s.lastTrade,
		LastFillTime:      s.lastFill,
	}
	if s.total > 0 {
		v.AvgTradeDuration = s.durationSum / time.Duration(s.total)
	}
	cutoff := now.Add(-fillRateWindow)
	fills := 0
	for _, ts := range s.fillTimes {
		if ts.After(cutoff) {
			fills++
		}
	}
	v.FillsPerMinute = float64(fills)
	if dd := s.totalPnL - s.peakPnL; dd < 0 {
		v.DailyDrawdown = dd / s.initialEquity * 100
	}
	return v
}
