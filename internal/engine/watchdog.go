package engine

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// 行情静默判定阈值与余额刷新间隔。
const (
	bookStaleAfter      = 5 * time.Second
	tradeStaleAfter     = 10 * time.Second
	balanceRefreshAfter = time.Minute
)

// watchdog 每秒检查数据新鲜度与成交活跃度，只告警不干预。
func (e *Engine) watchdog(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-e.stopChan:
			return
		case <-ticker.C:
			e.checkHealth(ctx)
		}
	}
}

func (e *Engine) checkHealth(ctx context.Context) {
	now := e.clock.Now()
	cfg := e.snapshotCfg()

	// markout 观察点采样
	if e.markout != nil {
		if mid := e.feed.Mid(); mid > 0 {
			e.markout.Poll(now, mid)
		}
	}

	// 仓位上限依赖的余额缓存按分钟级刷新
	e.mu.RLock()
	balanceAge := now.Sub(e.balanceAt)
	e.mu.RUnlock()
	if balanceAge >= balanceRefreshAfter {
		e.refreshBalance(ctx)
	}

	if st := e.feed.BookStaleness(now); st > bookStaleAfter {
		e.logger.Warn("order book feed stale",
			zap.Duration("staleness", st))
		e.emit("feed_stale", map[string]interface{}{
			"kind": "book", "staleness_ms": st.Milliseconds(),
		})
	}
	if st := e.feed.TradeStaleness(now); st > tradeStaleAfter {
		e.logger.Warn("trade feed stale",
			zap.Duration("staleness", st))
		e.emit("feed_stale", map[string]interface{}{
			"kind": "trade", "staleness_ms": st.Milliseconds(),
		})
	}

	// 长时间无成交：可能是报价参数失配或行情死水。
	// 按最近一次成交腿（含买腿）计时，而不是完整回合。
	view := e.stats.Snapshot(now)
	last := view.LastFillTime
	if last.IsZero() {
		last = view.StartTime
	}
	if idle := now.Sub(last); idle > cfg.WatchdogTimeout {
		e.logger.Warn("no fills for extended period",
			zap.Duration("idle", idle),
			zap.Int("active_layers", e.ActiveLayers()))
		e.sendAlert("WARNING", "no fills for extended period", map[string]interface{}{
			"idle_seconds": int(idle.Seconds()),
		})
	}
}
