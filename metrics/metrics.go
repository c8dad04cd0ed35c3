// Package metrics provides Prometheus metrics for the ping maker.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// 行情与微观统计
	Mid = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pingmaker_mid_price",
		Help: "Latest mid price",
	})
	Spread = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pingmaker_spread",
		Help: "Latest best bid/ask spread",
	})
	Sigma1s = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pingmaker_sigma_1s",
		Help: "Short horizon volatility estimate",
	})
	QuoteOffset = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pingmaker_quote_offset",
		Help: "Current quoting half offset s",
	})

	// 层与会话
	ActiveLayers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pingmaker_active_layers",
		Help: "Layers currently in flight",
	})
	SessionPnL = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pingmaker_session_pnl",
		Help: "Cumulative session PnL",
	})
	ConsecutiveLosses = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pingmaker_consecutive_losses",
		Help: "Current losing streak",
	})
	TradesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pingmaker_trades_total",
		Help: "Completed round trips by outcome",
	}, []string{"outcome"})

	// 风控
	KillSwitchActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pingmaker_kill_switch_active",
		Help: "1 when the kill switch is tripped",
	})
	APIErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pingmaker_api_errors_total",
		Help: "Execution/feed port errors recorded",
	})
	GateRejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pingmaker_gate_rejections_total",
		Help: "Layer creations blocked by the gatekeeper",
	}, []string{"reason"})
)

// UpdateMicroStats 每个 tick 刷新微观统计指标。
func UpdateMicroStats(mid, spread, sigma, offset float64) {
	Mid.Set(mid)
	Spread.Set(spread)
	Sigma1s.Set(sigma)
	QuoteOffset.Set(offset)
}

// UpdateSession 每个更新周期刷新会话指标。
func UpdateSession(pnl float64, activeLayers, lossStreak int) {
	SessionPnL.Set(pnl)
	ActiveLayers.Set(float64(activeLayers))
	ConsecutiveLosses.Set(float64(lossStreak))
}

// StartMetricsServer 启动Prometheus指标服务器
func StartMetricsServer(addr string) {
	http.Handle("/metrics", promhttp.Handler())
	go func() {
		_ = http.ListenAndServe(addr, nil)
	}()
}
