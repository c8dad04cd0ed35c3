package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ping-maker-go/gateway"
	"ping-maker-go/infrastructure/alert"
	"ping-maker-go/infrastructure/logger"
	"ping-maker-go/journal"
	"ping-maker-go/market"
	"ping-maker-go/metrics"
	"ping-maker-go/posttrade"
	"ping-maker-go/risk"
	"ping-maker-go/session"
	"ping-maker-go/strategy"
)

// EventSink 向外部（日志/遥测/通知）广播引擎事件；核心不依赖消费方。
type EventSink func(event string, fields map[string]interface{})

// EngineState 引擎状态
type EngineState int

const (
	StateIdle EngineState = iota
	StateRunning
	StateStopped
)

func (s EngineState) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateRunning:
		return "RUNNING"
	case StateStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// Config 引擎配置。
type Config struct {
	Symbol               string
	OrderNotional        float64
	MaxLayers            int
	TTL                  time.Duration
	Cooldown             time.Duration
	UpdateInterval       time.Duration
	WatchdogTimeout      time.Duration
	MaxConsecutiveLosses int
	MaxLongQtyPercent    float64       // 在途多头名义上限（% of 报价资产余额），<=0 关闭
	CallTimeout          time.Duration // 单次交易所调用上限，限制慢调用拖累整轮
}

// Components 引擎依赖组件。
type Components struct {
	Gateway gateway.ExecutionPort
	Feed    *market.Service
	Micro   *strategy.Engine
	Gate    *risk.Gatekeeper
	Stats   *session.Stats
	Logger  *logger.Logger
	Journal *journal.Journal
	Alerts  *alert.Manager
	Markout *posttrade.Analyzer
	Clock   risk.Clock
	Events  EventSink
}

// Engine 层引擎：并发推进 ≤ maxLayers 个回合交易尝试。
// 层表与会话统计只在更新周期 goroutine 内写入（单写者）。
type Engine struct {
	cfg Config

	gw      gateway.ExecutionPort
	feed    *market.Service
	micro   *strategy.Engine
	gate    *risk.Gatekeeper
	stats   *session.Stats
	logger  *logger.Logger
	journal *journal.Journal
	alerts  *alert.Manager
	markout *posttrade.Analyzer
	clock   risk.Clock
	events  EventSink

	// layers 只在更新周期 goroutine 内读写；外部看 active 计数
	layers []*Layer
	active atomic.Int32

	// 报价资产余额缓存，看门狗周期性刷新（mu 保护）
	balance   float64
	balanceAt time.Time

	state    EngineState
	mu       sync.RWMutex
	stopChan chan struct{}
	doneChan chan struct{}
}

// New 创建层引擎。
func New(cfg Config, c Components) (*Engine, error) {
	if err := validate(cfg, c); err != nil {
		return nil, fmt.Errorf("invalid engine setup: %w", err)
	}
	if cfg.UpdateInterval <= 0 {
		cfg.UpdateInterval = 500 * time.Millisecond
	}
	if cfg.TTL <= 0 {
		cfg.TTL = time.Minute
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	if cfg.WatchdogTimeout <= 0 {
		cfg.WatchdogTimeout = 5 * time.Minute
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 5 * time.Second
	}
	if c.Clock == nil {
		c.Clock = risk.SystemClock
	}

	e := &Engine{
		cfg:      cfg,
		gw:       c.Gateway,
		feed:     c.Feed,
		micro:    c.Micro,
		gate:     c.Gate,
		stats:    c.Stats,
		logger:   c.Logger,
		journal:  c.Journal,
		alerts:   c.Alerts,
		markout:  c.Markout,
		clock:    c.Clock,
		events:   c.Events,
		state:    StateIdle,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}

	// 行情回调直接驱动微观统计，与更新周期解耦
	e.feed.Publisher().SubscribeBook(func(t market.OrderBookTick) {
		if ms := e.micro.OnTick(t); ms != nil {
			metrics.UpdateMicroStats(ms.Mid, ms.Spread, ms.Sigma1s, ms.S)
			e.emit("micro_stats", map[string]interface{}{
				"mid": ms.Mid, "spread": ms.Spread, "sigma1s": ms.Sigma1s,
				"s": ms.S, "tp": ms.Tp, "sl": ms.Sl,
			})
		}
	})

	if e.gate != nil {
		e.gate.SetTripCallback(func(reason string) {
			e.sendAlert("CRITICAL", "kill switch tripped: "+reason, nil)
		})
	}
	return e, nil
}

func validate(cfg Config, c Components) error {
	if cfg.Symbol == "" {
		return errors.New("symbol is required")
	}
	if cfg.OrderNotional <= 0 {
		return errors.New("order notional must be > 0")
	}
	if cfg.MaxLayers <= 0 {
		return errors.New("max layers must be > 0")
	}
	if c.Gateway == nil {
		return errors.New("gateway is required")
	}
	if c.Feed == nil {
		return errors.New("feed is required")
	}
	if c.Micro == nil {
		return errors.New("micro stats engine is required")
	}
	if c.Gate == nil {
		return errors.New("gatekeeper is required")
	}
	if c.Stats == nil {
		return errors.New("session stats is required")
	}
	if c.Logger == nil {
		return errors.New("logger is required")
	}
	return nil
}

// Start 启动更新周期与看门狗。
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.state == StateRunning {
		e.mu.Unlock()
		return fmt.Errorf("engine already started (state: %s)", e.state)
	}
	if e.state == StateStopped {
		e.stopChan = make(chan struct{})
		e.doneChan = make(chan struct{})
	}
	e.state = StateRunning
	e.mu.Unlock()

	e.logger.Info("layer engine starting",
		zap.String("symbol", e.cfg.Symbol),
		zap.Int("max_layers", e.cfg.MaxLayers),
		zap.Duration("update_interval", e.cfg.UpdateInterval),
		zap.Duration("ttl", e.cfg.TTL))

	e.refreshBalance(ctx)

	go e.run(ctx)
	go e.watchdog(ctx)

	e.emit("started", map[string]interface{}{"symbol": e.cfg.Symbol})
	return nil
}

// Stop 停止引擎并尽力撤销全部挂单；失败只记日志。
func (e *Engine) Stop() error {
	e.mu.Lock()
	if e.state != StateRunning {
		e.mu.Unlock()
		return fmt.Errorf("engine not running (state: %s)", e.state)
	}
	e.mu.Unlock()

	select {
	case <-e.stopChan:
	default:
		close(e.stopChan)
	}
	select {
	case <-e.doneChan:
	case <-time.After(10 * time.Second):
		e.logger.Warn("timeout waiting for engine loop to stop")
	}

	ctx, cancel := context.WithTimeout(context.Background(), e.cfg.CallTimeout)
	defer cancel()
	if err := e.gw.CancelAllOpenOrders(ctx, e.cfg.Symbol); err != nil {
		e.logger.Error("cancel all on stop failed", zap.Error(err))
	}

	e.mu.Lock()
	e.state = StateStopped
	e.mu.Unlock()

	e.emit("stopped", map[string]interface{}{"symbol": e.cfg.Symbol})
	e.logger.Info("layer engine stopped")
	return nil
}

// GetState 当前引擎状态。
func (e *Engine) GetState() EngineState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// ActiveLayers 活跃层数量。
func (e *Engine) ActiveLayers() int {
	return int(e.active.Load())
}

// Tunables 可热更新的交易参数子集。
type Tunables struct {
	OrderNotional     float64
	TTL               time.Duration
	Cooldown          time.Duration
	MaxLayers         int
	MaxLongQtyPercent float64
}

// SetTunables 热更新报价与风控调参（配置热加载用）。
func (e *Engine) SetTunables(p strategy.Params, gc risk.GateConfig, t Tunables) {
	e.micro.SetParams(p)
	e.gate.SetConfig(gc)
	e.mu.Lock()
	if t.OrderNotional > 0 {
		e.cfg.OrderNotional = t.OrderNotional
	}
	if t.TTL > 0 {
		e.cfg.TTL = t.TTL
	}
	if t.Cooldown > 0 {
		e.cfg.Cooldown = t.Cooldown
	}
	if t.MaxLayers > 0 {
		e.cfg.MaxLayers = t.MaxLayers
	}
	if t.MaxLongQtyPercent > 0 {
		e.cfg.MaxLongQtyPercent = t.MaxLongQtyPercent
	}
	e.cfg.MaxConsecutiveLosses = gc.MaxConsecutiveLosses
	e.mu.Unlock()
	e.logger.Info("tunables updated")
}

// run 更新周期主循环。
func (e *Engine) run(ctx context.Context) {
	defer close(e.doneChan)

	ticker := time.NewTicker(e.cfg.UpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("context done, stopping engine loop")
			return
		case <-e.stopChan:
			return
		case <-ticker.C:
			e.onCycle(ctx)
		}
	}
}

// onCycle 单轮更新：风控 → 推进所有层 → 尝试开新层。
// 任何 panic 在周期边界吞掉并作为 error 事件上报，下一轮继续。
func (e *Engine) onCycle(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("update cycle panic: %v", r)
			e.logger.Error("update cycle recovered", zap.Error(err))
			e.emit("error", map[string]interface{}{"error": err.Error()})
		}
	}()
	defer func() { e.active.Store(int32(len(e.layers))) }()

	now := e.clock.Now()
	ms, ok := e.micro.Latest()
	if !ok {
		return // 还没有可用行情，跳过本轮
	}
	cfg := e.snapshotCfg()
	view := e.stats.Snapshot(now)
	metrics.UpdateSession(view.TotalPnL, len(e.layers), view.ConsecutiveLosses)
	if e.gate.KillSwitchActive() {
		metrics.KillSwitchActive.Set(1)
	} else {
		metrics.KillSwitchActive.Set(0)
	}

	gateErr := e.gate.Check(view)

	// 推进活跃层；已回到 IDLE 的层离开活跃集合
	kept := e.layers[:0]
	for _, l := range e.layers {
		if e.stepLayer(ctx, l, now, ms, cfg) {
			kept = append(kept, l)
		}
	}
	e.layers = kept

	if gateErr != nil {
		metrics.GateRejectionsTotal.WithLabelValues(gateReason(gateErr)).Inc()
		e.logger.Debug("trading gated", zap.String("reason", gateErr.Error()))
		return
	}
	e.maybeCreateLayer(ctx, now, ms, view, cfg)
}

func gateReason(err error) string {
	switch {
	case errors.Is(err, risk.ErrKillSwitchActive):
		return "kill_switch"
	case errors.Is(err, risk.ErrDailyDrawdown):
		return "drawdown"
	case errors.Is(err, risk.ErrLossStreak):
		return "loss_streak"
	case errors.Is(err, risk.ErrAPIErrorStorm):
		return "api_errors"
	default:
		return "other"
	}
}

// snapshotCfg 周期内使用的一致配置快照（热更新走 SetTunables）。
func (e *Engine) snapshotCfg() Config {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cfg
}

// stepLayer 推进单层一步；返回 false 表示层已回到 IDLE。
func (e *Engine) stepLayer(ctx context.Context, l *Layer, now time.Time, ms strategy.MicroStats, cfg Config) bool {
	switch st := l.state.(type) {
	case pendingBuy:
		return e.stepPendingBuy(ctx, l, st, now, ms, cfg)
	case longPing:
		return e.stepLongPing(ctx, l, st, now, ms, cfg)
	case cooldownState:
		if !now.Before(st.ResumeAt) {
			e.emit("layer_idle", map[string]interface{}{"layer": l.ID, "from": string(PhaseCooldown)})
			return false
		}
		return true
	default:
		e.logger.Error("layer in unknown state", zap.String("layer", l.ID))
		return false
	}
}

func (e *Engine) stepPendingBuy(ctx context.Context, l *Layer, st pendingBuy, now time.Time, ms strategy.MicroStats, cfg Config) bool {
	if now.After(st.ExpireAt) {
		// 过期：撤单、无惩罚释放槽位
		if err := e.cancelOrder(ctx, st.BuyOrderID); err != nil {
			e.recordAPIError("cancel expired buy", l.ID, err)
		}
		e.emit("layer_expired", map[string]interface{}{
			"layer": l.ID, "phase": string(PhasePendingBuy),
		})
		return false
	}

	o, err := e.getOrder(ctx, st.BuyOrderID)
	if err != nil {
		// 瞬时 I/O 错误：放弃该层而不是无限重试
		e.recordAPIError("query buy order", l.ID, err)
		if cancelErr := e.cancelOrder(ctx, st.BuyOrderID); cancelErr != nil {
			e.logger.Warn("cancel after query failure", zap.String("layer", l.ID), zap.Error(cancelErr))
		}
		return false
	}

	switch o.Status {
	case gateway.StatusFilled:
		return e.enterLong(ctx, l, st, o, now, ms, cfg)
	case gateway.StatusCanceled, gateway.StatusRejected, gateway.StatusExpired:
		// 外部终结（手工撤单、交易所拒绝）：槽位直接释放
		e.emit("layer_idle", map[string]interface{}{"layer": l.ID, "from": string(PhasePendingBuy)})
		return false
	default:
		return true
	}
}

// enterLong 买单成交：挂出止盈卖单并进入 LONG_PING。
func (e *Engine) enterLong(ctx context.Context, l *Layer, st pendingBuy, buy gateway.Order, now time.Time, ms strategy.MicroStats, cfg Config) bool {
	entry := buy.FillPrice()
	e.stats.RecordFill(now)
	if e.markout != nil {
		e.markout.RecordFill(string(gateway.SideBuy), entry, now)
	}

	sellPrice := entry + ms.Tp
	slPrice := entry - ms.Sl

	sell, err := e.placeOrder(ctx, gateway.OrderRequest{
		Symbol:   cfg.Symbol,
		Side:     gateway.SideSell,
		Type:     gateway.TypeLimit,
		Price:    sellPrice,
		Quantity: st.Quantity,
		ClientID: "ping-tp-" + uuid.NewString(),
	})
	if err != nil {
		// 挂不出止盈单就不能裸持仓：立即紧急平仓
		e.recordAPIError("place take profit", l.ID, err)
		lp := longPing{
			EntryPrice: entry,
			Quantity:   st.Quantity,
			SLPrice:    slPrice,
			OpenedAt:   st.OpenedAt,
			EntryAt:    now,
		}
		e.unwind(ctx, l, lp, now, ms, cfg, "tp_place_failed")
		l.state = cooldownState{ResumeAt: now.Add(cfg.Cooldown)}
		return true
	}

	l.state = longPing{
		SellOrderID: sell.ID,
		SellPrice:   sellPrice,
		EntryPrice:  entry,
		Quantity:    st.Quantity,
		SLPrice:     slPrice,
		ExpireAt:    now.Add(cfg.TTL),
		OpenedAt:    st.OpenedAt,
		EntryAt:     now,
	}
	e.emit("layer_long", map[string]interface{}{
		"layer": l.ID, "entry": entry, "tp": sellPrice, "sl": slPrice,
	})
	e.logger.Info("layer entered long",
		zap.String("layer", l.ID),
		zap.Float64("entry", entry),
		zap.Float64("tp", sellPrice),
		zap.Float64("sl", slPrice))
	return true
}

func (e *Engine) stepLongPing(ctx context.Context, l *Layer, st longPing, now time.Time, ms strategy.MicroStats, cfg Config) bool {
	if now.After(st.ExpireAt) || ms.Mid <= st.SLPrice {
		reason := "ttl_expired"
		if ms.Mid <= st.SLPrice {
			reason = "stop_loss"
		}
		e.unwind(ctx, l, st, now, ms, cfg, reason)
		l.state = cooldownState{ResumeAt: now.Add(cfg.Cooldown)}
		return true
	}

	o, err := e.getOrder(ctx, st.SellOrderID)
	if err != nil {
		e.recordAPIError("query sell order", l.ID, err)
		if cancelErr := e.cancelOrder(ctx, st.SellOrderID); cancelErr != nil {
			e.logger.Warn("cancel after query failure", zap.String("layer", l.ID), zap.Error(cancelErr))
		}
		return false
	}

	if o.Status == gateway.StatusFilled {
		pnl := (o.FillPrice() - st.EntryPrice) * st.Quantity
		e.closeRoundTrip(l, st, o.FillPrice(), pnl, now, false, cfg.Symbol)
		return false
	}
	return true
}

// closeRoundTrip 回合结束：更新会话统计、流水与事件。
func (e *Engine) closeRoundTrip(l *Layer, st longPing, exitPrice, pnl float64, now time.Time, emergency bool, symbol string) {
	e.stats.RecordTrade(pnl, now.Sub(st.OpenedAt), now)
	if e.markout != nil {
		e.markout.RecordFill(string(gateway.SideSell), exitPrice, now)
	}

	outcome := "win"
	if pnl < 0 {
		outcome = "loss"
	}
	metrics.TradesTotal.WithLabelValues(outcome).Inc()

	if err := e.journal.RecordFill(journal.FillRecord{
		LayerID:    l.ID,
		Symbol:     symbol,
		EntryPrice: st.EntryPrice,
		ExitPrice:  exitPrice,
		Quantity:   st.Quantity,
		PnL:        pnl,
		Emergency:  emergency,
		OpenedAt:   st.OpenedAt,
		ClosedAt:   now,
	}); err != nil {
		e.logger.Warn("journal write failed", zap.Error(err))
	}

	e.emit("trade", map[string]interface{}{
		"layer": l.ID, "entry": st.EntryPrice, "exit": exitPrice,
		"qty": st.Quantity, "pnl": pnl, "emergency": emergency,
	})
	e.logger.Info("round trip closed",
		zap.String("layer", l.ID),
		zap.Float64("entry", st.EntryPrice),
		zap.Float64("exit", exitPrice),
		zap.Float64("pnl", pnl),
		zap.Bool("emergency", emergency))
}

// unwind 紧急平仓：撤掉止盈单，贴盘抛出持仓。全程 best-effort。
func (e *Engine) unwind(ctx context.Context, l *Layer, st longPing, now time.Time, ms strategy.MicroStats, cfg Config, reason string) {
	if st.SellOrderID != "" {
		if err := e.cancelOrder(ctx, st.SellOrderID); err != nil {
			e.logger.Warn("cancel tp during unwind failed",
				zap.String("layer", l.ID), zap.Error(err))
		}
	}

	exitPrice := ms.Mid - ms.Spread*0.5
	if _, err := e.placeOrder(ctx, gateway.OrderRequest{
		Symbol:   cfg.Symbol,
		Side:     gateway.SideSell,
		Type:     gateway.TypeLimit,
		Price:    exitPrice,
		Quantity: st.Quantity,
		ClientID: "ping-unwind-" + uuid.NewString(),
	}); err != nil {
		// 没有二级恢复机制：记录后放手
		e.logger.Error("emergency sell failed",
			zap.String("layer", l.ID), zap.Error(err))
		e.recordAPIError("emergency sell", l.ID, err)
	}

	pnl := (exitPrice - st.EntryPrice) * st.Quantity
	e.closeRoundTrip(l, st, exitPrice, pnl, now, true, cfg.Symbol)
	e.sendAlert("WARNING", "layer emergency unwind", map[string]interface{}{
		"layer": l.ID, "reason": reason, "pnl": pnl,
	})
	e.emit("layer_unwound", map[string]interface{}{"layer": l.ID, "reason": reason})
}

// maybeCreateLayer 有空位且行情合适时开一个新层。
func (e *Engine) maybeCreateLayer(ctx context.Context, now time.Time, ms strategy.MicroStats, view session.View, cfg Config) {
	if len(e.layers) >= cfg.MaxLayers {
		return
	}
	tick, ok := e.feed.Latest()
	if !ok {
		return
	}

	// 按成交率与连亏自适应调整偏移与名义
	adapted := strategy.AdaptParameters(strategy.AdaptInput{
		S:                    ms.S,
		OrderNotional:        cfg.OrderNotional,
		FillsPerMinute:       view.FillsPerMinute,
		ConsecutiveLosses:    view.ConsecutiveLosses,
		MaxConsecutiveLosses: cfg.MaxConsecutiveLosses,
	})
	qty := adapted.OrderNotional / ms.Mid

	// 在途多头名义不得超过余额的 maxLongQtyPercent
	if cfg.MaxLongQtyPercent > 0 {
		open := e.openNotional()
		bal := e.totalBalance()
		if !risk.CanOpenNewPosition(open, adapted.OrderNotional, bal, cfg.MaxLongQtyPercent) {
			metrics.GateRejectionsTotal.WithLabelValues("position_limit").Inc()
			e.logger.Debug("position limit blocks new layer",
				zap.Float64("open_notional", open),
				zap.Float64("order_notional", adapted.OrderNotional),
				zap.Float64("limit", risk.CalculatePositionLimit(bal, cfg.MaxLongQtyPercent)))
			return
		}
	}

	if !e.gate.IsMarketConditionSuitable(ms.Spread, ms.Mid, ms.Sigma1s, tick.BidQty, tick.AskQty, qty) {
		metrics.GateRejectionsTotal.WithLabelValues("market_condition").Inc()
		return
	}

	buyPrice := ms.Mid - adapted.S
	// 盘口失衡时向重的一侧平移报价
	imb := strategy.BookImbalance(tick)
	buyPrice, _ = strategy.AdjustPricesForImbalance(buyPrice, ms.Mid+adapted.S, imb)

	order, err := e.placeOrder(ctx, gateway.OrderRequest{
		Symbol:   cfg.Symbol,
		Side:     gateway.SideBuy,
		Type:     gateway.TypeLimit,
		Price:    buyPrice,
		Quantity: qty,
		ClientID: "ping-buy-" + uuid.NewString(),
	})
	if err != nil {
		e.recordAPIError("place buy order", "", err)
		return
	}

	l := &Layer{
		ID: uuid.NewString(),
		state: pendingBuy{
			BuyOrderID: order.ID,
			BuyPrice:   buyPrice,
			Quantity:   qty,
			ExpireAt:   now.Add(cfg.TTL),
			OpenedAt:   now,
		},
	}
	e.layers = append(e.layers, l)
	e.emit("layer_created", map[string]interface{}{
		"layer": l.ID, "buy_price": buyPrice, "qty": qty, "imbalance": imb,
	})
	e.logger.Info("layer created",
		zap.String("layer", l.ID),
		zap.Float64("buy_price", buyPrice),
		zap.Float64("qty", qty))
}

// openNotional 全部在途层占用的名义金额。只在周期 goroutine 内调用。
func (e *Engine) openNotional() float64 {
	var total float64
	for _, l := range e.layers {
		switch st := l.state.(type) {
		case pendingBuy:
			total += st.BuyPrice * st.Quantity
		case longPing:
			total += st.EntryPrice * st.Quantity
		}
	}
	return total
}

// refreshBalance 拉取账户信息并缓存报价资产余额；失败保留旧值。
func (e *Engine) refreshBalance(ctx context.Context) {
	callCtx, cancel := context.WithTimeout(ctx, e.cfg.CallTimeout)
	defer cancel()
	info, err := e.gw.GetAccountInfo(callCtx)
	if err != nil {
		e.logger.Warn("account info refresh failed", zap.Error(err))
		return
	}
	bal := info.Total(gateway.QuoteAsset(e.cfg.Symbol))
	e.mu.Lock()
	e.balance = bal
	e.balanceAt = e.clock.Now()
	e.mu.Unlock()
	e.logger.Debug("quote balance refreshed", zap.Float64("balance", bal))
}

func (e *Engine) totalBalance() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.balance
}

// 统一加调用超时的 gateway 包装。

func (e *Engine) placeOrder(ctx context.Context, req gateway.OrderRequest) (gateway.Order, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.cfg.CallTimeout)
	defer cancel()
	return e.gw.PlaceOrder(callCtx, req)
}

func (e *Engine) cancelOrder(ctx context.Context, orderID string) error {
	callCtx, cancel := context.WithTimeout(ctx, e.cfg.CallTimeout)
	defer cancel()
	return e.gw.CancelOrder(callCtx, e.cfg.Symbol, orderID)
}

func (e *Engine) getOrder(ctx context.Context, orderID string) (gateway.Order, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.cfg.CallTimeout)
	defer cancel()
	return e.gw.GetOrder(callCtx, e.cfg.Symbol, orderID)
}

func (e *Engine) recordAPIError(op, layerID string, err error) {
	e.gate.RecordAPIError()
	metrics.APIErrorsTotal.Inc()
	e.logger.Error("execution port error",
		zap.String("op", op),
		zap.String("layer", layerID),
		zap.Error(err))
	e.emit("error", map[string]interface{}{"op": op, "layer": layerID, "error": err.Error()})
}

func (e *Engine) emit(event string, fields map[string]interface{}) {
	if e.events != nil {
		e.events(event, fields)
	}
}

func (e *Engine) sendAlert(level, msg string, fields map[string]interface{}) {
	if e.alerts == nil {
		return
	}
	_ = e.alerts.SendAlert(alert.Alert{Level: level, Message: msg, Fields: fields})
}
