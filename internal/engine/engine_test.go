package engine

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ping-maker-go/gateway"
	"ping-maker-go/infrastructure/alert"
	"ping-maker-go/infrastructure/logger"
	"ping-maker-go/market"
	"ping-maker-go/risk"
	"ping-maker-go/session"
	"ping-maker-go/strategy"
)

// fakeClock 手动推进的时钟。
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// fakeGateway 脚本化执行端口：测试里手动控制成交。
type fakeGateway struct {
	mu        sync.Mutex
	nextID    int
	orders    map[string]gateway.Order
	placed    []gateway.OrderRequest
	canceled  []string
	cancelAll int
	placeErr  error
	getErr    error
	account   gateway.AccountInfo
	acctErr   error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{orders: make(map[string]gateway.Order)}
}

func (g *fakeGateway) setQuoteBalance(amount float64) {
	g.mu.Lock()
	g.account = gateway.AccountInfo{Balances: []gateway.Balance{{Asset: "USDC", Free: amount}}}
	g.mu.Unlock()
}

func (g *fakeGateway) PlaceOrder(_ context.Context, req gateway.OrderRequest) (gateway.Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.placeErr != nil {
		return gateway.Order{}, g.placeErr
	}
	g.nextID++
	o := gateway.Order{
		ID:       fmt.Sprintf("o-%d", g.nextID),
		ClientID: req.ClientID,
		Symbol:   req.Symbol,
		Side:     req.Side,
		Type:     req.Type,
		Price:    req.Price,
		Quantity: req.Quantity,
		Status:   gateway.StatusNew,
	}
	g.orders[o.ID] = o
	g.placed = append(g.placed, req)
	return o, nil
}

func (g *fakeGateway) CancelOrder(_ context.Context, _, orderID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.canceled = append(g.canceled, orderID)
	if o, ok := g.orders[orderID]; ok && !o.Status.Done() {
		o.Status = gateway.StatusCanceled
		g.orders[orderID] = o
	}
	return nil
}

func (g *fakeGateway) CancelAllOpenOrders(_ context.Context, _ string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cancelAll++
	for id, o := range g.orders {
		if !o.Status.Done() {
			o.Status = gateway.StatusCanceled
			g.orders[id] = o
		}
	}
	return nil
}

func (g *fakeGateway) GetOrder(_ context.Context, _, orderID string) (gateway.Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.getErr != nil {
		return gateway.Order{}, g.getErr
	}
	o, ok := g.orders[orderID]
	if !ok {
		return gateway.Order{}, gateway.ErrUnknownOrder
	}
	return o, nil
}

func (g *fakeGateway) GetAccountInfo(context.Context) (gateway.AccountInfo, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.acctErr != nil {
		return gateway.AccountInfo{}, g.acctErr
	}
	return g.account, nil
}

// fill 将订单标记为全部成交。
func (g *fakeGateway) fill(orderID string, price float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	o := g.orders[orderID]
	o.Status = gateway.StatusFilled
	o.ExecutedQty = o.Quantity
	o.AvgFillPrice = price
	g.orders[orderID] = o
}

func (g *fakeGateway) lastOrderID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return fmt.Sprintf("o-%d", g.nextID)
}

func (g *fakeGateway) placedCount(side gateway.Side) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, r := range g.placed {
		if r.Side == side {
			n++
		}
	}
	return n
}

type harness struct {
	e      *Engine
	gw     *fakeGateway
	feed   *market.Service
	gate   *risk.Gatekeeper
	stats  *session.Stats
	clock  *fakeClock
	alerts *alert.MockChannel
	mu     sync.Mutex
	events []string
}

func (h *harness) eventNames() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.events...)
}

func newHarness(t *testing.T, maxLayers int) *harness {
	t.Helper()

	clock := &fakeClock{now: time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)}
	gw := newFakeGateway()
	gw.setQuoteBalance(10000)
	feed := market.NewService(nil)
	micro := strategy.NewEngine(strategy.Params{
		Ksig: 2.0, SMinPercent: 0.02, SMaxPercent: 0.15,
		TpMultiplier: 1.0, SlMultiplier: 2.0,
	})
	gate := risk.NewGatekeeper(risk.GateConfig{
		StopDayPercent: 2.0, MaxConsecutiveLosses: 7,
	}, clock)
	stats := session.NewStats(10000, clock.Now())

	log, err := logger.New(logger.Config{Level: "error", Outputs: []string{"stdout"}, Format: "console"})
	require.NoError(t, err)

	mock := alert.NewMockChannel("test")
	alerts := alert.NewManager([]alert.Channel{mock}, time.Minute)

	h := &harness{gw: gw, feed: feed, gate: gate, stats: stats, clock: clock, alerts: mock}
	e, err := New(Config{
		Symbol:               "ETHUSDC",
		OrderNotional:        50,
		MaxLayers:            maxLayers,
		TTL:                  time.Minute,
		Cooldown:             30 * time.Second,
		UpdateInterval:       time.Hour, // 周期由测试手动驱动
		WatchdogTimeout:      5 * time.Minute,
		MaxConsecutiveLosses: 7,
		MaxLongQtyPercent:    30,
		CallTimeout:          time.Second,
	}, Components{
		Gateway: gw,
		Feed:    feed,
		Micro:   micro,
		Gate:    gate,
		Stats:   stats,
		Logger:  log,
		Alerts:  alerts,
		Clock:   clock,
		Events: func(event string, _ map[string]interface{}) {
			h.mu.Lock()
			h.events = append(h.events, event)
			h.mu.Unlock()
		},
	})
	require.NoError(t, err)
	h.e = e
	h.e.refreshBalance(context.Background())
	return h
}

// pushBook 注入一个盘口快照（同步驱动微观统计）。
func (h *harness) pushBook(bid, bidQty, ask, askQty float64) {
	h.feed.OnBookTick(market.OrderBookTick{
		Symbol: "ETHUSDC",
		BidPrice: bid, BidQty: bidQty,
		AskPrice: ask, AskQty: askQty,
		Ts: h.clock.Now(),
	})
}

func (h *harness) cycle() {
	h.e.onCycle(context.Background())
}

func TestRoundTripTakeProfit(t *testing.T) {
	h := newHarness(t, 1)
	h.pushBook(1999.5, 1.0, 2000.5, 1.0)

	// 周期 1：开层，买单挂在 mid 之下
	h.cycle()
	require.Equal(t, 1, h.e.ActiveLayers())
	require.Equal(t, 1, h.gw.placedCount(gateway.SideBuy))
	buyID := h.gw.lastOrderID()
	buyReq := h.gw.placed[0]
	assert.Less(t, buyReq.Price, 2000.0)
	assert.InDelta(t, 50.0/2000.0, buyReq.Quantity, 1e-9)

	// 买单成交 → 周期 2：进入 LONG_PING，止盈卖单挂在 entry+tp
	h.gw.fill(buyID, buyReq.Price)
	h.cycle()
	require.Equal(t, 1, h.gw.placedCount(gateway.SideSell))
	sellID := h.gw.lastOrderID()
	sellReq := h.gw.placed[1]
	assert.InDelta(t, buyReq.Price+3.0, sellReq.Price, 1e-9) // tp = s*tpMult = 3

	lp, ok := h.e.layers[0].state.(longPing)
	require.True(t, ok)
	assert.InDelta(t, buyReq.Price-6.0, lp.SLPrice, 1e-9) // sl = s*slMult = 6

	// 卖单成交 → 周期 3：回合结束，槽位同周期内补位
	h.gw.fill(sellID, sellReq.Price)
	h.cycle()
	assert.Equal(t, 1, h.e.ActiveLayers())
	assert.Equal(t, 2, h.gw.placedCount(gateway.SideBuy))

	v := h.stats.Snapshot(h.clock.Now())
	assert.Equal(t, 1, v.TotalTrades)
	assert.Equal(t, 1, v.WinningTrades)
	assert.InDelta(t, 3.0*(50.0/2000.0), v.TotalPnL, 1e-9)
	assert.Contains(t, h.eventNames(), "trade")
}

func TestPendingBuyExpiresWithoutPenalty(t *testing.T) {
	h := newHarness(t, 1)
	h.pushBook(1999.5, 1.0, 2000.5, 1.0)

	h.cycle()
	require.Equal(t, 1, h.e.ActiveLayers())
	buyID := h.gw.lastOrderID()

	// TTL 过后买单未成交：撤单、槽位直接释放，没有冷却
	h.clock.advance(61 * time.Second)
	h.cycle()
	assert.Contains(t, h.gw.canceled, buyID)

	v := h.stats.Snapshot(h.clock.Now())
	assert.Equal(t, 0, v.TotalTrades)

	// 同一周期内层清空后立即补位
	assert.Equal(t, 1, h.e.ActiveLayers())
	assert.Equal(t, 2, h.gw.placedCount(gateway.SideBuy))
}

func TestStopLossTriggersEmergencyUnwind(t *testing.T) {
	h := newHarness(t, 1)
	h.pushBook(1999.5, 1.0, 2000.5, 1.0)

	h.cycle()
	buyID := h.gw.lastOrderID()
	entry := h.gw.placed[0].Price
	h.gw.fill(buyID, entry)
	h.cycle()
	sellID := h.gw.lastOrderID()

	lp := h.e.layers[0].state.(longPing)

	// 中间价击穿止损线
	h.pushBook(lp.SLPrice-1.0, 1.0, lp.SLPrice, 1.0)
	h.cycle()

	// 止盈单撤掉，紧急卖单贴盘挂出
	assert.Contains(t, h.gw.canceled, sellID)
	require.Equal(t, 2, h.gw.placedCount(gateway.SideSell))
	emergencyReq := h.gw.placed[len(h.gw.placed)-1]
	expectedMid := lp.SLPrice - 0.5
	assert.InDelta(t, expectedMid-0.5, emergencyReq.Price, 1e-9) // mid - spread/2

	// 亏损入账，层进入冷却
	v := h.stats.Snapshot(h.clock.Now())
	assert.Equal(t, 1, v.TotalTrades)
	assert.Equal(t, 1, v.LosingTrades)
	assert.Negative(t, v.TotalPnL)
	require.Equal(t, PhaseCooldown, h.e.layers[0].Phase())
	assert.Contains(t, h.eventNames(), "layer_unwound")

	// 冷却期内不补位
	h.cycle()
	assert.Equal(t, 1, h.gw.placedCount(gateway.SideBuy))

	// 冷却结束后释放槽位并补位
	h.clock.advance(31 * time.Second)
	h.pushBook(1999.5, 1.0, 2000.5, 1.0)
	h.cycle()
	assert.Equal(t, 2, h.gw.placedCount(gateway.SideBuy))
}

func TestExpiredLongPingUnwinds(t *testing.T) {
	h := newHarness(t, 1)
	h.pushBook(1999.5, 1.0, 2000.5, 1.0)

	h.cycle()
	buyID := h.gw.lastOrderID()
	h.gw.fill(buyID, h.gw.placed[0].Price)
	h.cycle()

	// 持仓超时但价格没动：照样紧急平仓
	h.clock.advance(61 * time.Second)
	h.cycle()

	require.Equal(t, PhaseCooldown, h.e.layers[0].Phase())
	assert.Equal(t, 2, h.gw.placedCount(gateway.SideSell))
	v := h.stats.Snapshot(h.clock.Now())
	assert.Equal(t, 1, v.TotalTrades)
}

func TestMaxLayersCap(t *testing.T) {
	h := newHarness(t, 2)
	h.pushBook(1999.5, 1.0, 2000.5, 1.0)

	h.cycle()
	h.cycle()
	h.cycle()

	assert.Equal(t, 2, h.e.ActiveLayers())
	assert.Equal(t, 2, h.gw.placedCount(gateway.SideBuy))
}

func TestGateBlocksNewLayersButAdvancesExisting(t *testing.T) {
	h := newHarness(t, 2)
	h.pushBook(1999.5, 1.0, 2000.5, 1.0)

	h.cycle()
	require.Equal(t, 1, h.e.ActiveLayers())
	buyID := h.gw.lastOrderID()
	h.gw.fill(buyID, h.gw.placed[0].Price)

	// 熔断后：已有层继续推进，新层不再创建
	h.gate.TriggerKillSwitch("manual")
	h.cycle()
	assert.Equal(t, 1, h.gw.placedCount(gateway.SideSell))
	assert.Equal(t, 1, h.gw.placedCount(gateway.SideBuy))

	sellID := h.gw.lastOrderID()
	h.gw.fill(sellID, h.gw.placed[1].Price)
	h.cycle()
	assert.Equal(t, 0, h.e.ActiveLayers())
	v := h.stats.Snapshot(h.clock.Now())
	assert.Equal(t, 1, v.TotalTrades)
}

func TestThinBookBlocksLayerCreation(t *testing.T) {
	h := newHarness(t, 1)
	// 盘口挂量不足 2 倍订单量（0.025*2）
	h.pushBook(1999.5, 0.01, 2000.5, 0.01)

	h.cycle()
	assert.Equal(t, 0, h.e.ActiveLayers())
	assert.Empty(t, h.gw.placed)
}

func TestPlaceOrderFailureIsRecorded(t *testing.T) {
	h := newHarness(t, 1)
	h.pushBook(1999.5, 1.0, 2000.5, 1.0)
	h.gw.placeErr = fmt.Errorf("exchange down")

	h.cycle()
	assert.Equal(t, 0, h.e.ActiveLayers())
	assert.Contains(t, h.eventNames(), "error")
}

func TestQueryFailureAbandonsLayer(t *testing.T) {
	h := newHarness(t, 1)
	h.pushBook(1999.5, 1.0, 2000.5, 1.0)

	h.cycle()
	require.Equal(t, 1, h.e.ActiveLayers())

	// 查询与下单同时失败：放弃该层且无法补位
	h.gw.getErr = fmt.Errorf("timeout")
	h.gw.placeErr = fmt.Errorf("timeout")
	h.cycle()
	assert.Equal(t, 0, h.e.ActiveLayers())
	assert.Contains(t, h.eventNames(), "error")
}

func TestStartStopCancelsOpenOrders(t *testing.T) {
	h := newHarness(t, 1)
	h.pushBook(1999.5, 1.0, 2000.5, 1.0)
	h.cycle()
	require.Equal(t, 1, h.gw.placedCount(gateway.SideBuy))

	ctx := context.Background()
	require.NoError(t, h.e.Start(ctx))
	assert.Error(t, h.e.Start(ctx)) // 重复启动报错
	require.NoError(t, h.e.Stop())
	assert.Equal(t, StateStopped, h.e.GetState())
	assert.Equal(t, 1, h.gw.cancelAll)
	assert.Error(t, h.e.Stop())
}

func TestCycleSkipsWithoutMarketData(t *testing.T) {
	h := newHarness(t, 1)
	h.cycle()
	assert.Empty(t, h.gw.placed)
}

func TestPositionLimitCapsOpenNotional(t *testing.T) {
	h := newHarness(t, 2)
	// 余额 200、上限 30% → 在途名义封顶 60，只够一层
	h.gw.setQuoteBalance(200)
	h.e.refreshBalance(context.Background())
	h.pushBook(1999.5, 1.0, 2000.5, 1.0)

	h.cycle()
	require.Equal(t, 1, h.e.ActiveLayers())

	h.cycle()
	assert.Equal(t, 1, h.gw.placedCount(gateway.SideBuy))
	assert.Equal(t, 1, h.e.ActiveLayers())

	// 回合结束释放名义后允许再开
	buyID := h.gw.lastOrderID()
	h.gw.fill(buyID, h.gw.placed[0].Price)
	h.cycle()
	sellID := h.gw.lastOrderID()
	h.gw.fill(sellID, h.gw.placed[1].Price)
	h.cycle()
	assert.Equal(t, 2, h.gw.placedCount(gateway.SideBuy))
}

func TestTinyAccountBlocksAllLayers(t *testing.T) {
	h := newHarness(t, 5)
	// 余额 10、上限 30% → 封顶 3，连一层名义都不够
	h.gw.setQuoteBalance(10)
	h.e.refreshBalance(context.Background())
	h.pushBook(1999.5, 1.0, 2000.5, 1.0)

	h.cycle()
	h.cycle()
	h.cycle()
	assert.Equal(t, 0, h.e.ActiveLayers())
	assert.Empty(t, h.gw.placed)
}

func TestBalanceRefreshFailureKeepsLastValue(t *testing.T) {
	h := newHarness(t, 1)
	h.gw.setQuoteBalance(200)
	h.e.refreshBalance(context.Background())
	require.Equal(t, 200.0, h.e.totalBalance())

	h.gw.acctErr = fmt.Errorf("exchange down")
	h.e.refreshBalance(context.Background())
	assert.Equal(t, 200.0, h.e.totalBalance())
}
