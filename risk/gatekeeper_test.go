package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ping-maker-go/session"
)

// fakeClock 可手动拨动的时钟。
type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time { return f.now }

func (f *fakeClock) advance(d time.Duration) { f.now = f.now.Add(d) }

func newTestGatekeeper() (*Gatekeeper, *fakeClock) {
	clk := &fakeClock{now: time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)}
	g := NewGatekeeper(GateConfig{StopDayPercent: 2.0, MaxConsecutiveLosses: 7}, clk)
	return g, clk
}

func TestCanTradeDefault(t *testing.T) {
	g, _ := newTestGatekeeper()
	require.True(t, g.CanTrade(session.View{}))
}

func TestKillSwitchSticky(t *testing.T) {
	g, _ := newTestGatekeeper()
	g.TriggerKillSwitch("manual")

	for i := 0; i < 3; i++ {
		require.ErrorIs(t, g.Check(session.View{}), ErrKillSwitchActive)
	}
	require.True(t, g.KillSwitchActive())
	require.Equal(t, "manual", g.KillReason())

	g.ResetKillSwitch()
	require.False(t, g.KillSwitchActive())
	require.True(t, g.CanTrade(session.View{}))
}

func TestDrawdownTripsKillSwitch(t *testing.T) {
	// dailyDrawdown = -3.0, stopDayPercent = 2.0 → 拒绝并熔断
	g, _ := newTestGatekeeper()
	v := session.View{DailyDrawdown: -3.0}

	require.ErrorIs(t, g.Check(v), ErrDailyDrawdown)
	require.True(t, g.KillSwitchActive())

	// 后续即便回撤恢复也保持熔断
	require.ErrorIs(t, g.Check(session.View{}), ErrKillSwitchActive)
}

func TestDrawdownThresholdInclusive(t *testing.T) {
	g, _ := newTestGatekeeper()
	require.ErrorIs(t, g.Check(session.View{DailyDrawdown: -2.0}), ErrDailyDrawdown)
}

func TestLossStreakBlocksWithoutTrip(t *testing.T) {
	// consecutiveLosses = 7, max = 7 → 拒绝（含等于），但不熔断
	g, _ := newTestGatekeeper()
	v := session.View{ConsecutiveLosses: 7}

	require.ErrorIs(t, g.Check(v), ErrLossStreak)
	require.False(t, g.KillSwitchActive())

	// 连亏回落即恢复
	require.True(t, g.CanTrade(session.View{ConsecutiveLosses: 6}))
}

func TestAPIErrorWindowBlocks(t *testing.T) {
	g, clk := newTestGatekeeper()

	for i := 0; i < 11; i++ {
		g.RecordAPIError()
	}
	require.ErrorIs(t, g.Check(session.View{}), ErrAPIErrorStorm)
	require.False(t, g.KillSwitchActive())

	// 窗口滑过后恢复
	clk.advance(61 * time.Second)
	require.True(t, g.CanTrade(session.View{}))
}

func TestAPIErrorStormTripsKillSwitch(t *testing.T) {
	g, _ := newTestGatekeeper()
	for i := 0; i < 21; i++ {
		g.RecordAPIError()
	}
	require.True(t, g.KillSwitchActive())
	require.Equal(t, "api error storm", g.KillReason())

	// 复位同时清空错误计数
	g.ResetKillSwitch()
	require.True(t, g.CanTrade(session.View{}))
}

func TestMarketConditionGate(t *testing.T) {
	g, _ := newTestGatekeeper()

	mid := 2000.0
	// 基准：全部条件满足
	require.True(t, g.IsMarketConditionSuitable(1.0, mid, 0.001, 10, 10, 1))

	// spread 不足 0.01% of mid
	require.False(t, g.IsMarketConditionSuitable(0.1, mid, 0.001, 10, 10, 1))
	// 波动率过低/过高
	require.False(t, g.IsMarketConditionSuitable(1.0, mid, 0.00005, 10, 10, 1))
	require.False(t, g.IsMarketConditionSuitable(1.0, mid, 0.02, 10, 10, 1))
	// 盘口深度不足 2x orderSize
	require.False(t, g.IsMarketConditionSuitable(1.0, mid, 0.001, 1.5, 10, 1))
	require.False(t, g.IsMarketConditionSuitable(1.0, mid, 0.001, 10, 1.5, 1))
	// 无效 mid
	require.False(t, g.IsMarketConditionSuitable(1.0, 0, 0.001, 10, 10, 1))
}

type closedCalendar struct{}

func (closedCalendar) IsTradingTime(time.Time) bool { return false }

func TestMarketConditionCalendarHook(t *testing.T) {
	g, _ := newTestGatekeeper()
	g.SetCalendar(closedCalendar{})
	require.False(t, g.IsMarketConditionSuitable(1.0, 2000, 0.001, 10, 10, 1))
}
