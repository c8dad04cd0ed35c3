package alert

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestManagerFanout(t *testing.T) {
	a := NewMockChannel("a")
	b := NewMockChannel("b")
	m := NewManager([]Channel{a, b}, time.Minute)

	require.NoError(t, m.SendAlert(Alert{Level: "WARNING", Message: "spread collapsed"}))
	require.Equal(t, 1, a.Count())
	require.Equal(t, 1, b.Count())
	require.False(t, a.Alerts()[0].Timestamp.IsZero())
}

func TestManagerThrottle(t *testing.T) {
	ch := NewMockChannel("a")
	m := NewManager([]Channel{ch}, time.Minute)

	m.SendAlert(Alert{Level: "ERROR", Message: "same"})
	m.SendAlert(Alert{Level: "ERROR", Message: "same"})
	require.Equal(t, 1, ch.Count())

	// 不同消息不受限流影响
	m.SendAlert(Alert{Level: "ERROR", Message: "other"})
	require.Equal(t, 2, ch.Count())
}

func TestManagerChannelFailureIsolated(t *testing.T) {
	bad := NewMockChannel("bad")
	bad.SetShouldError(true)
	good := NewMockChannel("good")
	m := NewManager([]Channel{bad, good}, time.Minute)

	err := m.SendAlert(Alert{Level: "CRITICAL", Message: "kill switch"})
	require.Error(t, err)
	require.Equal(t, 1, good.Count())
}
