package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestUpdateMicroStats(t *testing.T) {
	UpdateMicroStats(2000, 1.0, 0.0012, 0.51)

	if testutil.ToFloat64(Mid) != 2000 {
		t.Errorf("expected mid 2000, got %f", testutil.ToFloat64(Mid))
	}
	if testutil.ToFloat64(Spread) != 1.0 {
		t.Errorf("expected spread 1.0, got %f", testutil.ToFloat64(Spread))
	}
	if testutil.ToFloat64(Sigma1s) != 0.0012 {
		t.Errorf("expected sigma 0.0012, got %f", testutil.ToFloat64(Sigma1s))
	}
	if testutil.ToFloat64(QuoteOffset) != 0.51 {
		t.Errorf("expected offset 0.51, got %f", testutil.ToFloat64(QuoteOffset))
	}
}

func TestUpdateSession(t *testing.T) {
	UpdateSession(-12.5, 3, 2)

	if testutil.ToFloat64(SessionPnL) != -12.5 {
		t.Errorf("expected pnl -12.5, got %f", testutil.ToFloat64(SessionPnL))
	}
	if testutil.ToFloat64(ActiveLayers) != 3 {
		t.Errorf("expected 3 layers, got %f", testutil.ToFloat64(ActiveLayers))
	}
	if testutil.ToFloat64(ConsecutiveLosses) != 2 {
		t.Errorf("expected streak 2, got %f", testutil.ToFloat64(ConsecutiveLosses))
	}
}
