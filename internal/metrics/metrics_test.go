package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCacheHitsIncrements(t *testing.T) {
	CacheHits.WithLabelValues("hit").Inc()
	if got := testutil.ToFloat64(CacheHits.WithLabelValues("hit")); got < 1 {
		t.Fatalf("expected at least 1 recorded hit, got %v", got)
	}
}

func TestTimerObservesDuration(t *testing.T) {
	before := testutil.CollectAndCount(ResolverSolveDuration)
	timer := NewTimer()
	timer.ObserveDuration(ResolverSolveDuration)
	after := testutil.CollectAndCount(ResolverSolveDuration)
	if after <= before {
		t.Fatalf("expected an observation to be recorded, before=%d after=%d", before, after)
	}
}
