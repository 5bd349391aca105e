package internaldefs

import (
	"testing"

	"github.com/MrEthical07/authgate"
)

func TestBucketLabels(t *testing.T) {
	want := []string{"0.01", "0.05", "0.1", "0.25", "0.5", "1", "2.5", "+Inf"}
	if len(HistogramBounds) != len(want) {
		t.Fatalf("expected %d labels, got %v", len(want), HistogramBounds)
	}
	for i := range want {
		if HistogramBounds[i] != want[i] {
			t.Fatalf("label %d: expected %s, got %s", i, want[i], HistogramBounds[i])
		}
	}
	if HistogramBoundSuffix[1] != "0_05" || HistogramBoundSuffix[len(HistogramBoundSuffix)-1] != "inf" {
		t.Fatalf("unexpected suffixes %v", HistogramBoundSuffix)
	}
}

func TestCounterDefsAreUnique(t *testing.T) {
	names := make(map[string]struct{})
	ids := make(map[authgate.MetricID]struct{})
	for _, def := range CounterDefs {
		if _, dup := names[def.Name]; dup {
			t.Fatalf("duplicate metric name %s", def.Name)
		}
		if _, dup := ids[def.ID]; dup {
			t.Fatalf("duplicate metric id %d", def.ID)
		}
		names[def.Name] = struct{}{}
		ids[def.ID] = struct{}{}
	}
}

func TestCumulativeBuckets(t *testing.T) {
	got := CumulativeBuckets(NormalizeBuckets([]uint64{1, 0, 2, 0, 0, 0, 0, 3, 99}))
	want := [BucketCount]uint64{1, 1, 3, 3, 3, 3, 3, 6}
	if got != want {
		t.Fatalf("expected %v, got %v", want, got)
	}
}
