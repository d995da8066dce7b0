package logging_test

import (
	"testing"

	"reelsmith/internal/logging"
)

func TestProgressSamplerBuckets(t *testing.T) {
	s := logging.NewProgressSampler(25)
	steps := []struct {
		percent float64
		phase   string
		want    bool
	}{
		{0, "", true},
		{10, "", false},
		{25, "", true},
		{30, "", false},
		{30, "rendering frames", true},
		{31, "rendering frames", false},
		{99, "rendering frames", true},
		{150, "rendering frames", true},
		{150, "rendering frames", false},
		{-1, "", false},
	}
	for i, step := range steps {
		if got := s.ShouldLog(step.percent, step.phase); got != step.want {
			t.Fatalf("step %d (%v, %q): got %v want %v", i, step.percent, step.phase, got, step.want)
		}
	}
}

func TestProgressSamplerNilAlwaysLogs(t *testing.T) {
	var s *logging.ProgressSampler
	if !s.ShouldLog(1, "") {
		t.Fatal("nil sampler should log")
	}
}
