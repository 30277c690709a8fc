package app

import (
	"testing"
	"time"
)

func TestScoreDeltaWithTimeBonus(t *testing.T) {
	rules := scoringRules{base: 8, limit: 15 * time.Second}

	cases := []struct {
		name    string
		correct bool
		elapsed time.Duration
		want    int
	}{
		{"instant correct gets max bonus", true, 0, 10},
		{"within first fifth", true, 2 * time.Second, 10},
		{"within first half", true, 7 * time.Second, 9},
		{"slow correct gets base only", true, 14 * time.Second, 8},
		{"incorrect fast is zero", false, 0, 0},
		{"incorrect slow is zero", false, 14 * time.Second, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := rules.delta(tc.correct, tc.elapsed); got != tc.want {
				t.Fatalf("delta(%v, %v) = %d, want %d", tc.correct, tc.elapsed, got, tc.want)
			}
		})
	}
}

func TestClampElapsed(t *testing.T) {
	rules := scoringRules{base: 8, limit: 15 * time.Second}

	if got := rules.clampElapsed(-time.Second); got != 0 {
		t.Fatalf("negative elapsed should clamp to 0, got %v", got)
	}
	if got := rules.clampElapsed(20 * time.Second); got != 15*time.Second {
		t.Fatalf("oversized elapsed should clamp to limit, got %v", got)
	}
	if got := rules.clampElapsed(4 * time.Second); got != 4*time.Second {
		t.Fatalf("in-range elapsed should pass through, got %v", got)
	}
}
