package util

import (
	"math"
	"testing"
)

func TestRound(t *testing.T) {
	if got := Round2(10.005); got != 10.01 {
		t.Fatalf("Round2: got %v", got)
	}
	if got := Round4(0.123456); got != 0.1235 {
		t.Fatalf("Round4: got %v", got)
	}
	if got := Round6(1000.0 / 120.0); got != 8.333333 {
		t.Fatalf("Round6: got %v", got)
	}
}

func TestRoundNonFinite(t *testing.T) {
	if got := Round2(math.NaN()); !math.IsNaN(got) {
		t.Fatalf("expected NaN passthrough, got %v", got)
	}
	if IsFinite(math.Inf(1)) || IsFinite(math.NaN()) {
		t.Fatalf("IsFinite should reject NaN/Inf")
	}
	if !IsFinite(0) {
		t.Fatalf("IsFinite should accept zero")
	}
}
