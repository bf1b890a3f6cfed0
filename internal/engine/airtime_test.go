package engine

import "testing"

func TestValidateAirTime(t *testing.T) {
	if err := ValidateAirTime(10, 1000); err != nil {
		t.Fatalf("expected 10 targets at 1000us to fit budget: %v", err)
	}
	// (900 + 24) * 1000us = 924ms < 950ms: still fits.
	if err := ValidateAirTime(900, 1000); err != nil {
		t.Fatalf("expected 900 targets at 1000us to fit budget: %v", err)
	}
	// (930 + 24) * 1000us = 954ms >= 950ms: rejected.
	if err := ValidateAirTime(930, 1000); err == nil {
		t.Fatal("expected budget violation to be rejected")
	}
}
