package dmp

import (
	"testing"
	"testing/quick"
)

// TestDiffApplyRoundTripProperty checks that for arbitrary string pairs,
// applying the computed hunks to a always reproduces b exactly, matching
// the round-trip invariant the synchronization protocol depends on.
func TestDiffApplyRoundTripProperty(t *testing.T) {
	prop := func(a, b string) bool {
		hunks := Diff(a, b)
		got, _ := Apply(a, hunks, Options{})
		return got == b
	}
	if err := quick.Check(prop, &quick.Config{MaxCount: 500}); err != nil {
		t.Error(err)
	}
}

// TestDiffEmptyForIdenticalProperty checks that diffing a string against
// itself never produces any hunks, for arbitrary input.
func TestDiffEmptyForIdenticalProperty(t *testing.T) {
	prop := func(a string) bool {
		return len(Diff(a, a)) == 0
	}
	if err := quick.Check(prop, &quick.Config{MaxCount: 500}); err != nil {
		t.Error(err)
	}
}
