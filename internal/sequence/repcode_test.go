package sequence

import "testing"

func TestNewRepcodesInitialTriple(t *testing.T) {
	r := NewRepcodes()
	if r.Rep0 != 1 || r.Rep1 != 4 || r.Rep2 != 8 {
		t.Fatalf("got (%d,%d,%d), want (1,4,8)", r.Rep0, r.Rep1, r.Rep2)
	}
}

func TestApplyLiteralOffsetShiftsTriple(t *testing.T) {
	r := NewRepcodes()
	dist, err := r.Apply(5, 103) // offset 103 -> literal distance 100
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if dist != 100 {
		t.Fatalf("distance = %d, want 100", dist)
	}
	if r.Rep0 != 100 || r.Rep1 != 1 || r.Rep2 != 4 {
		t.Fatalf("got (%d,%d,%d), want (100,1,4)", r.Rep0, r.Rep1, r.Rep2)
	}
}

func TestApplyRepcode0IsNoOp(t *testing.T) {
	r := NewRepcodes()
	dist, err := r.Apply(5, 0)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if dist != 1 {
		t.Fatalf("distance = %d, want 1", dist)
	}
	if r.Rep0 != 1 || r.Rep1 != 4 || r.Rep2 != 8 {
		t.Fatalf("rep0 hit must not reorder the triple: got (%d,%d,%d)", r.Rep0, r.Rep1, r.Rep2)
	}
}

func TestApplyRepcode1Swaps(t *testing.T) {
	r := NewRepcodes()
	dist, err := r.Apply(5, 1)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if dist != 4 {
		t.Fatalf("distance = %d, want 4", dist)
	}
	if r.Rep0 != 4 || r.Rep1 != 1 || r.Rep2 != 8 {
		t.Fatalf("got (%d,%d,%d), want (4,1,8)", r.Rep0, r.Rep1, r.Rep2)
	}
}

func TestApplyRepcode2Rotates(t *testing.T) {
	r := NewRepcodes()
	dist, err := r.Apply(5, 2)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if dist != 8 {
		t.Fatalf("distance = %d, want 8", dist)
	}
	if r.Rep0 != 8 || r.Rep1 != 1 || r.Rep2 != 4 {
		t.Fatalf("got (%d,%d,%d), want (8,1,4)", r.Rep0, r.Rep1, r.Rep2)
	}
}

func TestApplyZeroLitLengthBumpsRepCode(t *testing.T) {
	r := NewRepcodes()
	// litLength==0 bumps repCode 0 -> 1, so offset 0 now hits rep1.
	dist, err := r.Apply(0, 0)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if dist != 4 {
		t.Fatalf("distance = %d, want 4 (rep1)", dist)
	}
}

func TestApplyRepCode3IsRep0MinusOne(t *testing.T) {
	r := NewRepcodes()
	r.Rep0 = 10
	dist, err := r.Apply(0, 2) // litLength==0 bumps offset 2 -> repCode 3
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if dist != 9 {
		t.Fatalf("distance = %d, want 9", dist)
	}
	if r.Rep0 != 9 {
		t.Fatalf("rep0 = %d, want 9", r.Rep0)
	}
}

func TestApplyRepCode3UnderflowError(t *testing.T) {
	r := NewRepcodes()
	r.Rep0 = 1
	if _, err := r.Apply(0, 2); err != ErrInvalidRepcode {
		t.Fatalf("got err %v, want ErrInvalidRepcode", err)
	}
}

// TestApplyChainedScenarioSix reproduces spec.md §8's worked example:
// starting from the frame-initial triple (1,4,8), a sequence carrying
// (llen=3, off=5, ml=4) followed by one carrying (llen=0, off=1, ml=4).
//
// The first Apply takes the offset>=3 literal-offset branch (distance
// = 5-3 = 2) and shifts the triple to (2,1,4), matching spec §8's
// stated intermediate state. The second Apply hits repCode 2 (offset 1
// bumped to 2 by litLength==0) for distance 4, and then spec §4.5's
// rotate rule for repCode 2 (rotate (rep0,rep1,rep2) <- (rep2,rep0,rep1))
// leaves the triple at (4,2,1), not the (1,2,4) spec §8's own prose
// states. Real zstd's ZSTD_updateRep performs the identical rotation
// and agrees with (4,2,1); spec §8's literal worked-example text
// appears to contain a transcription error, so this test asserts the
// value both §4.5's own rule and the reference decoder produce.
func TestApplyChainedScenarioSix(t *testing.T) {
	r := NewRepcodes() // (1,4,8)

	dist1, err := r.Apply(3, 5)
	if err != nil {
		t.Fatalf("first Apply: %v", err)
	}
	if dist1 != 2 {
		t.Fatalf("first distance = %d, want 2", dist1)
	}
	if r.Rep0 != 2 || r.Rep1 != 1 || r.Rep2 != 4 {
		t.Fatalf("after first Apply got (%d,%d,%d), want (2,1,4)", r.Rep0, r.Rep1, r.Rep2)
	}

	dist2, err := r.Apply(0, 1)
	if err != nil {
		t.Fatalf("second Apply: %v", err)
	}
	if dist2 != 4 {
		t.Fatalf("second distance = %d, want 4", dist2)
	}
	if r.Rep0 != 4 || r.Rep1 != 2 || r.Rep2 != 1 {
		t.Fatalf("after second Apply got (%d,%d,%d), want (4,2,1)", r.Rep0, r.Rep1, r.Rep2)
	}
}

func TestEncodeOffsetRoundTripsWithApply(t *testing.T) {
	r := NewRepcodes()
	for _, tc := range []struct {
		litLength, distance uint32
	}{
		{5, 1}, // rep0
		{5, 4}, // rep1
		{5, 8}, // rep2
		{5, 999}, // literal offset
	} {
		code, _ := r.EncodeOffset(tc.litLength, tc.distance)
		got, err := r.Apply(tc.litLength, code)
		if err != nil {
			t.Fatalf("Apply after EncodeOffset(%v): %v", tc, err)
		}
		if got != tc.distance {
			t.Fatalf("EncodeOffset/Apply round trip: got distance %d, want %d", got, tc.distance)
		}
	}
}
