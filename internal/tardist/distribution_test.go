package tardist

import (
	"errors"
	"math/rand/v2"
	"testing"

	"gonum.org/v1/gonum/stat"
)

func TestParse(t *testing.T) {
	for _, raw := range []string{"normal", " Left_Skewed ", "RIGHT_SKEWED"} {
		if _, err := Parse(raw); err != nil {
			t.Fatalf("parse %q: %v", raw, err)
		}
	}
	if _, err := Parse("uniform"); !errors.Is(err, ErrUnknownDistribution) {
		t.Fatalf("expected unknown distribution, got %v", err)
	}
}

func TestSampleRangeAndLength(t *testing.T) {
	for _, name := range Names() {
		dist, err := Parse(name)
		if err != nil {
			t.Fatalf("parse %s: %v", name, err)
		}
		values, err := Sample(dist, 500, rand.NewPCG(3, 2))
		if err != nil {
			t.Fatalf("sample %s: %v", name, err)
		}
		if len(values) != 500 {
			t.Fatalf("%s: got %d values", name, len(values))
		}
		for _, v := range values {
			if v < 0 || v > MaxTAR {
				t.Fatalf("%s: value %v outside [0,%v]", name, v, MaxTAR)
			}
		}
	}
}

func TestSkewedDistributionsLeanOppositeWays(t *testing.T) {
	left, err := Sample(LeftSkewed, 2000, rand.NewPCG(8, 2))
	if err != nil {
		t.Fatalf("left: %v", err)
	}
	right, err := Sample(RightSkewed, 2000, rand.NewPCG(8, 2))
	if err != nil {
		t.Fatalf("right: %v", err)
	}
	if s := stat.Skew(left, nil); s >= 0 {
		t.Fatalf("left_skewed sample has skew %v, want < 0", s)
	}
	if s := stat.Skew(right, nil); s <= 0 {
		t.Fatalf("right_skewed sample has skew %v, want > 0", s)
	}
	if stat.Mean(left, nil) <= stat.Mean(right, nil) {
		t.Fatal("left_skewed mean should exceed right_skewed mean")
	}
}

func TestSampleIsDeterministicForSource(t *testing.T) {
	a, _ := Sample(Normal, 20, rand.NewPCG(1, 2))
	b, _ := Sample(Normal, 20, rand.NewPCG(1, 2))
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("value %d differs: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestSampleValidation(t *testing.T) {
	if _, err := Sample(Normal, -1, rand.NewPCG(1, 1)); err == nil {
		t.Fatal("expected error for negative size")
	}
	if _, err := Sample(Normal, 1, nil); err == nil {
		t.Fatal("expected error without source")
	}
	if _, err := Sample(Distribution("bimodal"), 1, rand.NewPCG(1, 1)); !errors.Is(err, ErrUnknownDistribution) {
		t.Fatalf("expected unknown distribution, got %v", err)
	}
}
