// Package tardist samples the initial technology levels of a firm population.
package tardist

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"gonum.org/v1/gonum/stat/distuv"
)

var ErrUnknownDistribution = errors.New("unknown tar distribution")

type Distribution string

const (
	Normal      Distribution = "normal"
	LeftSkewed  Distribution = "left_skewed"
	RightSkewed Distribution = "right_skewed"
)

const (
	// MaxTAR is the upper end of the initial TAR scale.
	MaxTAR = 100.0

	normalMean   = 50.0
	normalStdDev = 15.0

	// Beta(5,2) leans toward high values (long left tail); Beta(2,5) mirrors it.
	skewHeavy = 5.0
	skewLight = 2.0
)

func Names() []string {
	return []string{string(Normal), string(LeftSkewed), string(RightSkewed)}
}

func Parse(raw string) (Distribution, error) {
	switch d := Distribution(strings.ToLower(strings.TrimSpace(raw))); d {
	case Normal, LeftSkewed, RightSkewed:
		return d, nil
	default:
		return "", fmt.Errorf("%w: %q (want one of %s)", ErrUnknownDistribution, raw, strings.Join(Names(), "|"))
	}
}

type sampler interface {
	Rand() float64
}

// Sample draws n initial TAR values on [0, MaxTAR].
func Sample(dist Distribution, n int, src rand.Source) ([]float64, error) {
	if n < 0 {
		return nil, fmt.Errorf("sample size must be >= 0, got %d", n)
	}
	if src == nil {
		return nil, fmt.Errorf("random source is required")
	}

	var (
		s     sampler
		scale = 1.0
	)
	switch dist {
	case Normal:
		s = distuv.Normal{Mu: normalMean, Sigma: normalStdDev, Src: src}
	case LeftSkewed:
		s = distuv.Beta{Alpha: skewHeavy, Beta: skewLight, Src: src}
		scale = MaxTAR
	case RightSkewed:
		s = distuv.Beta{Alpha: skewLight, Beta: skewHeavy, Src: src}
		scale = MaxTAR
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDistribution, string(dist))
	}

	values := make([]float64, n)
	for i := range values {
		values[i] = clip(s.Rand()*scale, 0, MaxTAR)
	}
	return values, nil
}

func clip(v, lo, hi float64) float64 {
	return min(max(v, lo), hi)
}
