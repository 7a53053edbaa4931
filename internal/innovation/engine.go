// Package innovation implements the per-firm decision rule: whether a firm
// attempts an innovation this step, how its network raises its odds, and how
// its success probability adapts to the outcome.
package innovation

import (
	"fmt"
	"math"

	"techrace/internal/model"
)

type Params struct {
	BaselineSuccessProb   float64
	InnovationGap         float64
	NetworkEffect         float64
	TarGain               float64
	SuccessProbAdjustment float64
}

// Uniform supplies draws in [0, 1).
type Uniform interface {
	Float64() float64
}

type Engine struct {
	params Params
	rng    Uniform
}

func NewEngine(params Params, rng Uniform) (*Engine, error) {
	if rng == nil {
		return nil, fmt.Errorf("uniform source is required")
	}
	return &Engine{params: params, rng: rng}, nil
}

func (e *Engine) Params() Params {
	return e.params
}

type Outcome struct {
	Skipped     bool
	Decided     bool
	Succeeded   bool
	Deactivated bool
	Influence   float64
}

// NetworkInfluence sums the TAR lead of every better-placed neighbour, scaled
// by the market median. A zero median makes the ratio undefined; the
// influence is 0 in that case.
func NetworkInfluence(tar, medianTAR float64, neighborTARs []float64) float64 {
	if medianTAR == 0 {
		return 0
	}
	influence := 0.0
	for _, other := range neighborTARs {
		if other > tar {
			influence += (other - tar) / medianTAR
		}
	}
	return influence
}

// Step advances one active firm. Inactive firms are left untouched.
//
// A firm within InnovationGap of the median attempts an innovation whose
// success probability is rebuilt from the baseline and its network influence
// every time. A failed attempt does not touch NoInnovationSteps; only firms
// outside the gap accumulate inactivity. SuccessProb is not clamped.
func (e *Engine) Step(firm *model.Firm, medianTAR float64, neighborTARs []float64) Outcome {
	if firm == nil || !firm.Active {
		return Outcome{Skipped: true}
	}

	var out Outcome
	if math.Abs(firm.TAR-medianTAR) < e.params.InnovationGap {
		firm.DecidesToInnovate = true
		out.Decided = true

		out.Influence = NetworkInfluence(firm.TAR, medianTAR, neighborTARs)
		firm.SuccessProb = e.params.BaselineSuccessProb * (1 + e.params.NetworkEffect*out.Influence)

		if e.rng.Float64() < firm.SuccessProb {
			firm.TAR += e.params.TarGain
			firm.SuccessProb *= 1 + e.params.SuccessProbAdjustment
			firm.NoInnovationSteps = 0
			out.Succeeded = true
		} else {
			firm.SuccessProb *= 1 - e.params.SuccessProbAdjustment
		}
	} else {
		firm.DecidesToInnovate = false
		firm.NoInnovationSteps++
	}

	if firm.NoInnovationSteps >= model.InactivityLimit {
		firm.Active = false
		out.Deactivated = true
	}
	return out
}
