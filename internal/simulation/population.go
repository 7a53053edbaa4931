package simulation

import (
	"fmt"

	"techrace/internal/model"
	"techrace/internal/topology"
)

// Population is the firm container owned by a Clock. Firm i sits at index i
// and is node i of the topology.
type Population struct {
	firms []model.Firm
	topo  topology.Topology
}

func NewPopulation(tars []float64, baselineSuccessProb float64, topo topology.Topology) (*Population, error) {
	if topo == nil {
		return nil, fmt.Errorf("topology is required")
	}
	if topo.Len() != len(tars) {
		return nil, fmt.Errorf("topology mismatch: nodes=%d firms=%d", topo.Len(), len(tars))
	}
	firms := make([]model.Firm, len(tars))
	for i, tar := range tars {
		if tar < 0 {
			return nil, fmt.Errorf("firm %d: initial tar must be >= 0, got %v", i, tar)
		}
		firms[i] = model.NewFirm(i, tar, baselineSuccessProb)
	}
	return &Population{firms: firms, topo: topo}, nil
}

func (p *Population) Len() int {
	return len(p.firms)
}

// Firms returns a copy of the current firm states.
func (p *Population) Firms() []model.Firm {
	return append([]model.Firm(nil), p.firms...)
}

func (p *Population) Firm(id int) (model.Firm, bool) {
	if id < 0 || id >= len(p.firms) {
		return model.Firm{}, false
	}
	return p.firms[id], true
}

func (p *Population) Topology() topology.Topology {
	return p.topo
}

// neighborTARs reads the neighbours' current TAR, including changes made
// earlier in the same step.
func (p *Population) neighborTARs(id int) []float64 {
	ids := p.topo.Neighbors(id)
	tars := make([]float64, 0, len(ids))
	for _, n := range ids {
		if n >= 0 && n < len(p.firms) {
			tars = append(tars, p.firms[n].TAR)
		}
	}
	return tars
}
