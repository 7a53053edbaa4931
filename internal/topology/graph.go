package topology

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
)

var ErrInvalidTopology = errors.New("invalid topology")

// Topology is the fixed interaction network. Node ids are firm ids 0..Len()-1.
type Topology interface {
	Len() int
	Neighbors(id int) []int
	Degree(id int) int
}

type Edge struct {
	From int
	To   int
}

// Graph is an undirected, immutable-after-construction Topology.
type Graph struct {
	g         *simple.UndirectedGraph
	n         int
	neighbors [][]int
}

func newGraph(n int) *Graph {
	g := simple.NewUndirectedGraph()
	for i := 0; i < n; i++ {
		g.AddNode(simple.Node(int64(i)))
	}
	return &Graph{g: g, n: n}
}

// NewGnp draws an Erdős–Rényi G(n, p) graph with p = avgDegree / n. Nodes
// without edges are still part of the graph.
func NewGnp(n int, avgDegree float64, rng *rand.Rand) (*Graph, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: node count must be >= 0, got %d", ErrInvalidTopology, n)
	}
	if avgDegree < 0 {
		return nil, fmt.Errorf("%w: average degree must be >= 0, got %v", ErrInvalidTopology, avgDegree)
	}
	if rng == nil {
		return nil, fmt.Errorf("%w: random source is required", ErrInvalidTopology)
	}

	out := newGraph(n)
	p := EdgeProbability(n, avgDegree)
	if p > 0 {
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				if rng.Float64() < p {
					out.g.SetEdge(out.g.NewEdge(simple.Node(int64(i)), simple.Node(int64(j))))
				}
			}
		}
	}
	out.index()
	return out, nil
}

// EdgeProbability maps an average degree to the G(n, p) edge probability,
// clamped to [0, 1].
func EdgeProbability(n int, avgDegree float64) float64 {
	if n <= 0 {
		return 0
	}
	p := avgDegree / float64(n)
	return min(max(p, 0), 1)
}

func NewFromEdges(n int, edges []Edge) (*Graph, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: node count must be >= 0, got %d", ErrInvalidTopology, n)
	}
	out := newGraph(n)
	for _, e := range edges {
		if e.From < 0 || e.From >= n || e.To < 0 || e.To >= n {
			return nil, fmt.Errorf("%w: edge %d-%d out of range [0,%d)", ErrInvalidTopology, e.From, e.To, n)
		}
		if e.From == e.To {
			return nil, fmt.Errorf("%w: self loop on node %d", ErrInvalidTopology, e.From)
		}
		out.g.SetEdge(out.g.NewEdge(simple.Node(int64(e.From)), simple.Node(int64(e.To))))
	}
	out.index()
	return out, nil
}

// index caches sorted neighbour lists; the graph never changes afterwards.
func (t *Graph) index() {
	t.neighbors = make([][]int, t.n)
	for i := 0; i < t.n; i++ {
		ids := make([]int, 0)
		for _, node := range graph.NodesOf(t.g.From(int64(i))) {
			ids = append(ids, int(node.ID()))
		}
		slices.Sort(ids)
		t.neighbors[i] = ids
	}
}

func (t *Graph) Len() int {
	return t.n
}

// Neighbors returns a copy; unknown ids have no neighbours.
func (t *Graph) Neighbors(id int) []int {
	if id < 0 || id >= t.n {
		return nil
	}
	return append([]int(nil), t.neighbors[id]...)
}

func (t *Graph) Degree(id int) int {
	if id < 0 || id >= t.n {
		return 0
	}
	return len(t.neighbors[id])
}

func (t *Graph) EdgeCount() int {
	return t.g.Edges().Len()
}

func (t *Graph) AverageDegree() float64 {
	if t.n == 0 {
		return 0
	}
	return 2 * float64(t.EdgeCount()) / float64(t.n)
}

func (t *Graph) Edges() []Edge {
	edges := make([]Edge, 0, t.EdgeCount())
	for i, ids := range t.neighbors {
		for _, j := range ids {
			if i < j {
				edges = append(edges, Edge{From: i, To: j})
			}
		}
	}
	return edges
}
