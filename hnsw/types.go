// Package hnsw implements codevec's approximate-search backend: a
// Hierarchical Navigable Small World proximity graph searched by cosine
// distance. The graph mechanics (layers, greedy insertion, layered search)
// are generalized from a from-scratch HNSW proof of concept to operate on
// codevec's string chunk ids and cosine distance metric instead of integer
// ids and Euclidean distance.
package hnsw

import (
	"math"
	"math/rand"
	"sync"
)

// node is a single vector in the graph, addressed internally by a dense
// integer id; the public Index maps codevec chunk ids to/from this id.
type node struct {
	id       int
	vector   []float32
	level    int
	outEdges [][]int // outEdges[layer] holds neighbor ids at that layer
}

func newNode(id int, vector []float32, level int) *node {
	n := &node{
		id:       id,
		vector:   make([]float32, len(vector)),
		level:    level,
		outEdges: make([][]int, level+1),
	}
	copy(n.vector, vector)
	for i := 0; i <= level; i++ {
		n.outEdges[i] = make([]int, 0)
	}
	return n
}

// layer holds the node pointers present at one level of the hierarchy.
type layer struct {
	nodes []*node
}

// graphConfig controls the construction and search trade-offs of a graph.
type graphConfig struct {
	m              int
	m0             int
	efConstruction int
	efSearch       int
	mL             float64
	distanceFunc   func([]float32, []float32) float32
}

// graph is the core HNSW data structure, independent of codevec's chunk
// bookkeeping (that lives one layer up, in Index).
type graph struct {
	mu sync.RWMutex

	layers []*layer
	nodes  map[int]*node

	cfg graphConfig

	entryPointID int
	maxLayer     int

	rand *rand.Rand
}

func newGraph(cfg graphConfig, seed int64) *graph {
	if cfg.m < 2 {
		cfg.m = 2
	}
	if cfg.m0 == 0 {
		cfg.m0 = cfg.m * 2
	}
	if cfg.mL == 0 {
		cfg.mL = 1.0 / math.Log(float64(cfg.m))
	}
	return &graph{
		layers:       []*layer{{nodes: make([]*node, 0)}},
		nodes:        make(map[int]*node),
		cfg:          cfg,
		entryPointID: -1,
		maxLayer:     -1,
		rand:         rand.New(rand.NewSource(seed)),
	}
}

func (g *graph) getM(layerIdx int) int {
	if layerIdx == 0 {
		return g.cfg.m0
	}
	return g.cfg.m
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
