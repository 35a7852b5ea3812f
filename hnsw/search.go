package hnsw

import (
	"container/heap"
	"sort"
)

// Tuning constants for base-layer search. codevec's chunk corpora are
// small enough (single-repo scale, not web-scale ANN) that a generous
// floor on search width matters more than raw speed: minSearchWidth keeps
// recall reasonable even when a caller asks for k=1 against a freshly
// built, sparsely connected graph, and searchWidthPerNeighbor grows that
// floor with k so a top-50 duplicate/anomaly sweep isn't starved to the
// same width as a top-5 lookup.
const (
	minSearchWidth          = 20
	searchWidthPerNeighbor  = 4
	candidateBacktrackSlack = 1.5
	maxLayerSearchSteps     = 2000
)

// searchWidth returns how many candidates the base-layer search should
// track (ef, in HNSW terminology) for a query asking for k results.
func (g *graph) searchWidth(k int) int {
	return maxInt(maxInt(g.cfg.efSearch, k*searchWidthPerNeighbor), minSearchWidth)
}

// descendToEntry greedily walks down from the top layer to layer 1,
// hopping to whichever neighbor is closer to query at each step, and
// returns the node the base-layer search should start from.
func (g *graph) descendToEntry(query []float32) *node {
	current := g.getNode(g.entryPointID)
	if current == nil {
		return nil
	}
	for l := g.maxLayer; l >= 1; l-- {
		moved := true
		for moved {
			moved = false
			bestDist := g.cfg.distanceFunc(query, current.vector)
			for _, neighborID := range current.outEdges[l] {
				neighbor := g.getNode(neighborID)
				if neighbor == nil {
					continue
				}
				if dist := g.cfg.distanceFunc(query, neighbor.vector); dist < bestDist {
					current, bestDist, moved = neighbor, dist, true
				}
			}
		}
	}
	return current
}

// search returns the internal ids of the k nearest neighbors of query by
// cosine distance, approximated by descending through the hierarchy to a
// good entry point and then running a widened best-first search of the
// bottom layer.
func (g *graph) search(query []float32, k int) []int {
	if len(g.layers) == 0 || g.entryPointID == -1 {
		return nil
	}

	entry := g.descendToEntry(query)
	if entry == nil {
		return nil
	}

	candidates := g.searchLayer(query, []*pqItem{{
		nodeID:   entry.id,
		distance: g.cfg.distanceFunc(query, entry.vector),
		node:     entry,
	}}, g.searchWidth(k), 0)

	results := selectNearest(candidates, k)
	ids := make([]int, 0, len(results))
	for _, item := range results {
		ids = append(ids, item.nodeID)
	}
	return ids
}

type searchState struct {
	query      []float32
	layer      int
	ef         int
	candidates *priorityQueue    // min-heap: nearest unexplored candidate at the root
	results    *maxPriorityQueue // max-heap: farthest kept result at the root, for O(log ef) eviction
	visited    map[int]bool
	iterations int
}

func (g *graph) searchLayer(query []float32, eps []*pqItem, ef, layerIdx int) []*pqItem {
	if len(query) == 0 || len(eps) == 0 {
		return nil
	}
	validEps := make([]*pqItem, 0, len(eps))
	for _, ep := range eps {
		if ep != nil && ep.node != nil {
			validEps = append(validEps, ep)
		}
	}
	if len(validEps) == 0 {
		return nil
	}

	state := &searchState{
		query:      query,
		layer:      layerIdx,
		ef:         maxInt(ef, minSearchWidth),
		visited:    make(map[int]bool),
		candidates: &priorityQueue{},
		results:    &maxPriorityQueue{},
	}
	for _, ep := range validEps {
		heap.Push(state.candidates, ep)
		heap.Push(state.results, &pqItem{nodeID: ep.nodeID, distance: ep.distance, node: ep.node})
	}

	// A hard iteration cap bounds worst-case query cost on a corpus with an
	// unlucky topology; codevec's graphs are small enough that this is
	// never observed to bind, but a similarity sweep over every duplicate
	// candidate still shouldn't be able to spin forever.
	for state.candidates.Len() > 0 && state.iterations < maxLayerSearchSteps {
		candidate := heap.Pop(state.candidates).(*pqItem)
		if !g.processCandidate(state, candidate) {
			heap.Push(state.candidates, candidate)
			break
		}
		state.iterations++

		if state.results.Len() >= state.ef && state.candidates.Len() > 0 {
			nextBest := (*state.candidates)[0].distance
			worst := (*state.results)[0].distance
			if nextBest > worst*candidateBacktrackSlack {
				break
			}
		}
	}

	results := make([]*pqItem, 0, state.results.Len())
	for state.results.Len() > 0 {
		results = append(results, heap.Pop(state.results).(*pqItem))
	}
	for i, j := 0, len(results)-1; i < j; i, j = i+1, j-1 {
		results[i], results[j] = results[j], results[i]
	}
	return results
}

func (g *graph) processCandidate(state *searchState, candidate *pqItem) bool {
	if state.visited[candidate.nodeID] {
		return true
	}
	state.visited[candidate.nodeID] = true

	n := g.getNode(candidate.nodeID)
	if n == nil {
		return true
	}

	heap.Push(state.results, &pqItem{nodeID: candidate.nodeID, distance: candidate.distance, node: n})
	if state.results.Len() > state.ef {
		heap.Pop(state.results) // evicts the farthest kept result, since results is a max-heap
	}

	for _, neighborID := range n.outEdges[state.layer] {
		if state.visited[neighborID] {
			continue
		}
		neighbor := g.getNode(neighborID)
		if neighbor == nil {
			continue
		}
		distance := g.cfg.distanceFunc(state.query, neighbor.vector)
		if state.results.Len() < state.ef || distance < (*state.results)[0].distance*candidateBacktrackSlack {
			heap.Push(state.candidates, &pqItem{nodeID: neighborID, distance: distance, node: neighbor})
		}
		if state.results.Len() >= state.ef && state.candidates.Len() > 0 {
			if (*state.candidates)[0].distance > (*state.results)[0].distance*candidateBacktrackSlack {
				return false
			}
		}
	}
	return true
}

func selectNearest(candidates []*pqItem, k int) []*pqItem {
	if len(candidates) <= k {
		return candidates
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].distance < candidates[j].distance })
	return candidates[:k]
}
