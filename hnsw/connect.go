package hnsw

import (
	"container/heap"
	"slices"
	"sort"
)

// minGraphDegree is the connection count below which a node risks being
// unreachable from a cold-start search: one edge can be pruned away by a
// later, better-connected insertion, so every node keeps at least two.
const minGraphDegree = 2

// connectNode wires n to up to M of the given candidate neighbors at
// layerIdx (M0 at the base layer, M elsewhere, per the standard HNSW
// asymmetry that keeps the base layer denser than upper ones), backfilling
// from the layer at large if the candidate list came up short of
// minGraphDegree — this matters most for small codevec corpora, where an
// early insertion's neighbor search may only turn up one or two other
// chunks before the graph has grown enough to search well.
func (g *graph) connectNode(n *node, neighbors []*pqItem, layerIdx int) {
	if len(neighbors) == 0 {
		return
	}

	m := maxInt(g.getM(layerIdx), 1)
	minConnections := minInt(minGraphDegree, m)

	connected := make(map[int]bool)
	sort.Slice(neighbors, func(i, j int) bool { return neighbors[i].distance < neighbors[j].distance })

	connectionsMade := g.linkCandidates(n, layerIdx, neighbors, connected, m)
	if connectionsMade < minConnections {
		g.backfillFromLayer(n, layerIdx, connected, minConnections-connectionsMade)
	}
}

// linkCandidates connects n to up to limit of the given candidates (already
// sorted nearest-first), skipping anything already connected, and returns
// how many new edges were made.
func (g *graph) linkCandidates(n *node, layerIdx int, candidates []*pqItem, connected map[int]bool, limit int) int {
	made := 0
	for _, cand := range candidates {
		if made >= limit {
			break
		}
		if cand == nil || cand.nodeID == n.id || connected[cand.nodeID] {
			continue
		}
		neighborNode := g.nodes[cand.nodeID]
		if neighborNode == nil {
			continue
		}
		g.linkPair(n, neighborNode, layerIdx)
		connected[cand.nodeID] = true
		made++
	}
	return made
}

// backfillFromLayer scans every other node present at layerIdx for the
// `need` closest ones not already connected to n, used when the candidate
// list connectNode was handed came up short of the minimum degree.
func (g *graph) backfillFromLayer(n *node, layerIdx int, connected map[int]bool, need int) {
	if need <= 0 || len(g.layers) <= layerIdx || g.layers[layerIdx] == nil {
		return
	}

	pq := make(priorityQueue, 0)
	heap.Init(&pq)
	for _, other := range g.layers[layerIdx].nodes {
		if other == nil || other.id == n.id || connected[other.id] {
			continue
		}
		heap.Push(&pq, &pqItem{nodeID: other.id, distance: g.cfg.distanceFunc(n.vector, other.vector), node: other})
	}

	for pq.Len() > 0 && need > 0 {
		item := heap.Pop(&pq).(*pqItem)
		if item.nodeID == n.id || connected[item.nodeID] {
			continue
		}
		if neighborNode := g.nodes[item.nodeID]; neighborNode != nil {
			g.linkPair(n, neighborNode, layerIdx)
			connected[item.nodeID] = true
			need--
		}
	}
}

// linkPair adds a bidirectional edge between n and other at layerIdx,
// skipping the back-edge if it already exists, then prunes both sides back
// to the layer's degree bound. Without this, a well-connected node
// accumulates a back-edge from every later insertion that happens to
// search near it, growing its degree without limit and defeating the
// bounded fan-out HNSW relies on for search cost.
func (g *graph) linkPair(n, other *node, layerIdx int) {
	n.outEdges[layerIdx] = append(n.outEdges[layerIdx], other.id)
	g.pruneEdges(n, layerIdx)
	if !slices.Contains(other.outEdges[layerIdx], n.id) {
		other.outEdges[layerIdx] = append(other.outEdges[layerIdx], n.id)
		g.pruneEdges(other, layerIdx)
	}
}

// pruneEdges caps n's out-degree at layerIdx to the layer's M/M0 bound
// (getM), dropping the farthest edges by distance from n first. A dropped
// edge's reverse direction is left alone; the graph tolerates asymmetric
// edges (search only ever follows a node's own outEdges), so this is a
// cheap local prune rather than a full re-link of the dropped neighbor.
func (g *graph) pruneEdges(n *node, layerIdx int) {
	bound := g.getM(layerIdx)
	edges := n.outEdges[layerIdx]
	if len(edges) <= bound {
		return
	}

	type scoredEdge struct {
		id   int
		dist float32
	}
	scored := make([]scoredEdge, 0, len(edges))
	for _, id := range edges {
		neighbor := g.nodes[id]
		if neighbor == nil {
			continue
		}
		scored = append(scored, scoredEdge{id: id, dist: g.cfg.distanceFunc(n.vector, neighbor.vector)})
	}
	sort.Slice(scored, func(i, j int) bool { return scored[i].dist < scored[j].dist })
	if len(scored) > bound {
		scored = scored[:bound]
	}

	kept := make([]int, len(scored))
	for i, s := range scored {
		kept[i] = s.id
	}
	n.outEdges[layerIdx] = kept
}
