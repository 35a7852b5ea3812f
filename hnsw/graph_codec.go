package hnsw

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// encodeGraph serializes the graph topology (entry point, max layer, and
// every node's level, vector, and per-layer neighbor lists) into the
// opaque blob stored in the MHNS graph_blob field. Node identity in the
// blob is the internal dense id; chunk ids and metadata travel separately
// in chunks_json, in the same internal-id order.
func encodeGraph(g *graph, nodeCount int) ([]byte, error) {
	var buf bytes.Buffer

	if err := binary.Write(&buf, binary.BigEndian, int32(g.entryPointID)); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, int32(g.maxLayer)); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, int32(nodeCount)); err != nil {
		return nil, err
	}

	for id := 0; id < nodeCount; id++ {
		n := g.nodes[id]
		if n == nil {
			return nil, fmt.Errorf("hnsw: graph missing node for internal id %d", id)
		}
		if err := binary.Write(&buf, binary.BigEndian, int32(n.level)); err != nil {
			return nil, err
		}
		for _, f := range n.vector {
			if err := binary.Write(&buf, binary.BigEndian, f); err != nil {
				return nil, err
			}
		}
		for l := 0; l <= n.level; l++ {
			edges := n.outEdges[l]
			if err := binary.Write(&buf, binary.BigEndian, int32(len(edges))); err != nil {
				return nil, err
			}
			for _, e := range edges {
				if err := binary.Write(&buf, binary.BigEndian, int32(e)); err != nil {
					return nil, err
				}
			}
		}
	}

	return buf.Bytes(), nil
}

// decodeGraph reconstructs a graph from a blob produced by encodeGraph.
// dimensions is required up front since vector lengths are not
// individually length-prefixed in the blob.
func decodeGraph(blob []byte, cfg graphConfig, dimensions, nodeCount int, seed int64) (*graph, error) {
	r := bytes.NewReader(blob)
	g := newGraph(cfg, seed)

	var entryPointID, maxLayer, count int32
	if err := binary.Read(r, binary.BigEndian, &entryPointID); err != nil {
		return nil, fmt.Errorf("hnsw: failed to read entry point id: %w", err)
	}
	if err := binary.Read(r, binary.BigEndian, &maxLayer); err != nil {
		return nil, fmt.Errorf("hnsw: failed to read max layer: %w", err)
	}
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return nil, fmt.Errorf("hnsw: failed to read node count: %w", err)
	}
	if int(count) != nodeCount {
		return nil, fmt.Errorf("hnsw: graph blob node count %d does not match chunk count %d", count, nodeCount)
	}

	nodes := make([]*node, nodeCount)
	for id := 0; id < nodeCount; id++ {
		var level int32
		if err := binary.Read(r, binary.BigEndian, &level); err != nil {
			return nil, fmt.Errorf("hnsw: failed to read level for node %d: %w", id, err)
		}
		vector := make([]float32, dimensions)
		for i := range vector {
			if err := binary.Read(r, binary.BigEndian, &vector[i]); err != nil {
				return nil, fmt.Errorf("hnsw: failed to read vector for node %d: %w", id, err)
			}
		}
		n := newNode(id, vector, int(level))
		for l := 0; l <= int(level); l++ {
			var edgeCount int32
			if err := binary.Read(r, binary.BigEndian, &edgeCount); err != nil {
				return nil, fmt.Errorf("hnsw: failed to read edge count for node %d layer %d: %w", id, l, err)
			}
			edges := make([]int, edgeCount)
			for i := range edges {
				var e int32
				if err := binary.Read(r, binary.BigEndian, &e); err != nil {
					return nil, fmt.Errorf("hnsw: failed to read edge for node %d layer %d: %w", id, l, err)
				}
				edges[i] = int(e)
			}
			n.outEdges[l] = edges
		}
		nodes[id] = n
		g.addNode(n)
		g.addNodeToLayer(n, 0)
		for l := 1; l <= int(level); l++ {
			g.addNodeToLayer(n, l)
		}
	}

	g.entryPointID = int(entryPointID)
	g.maxLayer = int(maxLayer)
	return g, nil
}
