// Package codevec provides the top-level entry points for building,
// loading, and merging code-chunk vector indexes: New for a fresh index of
// either backend, Load to auto-detect and rehydrate one from disk, and a
// re-exported Merger for cross-index consolidation.
package codevec

import (
	"bufio"
	"fmt"
	"io"

	"github.com/kumarlokesh/codevec/bruteforce"
	"github.com/kumarlokesh/codevec/chunk"
	"github.com/kumarlokesh/codevec/codec"
	"github.com/kumarlokesh/codevec/embedding"
	"github.com/kumarlokesh/codevec/hnsw"
	"github.com/kumarlokesh/codevec/index"
	"github.com/kumarlokesh/codevec/merge"
)

// Re-exported types so callers depending only on the root package still
// have the shared vocabulary in scope.
type (
	Index          = index.Index
	Config         = index.Config
	SearchResult   = index.SearchResult
	Stats          = index.Stats
	DuplicateGroup = index.DuplicateGroup
	Backend        = index.Backend
	Chunk          = chunk.Chunk
	Entry          = chunk.Entry
	Kind           = chunk.Kind
	Provider       = embedding.Provider
	Merger         = merge.Merger
)

const (
	BackendBruteForce = index.BackendBruteForce
	BackendGraph      = index.BackendGraph
)

// New builds an empty index of the given backend for cfg.
func New(backend Backend, cfg Config) (Index, error) {
	switch backend {
	case BackendBruteForce:
		return bruteforce.New(cfg)
	case BackendGraph:
		return hnsw.New(cfg)
	default:
		return nil, fmt.Errorf("codevec: unknown backend %q", backend)
	}
}

// Load reads an on-disk index from r, auto-detecting whether it is a
// brute-force (MVEC) or proximity-graph (MHNS) image from its magic bytes.
func Load(r io.Reader) (Index, error) {
	br := bufio.NewReader(r)
	backend, err := codec.Sniff(br)
	if err != nil {
		return nil, err
	}
	switch backend {
	case BackendBruteForce:
		return bruteforce.Load(br)
	case BackendGraph:
		return hnsw.Load(br)
	default:
		return nil, fmt.Errorf("codevec: unrecognized backend %q", backend)
	}
}

// NewMerger returns an empty cross-index Merger.
func NewMerger() *Merger {
	return merge.New()
}
