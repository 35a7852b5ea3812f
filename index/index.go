// Package index defines the contract shared by both codevec backends
// (brute-force and proximity-graph), along with the configuration, result,
// and error types that flow across it.
package index

import (
	"context"
	"errors"
	"fmt"

	"github.com/kumarlokesh/codevec/chunk"
	"github.com/kumarlokesh/codevec/embedding"
)

// Default HNSW graph-tuning constants, published per spec.
const (
	DefaultM              = 16
	DefaultEfConstruction = 200
	DefaultEfSearch       = 50
)

// Config describes an index's embedding-model identity and, for the graph
// backend, its proximity-graph tuning constants.
type Config struct {
	ModelID        string
	Dimensions     int
	M              int
	EfConstruction int
	EfSearch       int
}

// Default returns a configuration for the given model id and dimensions,
// with the graph-tuning constants set to the published defaults.
func Default(modelID string, dimensions int) Config {
	return Config{
		ModelID:        modelID,
		Dimensions:     dimensions,
		M:              DefaultM,
		EfConstruction: DefaultEfConstruction,
		EfSearch:       DefaultEfSearch,
	}
}

// ForModel is an alias of Default kept for parity with the merger's
// construction path, where the target config is always derived from a model
// id and dimension pair plus the published defaults.
func ForModel(modelID string, dimensions int) Config {
	return Default(modelID, dimensions)
}

// Compatible reports whether two configs may be merged: their model ids
// must match, which per spec implies dimension equality (enforced by Add).
func (c Config) Compatible(other Config) bool {
	return c.ModelID == other.ModelID
}

// Validate checks the constructor-time invariants of a Config.
func (c Config) Validate() error {
	if c.ModelID == "" {
		return errors.New("index: model id must not be empty")
	}
	if c.Dimensions <= 0 {
		return fmt.Errorf("index: dimensions must be positive, got %d", c.Dimensions)
	}
	return nil
}

// SearchResult pairs a matched chunk with its similarity score and, when
// the match came from a merged index, the provenance of the chunk.
type SearchResult struct {
	Chunk      chunk.Chunk
	Similarity float32
	ArtifactID string // empty when the chunk carries no provenance
}

// Stats summarizes the contents of an index.
type Stats struct {
	Total             int
	ByKind            map[chunk.Kind]int
	FileCount         int
	ModelID           string
	Dimensions        int
	SizeBytesEstimate int64
}

// DuplicateGroup is a set of chunks whose pairwise similarity met or
// exceeded FloorSimilarity when the group was formed.
type DuplicateGroup struct {
	FloorSimilarity float32
	Count           int
	Chunks          []chunk.Chunk
}

// Backend identifies which concrete implementation an Index is.
type Backend string

const (
	BackendBruteForce Backend = "bruteforce"
	BackendGraph      Backend = "hnsw"
)

// Index is the contract shared by the brute-force and proximity-graph
// backends. Concrete backends embed additional state (§4.2) but every
// externally observable operation goes through this interface.
type Index interface {
	Add(c chunk.Chunk, vector []float32) error
	AddAll(entries []chunk.Entry) error
	Merge(other Index) error

	Search(queryVector []float32, k int) ([]SearchResult, error)
	SearchText(ctx context.Context, query string, k int) ([]SearchResult, error)
	SearchByKind(ctx context.Context, query string, kind chunk.Kind, k int) ([]SearchResult, error)

	FindDuplicates(threshold float32) []DuplicateGroup
	FindAnomalies(threshold float32) []chunk.Chunk

	Entries() []chunk.Entry
	Size() int
	IsEmpty() bool
	ModelID() string
	Dimensions() int
	Stats() Stats
	Backend() Backend

	SetEmbeddingProvider(p embedding.Provider)
	Close() error
}
