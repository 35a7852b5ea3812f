// Package bruteforce implements codevec's exact-search backend: a flat
// slice of entries scored by full cosine-similarity comparison against
// every other entry. It is grounded on the brute-force/in-memory variant
// described by the shared index contract — no approximation, no graph
// structure, O(n) per query.
package bruteforce

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/kumarlokesh/codevec/analysis"
	"github.com/kumarlokesh/codevec/chunk"
	"github.com/kumarlokesh/codevec/codec"
	"github.com/kumarlokesh/codevec/embedding"
	"github.com/kumarlokesh/codevec/index"
	"github.com/kumarlokesh/codevec/similarity"
)

// Index is the brute-force backend. It is safe for concurrent use; all
// mutating operations hold a single write lock and all read operations
// snapshot under a read lock.
type Index struct {
	mu       sync.RWMutex
	cfg      index.Config
	entries  []chunk.Entry
	ids      map[string]int // chunk id -> position in entries
	provider embedding.Provider
}

var _ index.Index = (*Index)(nil)

// New creates an empty brute-force index for the given configuration.
func New(cfg index.Config) (*Index, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Index{cfg: cfg, ids: make(map[string]int)}, nil
}

// Add inserts a single chunk/vector pair, validating it against the
// index's configured dimensionality.
func (idx *Index) Add(c chunk.Chunk, vector []float32) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.addLocked(c, vector)
}

func (idx *Index) addLocked(c chunk.Chunk, vector []float32) error {
	if len(vector) != idx.cfg.Dimensions {
		return &index.DimensionMismatchError{Expected: idx.cfg.Dimensions, Actual: len(vector)}
	}
	v := make([]float32, len(vector))
	copy(v, vector)
	idx.ids[c.ID] = len(idx.entries)
	idx.entries = append(idx.entries, chunk.Entry{Chunk: c, Vector: v})
	return nil
}

// AddAll inserts a batch of entries. It validates every entry's dimensions
// before mutating the index, so a single bad entry leaves the index
// unchanged.
func (idx *Index) AddAll(entries []chunk.Entry) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for _, e := range entries {
		if len(e.Vector) != idx.cfg.Dimensions {
			return &index.DimensionMismatchError{Expected: idx.cfg.Dimensions, Actual: len(e.Vector)}
		}
	}
	for _, e := range entries {
		if err := idx.addLocked(e.Chunk, e.Vector); err != nil {
			return err
		}
	}
	return nil
}

// Merge appends every entry of other into idx, enforcing model-id
// compatibility first and skipping any incoming chunk whose id already
// exists in idx (first-wins), per the shared same-backend merge contract.
// Callers needing cross-format consolidation or provenance stamping should
// use the merge package instead; Merge is the cheap same-backend fast path.
func (idx *Index) Merge(other index.Index) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if other.ModelID() != idx.cfg.ModelID {
		return &index.IncompatibleModelError{Expected: idx.cfg.ModelID, Actual: other.ModelID()}
	}
	for _, e := range other.Entries() {
		if _, exists := idx.ids[e.Chunk.ID]; exists {
			continue
		}
		if err := idx.addLocked(e.Chunk, e.Vector); err != nil {
			return err
		}
	}
	return nil
}

// Search returns the k entries most similar to queryVector, ranked
// descending by cosine similarity.
func (idx *Index) Search(queryVector []float32, k int) ([]index.SearchResult, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if len(queryVector) != idx.cfg.Dimensions {
		return nil, &index.DimensionMismatchError{Expected: idx.cfg.Dimensions, Actual: len(queryVector)}
	}
	if k <= 0 {
		return nil, nil
	}

	results := make([]index.SearchResult, len(idx.entries))
	for i, e := range idx.entries {
		sim := similarity.Clamp01(similarity.Cosine(queryVector, e.Vector))
		results[i] = index.SearchResult{Chunk: e.Chunk, Similarity: sim, ArtifactID: e.Chunk.Artifact}
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Similarity > results[j].Similarity })
	if k < len(results) {
		results = results[:k]
	}
	return results, nil
}

// SearchText embeds query with the configured embedding.Provider and
// delegates to Search.
func (idx *Index) SearchText(ctx context.Context, query string, k int) ([]index.SearchResult, error) {
	idx.mu.RLock()
	provider := idx.provider
	idx.mu.RUnlock()
	if provider == nil {
		return nil, index.ErrMissingEmbeddingProvider
	}
	vector, err := provider.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("bruteforce: failed to embed query: %w", err)
	}
	return idx.Search(vector, k)
}

// SearchByKind behaves like SearchText but restricts the result set to
// chunks of the given kind, requesting extra candidates internally so that
// filtering still returns up to k matches when possible.
func (idx *Index) SearchByKind(ctx context.Context, query string, kind chunk.Kind, k int) ([]index.SearchResult, error) {
	idx.mu.RLock()
	total := len(idx.entries)
	idx.mu.RUnlock()

	results, err := idx.SearchText(ctx, query, total)
	if err != nil {
		return nil, err
	}
	filtered := make([]index.SearchResult, 0, k)
	for _, r := range results {
		if r.Chunk.Kind != kind {
			continue
		}
		filtered = append(filtered, r)
		if len(filtered) == k {
			break
		}
	}
	return filtered, nil
}

// FindDuplicates groups chunks whose pairwise cosine similarity meets or
// exceeds threshold, delegating the grouping skeleton to analysis.
func (idx *Index) FindDuplicates(threshold float32) []index.DuplicateGroup {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	groups := analysis.FindDuplicates(idx.entries, threshold, idx.scoreFunc())
	out := make([]index.DuplicateGroup, len(groups))
	for i, g := range groups {
		out[i] = index.DuplicateGroup{FloorSimilarity: g.FloorSimilarity, Count: len(g.Chunks), Chunks: g.Chunks}
	}
	return out
}

// FindAnomalies flags chunks whose mean similarity to the rest of the
// index falls below threshold.
func (idx *Index) FindAnomalies(threshold float32) []chunk.Chunk {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return analysis.FindAnomalies(idx.entries, threshold, idx.scoreFunc())
}

func (idx *Index) scoreFunc() analysis.ScoreFunc {
	return func(i, j int) float32 {
		return similarity.Clamp01(similarity.Cosine(idx.entries[i].Vector, idx.entries[j].Vector))
	}
}

// Entries returns a snapshot copy of the index's entries; mutating the
// returned slice does not affect the index.
func (idx *Index) Entries() []chunk.Entry {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := make([]chunk.Entry, len(idx.entries))
	copy(out, idx.entries)
	return out
}

func (idx *Index) Size() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.entries)
}

func (idx *Index) IsEmpty() bool { return idx.Size() == 0 }

func (idx *Index) ModelID() string { return idx.cfg.ModelID }

func (idx *Index) Dimensions() int { return idx.cfg.Dimensions }

// Stats summarizes the index's current contents.
func (idx *Index) Stats() index.Stats {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	byKind := make(map[chunk.Kind]int)
	files := make(map[string]struct{})
	for _, e := range idx.entries {
		byKind[e.Chunk.Kind]++
		files[e.Chunk.File] = struct{}{}
	}
	sizeEstimate := int64(len(idx.entries)) * int64(idx.cfg.Dimensions) * 4
	return index.Stats{
		Total:             len(idx.entries),
		ByKind:            byKind,
		FileCount:         len(files),
		ModelID:           idx.cfg.ModelID,
		Dimensions:        idx.cfg.Dimensions,
		SizeBytesEstimate: sizeEstimate,
	}
}

func (idx *Index) Backend() index.Backend { return index.BackendBruteForce }

func (idx *Index) SetEmbeddingProvider(p embedding.Provider) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.provider = p
}

// Close releases no resources; it exists to satisfy index.Index.
func (idx *Index) Close() error { return nil }

// Save writes the index to w in the MVEC on-disk format: header, chunk
// JSON, then chunk_count x dimensions raw float32 vectors in insertion
// order.
func (idx *Index) Save(w io.Writer) error {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if err := codec.WriteHeader(w, codec.MagicBruteForce, idx.cfg.Dimensions, len(idx.entries), idx.cfg.ModelID); err != nil {
		return fmt.Errorf("bruteforce: failed to write header: %w", err)
	}
	chunks := make([]chunk.Chunk, len(idx.entries))
	vectors := make([][]float32, len(idx.entries))
	for i, e := range idx.entries {
		chunks[i] = e.Chunk
		vectors[i] = e.Vector
	}
	if err := codec.WriteChunksJSON(w, chunks); err != nil {
		return fmt.Errorf("bruteforce: failed to write chunk metadata: %w", err)
	}
	if err := codec.WriteVectors(w, vectors); err != nil {
		return fmt.Errorf("bruteforce: failed to write vectors: %w", err)
	}
	return nil
}

// Load reads an MVEC stream written by Save into a fresh Index.
func Load(r io.Reader) (*Index, error) {
	header, err := codec.ReadHeader(r, codec.MagicBruteForce)
	if err != nil {
		return nil, fmt.Errorf("bruteforce: failed to read header: %w", err)
	}
	chunks, err := codec.ReadChunksJSON(r)
	if err != nil {
		return nil, fmt.Errorf("bruteforce: failed to read chunk metadata: %w", err)
	}
	vectors, err := codec.ReadVectors(r, int(header.ChunkCount), int(header.Dimensions))
	if err != nil {
		return nil, fmt.Errorf("bruteforce: failed to read vectors: %w", err)
	}
	if len(chunks) != len(vectors) {
		return nil, fmt.Errorf("bruteforce: chunk count %d does not match vector count %d", len(chunks), len(vectors))
	}

	idx, err := New(index.ForModel(header.ModelID, int(header.Dimensions)))
	if err != nil {
		return nil, err
	}
	entries := make([]chunk.Entry, len(chunks))
	for i := range chunks {
		entries[i] = chunk.Entry{Chunk: chunks[i], Vector: vectors[i]}
	}
	if err := idx.AddAll(entries); err != nil {
		return nil, fmt.Errorf("bruteforce: failed to rehydrate entries: %w", err)
	}
	return idx, nil
}
