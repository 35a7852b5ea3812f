package hnsw

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

// Index is codevec's proximity-graph backend: an approximate nearest
// neighbor search over a Hierarchical Navigable Small World graph, keyed
// by cosine distance. It satisfies index.Index.
type Index struct {
	mu sync.RWMutex

	cfg   index.Config
	graph *graph
	seed  int64

	idToInternal map[string]int
	chunks       []chunk.Chunk // chunks[internalID] == chunk stored at that node

	provider embedding.Provider
}

var _ index.Index = (*Index)(nil)

// seedFromModelID derives a deterministic PRNG seed from the model id so
// that repeated builds of the same corpus produce reproducible graphs.
func seedFromModelID(modelID string) int64 {
	return codec.ModelHash(modelID)
}

// New creates an empty graph index for the given configuration, using the
// index's M/EfConstruction/EfSearch tuning constants (falling back to the
// published defaults for any left at zero).
func New(cfg index.Config) (*Index, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	m := cfg.M
	if m == 0 {
		m = index.DefaultM
	}
	efConstruction := cfg.EfConstruction
	if efConstruction == 0 {
		efConstruction = index.DefaultEfConstruction
	}
	efSearch := cfg.EfSearch
	if efSearch == 0 {
		efSearch = index.DefaultEfSearch
	}

	seed := seedFromModelID(cfg.ModelID)
	gc := graphConfig{
		m:              m,
		efConstruction: efConstruction,
		efSearch:       efSearch,
		distanceFunc:   similarity.Distance,
	}
	return &Index{
		cfg:          cfg,
		graph:        newGraph(gc, seed),
		seed:         seed,
		idToInternal: make(map[string]int),
	}, nil
}

func (idx *Index) Add(c chunk.Chunk, vector []float32) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.addLocked(c, vector)
}

func (idx *Index) addLocked(c chunk.Chunk, vector []float32) error {
	if len(vector) != idx.cfg.Dimensions {
		return &index.DimensionMismatchError{Expected: idx.cfg.Dimensions, Actual: len(vector)}
	}
	if _, exists := idx.idToInternal[c.ID]; exists {
		return fmt.Errorf("hnsw: chunk id %q already present in index", c.ID)
	}
	internalID := len(idx.chunks)
	idx.chunks = append(idx.chunks, c)
	idx.idToInternal[c.ID] = internalID
	idx.graph.insert(internalID, vector)
	return nil
}

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

// Merge rebuilds idx by inserting every entry of other after checking
// model-id compatibility, skipping any incoming chunk whose id already
// exists in idx (first-wins). Unlike bruteforce.Merge this cannot simply
// concatenate storage, since the proximity graph must be grown one
// insertion at a time; ids not already present are delegated to addLocked
// one at a time.
func (idx *Index) Merge(other index.Index) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if other.ModelID() != idx.cfg.ModelID {
		return &index.IncompatibleModelError{Expected: idx.cfg.ModelID, Actual: other.ModelID()}
	}
	for _, e := range other.Entries() {
		if _, exists := idx.idToInternal[e.Chunk.ID]; exists {
			continue
		}
		if err := idx.addLocked(e.Chunk, e.Vector); err != nil {
			return err
		}
	}
	return nil
}

func (idx *Index) Search(queryVector []float32, k int) ([]index.SearchResult, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if len(queryVector) != idx.cfg.Dimensions {
		return nil, &index.DimensionMismatchError{Expected: idx.cfg.Dimensions, Actual: len(queryVector)}
	}
	if k <= 0 || len(idx.chunks) == 0 {
		return nil, nil
	}

	ids := idx.graph.search(queryVector, k)
	results := make([]index.SearchResult, 0, len(ids))
	for _, internalID := range ids {
		c := idx.chunks[internalID]
		sim := similarity.Clamp01(similarity.Cosine(queryVector, idx.graph.nodes[internalID].vector))
		results = append(results, index.SearchResult{Chunk: c, Similarity: sim, ArtifactID: c.Artifact})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Similarity > results[j].Similarity })
	return results, nil
}

func (idx *Index) SearchText(ctx context.Context, query string, k int) ([]index.SearchResult, error) {
	idx.mu.RLock()
	provider := idx.provider
	idx.mu.RUnlock()
	if provider == nil {
		return nil, index.ErrMissingEmbeddingProvider
	}
	vector, err := provider.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("hnsw: failed to embed query: %w", err)
	}
	return idx.Search(vector, k)
}

func (idx *Index) SearchByKind(ctx context.Context, query string, kind chunk.Kind, k int) ([]index.SearchResult, error) {
	idx.mu.RLock()
	total := len(idx.chunks)
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

// FindDuplicates groups near-duplicate chunks by consulting each entry's
// own graph neighborhood rather than scanning every other entry in the
// index: the whole reason to keep a proximity graph around instead of a
// flat vector list is that a duplicate lookup only has to walk the graph
// once per entry, not compare against the full corpus. See
// analysis.FindDuplicatesApprox and analysis.duplicateNeighborWidth.
func (idx *Index) FindDuplicates(threshold float32) []index.DuplicateGroup {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	entries := idx.entriesLocked()
	groups := analysis.FindDuplicatesApprox(entries, threshold, idx.neighborsLocked, idx.scoreFuncLocked(entries))
	out := make([]index.DuplicateGroup, len(groups))
	for i, g := range groups {
		out[i] = index.DuplicateGroup{FloorSimilarity: g.FloorSimilarity, Count: len(g.Chunks), Chunks: g.Chunks}
	}
	return out
}

// FindAnomalies flags chunks whose similarity to their own nearest graph
// neighbors is low, in place of a mean over the whole corpus — see
// analysis.FindAnomaliesApprox and analysis.anomalyNeighborWidth.
func (idx *Index) FindAnomalies(threshold float32) []chunk.Chunk {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	entries := idx.entriesLocked()
	return analysis.FindAnomaliesApprox(entries, threshold, idx.neighborsLocked, idx.scoreFuncLocked(entries))
}

// neighborsLocked returns up to k internal ids near entry i, found by
// running the same best-first graph search Search uses, seeded from i's
// own stored vector. Requires idx.mu already held (any mode).
func (idx *Index) neighborsLocked(i, k int) []int {
	vector := idx.graph.nodes[i].vector
	ids := idx.graph.search(vector, k+1)
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if id == i {
			continue
		}
		out = append(out, id)
	}
	if len(out) > k {
		out = out[:k]
	}
	return out
}

func (idx *Index) scoreFuncLocked(entries []chunk.Entry) analysis.ScoreFunc {
	return func(i, j int) float32 {
		return similarity.Clamp01(similarity.Cosine(entries[i].Vector, entries[j].Vector))
	}
}

func (idx *Index) entriesLocked() []chunk.Entry {
	entries := make([]chunk.Entry, len(idx.chunks))
	for i, c := range idx.chunks {
		entries[i] = chunk.Entry{Chunk: c, Vector: idx.graph.nodes[i].vector}
	}
	return entries
}

func (idx *Index) Entries() []chunk.Entry {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.entriesLocked()
}

func (idx *Index) Size() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.chunks)
}

func (idx *Index) IsEmpty() bool { return idx.Size() == 0 }

func (idx *Index) ModelID() string { return idx.cfg.ModelID }

func (idx *Index) Dimensions() int { return idx.cfg.Dimensions }

func (idx *Index) Stats() index.Stats {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	byKind := make(map[chunk.Kind]int)
	files := make(map[string]struct{})
	for _, c := range idx.chunks {
		byKind[c.Kind]++
		files[c.File] = struct{}{}
	}
	sizeEstimate := int64(len(idx.chunks)) * int64(idx.cfg.Dimensions) * 4
	return index.Stats{
		Total:             len(idx.chunks),
		ByKind:            byKind,
		FileCount:         len(files),
		ModelID:           idx.cfg.ModelID,
		Dimensions:        idx.cfg.Dimensions,
		SizeBytesEstimate: sizeEstimate,
	}
}

func (idx *Index) Backend() index.Backend { return index.BackendGraph }

func (idx *Index) SetEmbeddingProvider(p embedding.Provider) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.provider = p
}

func (idx *Index) Close() error { return nil }

// Save writes the index to w in the MHNS on-disk format: header, chunk
// JSON in internal-id order, then the opaque graph topology blob.
func (idx *Index) Save(w io.Writer) error {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if err := codec.WriteHeader(w, codec.MagicGraph, idx.cfg.Dimensions, len(idx.chunks), idx.cfg.ModelID); err != nil {
		return fmt.Errorf("hnsw: failed to write header: %w", err)
	}
	if err := codec.WriteChunksJSON(w, idx.chunks); err != nil {
		return fmt.Errorf("hnsw: failed to write chunk metadata: %w", err)
	}
	blob, err := encodeGraph(idx.graph, len(idx.chunks))
	if err != nil {
		return fmt.Errorf("hnsw: failed to encode graph: %w", err)
	}
	if err := codec.WriteBlob(w, blob); err != nil {
		return fmt.Errorf("hnsw: failed to write graph blob: %w", err)
	}
	return nil
}

// Load reads an MHNS stream written by Save into a fresh Index.
func Load(r io.Reader) (*Index, error) {
	header, err := codec.ReadHeader(r, codec.MagicGraph)
	if err != nil {
		return nil, fmt.Errorf("hnsw: failed to read header: %w", err)
	}
	chunks, err := codec.ReadChunksJSON(r)
	if err != nil {
		return nil, fmt.Errorf("hnsw: failed to read chunk metadata: %w", err)
	}
	blob, err := codec.ReadBlob(r)
	if err != nil {
		return nil, fmt.Errorf("hnsw: failed to read graph blob: %w", err)
	}
	if len(chunks) != int(header.ChunkCount) {
		return nil, fmt.Errorf("hnsw: chunk count %d does not match header count %d", len(chunks), header.ChunkCount)
	}

	idx, err := New(index.ForModel(header.ModelID, int(header.Dimensions)))
	if err != nil {
		return nil, err
	}
	g, err := decodeGraph(blob, idx.graph.cfg, int(header.Dimensions), len(chunks), idx.seed)
	if err != nil {
		return nil, err
	}
	idx.graph = g
	idx.chunks = chunks
	idx.idToInternal = make(map[string]int, len(chunks))
	for i, c := range chunks {
		idx.idToInternal[c.ID] = i
	}
	return idx, nil
}
