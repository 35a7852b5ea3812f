// Package merge implements cross-index consolidation: accumulating
// entries from any number of source indexes (of either backend), stamping
// each with its source's provenance, dropping duplicate chunk ids, and
// building a fresh target index of the caller's chosen backend.
package merge

import (
	"fmt"

	"github.com/kumarlokesh/codevec/bruteforce"
	"github.com/kumarlokesh/codevec/chunk"
	"github.com/kumarlokesh/codevec/hnsw"
	"github.com/kumarlokesh/codevec/index"
)

// pending is one entry queued for the target index, already stamped with
// its source artifact.
type pending struct {
	entry chunk.Entry
}

// Merger accumulates entries from heterogeneous source indexes ahead of a
// single Build call. All sources must share a model id; the first source
// added fixes the merger's target model id and dimensions.
type Merger struct {
	modelID    string
	dimensions int

	seen    map[string]bool // chunk id -> already accepted
	pending []pending

	rejectedArtifacts []string
}

// New creates an empty Merger.
func New() *Merger {
	return &Merger{seen: make(map[string]bool)}
}

// AddIndex queues every entry of src, stamped with artifactCoords as its
// provenance, and reports whether src was accepted. If src's model id
// conflicts with a previously added source, AddIndex rejects the whole
// index — recording artifactCoords in RejectedArtifacts and returning
// accepted=false — rather than partially merging it or raising an error;
// a model mismatch on one source among many is an expected, recoverable
// outcome of a merge run, not a failure of the call itself. Build, by
// contrast, does raise, since a target index with no accepted sources has
// nothing to build. Chunk ids already seen from an earlier source are
// dropped — first-wins, in call order.
func (m *Merger) AddIndex(src index.Index, artifactCoords string) bool {
	if m.modelID == "" {
		m.modelID = src.ModelID()
		m.dimensions = src.Dimensions()
	} else if src.ModelID() != m.modelID {
		m.rejectedArtifacts = append(m.rejectedArtifacts, artifactCoords)
		return false
	}

	for _, e := range src.Entries() {
		if m.seen[e.Chunk.ID] {
			continue
		}
		m.seen[e.Chunk.ID] = true
		stamped := e.Chunk.WithArtifact(artifactCoords)
		m.pending = append(m.pending, pending{entry: chunk.Entry{Chunk: stamped, Vector: e.Vector}})
	}
	return true
}

// PendingCount reports how many deduplicated entries are queued for the
// next Build.
func (m *Merger) PendingCount() int { return len(m.pending) }

// RejectedArtifacts lists the artifact coordinates of every source index
// AddIndex refused due to a model-id mismatch, in rejection order.
func (m *Merger) RejectedArtifacts() []string {
	out := make([]string, len(m.rejectedArtifacts))
	copy(out, m.rejectedArtifacts)
	return out
}

// Build constructs a fresh index of the requested backend from every
// entry accumulated so far, in the order entries were queued (source
// order, then insertion order within a source). It returns
// index.ErrDimensionUndetermined if no source has been added yet.
func (m *Merger) Build(backend index.Backend) (index.Index, error) {
	if m.modelID == "" {
		return nil, index.ErrDimensionUndetermined
	}

	cfg := index.ForModel(m.modelID, m.dimensions)
	target, err := newBackend(backend, cfg)
	if err != nil {
		return nil, err
	}

	entries := make([]chunk.Entry, len(m.pending))
	for i, p := range m.pending {
		entries[i] = p.entry
	}
	if err := target.AddAll(entries); err != nil {
		return nil, fmt.Errorf("merge: failed to populate target index: %w", err)
	}
	return target, nil
}

func newBackend(backend index.Backend, cfg index.Config) (index.Index, error) {
	switch backend {
	case index.BackendBruteForce:
		return bruteforce.New(cfg)
	case index.BackendGraph:
		return hnsw.New(cfg)
	default:
		return nil, fmt.Errorf("merge: unknown target backend %q", backend)
	}
}
