// Package vectorstore adapts codevec's merge output to an optional
// external ChromaDB collection, so a merged index's contents can be
// browsed with ChromaDB's own tooling. It is a one-way mirror: codevec
// never reads search results back from ChromaDB, and a mirror failure
// never fails the merge it was observing.
package vectorstore

import (
	"context"
	"fmt"

	chromago "github.com/amikos-tech/chroma-go"
	"github.com/amikos-tech/chroma-go/collection"
	chromatypes "github.com/amikos-tech/chroma-go/types"
	"github.com/rs/zerolog"

	"github.com/kumarlokesh/codevec/chunk"
)

// ChromaMirror replicates a batch of chunk entries (in codevec-cli, a merged
// index's entries) into a ChromaDB collection, sending body text and
// metadata and leaving ChromaDB to
// compute its own embeddings — codevec's own vectors and backends remain
// authoritative for search; the mirror exists only so a merged corpus can
// be browsed with ChromaDB's own tooling.
type ChromaMirror struct {
	client         *chromago.Client
	collectionName string
	log            zerolog.Logger
}

// NewChromaMirror connects to the ChromaDB instance at url and prepares to
// mirror into the named collection, which is created on first use if
// missing. apiKey is accepted but not passed to the client.
func NewChromaMirror(url, apiKey, collectionName string, log zerolog.Logger) (*ChromaMirror, error) {
	client, err := chromago.NewClient(chromago.WithBasePath(url))
	if err != nil {
		return nil, fmt.Errorf("vectorstore: failed to create ChromaDB client: %w", err)
	}
	return &ChromaMirror{client: client, collectionName: collectionName, log: log}, nil
}

// Mirror pushes entries into the mirror's collection as documents with
// metadata, leaving ChromaDB to compute its own embeddings. The mirror
// exists for browsing merged chunks with ChromaDB's tooling, not as a
// second source of truth for similarity — codevec's own vectors and
// backends remain authoritative for search.
func (m *ChromaMirror) Mirror(ctx context.Context, entries []chunk.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	coll, err := m.client.NewCollection(ctx, m.collectionName,
		collection.WithHNSWDistanceFunction(chromatypes.L2),
		collection.WithCreateIfNotExist(true),
	)
	if err != nil {
		return fmt.Errorf("vectorstore: failed to create or get collection %q: %w", m.collectionName, err)
	}

	ids := make([]string, len(entries))
	documents := make([]string, len(entries))
	metadatas := make([]map[string]interface{}, len(entries))
	for i, e := range entries {
		ids[i] = e.Chunk.ID
		documents[i] = e.Chunk.Body
		metadatas[i] = map[string]interface{}{
			"name":      e.Chunk.Name,
			"kind":      string(e.Chunk.Kind),
			"file":      e.Chunk.File,
			"artifact":  e.Chunk.Artifact,
			"lineStart": e.Chunk.LineStart,
			"lineEnd":   e.Chunk.LineEnd,
		}
	}

	if _, err := coll.Add(ctx, nil, metadatas, documents, ids); err != nil {
		return fmt.Errorf("vectorstore: failed to mirror entries into collection %q: %w", m.collectionName, err)
	}

	m.log.Info().Str("collection", m.collectionName).Int("count", len(entries)).Msg("mirrored entries to ChromaDB")
	return nil
}

// Close is a no-op: the underlying transport requires no explicit
// teardown, and Close exists for symmetry with other closers in the
// codebase.
func (m *ChromaMirror) Close() error { return nil }
