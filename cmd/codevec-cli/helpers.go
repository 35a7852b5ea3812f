package main

import (
	"fmt"
	"hash/fnv"
	"io"
	"math"
	"os"

	"github.com/kumarlokesh/codevec"
	"github.com/kumarlokesh/codevec/bruteforce"
	"github.com/kumarlokesh/codevec/chunk"
	"github.com/kumarlokesh/codevec/hnsw"
)

// saveIndex writes idx to w in its own on-disk format. codevec.Index does
// not itself expose Save/Load — those are backend-specific — so the CLI
// type-switches to the concrete backend.
func saveIndex(idx codevec.Index, w io.Writer) error {
	switch v := idx.(type) {
	case *bruteforce.Index:
		return v.Save(w)
	case *hnsw.Index:
		return v.Save(w)
	default:
		return fmt.Errorf("codevec-cli: unsupported index type %T", idx)
	}
}

// loadIndex opens path and auto-detects its on-disk format.
func loadIndex(path string) (codevec.Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("codevec-cli: failed to open %s: %w", path, err)
	}
	defer f.Close()
	return codevec.Load(f)
}

// deterministicVector hashes text into a fixed-length pseudo-embedding.
// It exists so the CLI can demonstrate build/search/merge without wiring
// a real embedding model; it is not a substitute for one, and codevec's
// core packages never call it.
func deterministicVector(text string, dimensions int) []float32 {
	vector := make([]float32, dimensions)
	h := fnv.New64a()
	for i := 0; i < dimensions; i++ {
		h.Reset()
		fmt.Fprintf(h, "%s:%d", text, i)
		sum := h.Sum64()
		vector[i] = float32(math.Sin(float64(sum)))
	}
	return vector
}

func chunkFromBody(name, body string) (chunk.Chunk, error) {
	return chunk.New(name, name, chunk.KindMethod, body, "demo.go", 1, 1, "", nil)
}
