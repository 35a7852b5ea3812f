// Package embedding defines the pluggable text-to-vector interface that
// backends call from their textual search variants.
package embedding

import (
	"context"
	"fmt"
)

// Provider turns a text query into a vector embedding whose length matches
// the dimensions of the index it is attached to. Errors from Embed surface
// to the caller of the index's textual search unchanged.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Static is a Provider backed by a fixed lookup table, useful in tests and
// small demos where computing real embeddings is unnecessary.
type Static struct {
	vectors map[string][]float32
}

// NewStatic builds a Static provider from a text-to-vector table.
func NewStatic(vectors map[string][]float32) *Static {
	table := make(map[string][]float32, len(vectors))
	for k, v := range vectors {
		table[k] = v
	}
	return &Static{vectors: table}
}

// Embed implements Provider. It returns an error for any text not present
// in the lookup table.
func (s *Static) Embed(_ context.Context, text string) ([]float32, error) {
	v, ok := s.vectors[text]
	if !ok {
		return nil, fmt.Errorf("embedding: no static vector registered for query %q", text)
	}
	out := make([]float32, len(v))
	copy(out, v)
	return out, nil
}
