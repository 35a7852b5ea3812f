// Package chunk defines the immutable code-fragment record that every
// backend in codevec indexes, searches, and merges.
package chunk

import "fmt"

// Kind identifies the syntactic role of a Chunk within its source file.
type Kind string

// The finite set of chunk kinds a producer may report.
const (
	KindClass       Kind = "class"
	KindInterface   Kind = "interface"
	KindEnum        Kind = "enum"
	KindRecord      Kind = "record"
	KindMethod      Kind = "method"
	KindConstructor Kind = "constructor"
	KindField       Kind = "field"
	KindAnnotation  Kind = "annotation"
)

// Chunk is an immutable record identifying a unit of source code.
//
// Chunk is never mutated in place. WithArtifact returns a new value with an
// updated provenance slot; every other field is copy-on-construct.
type Chunk struct {
	ID              string
	Name            string
	Kind            Kind
	Body            string
	File            string
	LineStart       int
	LineEnd         int
	ParentContainer string // optional, empty means absent
	Metadata        map[string]string
	Artifact        string // optional, empty means absent (not yet stamped)
}

// New constructs a Chunk, defensively copying Metadata and validating the
// invariants from the data model: LineEnd >= LineStart >= 1.
func New(id, name string, kind Kind, body, file string, lineStart, lineEnd int, parentContainer string, metadata map[string]string) (Chunk, error) {
	if lineStart < 1 {
		return Chunk{}, fmt.Errorf("chunk %q: lineStart must be >= 1, got %d", id, lineStart)
	}
	if lineEnd < lineStart {
		return Chunk{}, fmt.Errorf("chunk %q: lineEnd (%d) must be >= lineStart (%d)", id, lineEnd, lineStart)
	}
	return Chunk{
		ID:              id,
		Name:            name,
		Kind:            kind,
		Body:            body,
		File:            file,
		LineStart:       lineStart,
		LineEnd:         lineEnd,
		ParentContainer: parentContainer,
		Metadata:        copyMetadata(metadata),
	}, nil
}

// WithArtifact returns a new Chunk identical to c except for its provenance
// slot. c itself is never modified.
func (c Chunk) WithArtifact(artifactCoords string) Chunk {
	stamped := c
	stamped.Metadata = copyMetadata(c.Metadata)
	stamped.Artifact = artifactCoords
	return stamped
}

// QualifiedName returns the chunk's name prefixed by its parent container,
// when one is set.
func (c Chunk) QualifiedName() string {
	if c.ParentContainer != "" {
		return c.ParentContainer + "." + c.Name
	}
	return c.Name
}

// TruncatedCode returns the chunk body truncated to maxLength bytes,
// the last three of which are "..." when truncation occurred. When
// maxLength is below 3 the body is returned unchanged.
func (c Chunk) TruncatedCode(maxLength int) string {
	if len(c.Body) <= maxLength || maxLength < 3 {
		return c.Body
	}
	return c.Body[:maxLength-3] + "..."
}

func copyMetadata(m map[string]string) map[string]string {
	if len(m) == 0 {
		return map[string]string{}
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Entry pairs a Chunk with the vector embedding of its body. Vector's length
// must equal the owning index's configured dimensions.
type Entry struct {
	Chunk  Chunk
	Vector []float32
}
