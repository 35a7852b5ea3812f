package index

import (
	"errors"
	"fmt"
)

// Sentinel errors identifying the sub-kind of an error returned by codevec.
// Callers should compare with errors.Is; the concrete error types below
// carry additional context and unwrap to these sentinels.
var (
	ErrDimensionMismatch       = errors.New("codevec: vector dimension mismatch")
	ErrIncompatibleModel       = errors.New("codevec: incompatible embedding model")
	ErrUnsupportedFormatVersion = errors.New("codevec: unsupported format version")
	ErrInvalidMagic            = errors.New("codevec: invalid magic bytes")
	ErrMissingEmbeddingProvider = errors.New("codevec: no embedding provider configured")
	ErrInterrupted             = errors.New("codevec: batch insertion interrupted")
	ErrDimensionUndetermined  = errors.New("codevec: merger has no known target dimensions")
)

// DimensionMismatchError reports the expected and actual vector length seen
// by Add or AddAll.
type DimensionMismatchError struct {
	Expected int
	Actual   int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("codevec: dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

func (e *DimensionMismatchError) Unwrap() error { return ErrDimensionMismatch }

// IncompatibleModelError reports the model id mismatch that aborted a merge.
type IncompatibleModelError struct {
	Expected string
	Actual   string
}

func (e *IncompatibleModelError) Error() string {
	return fmt.Sprintf("codevec: cannot merge indexes with different embedding models: expected %q, found %q", e.Expected, e.Actual)
}

func (e *IncompatibleModelError) Unwrap() error { return ErrIncompatibleModel }

// UnsupportedFormatVersionError reports the on-disk version a decoder could
// not handle.
type UnsupportedFormatVersionError struct {
	Version uint16
}

func (e *UnsupportedFormatVersionError) Error() string {
	return fmt.Sprintf("codevec: unsupported format version: %d", e.Version)
}

func (e *UnsupportedFormatVersionError) Unwrap() error { return ErrUnsupportedFormatVersion }

// InvalidMagicError reports the four header bytes a decoder failed to
// recognize.
type InvalidMagicError struct {
	Got [4]byte
}

func (e *InvalidMagicError) Error() string {
	return fmt.Sprintf("codevec: invalid magic bytes: %q", e.Got[:])
}

func (e *InvalidMagicError) Unwrap() error { return ErrInvalidMagic }
