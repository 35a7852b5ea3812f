// Package codec implements codevec's binary on-disk format: the shared
// header framing, magic-byte detection, and JSON chunk payload used by both
// the brute-force ("MVEC") and proximity-graph ("MHNS") backend variants.
//
// All integers are big-endian; floats are IEEE-754 single precision;
// strings use a two-byte-length-prefixed UTF-8 convention.
package codec

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"unicode/utf16"

	"github.com/kumarlokesh/codevec/chunk"
	"github.com/kumarlokesh/codevec/index"
)

// Magic bytes identifying each on-disk variant.
const (
	MagicBruteForce = "MVEC"
	MagicGraph      = "MHNS"
)

// FormatVersion is the current on-disk format version for both variants.
// Bump this, for either variant, whenever its payload layout changes —
// including the graph blob layout, which is versioned alongside the rest of
// the header per spec.
const FormatVersion uint16 = 1

// Header is the common prefix shared by both on-disk variants, through the
// model id field.
type Header struct {
	Magic          string
	FormatVersion  uint16
	Dimensions     int32
	ChunkCount     int32
	ModelHash      int64
	ModelID        string
}

// Sniff peeks the first four bytes of r without consuming them and reports
// which backend variant they identify. r must support Peek (a *bufio.Reader
// does); wrap any io.Reader with bufio.NewReader first.
func Sniff(r *bufio.Reader) (index.Backend, error) {
	head, err := r.Peek(4)
	if err != nil {
		if err == io.EOF {
			return "", fmt.Errorf("codec: stream too short to contain a magic header: %w", index.ErrInvalidMagic)
		}
		return "", fmt.Errorf("codec: failed to peek magic bytes: %w", err)
	}
	switch string(head) {
	case MagicBruteForce:
		return index.BackendBruteForce, nil
	case MagicGraph:
		return index.BackendGraph, nil
	default:
		var got [4]byte
		copy(got[:], head)
		return "", &index.InvalidMagicError{Got: got}
	}
}

// WriteHeader writes the shared header (magic through model id) to w.
func WriteHeader(w io.Writer, magic string, dimensions, chunkCount int, modelID string) error {
	if _, err := io.WriteString(w, magic); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, FormatVersion); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, int32(dimensions)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, int32(chunkCount)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, ModelHash(modelID)); err != nil {
		return err
	}
	return WriteString(w, modelID)
}

// ReadHeader reads and validates the shared header, checking that the magic
// matches expectMagic and the format version is one this codec supports.
func ReadHeader(r io.Reader, expectMagic string) (Header, error) {
	magicBuf := make([]byte, 4)
	if _, err := io.ReadFull(r, magicBuf); err != nil {
		return Header{}, fmt.Errorf("codec: failed to read magic bytes: %w", err)
	}
	if string(magicBuf) != expectMagic {
		var got [4]byte
		copy(got[:], magicBuf)
		return Header{}, &index.InvalidMagicError{Got: got}
	}

	var version uint16
	if err := binary.Read(r, binary.BigEndian, &version); err != nil {
		return Header{}, fmt.Errorf("codec: failed to read format version: %w", err)
	}
	if version != FormatVersion {
		return Header{}, &index.UnsupportedFormatVersionError{Version: version}
	}

	var dims, chunkCount int32
	var modelHash int64
	if err := binary.Read(r, binary.BigEndian, &dims); err != nil {
		return Header{}, fmt.Errorf("codec: failed to read dimensions: %w", err)
	}
	if err := binary.Read(r, binary.BigEndian, &chunkCount); err != nil {
		return Header{}, fmt.Errorf("codec: failed to read chunk count: %w", err)
	}
	if err := binary.Read(r, binary.BigEndian, &modelHash); err != nil {
		return Header{}, fmt.Errorf("codec: failed to read model hash: %w", err)
	}
	modelID, err := ReadString(r)
	if err != nil {
		return Header{}, fmt.Errorf("codec: failed to read model id: %w", err)
	}

	return Header{
		Magic:         expectMagic,
		FormatVersion: version,
		Dimensions:    dims,
		ChunkCount:    chunkCount,
		ModelHash:     modelHash,
		ModelID:       modelID,
	}, nil
}

// WriteString writes a length-prefixed UTF-8 string: a two-byte unsigned
// length followed by that many bytes.
func WriteString(w io.Writer, s string) error {
	if len(s) > 0xFFFF {
		return fmt.Errorf("codec: string too long for length-prefixed encoding: %d bytes", len(s))
	}
	if err := binary.Write(w, binary.BigEndian, uint16(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

// ReadString reads a length-prefixed UTF-8 string written by WriteString.
func ReadString(r io.Reader) (string, error) {
	var length uint16
	if err := binary.Read(r, binary.BigEndian, &length); err != nil {
		return "", err
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// ModelHash derives the 64-bit sign-extension of the 32-bit hash of modelID,
// using the same multiplicative constants as Java's String.hashCode so that
// files produced by either implementation carry the same header value.
func ModelHash(modelID string) int64 {
	var h int32
	for _, u := range utf16.Encode([]rune(modelID)) {
		h = 31*h + int32(u)
	}
	return int64(h)
}

// chunkDTO is the on-disk JSON shape of a Chunk, using the verbatim keys
// mandated by the wire format.
type chunkDTO struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Type        string            `json:"type"`
	Code        string            `json:"code"`
	File        string            `json:"file"`
	LineStart   int               `json:"lineStart"`
	LineEnd     int               `json:"lineEnd"`
	ParentClass *string           `json:"parentClass"`
	Metadata    map[string]string `json:"metadata"`
	Artifact    *string           `json:"artifact"`
}

func toDTO(c chunk.Chunk) chunkDTO {
	dto := chunkDTO{
		ID:        c.ID,
		Name:      c.Name,
		Type:      string(c.Kind),
		Code:      c.Body,
		File:      c.File,
		LineStart: c.LineStart,
		LineEnd:   c.LineEnd,
		Metadata:  c.Metadata,
	}
	if c.ParentContainer != "" {
		pc := c.ParentContainer
		dto.ParentClass = &pc
	}
	if c.Artifact != "" {
		a := c.Artifact
		dto.Artifact = &a
	}
	return dto
}

func fromDTO(dto chunkDTO) chunk.Chunk {
	c := chunk.Chunk{
		ID:        dto.ID,
		Name:      dto.Name,
		Kind:      chunk.Kind(dto.Type),
		Body:      dto.Code,
		File:      dto.File,
		LineStart: dto.LineStart,
		LineEnd:   dto.LineEnd,
		Metadata:  dto.Metadata,
	}
	if c.Metadata == nil {
		c.Metadata = map[string]string{}
	}
	if dto.ParentClass != nil {
		c.ParentContainer = *dto.ParentClass
	}
	if dto.Artifact != nil {
		c.Artifact = *dto.Artifact
	}
	return c
}

// EncodeChunks marshals chunks to the JSON array format stored in
// chunks_json.
func EncodeChunks(chunks []chunk.Chunk) ([]byte, error) {
	dtos := make([]chunkDTO, len(chunks))
	for i, c := range chunks {
		dtos[i] = toDTO(c)
	}
	return json.Marshal(dtos)
}

// DecodeChunks unmarshals the chunks_json payload back into Chunk values.
func DecodeChunks(data []byte) ([]chunk.Chunk, error) {
	var dtos []chunkDTO
	if err := json.Unmarshal(data, &dtos); err != nil {
		return nil, fmt.Errorf("codec: failed to decode chunk JSON: %w", err)
	}
	chunks := make([]chunk.Chunk, len(dtos))
	for i, dto := range dtos {
		chunks[i] = fromDTO(dto)
	}
	return chunks, nil
}

// WriteChunksJSON writes the chunks_json_len + chunks_json framing.
func WriteChunksJSON(w io.Writer, chunks []chunk.Chunk) error {
	data, err := EncodeChunks(chunks)
	if err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, int32(len(data))); err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// ReadChunksJSON reads the chunks_json_len + chunks_json framing.
func ReadChunksJSON(r io.Reader) ([]chunk.Chunk, error) {
	var length int32
	if err := binary.Read(r, binary.BigEndian, &length); err != nil {
		return nil, fmt.Errorf("codec: failed to read chunks_json length: %w", err)
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("codec: failed to read chunks_json payload: %w", err)
	}
	return DecodeChunks(buf)
}

// WriteVectors writes chunk_count x dimensions x 4 bytes of raw float32
// data, in insertion order, for the brute-force variant.
func WriteVectors(w io.Writer, vectors [][]float32) error {
	for _, v := range vectors {
		for _, f := range v {
			if err := binary.Write(w, binary.BigEndian, f); err != nil {
				return err
			}
		}
	}
	return nil
}

// ReadVectors reads chunkCount vectors of the given dimensions from r.
func ReadVectors(r io.Reader, chunkCount, dimensions int) ([][]float32, error) {
	vectors := make([][]float32, chunkCount)
	for i := 0; i < chunkCount; i++ {
		v := make([]float32, dimensions)
		for j := 0; j < dimensions; j++ {
			if err := binary.Read(r, binary.BigEndian, &v[j]); err != nil {
				return nil, fmt.Errorf("codec: failed to read vector %d component %d: %w", i, j, err)
			}
		}
		vectors[i] = v
	}
	return vectors, nil
}

// WriteBlob writes a length-prefixed opaque byte blob, used for the graph
// image in the MHNS variant.
func WriteBlob(w io.Writer, blob []byte) error {
	if err := binary.Write(w, binary.BigEndian, int32(len(blob))); err != nil {
		return err
	}
	_, err := w.Write(blob)
	return err
}

// ReadBlob reads a length-prefixed opaque byte blob written by WriteBlob.
func ReadBlob(r io.Reader) ([]byte, error) {
	var length int32
	if err := binary.Read(r, binary.BigEndian, &length); err != nil {
		return nil, fmt.Errorf("codec: failed to read blob length: %w", err)
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("codec: failed to read blob payload: %w", err)
	}
	return buf, nil
}
