package devtools

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/kumarlokesh/codevec/chunk"
)

// Chunker extracts top-level declarations from a source file into
// chunk.Chunk records, for use as demo or smoke-test fixtures. It
// recognizes Go, Python, and JavaScript/TypeScript at the tree-sitter
// grammar level; any other language falls back to treating the whole file
// as a single chunk.
type Chunker struct {
	parser   *Parser
	detector *LanguageDetector
}

// NewChunker builds a Chunker with its own Parser and LanguageDetector.
func NewChunker() *Chunker {
	return &Chunker{parser: NewParser(), detector: NewLanguageDetector()}
}

// Close releases the Chunker's parser.
func (c *Chunker) Close() { c.parser.Close() }

// ChunkFile splits content into chunks. filePath is used only for id
// generation and the resulting chunks' File field.
func (c *Chunker) ChunkFile(ctx context.Context, filePath string, content []byte) ([]chunk.Chunk, error) {
	if len(content) == 0 {
		return nil, nil
	}

	language := c.detector.Detect(filePath)
	if language == "" {
		return []chunk.Chunk{wholeFileChunk(filePath, content)}, nil
	}

	tree, err := c.parser.Parse(ctx, content, language)
	if err != nil {
		return nil, fmt.Errorf("devtools: failed to parse %s: %w", filePath, err)
	}
	defer tree.Close()

	var chunks []chunk.Chunk
	switch language {
	case "go":
		chunks = chunkGo(tree.RootNode(), content, filePath)
	default:
		chunks = chunkGeneric(tree.RootNode(), content, filePath, language)
	}
	if len(chunks) == 0 {
		return []chunk.Chunk{wholeFileChunk(filePath, content)}, nil
	}
	return chunks, nil
}

func wholeFileChunk(filePath string, content []byte) chunk.Chunk {
	c, _ := chunk.New(
		chunkID(filePath, 1, 1, 0, uint32(len(content))),
		filepath.Base(filePath),
		chunk.KindClass,
		string(content),
		filePath,
		1, maxInt(1, lineCount(content)),
		"",
		map[string]string{"node_type": "file"},
	)
	return c
}

func chunkGo(root *sitter.Node, content []byte, filePath string) []chunk.Chunk {
	var chunks []chunk.Chunk
	for i := 0; i < int(root.ChildCount()); i++ {
		child := root.Child(i)
		if child == nil {
			continue
		}
		switch child.Type() {
		case "function_declaration":
			chunks = append(chunks, buildChunk(child, content, filePath, chunk.KindMethod, ""))
		case "type_declaration":
			typeSpec := findFirstChildOfType(child, "type_spec")
			kind := chunk.KindClass
			if typeSpec != nil && findFirstChildOfType(typeSpec, "interface_type") != nil {
				kind = chunk.KindInterface
			}
			chunks = append(chunks, buildChunk(child, content, filePath, kind, ""))
		case "method_declaration":
			chunks = append(chunks, buildChunk(child, content, filePath, chunk.KindMethod, ""))
		}
	}
	return chunks
}

// chunkGeneric extracts nothing language-specific; it exists so that
// languages whose grammar is loaded but not yet given dedicated handling
// (Python, JavaScript, TypeScript) still degrade to a single file chunk
// rather than an error.
func chunkGeneric(root *sitter.Node, content []byte, filePath, _ string) []chunk.Chunk {
	return nil
}

func buildChunk(n *sitter.Node, content []byte, filePath string, kind chunk.Kind, parent string) chunk.Chunk {
	startLine, endLine := nodePosition(n)
	body := formatNode(n, content)
	name := fmt.Sprintf("%s_%d", kind, startLine)
	c, err := chunk.New(
		chunkID(filePath, startLine, endLine, n.StartByte(), n.EndByte()),
		name, kind, body, filePath, startLine, endLine, parent, nil,
	)
	if err != nil {
		return chunk.Chunk{}
	}
	return c
}

func chunkID(filePath string, startLine, endLine int, startByte, endByte uint32) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%d:%d:%d:%d", filePath, startLine, endLine, startByte, endByte)))
	return hex.EncodeToString(sum[:8])
}

func lineCount(content []byte) int {
	count := 1
	for _, b := range content {
		if b == '\n' {
			count++
		}
	}
	return count
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
