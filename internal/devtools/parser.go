package devtools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
)

// Parser wraps a tree-sitter parser configured with one grammar at a time.
// Concurrent Parse calls are serialized by an internal mutex.
type Parser struct {
	parser *sitter.Parser
	mutex  sync.Mutex
}

// NewParser creates a Parser with no grammar selected yet.
func NewParser() *Parser {
	p := sitter.NewParser()
	if p == nil {
		panic("devtools: failed to create tree-sitter parser")
	}
	return &Parser{parser: p}
}

func languageForName(name string) (*sitter.Language, error) {
	switch strings.ToLower(name) {
	case "go":
		return golang.GetLanguage(), nil
	case "python":
		return python.GetLanguage(), nil
	case "javascript", "typescript":
		return javascript.GetLanguage(), nil
	default:
		return nil, fmt.Errorf("devtools: unsupported language %q", name)
	}
}

// Parse parses content as language, returning its syntax tree.
func (p *Parser) Parse(ctx context.Context, content []byte, language string) (*sitter.Tree, error) {
	if len(content) == 0 {
		return nil, errors.New("devtools: empty content provided for parsing")
	}
	lang, err := languageForName(language)
	if err != nil {
		return nil, err
	}

	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.parser.SetLanguage(lang)

	tree, err := p.parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("devtools: failed to parse content: %w", err)
	}
	if tree == nil {
		return nil, errors.New("devtools: parsing produced a nil tree")
	}
	log.Debug().Str("language", language).Int("bytes", len(content)).Msg("parsed source into syntax tree")
	return tree, nil
}

// Close releases the underlying tree-sitter parser.
func (p *Parser) Close() {
	if p.parser != nil {
		p.parser.Close()
	}
}

func nodeContent(content []byte, n *sitter.Node) string {
	return string(content[n.StartByte():n.EndByte()])
}

func nodePosition(n *sitter.Node) (startLine, endLine int) {
	return int(n.StartPoint().Row) + 1, int(n.EndPoint().Row) + 1
}

func findFirstChildOfType(n *sitter.Node, types ...string) *sitter.Node {
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child == nil {
			continue
		}
		for _, t := range types {
			if child.Type() == t {
				return child
			}
		}
	}
	return nil
}

// formatNode returns a node's source text with its common leading
// indentation stripped.
func formatNode(n *sitter.Node, content []byte) string {
	lines := strings.Split(nodeContent(content, n), "\n")
	if len(lines) == 0 {
		return ""
	}

	minIndent := ""
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
		if minIndent == "" || len(indent) < len(minIndent) {
			minIndent = indent
		}
	}

	var out bytes.Buffer
	for i, line := range lines {
		if strings.TrimSpace(line) != "" {
			line = strings.TrimPrefix(line, minIndent)
		}
		out.WriteString(line)
		if i < len(lines)-1 {
			out.WriteString("\n")
		}
	}
	return out.String()
}
