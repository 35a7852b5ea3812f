// Package devtools holds the tree-sitter-backed chunk extractor used to
// build demo fixtures and local smoke-test corpora for codevec-cli. It is
// not part of codevec's search or merge path — those operate purely on
// chunk.Chunk and []float32 vectors supplied by the caller — but every
// working corpus needs some way to get from source files to chunks, and
// this is codevec-cli's.
package devtools

import (
	"path/filepath"
	"strings"
)

// fileType pairs a language name with the file extensions that identify it.
type fileType struct {
	name       string
	extensions []string
}

var defaultFileTypes = []fileType{
	{"go", []string{".go"}},
	{"python", []string{".py"}},
	{"javascript", []string{".js", ".jsx"}},
	{"typescript", []string{".ts", ".tsx"}},
}

// LanguageDetector maps a file extension to the tree-sitter grammar name
// that should parse it.
type LanguageDetector struct {
	extensionMap map[string]string
}

// NewLanguageDetector builds a LanguageDetector from the default extension
// table.
func NewLanguageDetector() *LanguageDetector {
	extMap := make(map[string]string)
	for _, ft := range defaultFileTypes {
		for _, ext := range ft.extensions {
			extMap[ext] = ft.name
		}
	}
	return &LanguageDetector{extensionMap: extMap}
}

// Detect returns the language name for path's extension, or "" if it is
// not one devtools knows how to parse.
func (d *LanguageDetector) Detect(path string) string {
	return d.extensionMap[strings.ToLower(filepath.Ext(path))]
}
