package devtools

import (
	"context"
	"testing"
)

func TestParseGoReturnsNonEmptyTree(t *testing.T) {
	p := NewParser()
	defer p.Close()

	tree, err := p.Parse(context.Background(), []byte("package main\n\nfunc main() {}\n"), "go")
	if err != nil {
		t.Fatal(err)
	}
	defer tree.Close()

	if tree.RootNode().ChildCount() == 0 {
		t.Fatal("expected a root node with children for a non-trivial source file")
	}
}

func TestParseRejectsUnsupportedLanguage(t *testing.T) {
	p := NewParser()
	defer p.Close()

	if _, err := p.Parse(context.Background(), []byte("x"), "cobol"); err == nil {
		t.Fatal("expected an error for an unsupported language")
	}
}

func TestParseRejectsEmptyContent(t *testing.T) {
	p := NewParser()
	defer p.Close()

	if _, err := p.Parse(context.Background(), nil, "go"); err == nil {
		t.Fatal("expected an error for empty content")
	}
}
