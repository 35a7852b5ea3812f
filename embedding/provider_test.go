package embedding

import (
	"context"
	"testing"
)

func TestStaticEmbedReturnsRegisteredVector(t *testing.T) {
	p := NewStatic(map[string][]float32{"hello": {1, 2, 3}})
	v, err := p.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatal(err)
	}
	if len(v) != 3 || v[0] != 1 || v[1] != 2 || v[2] != 3 {
		t.Fatalf("unexpected vector: %v", v)
	}
}

func TestStaticEmbedUnknownText(t *testing.T) {
	p := NewStatic(nil)
	if _, err := p.Embed(context.Background(), "missing"); err == nil {
		t.Fatal("expected an error for an unregistered query")
	}
}

func TestStaticEmbedReturnsCopyNotAlias(t *testing.T) {
	p := NewStatic(map[string][]float32{"x": {1, 2}})
	v, err := p.Embed(context.Background(), "x")
	if err != nil {
		t.Fatal(err)
	}
	v[0] = 99
	v2, err := p.Embed(context.Background(), "x")
	if err != nil {
		t.Fatal(err)
	}
	if v2[0] != 1 {
		t.Fatalf("expected internal vector to be unaffected by caller mutation, got %v", v2[0])
	}
}
