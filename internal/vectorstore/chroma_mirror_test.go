package vectorstore

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewChromaMirrorBuildsClientWithoutNetworkCall(t *testing.T) {
	m, err := NewChromaMirror("http://localhost:8000", "", "codevec", zerolog.Nop())
	if err != nil {
		t.Fatalf("NewChromaMirror should not need a live server to construct: %v", err)
	}
	if m.collectionName != "codevec" {
		t.Errorf("expected collection name %q, got %q", "codevec", m.collectionName)
	}
}

func TestMirrorNoopsOnEmptyEntries(t *testing.T) {
	m, err := NewChromaMirror("http://localhost:8000", "", "codevec", zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Mirror(context.Background(), nil); err != nil {
		t.Fatalf("expected Mirror to no-op on an empty entry slice, got %v", err)
	}
}
