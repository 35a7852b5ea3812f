package chunk

import "testing"

func TestNewValidatesLineRange(t *testing.T) {
	if _, err := New("c1", "Foo", KindMethod, "body", "f.go", 0, 5, "", nil); err == nil {
		t.Fatal("expected error for lineStart < 1")
	}
	if _, err := New("c1", "Foo", KindMethod, "body", "f.go", 5, 3, "", nil); err == nil {
		t.Fatal("expected error for lineEnd < lineStart")
	}
	if _, err := New("c1", "Foo", KindMethod, "body", "f.go", 1, 1, "", nil); err != nil {
		t.Fatalf("unexpected error for a valid single-line chunk: %v", err)
	}
}

func TestQualifiedName(t *testing.T) {
	c, err := New("c1", "bar", KindMethod, "body", "f.go", 1, 2, "Foo", nil)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := c.QualifiedName(), "Foo.bar"; got != want {
		t.Errorf("QualifiedName() = %q, want %q", got, want)
	}

	top, err := New("c2", "baz", KindMethod, "body", "f.go", 1, 2, "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := top.QualifiedName(), "baz"; got != want {
		t.Errorf("QualifiedName() = %q, want %q", got, want)
	}
}

func TestTruncatedCode(t *testing.T) {
	c, err := New("c1", "foo", KindMethod, "0123456789", "f.go", 1, 1, "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := c.TruncatedCode(20); got != "0123456789" {
		t.Errorf("expected untruncated body under limit, got %q", got)
	}
	if got, want := c.TruncatedCode(6), "012..."; got != want {
		t.Errorf("TruncatedCode(6) = %q, want %q", got, want)
	}
}

func TestWithArtifactDoesNotMutateOriginal(t *testing.T) {
	c, err := New("c1", "foo", KindMethod, "body", "f.go", 1, 1, "", map[string]string{"k": "v"})
	if err != nil {
		t.Fatal(err)
	}
	stamped := c.WithArtifact("com.example:lib:1.0")
	if c.Artifact != "" {
		t.Fatalf("expected original chunk's Artifact to remain empty, got %q", c.Artifact)
	}
	if stamped.Artifact != "com.example:lib:1.0" {
		t.Fatalf("expected stamped chunk to carry artifact coordinates, got %q", stamped.Artifact)
	}
	stamped.Metadata["k"] = "changed"
	if c.Metadata["k"] != "v" {
		t.Fatal("expected WithArtifact to deep-copy metadata, not share it with the original")
	}
}
