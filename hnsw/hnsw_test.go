package hnsw

import (
	"bytes"
	"fmt"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/kumarlokesh/codevec/chunk"
	"github.com/kumarlokesh/codevec/index"
)

// randomUnitVector returns a deterministic pseudo-random unit vector of the
// given dimension, drawn from r and normalized to unit L2 length.
func randomUnitVector(r *rand.Rand, dim int) []float32 {
	v := make([]float32, dim)
	var sumSq float64
	for i := range v {
		x := r.Float64()*2 - 1
		v[i] = float32(x)
		sumSq += x * x
	}
	norm := float32(math.Sqrt(sumSq))
	if norm == 0 {
		norm = 1
	}
	for i := range v {
		v[i] /= norm
	}
	return v
}

func runWithTimeout(t *testing.T, timeout time.Duration, fn func(*testing.T)) {
	done := make(chan struct{})
	go func() {
		fn(t)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		t.Fatal("test timed out")
	}
}

func mustChunk(t *testing.T, id string) chunk.Chunk {
	t.Helper()
	c, err := chunk.New(id, id, chunk.KindMethod, "body of "+id, "f.go", 1, 2, "", nil)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestInsertAndSearchFindsNearestUnitVector(t *testing.T) {
	runWithTimeout(t, 10*time.Second, func(t *testing.T) {
		idx, err := New(index.Config{ModelID: "m", Dimensions: 4, M: 4, EfConstruction: 20, EfSearch: 20})
		if err != nil {
			t.Fatal(err)
		}
		vectors := [][]float32{
			{1, 0, 0, 0},
			{0, 1, 0, 0},
			{0, 0, 1, 0},
			{0, 0, 0, 1},
		}
		for i, v := range vectors {
			id := string(rune('a' + i))
			if err := idx.Add(mustChunk(t, id), v); err != nil {
				t.Fatal(err)
			}
		}

		results, err := idx.Search([]float32{0.9, 0.1, 0.1, 0.1}, 1)
		if err != nil {
			t.Fatal(err)
		}
		if len(results) == 0 {
			t.Fatal("expected at least one result")
		}
		if results[0].Chunk.ID != "a" {
			t.Errorf("expected nearest neighbor to be chunk %q, got %q", "a", results[0].Chunk.ID)
		}
	})
}

func TestSaveLoadRoundTripPreservesSearch(t *testing.T) {
	runWithTimeout(t, 10*time.Second, func(t *testing.T) {
		idx, err := New(index.Config{ModelID: "m", Dimensions: 3, M: 4, EfConstruction: 20, EfSearch: 20})
		if err != nil {
			t.Fatal(err)
		}
		if err := idx.Add(mustChunk(t, "a"), []float32{1, 0, 0}); err != nil {
			t.Fatal(err)
		}
		if err := idx.Add(mustChunk(t, "b"), []float32{0, 1, 0}); err != nil {
			t.Fatal(err)
		}
		if err := idx.Add(mustChunk(t, "c"), []float32{0, 0, 1}); err != nil {
			t.Fatal(err)
		}

		var buf bytes.Buffer
		if err := idx.Save(&buf); err != nil {
			t.Fatal(err)
		}

		loaded, err := Load(&buf)
		if err != nil {
			t.Fatal(err)
		}
		if loaded.Size() != 3 {
			t.Fatalf("expected 3 entries after load, got %d", loaded.Size())
		}

		results, err := loaded.Search([]float32{1, 0, 0}, 1)
		if err != nil {
			t.Fatal(err)
		}
		if len(results) != 1 || results[0].Chunk.ID != "a" {
			t.Fatalf("unexpected search result after load: %+v", results)
		}
	})
}

func TestAddRejectsDuplicateChunkID(t *testing.T) {
	idx, err := New(index.Default("m", 2))
	if err != nil {
		t.Fatal(err)
	}
	if err := idx.Add(mustChunk(t, "a"), []float32{1, 0}); err != nil {
		t.Fatal(err)
	}
	if err := idx.Add(mustChunk(t, "a"), []float32{0, 1}); err == nil {
		t.Fatal("expected an error for a duplicate chunk id")
	}
}

func TestMergeSkipsDuplicateIdsFirstWins(t *testing.T) {
	runWithTimeout(t, 10*time.Second, func(t *testing.T) {
		a, err := New(index.Default("m", 2))
		if err != nil {
			t.Fatal(err)
		}
		if err := a.Add(mustChunk(t, "shared"), []float32{1, 0}); err != nil {
			t.Fatal(err)
		}

		b, err := New(index.Default("m", 2))
		if err != nil {
			t.Fatal(err)
		}
		if err := b.Add(mustChunk(t, "shared"), []float32{0, 1}); err != nil {
			t.Fatal(err)
		}
		if err := b.Add(mustChunk(t, "unique"), []float32{0, 1}); err != nil {
			t.Fatal(err)
		}

		if err := a.Merge(b); err != nil {
			t.Fatalf("expected merge with an overlapping id to succeed by skipping it, got error: %v", err)
		}
		if a.Size() != 2 {
			t.Fatalf("expected 2 entries after merge (1 skipped duplicate + 1 new), got %d", a.Size())
		}

		results, err := a.Search([]float32{1, 0}, 1)
		if err != nil {
			t.Fatal(err)
		}
		if len(results) != 1 || results[0].Chunk.ID != "shared" {
			t.Fatalf("expected first-wins entry for %q to remain, got %+v", "shared", results)
		}
		if results[0].Similarity < 0.99 {
			t.Fatalf("expected the original vector for %q to be kept, got similarity %f", "shared", results[0].Similarity)
		}
	})
}

func TestFindDuplicatesGroupsSimilarChunksViaGraphNeighborhood(t *testing.T) {
	runWithTimeout(t, 10*time.Second, func(t *testing.T) {
		idx, err := New(index.Config{ModelID: "m", Dimensions: 2, M: 4, EfConstruction: 20, EfSearch: 20})
		if err != nil {
			t.Fatal(err)
		}
		if err := idx.Add(mustChunk(t, "a"), []float32{1, 0}); err != nil {
			t.Fatal(err)
		}
		if err := idx.Add(mustChunk(t, "b"), []float32{1, 0}); err != nil {
			t.Fatal(err)
		}
		if err := idx.Add(mustChunk(t, "c"), []float32{0, 1}); err != nil {
			t.Fatal(err)
		}

		groups := idx.FindDuplicates(0.99)
		if len(groups) != 1 {
			t.Fatalf("expected 1 duplicate group, got %d: %+v", len(groups), groups)
		}
		if groups[0].Count != 2 {
			t.Fatalf("expected duplicate group of 2, got %d", groups[0].Count)
		}
	})
}

func TestFindAnomaliesRequiresFiveEntries(t *testing.T) {
	runWithTimeout(t, 10*time.Second, func(t *testing.T) {
		idx, err := New(index.Config{ModelID: "m", Dimensions: 2, M: 4, EfConstruction: 20, EfSearch: 20})
		if err != nil {
			t.Fatal(err)
		}
		for i := 0; i < 4; i++ {
			if err := idx.Add(mustChunk(t, string(rune('a'+i))), []float32{1, 0}); err != nil {
				t.Fatal(err)
			}
		}
		if got := idx.FindAnomalies(0.5); got != nil {
			t.Fatalf("expected no anomalies with fewer than 5 entries, got %v", got)
		}
	})
}

func TestFindAnomaliesFlagsOutlierViaGraphNeighborhood(t *testing.T) {
	runWithTimeout(t, 10*time.Second, func(t *testing.T) {
		idx, err := New(index.Config{ModelID: "m", Dimensions: 2, M: 4, EfConstruction: 20, EfSearch: 20})
		if err != nil {
			t.Fatal(err)
		}
		cluster := [][2]float32{{1, 0}, {0.99, 0.01}, {0.98, 0.02}, {0.97, 0.03}}
		for i, v := range cluster {
			id := string(rune('a' + i))
			if err := idx.Add(mustChunk(t, id), []float32{v[0], v[1]}); err != nil {
				t.Fatal(err)
			}
		}
		if err := idx.Add(mustChunk(t, "outlier"), []float32{0, 1}); err != nil {
			t.Fatal(err)
		}

		anomalies := idx.FindAnomalies(0.5)
		found := false
		for _, c := range anomalies {
			if c.ID == "outlier" {
				found = true
			}
		}
		if !found {
			t.Fatalf("expected chunk %q to be flagged as an anomaly, got %+v", "outlier", anomalies)
		}
	})
}

// TestScaleTwentyChunks128DimSaveLoadQuery builds a graph of 20 random
// 128-dim unit vectors (a corpus as large as minSearchWidth), saves and
// reloads it, and checks that querying with a stored vector returns that
// chunk first among k=5 results sorted by descending similarity. With
// EfSearch 40 the search width exceeds the corpus size, so this test does
// not exercise eviction from a full results set.
func TestScaleTwentyChunks128DimSaveLoadQuery(t *testing.T) {
	runWithTimeout(t, 30*time.Second, func(t *testing.T) {
		const dim = 128
		const n = 20

		idx, err := New(index.Config{ModelID: "m", Dimensions: dim, M: 8, EfConstruction: 40, EfSearch: 40})
		if err != nil {
			t.Fatal(err)
		}

		r := rand.New(rand.NewSource(7))
		vectors := make([][]float32, n)
		for i := 0; i < n; i++ {
			vectors[i] = randomUnitVector(r, dim)
			id := fmt.Sprintf("chunk-%02d", i)
			if err := idx.Add(mustChunk(t, id), vectors[i]); err != nil {
				t.Fatal(err)
			}
		}

		var buf bytes.Buffer
		if err := idx.Save(&buf); err != nil {
			t.Fatal(err)
		}
		loaded, err := Load(&buf)
		if err != nil {
			t.Fatal(err)
		}
		if loaded.Size() != n {
			t.Fatalf("expected %d entries after load, got %d", n, loaded.Size())
		}

		queryIdx := 5
		results, err := loaded.Search(vectors[queryIdx], 5)
		if err != nil {
			t.Fatal(err)
		}
		if len(results) != 5 {
			t.Fatalf("expected 5 results for k=5, got %d", len(results))
		}

		wantID := fmt.Sprintf("chunk-%02d", queryIdx)
		if results[0].Chunk.ID != wantID {
			t.Fatalf("expected the query's own vector to be its own nearest neighbor (%q), got %q with similarity %f",
				wantID, results[0].Chunk.ID, results[0].Similarity)
		}
		for i := 1; i < len(results); i++ {
			if results[i-1].Similarity < results[i].Similarity {
				t.Fatalf("expected results sorted by descending similarity, got %+v", results)
			}
		}
	})
}
