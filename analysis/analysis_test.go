package analysis

import (
	"sort"
	"testing"

	"github.com/kumarlokesh/codevec/chunk"
)

func mustChunk(t *testing.T, id string) chunk.Chunk {
	t.Helper()
	c, err := chunk.New(id, id, chunk.KindMethod, "body", "f.go", 1, 2, "", nil)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

// scoresFromMatrix builds a ScoreFunc backed by a fixed symmetric matrix,
// so tests can exercise the grouping skeleton without a real similarity
// kernel.
func scoresFromMatrix(m [][]float32) ScoreFunc {
	return func(i, j int) float32 { return m[i][j] }
}

func TestFindDuplicatesGreedyFirstWins(t *testing.T) {
	entries := []chunk.Entry{
		{Chunk: mustChunk(t, "a")},
		{Chunk: mustChunk(t, "b")},
		{Chunk: mustChunk(t, "c")},
	}
	// a~b similar, b~c similar, a~c not similar: a claims b first, leaving
	// c ungrouped even though b would also match it.
	scores := scoresFromMatrix([][]float32{
		{1, 0.95, 0.10},
		{0.95, 1, 0.95},
		{0.10, 0.95, 1},
	})

	groups := FindDuplicates(entries, 0.9, scores)
	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d: %+v", len(groups), groups)
	}
	if len(groups[0].Chunks) != 2 || groups[0].Chunks[0].ID != "a" || groups[0].Chunks[1].ID != "b" {
		t.Fatalf("expected group {a, b} by first-wins order, got %+v", groups[0].Chunks)
	}
}

func TestFindDuplicatesNoMatches(t *testing.T) {
	entries := []chunk.Entry{{Chunk: mustChunk(t, "a")}, {Chunk: mustChunk(t, "b")}}
	scores := scoresFromMatrix([][]float32{{1, 0}, {0, 1}})
	if groups := FindDuplicates(entries, 0.9, scores); len(groups) != 0 {
		t.Fatalf("expected no groups, got %+v", groups)
	}
}

func TestFindAnomaliesRequiresFiveEntries(t *testing.T) {
	entries := make([]chunk.Entry, 4)
	for i := range entries {
		entries[i] = chunk.Entry{Chunk: mustChunk(t, string(rune('a'+i)))}
	}
	scores := func(i, j int) float32 { return 0 }
	if got := FindAnomalies(entries, 0.5, scores); got != nil {
		t.Fatalf("expected nil for fewer than 5 entries, got %v", got)
	}
}

func TestFindAnomaliesFlagsOutlier(t *testing.T) {
	entries := make([]chunk.Entry, 5)
	for i := range entries {
		entries[i] = chunk.Entry{Chunk: mustChunk(t, string(rune('a'+i)))}
	}
	// Entries 0-3 are mutually similar; entry 4 is dissimilar to everyone.
	m := [][]float32{
		{1, 0.9, 0.9, 0.9, 0.1},
		{0.9, 1, 0.9, 0.9, 0.1},
		{0.9, 0.9, 1, 0.9, 0.1},
		{0.9, 0.9, 0.9, 1, 0.1},
		{0.1, 0.1, 0.1, 0.1, 1},
	}
	got := FindAnomalies(entries, 0.5, scoresFromMatrix(m))
	if len(got) != 1 || got[0].ID != "e" {
		t.Fatalf("expected only chunk 'e' flagged as anomalous, got %+v", got)
	}
}

// neighborsFromMatrix builds a NeighborFunc that returns every other index
// as a candidate, ordered nearest-first by the given score matrix — a
// stand-in for a real graph search that a test can reason about exactly.
func neighborsFromMatrix(m [][]float32) NeighborFunc {
	return func(i, k int) []int {
		n := len(m)
		cand := make([]int, 0, n-1)
		for j := 0; j < n; j++ {
			if j != i {
				cand = append(cand, j)
			}
		}
		sort.Slice(cand, func(a, b int) bool { return m[i][cand[a]] > m[i][cand[b]] })
		if len(cand) > k {
			cand = cand[:k]
		}
		return cand
	}
}

func TestFindDuplicatesApproxMatchesFullScanWhenNeighborhoodCoversCorpus(t *testing.T) {
	entries := []chunk.Entry{
		{Chunk: mustChunk(t, "a")},
		{Chunk: mustChunk(t, "b")},
		{Chunk: mustChunk(t, "c")},
	}
	m := [][]float32{
		{1, 0.95, 0.10},
		{0.95, 1, 0.95},
		{0.10, 0.95, 1},
	}
	scores := scoresFromMatrix(m)
	neighbors := neighborsFromMatrix(m)

	got := FindDuplicatesApprox(entries, 0.9, neighbors, scores)
	want := FindDuplicates(entries, 0.9, scores)
	if len(got) != len(want) || len(got) != 1 || len(got[0].Chunks) != len(want[0].Chunks) {
		t.Fatalf("expected FindDuplicatesApprox to match the full scan when every neighbor is visible, got %+v want %+v", got, want)
	}
}

func TestFindDuplicatesApproxIgnoresCandidatesOutsideNeighborhood(t *testing.T) {
	entries := []chunk.Entry{
		{Chunk: mustChunk(t, "a")},
		{Chunk: mustChunk(t, "b")},
	}
	scores := scoresFromMatrix([][]float32{{1, 0.99}, {0.99, 1}})
	neighbors := func(i, k int) []int { return nil }

	if got := FindDuplicatesApprox(entries, 0.9, neighbors, scores); len(got) != 0 {
		t.Fatalf("expected no groups when the neighbor function surfaces no candidates, got %+v", got)
	}
}

func TestFindAnomaliesApproxRequiresFiveEntries(t *testing.T) {
	entries := make([]chunk.Entry, 4)
	for i := range entries {
		entries[i] = chunk.Entry{Chunk: mustChunk(t, string(rune('a'+i)))}
	}
	neighbors := func(i, k int) []int { return nil }
	scores := func(i, j int) float32 { return 0 }
	if got := FindAnomaliesApprox(entries, 0.5, neighbors, scores); got != nil {
		t.Fatalf("expected nil for fewer than 5 entries, got %v", got)
	}
}

func TestFindAnomaliesApproxFlagsOutlierAmongNeighbors(t *testing.T) {
	entries := make([]chunk.Entry, 5)
	for i := range entries {
		entries[i] = chunk.Entry{Chunk: mustChunk(t, string(rune('a'+i)))}
	}
	m := [][]float32{
		{1, 0.9, 0.9, 0.9, 0.1},
		{0.9, 1, 0.9, 0.9, 0.1},
		{0.9, 0.9, 1, 0.9, 0.1},
		{0.9, 0.9, 0.9, 1, 0.1},
		{0.1, 0.1, 0.1, 0.1, 1},
	}
	scores := scoresFromMatrix(m)
	neighbors := neighborsFromMatrix(m)

	got := FindAnomaliesApprox(entries, 0.5, neighbors, scores)
	if len(got) != 1 || got[0].ID != "e" {
		t.Fatalf("expected only chunk 'e' flagged as anomalous, got %+v", got)
	}
}
