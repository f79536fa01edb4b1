package rag

import (
	"math"
	"testing"
)

func candidate(id int64, distance float64, text string) RankedChunk {
	return RankedChunk{ChunkID: id, CaseID: id, Text: text, Distance: distance}
}

func TestRerankEmpty(t *testing.T) {
	t.Parallel()
	if got := Rerank(nil, 0.6, 5); got != nil {
		t.Errorf("Rerank(nil) = %v, want nil", got)
	}
}

func TestRerankFirstPickIsMostRelevant(t *testing.T) {
	t.Parallel()

	cands := []RankedChunk{
		candidate(1, 0.10, "the ruling on appeal"),
		candidate(2, 0.25, "costs of the suit"),
		candidate(3, 0.40, "procedural history"),
	}
	got := Rerank(cands, 0.6, 2)
	if len(got) == 0 || got[0].ChunkID != 1 {
		t.Fatalf("first pick = %+v, want chunk 1 (lowest distance)", got)
	}
}

func TestRerankRespectsLimit(t *testing.T) {
	t.Parallel()

	cands := []RankedChunk{
		candidate(1, 0.1, "a b c"),
		candidate(2, 0.2, "d e f"),
		candidate(3, 0.3, "g h i"),
		candidate(4, 0.4, "j k l"),
	}
	got := Rerank(cands, 0.6, 2)
	if len(got) != 2 {
		t.Errorf("len = %d, want 2", len(got))
	}
	got = Rerank(cands, 0.6, 10)
	if len(got) != 4 {
		t.Errorf("limit beyond input: len = %d, want 4", len(got))
	}
}

func TestRerankNoDuplicateChunkIDs(t *testing.T) {
	t.Parallel()

	// The store should never emit duplicates, but the reranker must still
	// guarantee a duplicate-free result.
	cands := []RankedChunk{
		candidate(7, 0.1, "same chunk delivered twice"),
		candidate(7, 0.1, "same chunk delivered twice"),
		candidate(8, 0.2, "another chunk"),
	}
	got := Rerank(cands, 0.6, 5)
	seen := map[int64]bool{}
	for _, c := range got {
		if seen[c.ChunkID] {
			t.Fatalf("duplicate chunk ID %d in output", c.ChunkID)
		}
		seen[c.ChunkID] = true
	}
	if len(got) != 2 {
		t.Errorf("len = %d, want 2 distinct chunks", len(got))
	}
}

func TestRerankPrefersDiverseSecondPick(t *testing.T) {
	t.Parallel()

	// Chunk 2 is nearer but nearly identical to chunk 1; chunk 3 is slightly
	// farther but lexically disjoint. With meaningful diversity weighting the
	// second pick should be the disjoint chunk.
	cands := []RankedChunk{
		candidate(1, 0.10, "the accused was convicted of estafa under article 315"),
		candidate(2, 0.11, "the accused was convicted of estafa under article 315 too"),
		candidate(3, 0.13, "bail pending appeal denied for humanitarian reasons"),
	}
	got := Rerank(cands, 0.5, 2)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[1].ChunkID != 3 {
		t.Errorf("second pick = %d, want 3 (diverse)", got[1].ChunkID)
	}
}

func TestRerankTieBreaksByInputOrder(t *testing.T) {
	t.Parallel()

	cands := []RankedChunk{
		candidate(5, 0.2, "x y z"),
		candidate(6, 0.2, "p q r"),
	}
	got := Rerank(cands, 0.6, 1)
	if len(got) != 1 || got[0].ChunkID != 5 {
		t.Errorf("tie must resolve to first occurrence, got %+v", got)
	}
}

func TestTokenOverlap(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"identical", "a b c", "a b c", 1.0},
		{"disjoint", "a b c", "x y z", 0.0},
		{"empty side", "", "a b", 0.0},
		{"case insensitive", "RULING granted", "ruling GRANTED", 1.0},
		{"partial", "a b c d", "a b x y", 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := tokenOverlap(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("tokenOverlap(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
			if back := tokenOverlap(tt.b, tt.a); math.Abs(back-got) > 1e-9 {
				t.Errorf("tokenOverlap not symmetric: %v vs %v", got, back)
			}
		})
	}
}
