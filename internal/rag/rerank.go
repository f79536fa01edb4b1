package rag

import (
	"math"
	"strings"
)

// defaultDiversityWeight is the MMR λ used when the caller passes 0.
// Higher values favour relevance, lower values favour diversity.
const defaultDiversityWeight = 0.6

// Rerank applies maximal-marginal-relevance selection over candidates that
// arrive pre-sorted by ascending distance. At each step every unselected
// candidate is scored as
//
//	λ × (−distance) − (1−λ) × min(similarity(candidate, selected))
//
// and the highest score wins, ties broken by input order. The penalty term is
// zero while nothing is selected, so the first pick is always the most
// relevant candidate. The result never contains a repeated chunk ID and holds
// at most limit items. limit ≤ 0 means "no cap".
func Rerank(candidates []RankedChunk, diversityWeight float64, limit int) []RankedChunk {
	if len(candidates) == 0 {
		return nil
	}
	if diversityWeight == 0 {
		diversityWeight = defaultDiversityWeight
	}
	if limit <= 0 || limit > len(candidates) {
		limit = len(candidates)
	}

	selected := make([]RankedChunk, 0, limit)
	remaining := make([]RankedChunk, len(candidates))
	copy(remaining, candidates)
	seen := make(map[int64]bool, limit)

	for len(remaining) > 0 && len(selected) < limit {
		bestIdx := -1
		bestScore := math.Inf(-1)
		for i, cand := range remaining {
			if seen[cand.ChunkID] {
				continue
			}
			relevance := -cand.Distance
			diversity := 0.0
			if len(selected) > 0 {
				diversity = math.Inf(1)
				for _, chosen := range selected {
					if sim := tokenOverlap(cand.Text, chosen.Text); sim < diversity {
						diversity = sim
					}
				}
			}
			score := diversityWeight*relevance - (1-diversityWeight)*diversity
			if score > bestScore {
				bestScore = score
				bestIdx = i
			}
		}
		if bestIdx < 0 {
			break
		}
		chosen := remaining[bestIdx]
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
		seen[chosen.ChunkID] = true
		selected = append(selected, chosen)
	}

	return selected
}

// tokenOverlap is a lightweight similarity proxy between two chunk texts:
// the shared-token set size divided by the geometric mean of the two token
// set sizes. It stands in for embedding-space similarity until a semantic
// measure replaces it; the MMR scoring above does not depend on which one
// is used.
func tokenOverlap(a, b string) float64 {
	tokensA := tokenSet(a)
	tokensB := tokenSet(b)
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0
	}
	overlap := 0
	for tok := range tokensA {
		if tokensB[tok] {
			overlap++
		}
	}
	return float64(overlap) / math.Sqrt(float64(len(tokensA))*float64(len(tokensB)))
}

// tokenSet lower-cases and whitespace-splits text into a token set.
func tokenSet(text string) map[string]bool {
	fields := strings.Fields(strings.ToLower(text))
	set := make(map[string]bool, len(fields))
	for _, f := range fields {
		set[f] = true
	}
	return set
}
