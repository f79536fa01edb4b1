// Package ingestion turns decision files into persisted, embedded cases:
// extraction, cleaning, metadata inference, section-aware chunking, embedding,
// and the atomic store write, plus the folder reindex driver.
package ingestion

import (
	"github.com/legalaide/legalaide-go/internal/parsing"
	"github.com/legalaide/legalaide-go/internal/rag"
)

// oversizeFactor is the segment-length multiple of the target size beyond
// which a segment is split into sliding windows instead of kept whole.
const oversizeFactor = 1.5

// ChunkText splits cleaned text into ordered chunk drafts. Segments small
// enough to keep whole become one chunk each; oversized segments are windowed
// and every window inherits the segment's label. Chunk indices are contiguous
// and match source-text order. When segmentation yields nothing usable the
// whole text is windowed as unlabeled chunks so no decision ingests empty.
func ChunkText(text string, targetTokens int, overlapRatio float64) []rag.ChunkDraft {
	var drafts []rag.ChunkDraft
	for _, segment := range parsing.SegmentByHeadings(text) {
		segTokens := parsing.TokenCount(segment.Text)
		if segTokens == 0 {
			continue
		}
		if float64(segTokens) <= float64(targetTokens)*oversizeFactor {
			drafts = appendDraft(drafts, segment.Label, segment.Text)
			continue
		}
		for _, window := range parsing.SlidingWindow(segment.Text, targetTokens, overlapRatio) {
			drafts = appendDraft(drafts, segment.Label, window)
		}
	}

	if len(drafts) == 0 {
		for _, window := range parsing.SlidingWindow(text, targetTokens, overlapRatio) {
			drafts = appendDraft(drafts, "", window)
		}
	}
	return drafts
}

// appendDraft adds a draft with the next sequential index and a recomputed
// token count.
func appendDraft(drafts []rag.ChunkDraft, label, text string) []rag.ChunkDraft {
	return append(drafts, rag.ChunkDraft{
		SectionLabel: label,
		Index:        len(drafts),
		Text:         text,
		TokenCount:   parsing.TokenCount(text),
	})
}
