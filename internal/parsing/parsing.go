// Package parsing provides the pure text heuristics used by the ingestion
// pipeline: whitespace normalisation, docket-metadata extraction, heading
// segmentation, and token-windowed splitting. Every function is stateless and
// operates on immutable input so the pipeline stages stay trivially testable.
package parsing

import (
	"regexp"
	"strings"
	"time"
)

// DefaultCourt is the jurisdiction label assigned to every ingested decision.
// The corpus currently targets a single court.
const DefaultCourt = "PH Supreme Court"

// dateLayout parses promulgation dates of the form "January 2, 2006".
const dateLayout = "January 2, 2006"

// caseNumberRe matches G.R. docket numbers, tolerating internal whitespace.
var caseNumberRe = regexp.MustCompile(`(?i)G\.\s*R\.\s*No\.\s*[\w-]+`)

// dateRe matches the first month-name + day + year occurrence.
var dateRe = regexp.MustCompile(`(?i)(January|February|March|April|May|June|July|August|September|October|November|December)\s+\d{1,2},\s+\d{4}`)

// sectionHeaders is the fixed heading vocabulary recognised by Segment.
var sectionHeaders = []string{
	"FACTS",
	"FACT",
	"ISSUE",
	"ISSUES",
	"RULING",
	"DECISION",
	"DOCTRINE",
	"SYLLABUS",
	"DISPOSITION",
	"WHEREFORE",
	"BACKGROUND",
}

// sectionRe matches a line consisting of exactly one section heading,
// optionally followed by a colon, with no other content.
var sectionRe = regexp.MustCompile(
	`(?im)^[ \t]*(` + strings.Join(sectionHeaders, "|") + `)[ \t]*:?[ \t]*$`,
)

// digitsRe matches lines composed solely of digits (isolated page numbers).
var digitsRe = regexp.MustCompile(`^\d+$`)

// multiNewlineRe matches runs of 3+ consecutive newlines.
var multiNewlineRe = regexp.MustCompile(`\n{3,}`)

// Clean normalises whitespace and drops obvious page-number artifacts.
// Per line: trim, skip digit-only lines, keep blank lines for section
// boundaries. Runs of 3+ newlines collapse to exactly 2 and the result is
// trimmed. Clean is deterministic and idempotent.
func Clean(text string) string {
	var lines []string
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			lines = append(lines, "")
			continue
		}
		if digitsRe.MatchString(line) {
			continue // isolated page number
		}
		lines = append(lines, line)
	}
	normalized := strings.Join(lines, "\n")
	normalized = multiNewlineRe.ReplaceAllString(normalized, "\n\n")
	return strings.TrimSpace(normalized)
}

// Metadata holds the best-effort fields inferred from a decision's text.
// Any field may be empty — these are heuristics, not guarantees.
type Metadata struct {
	// CaseNumber is the first G.R. docket number found, or "".
	CaseNumber string
	// Title is the first non-empty line of the text, or "".
	Title string
	// Court is the fixed jurisdiction label.
	Court string
	// PromulgationDate is the first parseable month-day-year date, or nil.
	PromulgationDate *time.Time
}

// ExtractMetadata derives case metadata from cleaned text using regex
// heuristics. A date match that fails to parse leaves PromulgationDate nil
// rather than returning an error.
func ExtractMetadata(text string) Metadata {
	m := Metadata{Court: DefaultCourt}

	if match := caseNumberRe.FindString(text); match != "" {
		m.CaseNumber = strings.TrimSpace(strings.ReplaceAll(match, "  ", " "))
	}

	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			m.Title = trimmed
			break
		}
	}

	if match := dateRe.FindString(text); match != "" {
		if d, err := time.Parse(dateLayout, match); err == nil {
			m.PromulgationDate = &d
		}
	}

	return m
}

// Segment is one heading-delimited span of a decision's text.
type Segment struct {
	// Label is the lower-cased heading that opened this segment.
	// Empty means unclassified/preamble text.
	Label string
	// Text is the trimmed segment body.
	Text string
}

// Segment splits text into ordered heading-delimited segments. Text before
// the first heading becomes an unlabeled segment (omitted when blank); each
// heading's segment runs to the next heading or end of text; empty segments
// are dropped. Repeated headings produce repeated labels — order always
// matches the source. If no heading matches, the whole text is returned as a
// single unlabeled segment.
func SegmentByHeadings(text string) []Segment {
	matches := sectionRe.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return []Segment{{Text: text}}
	}

	var segments []Segment
	if prefix := strings.TrimSpace(text[:matches[0][0]]); prefix != "" {
		segments = append(segments, Segment{Text: prefix})
	}

	for i, match := range matches {
		label := strings.ToLower(text[match[2]:match[3]])
		start := match[1]
		end := len(text)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		body := strings.TrimSpace(text[start:end])
		if body == "" {
			continue
		}
		segments = append(segments, Segment{Label: label, Text: body})
	}

	if len(segments) == 0 {
		return []Segment{{Text: text}}
	}
	return segments
}

// TokenCount approximates token count by whitespace splitting.
func TokenCount(text string) int {
	return len(strings.Fields(text))
}

// SlidingWindow splits text into overlapping token windows. The stride is
// max(1, floor(targetTokens × (1 − overlapRatio))); windows start at stride
// multiples and hold up to targetTokens tokens. The final window may be
// shorter than target and is still emitted. Empty or all-whitespace input
// yields no windows.
func SlidingWindow(text string, targetTokens int, overlapRatio float64) []string {
	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return nil
	}

	stride := int(float64(targetTokens) * (1 - overlapRatio))
	if stride < 1 {
		stride = 1
	}

	var windows []string
	for start := 0; start < len(tokens); start += stride {
		end := start + targetTokens
		if end > len(tokens) {
			end = len(tokens)
		}
		windows = append(windows, strings.Join(tokens[start:end], " "))
		if start+targetTokens >= len(tokens) {
			break
		}
	}
	return windows
}
