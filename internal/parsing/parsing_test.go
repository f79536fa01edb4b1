package parsing

import (
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestCleanDropsPageNumbersAndCollapsesBlanks(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "page numbers dropped",
			in:   "Heading\n42\nBody text",
			want: "Heading\nBody text",
		},
		{
			name: "blank lines preserved",
			in:   "Heading\n\nBody",
			want: "Heading\n\nBody",
		},
		{
			name: "triple newlines collapse to two",
			in:   "A\n\n\n\nB",
			want: "A\n\nB",
		},
		{
			name: "leading and trailing whitespace trimmed",
			in:   "  \n  Heading  \n  ",
			want: "Heading",
		},
		{
			name: "digits inside a line survive",
			in:   "Section 12 of RA 9165",
			want: "Section 12 of RA 9165",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Clean(tt.in); got != tt.want {
				t.Errorf("Clean(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCleanIdempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"",
		"FACTS\n\n\n\nThe case.\n17\n",
		"  a  \n1\n2\n3\n  b  ",
		"G.R. No. 123456\nPeople v. Doe\n\n\nRULING:\nGranted.",
	}
	for _, in := range inputs {
		once := Clean(in)
		twice := Clean(once)
		if once != twice {
			t.Errorf("Clean not idempotent for %q: first %q, second %q", in, once, twice)
		}
	}
}

func TestExtractMetadata(t *testing.T) {
	t.Parallel()

	text := "People of the Philippines v. Juan Dela Cruz\nG.R.  No. 252091\nPromulgated on March 15, 2024 in Manila."
	m := ExtractMetadata(text)

	if m.CaseNumber != "G.R. No. 252091" {
		t.Errorf("CaseNumber = %q, want %q", m.CaseNumber, "G.R. No. 252091")
	}
	if m.Title != "People of the Philippines v. Juan Dela Cruz" {
		t.Errorf("Title = %q", m.Title)
	}
	if m.Court != DefaultCourt {
		t.Errorf("Court = %q, want %q", m.Court, DefaultCourt)
	}
	if m.PromulgationDate == nil {
		t.Fatal("PromulgationDate = nil, want March 15, 2024")
	}
	want := time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)
	if !m.PromulgationDate.Equal(want) {
		t.Errorf("PromulgationDate = %v, want %v", m.PromulgationDate, want)
	}
}

func TestExtractMetadataBestEffort(t *testing.T) {
	t.Parallel()

	m := ExtractMetadata("")
	if m.CaseNumber != "" || m.Title != "" || m.PromulgationDate != nil {
		t.Errorf("empty text: want empty fields, got %+v", m)
	}
	if m.Court != DefaultCourt {
		t.Errorf("Court = %q, want %q even for empty text", m.Court, DefaultCourt)
	}

	// A date that matches the pattern but cannot parse (day 99) stays nil.
	m = ExtractMetadata("Decided January 99, 2024")
	if m.PromulgationDate != nil {
		t.Errorf("unparseable date: want nil, got %v", m.PromulgationDate)
	}
}

func TestSegmentByHeadingsNoMatchRoundTrip(t *testing.T) {
	t.Parallel()

	text := "Just a narrative paragraph\nwith no recognised headings."
	got := SegmentByHeadings(text)
	if len(got) != 1 {
		t.Fatalf("want 1 segment, got %d", len(got))
	}
	if got[0].Label != "" || got[0].Text != text {
		t.Errorf("got (%q, %q), want (\"\", original text)", got[0].Label, got[0].Text)
	}
}

func TestSegmentByHeadings(t *testing.T) {
	t.Parallel()

	text := "FACTS\nThe petitioner filed...\nRULING\nThe petition is granted."
	got := SegmentByHeadings(text)
	if len(got) != 2 {
		t.Fatalf("want 2 segments, got %d: %+v", len(got), got)
	}
	if got[0].Label != "facts" || got[0].Text != "The petitioner filed..." {
		t.Errorf("segment[0] = (%q, %q)", got[0].Label, got[0].Text)
	}
	if got[1].Label != "ruling" || got[1].Text != "The petition is granted." {
		t.Errorf("segment[1] = (%q, %q)", got[1].Label, got[1].Text)
	}
}

func TestSegmentByHeadingsPrefixAndRepeats(t *testing.T) {
	t.Parallel()

	text := "Caption before any heading.\nISSUES:\nWhether the appeal lies.\nISSUES\nWhether costs are due."
	got := SegmentByHeadings(text)
	if len(got) != 3 {
		t.Fatalf("want 3 segments, got %d: %+v", len(got), got)
	}
	if got[0].Label != "" || got[0].Text != "Caption before any heading." {
		t.Errorf("prefix segment = (%q, %q)", got[0].Label, got[0].Text)
	}
	// Repeated headings are not deduplicated and keep source order.
	if got[1].Label != "issues" || got[2].Label != "issues" {
		t.Errorf("labels = %q, %q, want issues twice", got[1].Label, got[2].Label)
	}
	if got[1].Text != "Whether the appeal lies." || got[2].Text != "Whether costs are due." {
		t.Errorf("bodies = %q, %q", got[1].Text, got[2].Text)
	}
}

func TestSegmentByHeadingsIgnoresInlineHeadingWords(t *testing.T) {
	t.Parallel()

	// "RULING" embedded in a longer line is not a heading.
	text := "The RULING of the lower court was reversed."
	got := SegmentByHeadings(text)
	if len(got) != 1 || got[0].Label != "" {
		t.Errorf("inline heading word must not split: got %+v", got)
	}
}

func TestSegmentByHeadingsCaseInsensitive(t *testing.T) {
	t.Parallel()

	got := SegmentByHeadings("Ruling:\nGranted.")
	if len(got) != 1 || got[0].Label != "ruling" {
		t.Fatalf("got %+v, want one segment labeled ruling", got)
	}
}

func TestTokenCount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"   ", 0},
		{"one", 1},
		{"one  two\nthree\t four", 4},
	}
	for _, tt := range tests {
		if got := TokenCount(tt.in); got != tt.want {
			t.Errorf("TokenCount(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestSlidingWindowEmpty(t *testing.T) {
	t.Parallel()

	if got := SlidingWindow("", 10, 0.15); got != nil {
		t.Errorf("empty input: want nil, got %v", got)
	}
	if got := SlidingWindow(" \n\t ", 10, 0.15); got != nil {
		t.Errorf("whitespace input: want nil, got %v", got)
	}
}

func TestSlidingWindowShortInputSingleWindow(t *testing.T) {
	t.Parallel()

	got := SlidingWindow("a b c", 10, 0.15)
	if len(got) != 1 || got[0] != "a b c" {
		t.Errorf("got %v, want single window with full text", got)
	}
}

func TestSlidingWindowCountAndSizes(t *testing.T) {
	t.Parallel()

	tokens := make([]string, 100)
	for i := range tokens {
		tokens[i] = fmt.Sprintf("t%d", i)
	}
	text := strings.Join(tokens, " ")

	const target = 20
	const overlap = 0.25 // stride = 15
	windows := SlidingWindow(text, target, overlap)

	// ceil((100-20)/15) + 1 = ceil(5.33) + 1 = 6 + 1 = 7
	if len(windows) != 7 {
		t.Fatalf("window count = %d, want 7", len(windows))
	}
	for i, w := range windows[:len(windows)-1] {
		if n := len(strings.Fields(w)); n != target {
			t.Errorf("window %d has %d tokens, want %d", i, n, target)
		}
	}
	if n := len(strings.Fields(windows[len(windows)-1])); n == 0 || n > target {
		t.Errorf("final window has %d tokens, want 1..%d", n, target)
	}
}

func TestSlidingWindowReconstructsTokenSequence(t *testing.T) {
	t.Parallel()

	tokens := make([]string, 53)
	for i := range tokens {
		tokens[i] = fmt.Sprintf("w%02d", i)
	}
	text := strings.Join(tokens, " ")

	const target = 10
	const overlap = 0.3 // stride = 7
	windows := SlidingWindow(text, target, overlap)

	// Window i starts at token i×stride, so every window token must equal the
	// source token at its absolute position — concatenating the unique
	// (non-overlapping) spans reconstructs the original sequence exactly.
	stride := int(float64(target) * (1 - overlap))
	for i, w := range windows {
		fields := strings.Fields(w)
		for j, tok := range fields {
			if want := tokens[i*stride+j]; tok != want {
				t.Fatalf("window %d token %d = %q, want %q", i, j, tok, want)
			}
		}
	}
	// The last window ends at the last source token.
	last := strings.Fields(windows[len(windows)-1])
	if last[len(last)-1] != tokens[len(tokens)-1] {
		t.Errorf("last window ends at %q, want %q", last[len(last)-1], tokens[len(tokens)-1])
	}
}

func TestSlidingWindowStrideFloor(t *testing.T) {
	t.Parallel()

	// target=1, overlap=0.9 → stride floors to 0 and clamps to 1.
	windows := SlidingWindow("a b c", 1, 0.9)
	if len(windows) != 3 {
		t.Fatalf("want 3 single-token windows, got %v", windows)
	}
	for i, w := range windows {
		if strings.ContainsRune(w, ' ') {
			t.Errorf("window %d = %q, want single token", i, w)
		}
	}
}
