package extract

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/legalaide/legalaide-go/internal/logging"
)

// OCRRunner recognises text in scanned PDFs by rasterising pages with
// pdftoppm and running tesseract over each image. Both binaries are resolved
// at construction time so a misconfigured host fails fast, not mid-ingest.
type OCRRunner struct {
	// pdftoppm is the resolved rasteriser binary.
	pdftoppm string
	// tesseract is the resolved OCR binary.
	tesseract string
}

// NewOCRRunner verifies that both external binaries are available. Empty
// command names fall back to the conventional binary names on PATH.
func NewOCRRunner(pdftoppmCmd, tesseractCmd string) (*OCRRunner, error) {
	if pdftoppmCmd == "" {
		pdftoppmCmd = "pdftoppm"
	}
	if tesseractCmd == "" {
		tesseractCmd = "tesseract"
	}
	pdftoppm, err := exec.LookPath(pdftoppmCmd)
	if err != nil {
		return nil, fmt.Errorf("extract: %s not found on PATH — install poppler-utils first", pdftoppmCmd)
	}
	tesseract, err := exec.LookPath(tesseractCmd)
	if err != nil {
		return nil, fmt.Errorf("extract: %s not found on PATH — install tesseract first", tesseractCmd)
	}
	return &OCRRunner{pdftoppm: pdftoppm, tesseract: tesseract}, nil
}

// Recognize rasterises every page of the PDF into a temp directory and OCRs
// them in page order. Each page's text is prefixed with a "[Page N]" marker so
// downstream cleaning can keep page provenance visible.
func (r *OCRRunner) Recognize(ctx context.Context, pdfPath string) (string, error) {
	tmpDir, err := os.MkdirTemp("", "legalaide-ocr-*")
	if err != nil {
		return "", fmt.Errorf("extract: create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	prefix := filepath.Join(tmpDir, "page")
	if out, err := r.run(ctx, r.pdftoppm, "-png", "-r", "300", pdfPath, prefix); err != nil {
		return "", fmt.Errorf("extract: pdftoppm failed: %w: %s", err, out)
	}

	images, err := filepath.Glob(prefix + "*.png")
	if err != nil {
		return "", fmt.Errorf("extract: list page images: %w", err)
	}
	if len(images) == 0 {
		return "", fmt.Errorf("extract: pdftoppm produced no pages for %s", pdfPath)
	}
	// pdftoppm zero-pads page numbers, so lexical order is page order.
	sort.Strings(images)

	log := logging.FromContext(ctx)
	var pages []string
	for i, image := range images {
		out, err := r.run(ctx, r.tesseract, image, "stdout")
		if err != nil {
			log.Warn("extract: tesseract failed on page, skipping",
				slog.String("image", image),
				slog.String("error", err.Error()),
			)
			continue
		}
		pages = append(pages, fmt.Sprintf("[Page %d]\n%s", i+1, strings.TrimSpace(out)))
	}
	if len(pages) == 0 {
		return "", fmt.Errorf("extract: ocr recognised no text in %s", pdfPath)
	}
	return strings.Join(pages, "\n\n"), nil
}

// run executes a binary and returns its combined output.
func (r *OCRRunner) run(ctx context.Context, bin string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, bin, args...)
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	if err := cmd.Run(); err != nil {
		return buf.String(), err
	}
	return buf.String(), nil
}
