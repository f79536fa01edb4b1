// Package extract turns decision files into raw text. PDFs are read with the
// embedded text layer first; when that layer is too sparse to be a real text
// PDF the extractor falls back to rasterising pages and running OCR over them.
// Plain .txt files pass through verbatim.
package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/legalaide/legalaide-go/internal/logging"
)

// ErrUnsupportedType is returned for file extensions the extractor cannot handle.
var ErrUnsupportedType = errors.New("extract: unsupported file type")

// minTextLayerChars is the threshold below which a PDF's embedded text layer
// is treated as absent (a scanned document) and OCR is attempted instead.
const minTextLayerChars = 200

// Extractor reads decision files. A nil OCR runner disables the scanned-PDF
// fallback; extraction then returns whatever the text layer held.
type Extractor struct {
	// ocr rasterises and recognises scanned pages. May be nil.
	ocr *OCRRunner
}

// New constructs an Extractor with the given OCR fallback.
func New(ocr *OCRRunner) *Extractor {
	return &Extractor{ocr: ocr}
}

// ExtractText reads the file at path and returns its raw text. Dispatch is by
// extension: .pdf and .txt are supported, anything else is ErrUnsupportedType.
func (e *Extractor) ExtractText(ctx context.Context, path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return e.extractPDF(ctx, path)
	case ".txt":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("extract: read %s: %w", path, err)
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, filepath.Ext(path))
	}
}

// extractPDF pulls the embedded text layer page by page. A layer shorter than
// minTextLayerChars marks a scanned document and triggers the OCR fallback.
func (e *Extractor) extractPDF(ctx context.Context, path string) (string, error) {
	text, err := pdfTextLayer(path)
	if err != nil {
		// An unreadable text layer is not fatal if OCR can still recover
		// the pages.
		if e.ocr == nil {
			return "", fmt.Errorf("extract: pdf text layer of %s: %w", path, err)
		}
		logging.FromContext(ctx).Warn("extract: pdf text layer unreadable, trying OCR",
			slog.String("file", path),
			slog.String("error", err.Error()),
		)
		text = ""
	}

	if len(strings.TrimSpace(text)) >= minTextLayerChars || e.ocr == nil {
		return text, nil
	}

	logging.FromContext(ctx).Info("extract: sparse text layer, falling back to OCR",
		slog.String("file", path),
		slog.Int("text_layer_chars", len(strings.TrimSpace(text))),
	)

	ocrText, err := e.ocr.Recognize(ctx, path)
	if err != nil {
		return "", fmt.Errorf("extract: ocr fallback for %s: %w", path, err)
	}
	return ocrText, nil
}

// pdfTextLayer concatenates the plain text of every page, pages separated by
// a blank line. Pages whose text cannot be decoded are skipped.
func pdfTextLayer(path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	var pages []string
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		var buf bytes.Buffer
		content, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		buf.WriteString(content)
		if buf.Len() > 0 {
			pages = append(pages, buf.String())
		}
	}
	return strings.Join(pages, "\n\n"), nil
}
