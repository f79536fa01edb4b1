package elibrary

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/legalaide/legalaide-go/internal/ingestion"
	"github.com/legalaide/legalaide-go/internal/logging"
)

// Ingester ingests one downloaded file. *ingestion.Pipeline satisfies it.
type Ingester interface {
	IngestFile(ctx context.Context, path string) (*ingestion.IngestResult, error)
}

// Service drives the sync lifecycle: stage from CSV, download pending
// decisions, ingest downloaded ones.
type Service struct {
	queue *Queue
	// ingester turns downloaded files into stored cases.
	ingester Ingester
	// baseURL resolves relative document links from the staging CSV.
	baseURL string
	// downloadDir is where fetched documents land.
	downloadDir string
	// client fetches documents. Downloads of large scanned PDFs can be slow.
	client *http.Client
}

// NewService wires a sync service. The download directory is created eagerly.
func NewService(queue *Queue, ingester Ingester, baseURL, downloadDir string) (*Service, error) {
	if queue == nil {
		return nil, fmt.Errorf("elibrary: queue must not be nil")
	}
	if downloadDir == "" {
		return nil, fmt.Errorf("elibrary: download directory must not be empty")
	}
	if err := os.MkdirAll(downloadDir, 0o755); err != nil {
		return nil, fmt.Errorf("elibrary: create download dir: %w", err)
	}
	return &Service{
		queue:       queue,
		ingester:    ingester,
		baseURL:     strings.TrimRight(baseURL, "/"),
		downloadDir: downloadDir,
		client:      &http.Client{Timeout: 2 * time.Minute},
	}, nil
}

// StageFromCSV reads a staging CSV (columns: case_number, title, url — header
// optional) and enqueues each row as pending. Rows whose URL is already
// staged are skipped. Returns the number of newly staged decisions.
func (s *Service) StageFromCSV(ctx context.Context, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("elibrary: open staging csv: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	log := logging.FromContext(ctx)
	staged := 0
	for line := 1; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return staged, fmt.Errorf("elibrary: read staging csv line %d: %w", line, err)
		}
		if len(record) < 3 {
			return staged, fmt.Errorf("elibrary: staging csv line %d has %d fields, want 3", line, len(record))
		}
		caseNumber := strings.TrimSpace(record[0])
		title := strings.TrimSpace(record[1])
		link := strings.TrimSpace(record[2])
		if line == 1 && strings.EqualFold(link, "url") {
			continue // header row
		}
		if link == "" {
			log.Warn("elibrary: skipping csv row without url", slog.Int("line", line))
			continue
		}
		added, err := s.queue.Stage(ctx, caseNumber, title, s.resolveURL(link))
		if err != nil {
			return staged, err
		}
		if added {
			staged++
		}
	}
	log.Info("staged decisions from csv", slog.String("file", path), slog.Int("new", staged))
	return staged, nil
}

// SyncReport summarises one DownloadPending or IngestPending run.
type SyncReport struct {
	// Succeeded is the number of decisions that advanced a state.
	Succeeded int `json:"succeeded"`
	// Failed is the number of decisions marked failed this run.
	Failed int `json:"failed"`
}

// DownloadPending fetches every pending decision into the download directory.
// Per-decision failures mark that decision failed and do not stop the run.
func (s *Service) DownloadPending(ctx context.Context) (*SyncReport, error) {
	pending, err := s.queue.ByStatus(ctx, StatusPending)
	if err != nil {
		return nil, err
	}

	log := logging.FromContext(ctx)
	report := &SyncReport{}
	for _, d := range pending {
		if err := s.queue.MarkStatus(ctx, d.ID, StatusDownloading); err != nil {
			return report, err
		}
		localPath, err := s.download(ctx, d)
		if err != nil {
			log.Error("elibrary: download failed",
				slog.Int64("id", d.ID),
				slog.String("url", d.SourceURL),
				slog.String("error", err.Error()),
			)
			if markErr := s.queue.MarkFailed(ctx, d.ID, err.Error()); markErr != nil {
				return report, markErr
			}
			report.Failed++
			continue
		}
		if err := s.queue.MarkDownloaded(ctx, d.ID, localPath); err != nil {
			return report, err
		}
		report.Succeeded++
	}
	log.Info("download pass complete", slog.Int("downloaded", report.Succeeded), slog.Int("failed", report.Failed))
	return report, nil
}

// IngestPending ingests every downloaded decision. Per-decision failures mark
// that decision failed and do not stop the run.
func (s *Service) IngestPending(ctx context.Context) (*SyncReport, error) {
	if s.ingester == nil {
		return nil, fmt.Errorf("elibrary: no ingester configured")
	}
	downloaded, err := s.queue.ByStatus(ctx, StatusDownloaded)
	if err != nil {
		return nil, err
	}

	log := logging.FromContext(ctx)
	report := &SyncReport{}
	for _, d := range downloaded {
		if err := s.queue.MarkStatus(ctx, d.ID, StatusIngesting); err != nil {
			return report, err
		}
		if _, err := s.ingester.IngestFile(ctx, d.LocalPath); err != nil {
			log.Error("elibrary: ingest failed",
				slog.Int64("id", d.ID),
				slog.String("file", d.LocalPath),
				slog.String("error", err.Error()),
			)
			if markErr := s.queue.MarkFailed(ctx, d.ID, err.Error()); markErr != nil {
				return report, markErr
			}
			report.Failed++
			continue
		}
		if err := s.queue.MarkStatus(ctx, d.ID, StatusIngested); err != nil {
			return report, err
		}
		report.Succeeded++
	}
	log.Info("ingest pass complete", slog.Int("ingested", report.Succeeded), slog.Int("failed", report.Failed))
	return report, nil
}

// Stats exposes the queue's per-status counts.
func (s *Service) Stats(ctx context.Context) (map[Status]int, error) {
	return s.queue.Stats(ctx)
}

// download fetches one decision to a uniquely named local file. The extension
// follows the source URL, defaulting to .pdf.
func (s *Service) download(ctx context.Context, d Decision) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.SourceURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", d.SourceURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: HTTP %d", d.SourceURL, resp.StatusCode)
	}

	ext := strings.ToLower(filepath.Ext(urlPath(d.SourceURL)))
	if ext != ".pdf" && ext != ".txt" {
		ext = ".pdf"
	}
	localPath := filepath.Join(s.downloadDir, uuid.NewString()+ext)

	f, err := os.Create(localPath)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", localPath, err)
	}
	defer f.Close()
	if _, err := io.Copy(f, resp.Body); err != nil {
		os.Remove(localPath)
		return "", fmt.Errorf("write %s: %w", localPath, err)
	}
	return localPath, nil
}

// resolveURL turns relative staging links into absolute ones against baseURL.
func (s *Service) resolveURL(link string) string {
	if strings.HasPrefix(link, "http://") || strings.HasPrefix(link, "https://") || s.baseURL == "" {
		return link
	}
	return s.baseURL + "/" + strings.TrimLeft(link, "/")
}

// urlPath extracts the path component, tolerating unparseable URLs.
func urlPath(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return u.Path
}
