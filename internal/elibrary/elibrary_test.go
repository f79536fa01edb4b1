package elibrary

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/legalaide/legalaide-go/internal/ingestion"
)

// openTestQueue opens an in-memory queue for use in tests.
func openTestQueue(t *testing.T) *Queue {
	t.Helper()
	q, err := OpenQueue(":memory:")
	if err != nil {
		t.Fatalf("open in-memory queue: %v", err)
	}
	t.Cleanup(func() { _ = q.Close() })
	return q
}

func TestQueueStageAndList(t *testing.T) {
	t.Parallel()
	q := openTestQueue(t)
	ctx := context.Background()

	added, err := q.Stage(ctx, "G.R. No. 1", "People v. A", "https://example.test/a.pdf")
	if err != nil {
		t.Fatalf("stage: %v", err)
	}
	if !added {
		t.Error("first stage must report a new row")
	}

	// Same URL again is a no-op.
	added, err = q.Stage(ctx, "G.R. No. 1", "People v. A", "https://example.test/a.pdf")
	if err != nil {
		t.Fatalf("restage: %v", err)
	}
	if added {
		t.Error("restaging the same URL must not add a row")
	}

	pending, err := q.ByStatus(ctx, StatusPending)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 1 || pending[0].CaseNumber != "G.R. No. 1" {
		t.Fatalf("pending = %+v", pending)
	}
}

func TestQueueLifecycleTransitions(t *testing.T) {
	t.Parallel()
	q := openTestQueue(t)
	ctx := context.Background()

	if _, err := q.Stage(ctx, "", "", "https://example.test/b.pdf"); err != nil {
		t.Fatalf("stage: %v", err)
	}
	pending, _ := q.ByStatus(ctx, StatusPending)
	id := pending[0].ID

	if err := q.MarkStatus(ctx, id, StatusDownloading); err != nil {
		t.Fatalf("mark downloading: %v", err)
	}
	if err := q.MarkDownloaded(ctx, id, "/tmp/b.pdf"); err != nil {
		t.Fatalf("mark downloaded: %v", err)
	}

	downloaded, _ := q.ByStatus(ctx, StatusDownloaded)
	if len(downloaded) != 1 || downloaded[0].LocalPath != "/tmp/b.pdf" {
		t.Fatalf("downloaded = %+v", downloaded)
	}

	if err := q.MarkFailed(ctx, id, "ingest blew up"); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	failed, _ := q.ByStatus(ctx, StatusFailed)
	if len(failed) != 1 || failed[0].LastError != "ingest blew up" {
		t.Fatalf("failed = %+v", failed)
	}
	// The local path survives the failure transition.
	if failed[0].LocalPath != "/tmp/b.pdf" {
		t.Errorf("local path = %q, want preserved", failed[0].LocalPath)
	}
}

func TestQueueMarkUnknownID(t *testing.T) {
	t.Parallel()
	q := openTestQueue(t)

	if err := q.MarkStatus(context.Background(), 999, StatusIngested); err == nil {
		t.Fatal("want error for unknown decision ID")
	}
}

func TestQueueStats(t *testing.T) {
	t.Parallel()
	q := openTestQueue(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := q.Stage(ctx, "", "", fmt.Sprintf("https://example.test/%d.pdf", i)); err != nil {
			t.Fatalf("stage: %v", err)
		}
	}
	pending, _ := q.ByStatus(ctx, StatusPending)
	if err := q.MarkStatus(ctx, pending[0].ID, StatusIngested); err != nil {
		t.Fatalf("mark: %v", err)
	}

	stats, err := q.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats[StatusPending] != 2 || stats[StatusIngested] != 1 {
		t.Errorf("stats = %v", stats)
	}
}

func TestStageFromCSV(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	csvPath := filepath.Join(dir, "staging.csv")
	content := "case_number,title,url\n" +
		"G.R. No. 1,People v. A,/docmonth/Jan/2024/1\n" +
		"G.R. No. 2,People v. B,https://other.test/2.pdf\n"
	if err := os.WriteFile(csvPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}

	q := openTestQueue(t)
	svc, err := NewService(q, nil, "https://elibrary.test", filepath.Join(dir, "dl"))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	staged, err := svc.StageFromCSV(context.Background(), csvPath)
	if err != nil {
		t.Fatalf("StageFromCSV: %v", err)
	}
	if staged != 2 {
		t.Errorf("staged = %d, want 2", staged)
	}

	pending, _ := q.ByStatus(context.Background(), StatusPending)
	urls := map[string]bool{}
	for _, d := range pending {
		urls[d.SourceURL] = true
	}
	if !urls["https://elibrary.test/docmonth/Jan/2024/1"] {
		t.Errorf("relative link not resolved against base URL: %v", urls)
	}
	if !urls["https://other.test/2.pdf"] {
		t.Errorf("absolute link must pass through unchanged: %v", urls)
	}
}

func TestDownloadPending(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ok.txt" {
			fmt.Fprint(w, "decision body")
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	q := openTestQueue(t)
	ctx := context.Background()
	if _, err := q.Stage(ctx, "", "", srv.URL+"/ok.txt"); err != nil {
		t.Fatalf("stage: %v", err)
	}
	if _, err := q.Stage(ctx, "", "", srv.URL+"/missing.pdf"); err != nil {
		t.Fatalf("stage: %v", err)
	}

	svc, err := NewService(q, nil, "", filepath.Join(t.TempDir(), "dl"))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	report, err := svc.DownloadPending(ctx)
	if err != nil {
		t.Fatalf("DownloadPending: %v", err)
	}
	if report.Succeeded != 1 || report.Failed != 1 {
		t.Fatalf("report = %+v, want 1 success and 1 failure", report)
	}

	downloaded, _ := q.ByStatus(ctx, StatusDownloaded)
	if len(downloaded) != 1 {
		t.Fatalf("downloaded = %+v", downloaded)
	}
	data, err := os.ReadFile(downloaded[0].LocalPath)
	if err != nil {
		t.Fatalf("read downloaded file: %v", err)
	}
	if string(data) != "decision body" {
		t.Errorf("file contents = %q", data)
	}
	if filepath.Ext(downloaded[0].LocalPath) != ".txt" {
		t.Errorf("extension = %q, want .txt from source URL", filepath.Ext(downloaded[0].LocalPath))
	}
}

type fakeIngester struct {
	calls  []string
	failOn string
}

func (f *fakeIngester) IngestFile(_ context.Context, path string) (*ingestion.IngestResult, error) {
	f.calls = append(f.calls, path)
	if filepath.Base(path) == f.failOn {
		return nil, fmt.Errorf("corrupt file")
	}
	return &ingestion.IngestResult{CaseID: 1, Chunks: 2}, nil
}

func TestIngestPending(t *testing.T) {
	t.Parallel()

	q := openTestQueue(t)
	ctx := context.Background()
	for _, name := range []string{"good.pdf", "bad.pdf"} {
		if _, err := q.Stage(ctx, "", "", "https://example.test/"+name); err != nil {
			t.Fatalf("stage: %v", err)
		}
	}
	pending, _ := q.ByStatus(ctx, StatusPending)
	for _, d := range pending {
		if err := q.MarkDownloaded(ctx, d.ID, "/tmp/"+filepath.Base(d.SourceURL)); err != nil {
			t.Fatalf("mark downloaded: %v", err)
		}
	}

	ingester := &fakeIngester{failOn: "bad.pdf"}
	svc, err := NewService(q, ingester, "", t.TempDir())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	report, err := svc.IngestPending(ctx)
	if err != nil {
		t.Fatalf("IngestPending: %v", err)
	}
	if report.Succeeded != 1 || report.Failed != 1 {
		t.Errorf("report = %+v", report)
	}
	if len(ingester.calls) != 2 {
		t.Errorf("ingester calls = %v", ingester.calls)
	}

	ingested, _ := q.ByStatus(ctx, StatusIngested)
	failed, _ := q.ByStatus(ctx, StatusFailed)
	if len(ingested) != 1 || len(failed) != 1 {
		t.Errorf("ingested = %d, failed = %d", len(ingested), len(failed))
	}
}
