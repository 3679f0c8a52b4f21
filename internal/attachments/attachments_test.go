package attachments

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestIngestEmptyListReturnsNoAttachmentsSummary(t *testing.T) {
	in := NewIngestor(false, 0, t.TempDir(), 5)
	result, err := in.Ingest(context.Background(), "s1", "t1", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Summary != "첨부파일이 없어요." {
		t.Fatalf("unexpected summary: %q", result.Summary)
	}
}

func TestIngestSummarizesCountsWithoutDownload(t *testing.T) {
	in := NewIngestor(false, 0, t.TempDir(), 5)
	list := []Attachment{
		{AttachmentID: "a1", Filename: "pic.png", ContentType: "image/png", Size: 10, URL: "http://example.invalid/pic.png"},
		{AttachmentID: "a2", Filename: "doc.pdf", ContentType: "application/pdf", Size: 10, URL: "http://example.invalid/doc.pdf"},
	}
	result, err := in.Ingest(context.Background(), "s1", "t1", list)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.DownloadedCount != 0 {
		t.Fatalf("expected no downloads when disabled")
	}
	if !strings.Contains(result.Summary, "2") {
		t.Fatalf("expected count in summary: %q", result.Summary)
	}
}

func TestIngestDownloadsUnderCap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("file-bytes"))
	}))
	defer srv.Close()

	storageDir := t.TempDir()
	in := NewIngestor(true, 1024, storageDir, 5)

	list := []Attachment{
		{AttachmentID: "a1", Filename: "f.txt", ContentType: "text/plain", Size: 10, URL: srv.URL},
	}
	result, err := in.Ingest(context.Background(), "session-1", "turn-1", list)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.DownloadedCount != 1 {
		t.Fatalf("expected 1 download, got %d", result.DownloadedCount)
	}

	data, err := os.ReadFile(filepath.Join(storageDir, "session-1", "turn-1", "f.txt"))
	if err != nil {
		t.Fatalf("expected downloaded file: %v", err)
	}
	if string(data) != "file-bytes" {
		t.Fatalf("unexpected downloaded content: %q", string(data))
	}
}

func TestIngestSkipsOversizedAttachment(t *testing.T) {
	in := NewIngestor(true, 5, t.TempDir(), 5)
	list := []Attachment{
		{AttachmentID: "a1", Filename: "big.bin", ContentType: "application/octet-stream", Size: 999, URL: "http://example.invalid/big.bin"},
	}
	result, err := in.Ingest(context.Background(), "s1", "t1", list)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.DownloadedCount != 0 {
		t.Fatalf("expected oversized attachment to be skipped")
	}
}

func TestSafeFilenameSanitizesTraversal(t *testing.T) {
	if got := safeFilename("../../etc/passwd"); strings.Contains(got, "..") || strings.Contains(got, "/") {
		t.Fatalf("expected sanitized filename, got %q", got)
	}
}
