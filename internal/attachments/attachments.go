// Package attachments implements the AttachmentIngestor: it summarizes a
// turn's attachments and, when enabled, downloads them into per-session
// storage under a byte-size cap.
package attachments

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/haasonsaas/turnengine/internal/errs"
)

// Attachment describes one file reference attached to an inbound turn.
type Attachment struct {
	AttachmentID string
	Filename     string
	ContentType  string
	Size         int64
	URL          string
}

// Result is what the ingestor reports back to the engine for an ACTION
// event.
type Result struct {
	Summary         string
	DownloadedCount int
}

// Ingestor downloads and summarizes attachments.
type Ingestor struct {
	DownloadEnabled bool
	MaxBytes        int64
	StorageDir      string
	HTTPClient      *http.Client
	TimeoutSeconds  float64
}

func NewIngestor(downloadEnabled bool, maxBytes int64, storageDir string, timeoutSeconds float64) *Ingestor {
	return &Ingestor{
		DownloadEnabled: downloadEnabled,
		MaxBytes:        maxBytes,
		StorageDir:      storageDir,
		HTTPClient:      &http.Client{Timeout: time.Duration(timeoutSeconds * float64(time.Second))},
		TimeoutSeconds:  timeoutSeconds,
	}
}

// Ingest summarizes attachments and, if enabled, downloads each into
// <storage_dir>/<session_id>/<turn_id>/<safe_filename>.
func (in *Ingestor) Ingest(ctx context.Context, sessionID, turnID string, list []Attachment) (Result, error) {
	if len(list) == 0 {
		return Result{Summary: "첨부파일이 없어요."}, nil
	}

	imageCount, fileCount := 0, 0
	for _, a := range list {
		if strings.HasPrefix(a.ContentType, "image/") {
			imageCount++
		} else {
			fileCount++
		}
	}

	downloaded := 0
	if in.DownloadEnabled {
		for _, a := range list {
			ok, err := in.downloadOne(ctx, sessionID, turnID, a)
			if err != nil {
				return Result{}, err
			}
			if ok {
				downloaded++
			}
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "첨부파일 %d개를 받았어요", len(list))
	if imageCount > 0 {
		fmt.Fprintf(&b, " (이미지 %d개", imageCount)
		if fileCount > 0 {
			fmt.Fprintf(&b, ", 파일 %d개", fileCount)
		}
		b.WriteString(")")
	} else if fileCount > 0 {
		fmt.Fprintf(&b, " (파일 %d개)", fileCount)
	}
	if in.DownloadEnabled {
		fmt.Fprintf(&b, ", %d개 다운로드 완료.", downloaded)
	} else {
		b.WriteString(".")
	}

	return Result{Summary: b.String(), DownloadedCount: downloaded}, nil
}

func (in *Ingestor) downloadOne(ctx context.Context, sessionID, turnID string, a Attachment) (bool, error) {
	if in.MaxBytes > 0 && a.Size > in.MaxBytes {
		return false, nil
	}

	dir := filepath.Join(in.StorageDir, sessionID, turnID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, errs.Wrap(errs.ConfigurationError, err, "cannot create attachment storage directory")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.URL, nil)
	if err != nil {
		return false, errs.Validation("invalid attachment url: %s", a.URL)
	}

	resp, err := in.HTTPClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return false, errs.TimedOut("timed out downloading attachment %s", a.AttachmentID)
		}
		return false, errs.WrapTransient(err, "attachment download failed for %s", a.AttachmentID)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return false, errs.Transient("attachment download returned %d for %s", resp.StatusCode, a.AttachmentID)
	}
	if resp.StatusCode >= 400 {
		return false, errs.Validation("attachment download returned %d for %s", resp.StatusCode, a.AttachmentID)
	}

	limited := io.LimitReader(resp.Body, in.limit())
	data, err := io.ReadAll(limited)
	if err != nil {
		return false, errs.WrapTransient(err, "failed reading attachment body for %s", a.AttachmentID)
	}
	if in.MaxBytes > 0 && int64(len(data)) > in.MaxBytes {
		return false, nil
	}

	path := filepath.Join(dir, safeFilename(a.Filename))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return false, errs.Wrap(errs.ConfigurationError, err, "cannot write attachment %s", a.AttachmentID)
	}
	return true, nil
}

func (in *Ingestor) limit() int64 {
	if in.MaxBytes > 0 {
		return in.MaxBytes + 1
	}
	return 1 << 30
}

func safeFilename(name string) string {
	name = strings.ReplaceAll(name, "..", "_")
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	if name == "" {
		name = "attachment"
	}
	return name
}
