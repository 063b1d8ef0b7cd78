package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/futig/chat-backend/internal/config"
	"github.com/futig/chat-backend/internal/entity"
	"github.com/google/uuid"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// Downloader fetches attachments into per-request temporary files.
type Downloader struct {
	cfg        config.FileIngestConfig
	httpClient *http.Client
	tempDir    string
	logger     *zap.Logger
}

func NewDownloader(cfg config.FileIngestConfig, logger *zap.Logger) *Downloader {
	tempDir := cfg.TempDir
	if tempDir == "" {
		tempDir = filepath.Join(os.TempDir(), "chat-backend-downloads")
	}

	return &Downloader{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.DownloadTimeout},
		tempDir:    tempDir,
		logger:     logger,
	}
}

// GetTempPath allocates a unique local path for the given source URL.
func (d *Downloader) GetTempPath(url string) (string, string, error) {
	if err := os.MkdirAll(d.tempDir, 0o755); err != nil {
		return "", "", fmt.Errorf("create temp dir: %w", err)
	}

	id := uuid.New().String()
	ext := sanitizeExt(filepath.Ext(strings.SplitN(url, "?", 2)[0]))

	return id, filepath.Join(d.tempDir, id+ext), nil
}

// GetSize returns the declared size of the remote resource, or -1 when the
// server does not declare one.
func (d *Downloader) GetSize(ctx context.Context, url string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("head %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("head %s: status %d", url, resp.StatusCode)
	}

	return resp.ContentLength, nil
}

// Download streams the remote resource into localPath, enforcing the
// configured size ceiling even when the server lied about Content-Length.
func (d *Downloader) Download(ctx context.Context, url, localPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("download %s: status %d", url, resp.StatusCode)
	}

	out, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer out.Close()

	limited := io.LimitReader(resp.Body, d.cfg.MaxFileSize+1)
	written, err := io.Copy(out, limited)
	if err != nil {
		os.Remove(localPath)
		return fmt.Errorf("write temp file: %w", err)
	}

	if written > d.cfg.MaxFileSize {
		os.Remove(localPath)
		return fmt.Errorf("%w: %s exceeds %d bytes", entity.ErrFileTooLarge, url, d.cfg.MaxFileSize)
	}

	ctxzap.Debug(ctx, "attachment downloaded",
		zap.String("url", url),
		zap.Int64("bytes", written),
	)

	return nil
}

// ReadBytes reads a downloaded temp file back into memory.
func (d *Downloader) ReadBytes(localPath string) ([]byte, error) {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return nil, fmt.Errorf("read temp file: %w", err)
	}
	return data, nil
}

// Cleanup removes a temp file. Missing files are not an error, so cleanup
// can run unconditionally after partial failures.
func (d *Downloader) Cleanup(localPath string) error {
	if localPath == "" {
		return nil
	}
	if err := os.Remove(localPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove temp file: %w", err)
	}
	return nil
}

// sanitizeExt keeps only short alphanumeric extensions so URL paths cannot
// smuggle separators into the temp filename.
func sanitizeExt(ext string) string {
	if len(ext) > 8 {
		return ""
	}
	for _, r := range ext[min(1, len(ext)):] {
		if !isAlnum(r) {
			return ""
		}
	}
	return strings.ToLower(ext)
}

func isAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}
