package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"

	"github.com/google/uuid"
)

var driveIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`id=([a-zA-Z0-9_-]+)`),
	regexp.MustCompile(`/d/([a-zA-Z0-9_-]+)`),
}

// ExtractDriveFileID pulls the file ID out of a Google Drive share URL.
// Both the `?id=` and `/d/` URL shapes are recognized.
func ExtractDriveFileID(url string) (string, bool) {
	for _, p := range driveIDPatterns {
		if m := p.FindStringSubmatch(url); m != nil {
			return m[1], true
		}
	}
	return "", false
}

// DriveFetcher downloads ID card images shared via Google Drive links into
// a local directory.
type DriveFetcher struct {
	client *http.Client
	dir    string
}

// NewDriveFetcher creates a fetcher that stores downloads under dir.
func NewDriveFetcher(client *http.Client, dir string) *DriveFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &DriveFetcher{client: client, dir: dir}
}

// Fetch downloads the image behind a Drive share URL and returns the local
// file path. Fails on unrecognized URLs, network errors, and non-2xx
// responses; the coordinator treats any failure as "no text available".
func (f *DriveFetcher) Fetch(ctx context.Context, url string) (string, error) {
	fileID, ok := ExtractDriveFileID(url)
	if !ok {
		return "", fmt.Errorf("no drive file id in url %q", url)
	}

	downloadURL := "https://drive.google.com/uc?export=download&id=" + fileID

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return "", fmt.Errorf("build download request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download id card: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("download id card: unexpected status %d", resp.StatusCode)
	}

	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return "", fmt.Errorf("create image dir: %w", err)
	}

	path := filepath.Join(f.dir, uuid.NewString()+".jpg")
	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create image file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("write image file: %w", err)
	}
	return path, nil
}
