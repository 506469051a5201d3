package data

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultOEDIBaseURL is the public HTTPS endpoint of the OEDI data lake bucket.
const DefaultOEDIBaseURL = "https://oedi-data-lake.s3.amazonaws.com"

// OEDIClient downloads ResStock/ComStock inputs from the OEDI data lake.
type OEDIClient struct {
	BaseURL string
	Client  *http.Client
}

// NewOEDIClient creates a new OEDI client.
// If baseURL is empty, defaults to DefaultOEDIBaseURL.
func NewOEDIClient(baseURL string) *OEDIClient {
	if baseURL == "" {
		baseURL = DefaultOEDIBaseURL
	}
	return &OEDIClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}
}

// OEDIError represents a non-200 response from the data lake
type OEDIError struct {
	StatusCode int
	Code       string
	Message    string
	URL        string
}

func (e *OEDIError) Error() string {
	return e.Message
}

// SyncResult summarizes a Sync call.
type SyncResult struct {
	Downloaded int
	Skipped    int
	Bytes      int64
}

// Sync fetches every object in the manifest that is not already present locally.
// Existing non-empty files are skipped, so re-running is safe. With dryRun nothing is written.
func (c *OEDIClient) Sync(ctx context.Context, m *Manifest, dryRun bool) (SyncResult, error) {
	var res SyncResult
	for _, d := range m.Downloads() {
		if info, err := os.Stat(d.Dest); err == nil && info.Size() > 0 {
			res.Skipped++
			continue
		}
		if dryRun {
			log.Printf("[OEDI] Would download %s -> %s", d.Key, d.Dest)
			res.Downloaded++
			continue
		}
		n, err := c.Download(ctx, d.Key, d.Dest)
		if err != nil {
			return res, err
		}
		res.Downloaded++
		res.Bytes += n
	}
	return res, nil
}

// Download fetches one object key into dest. The file is written to a temporary name
// and renamed on success, so an interrupted download never leaves a partial file behind.
func (c *OEDIClient) Download(ctx context.Context, key, dest string) (int64, error) {
	u := c.BaseURL + "/" + strings.TrimLeft(key, "/")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	log.Printf("[OEDI] Request: GET %s", u)
	startTime := time.Now()
	resp, err := c.Client.Do(req)
	duration := time.Since(startTime)
	if err != nil {
		log.Printf("[OEDI] Request failed: %v (duration: %v)", err, duration)
		return 0, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// Success, continue
	case http.StatusNotFound, http.StatusForbidden:
		// S3 answers 403 for missing keys on buckets without list permission
		log.Printf("[OEDI] Error: %d object not found (key=%s)", resp.StatusCode, key)
		return 0, &OEDIError{
			StatusCode: resp.StatusCode,
			Code:       "OBJECT_NOT_FOUND",
			Message:    fmt.Sprintf("object not found: %s", key),
			URL:        u,
		}
	default:
		log.Printf("[OEDI] Error: %d %s (key=%s)", resp.StatusCode, resp.Status, key)
		return 0, &OEDIError{
			StatusCode: resp.StatusCode,
			Code:       "API_ERROR",
			Message:    fmt.Sprintf("data lake returned status %d: %s", resp.StatusCode, resp.Status),
			URL:        u,
		}
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return 0, fmt.Errorf("failed to create directory: %w", err)
	}
	tmp := dest + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(f, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return 0, fmt.Errorf("failed to write %s: %w", dest, err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		return 0, err
	}

	log.Printf("[OEDI] Success: %d bytes -> %s (duration: %v)", n, dest, time.Since(startTime))
	return n, nil
}
