// Package bootstrap prepares the two kinds of placeholder files a fresh
// configuration needs before the Configuration Reconciler can converge
// the farm on it: a canned sample APK and an empty test archive
// (SPEC_FULL.md §4.9, recovered from
// original_source/mozilla_bitbar_devicepool/main.py and util/network.py).
package bootstrap

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// maxAttempts bounds the download retry loop (original's
// download_file's max_attempts=3), retried only on transport-level
// failures; an HTTP error status aborts immediately.
const maxAttempts = 3

// FetchBootstrapAPK downloads url into destDir/filename, skipping the
// request entirely when the destination already exists unless force is
// set.
func FetchBootstrapAPK(ctx context.Context, client *http.Client, url, destDir, filename string, force bool) error {
	dest := filepath.Join(destDir, filename)
	if !force {
		if _, err := os.Stat(dest); err == nil {
			return nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("bootstrap: stat %s: %w", dest, err)
		}
	}
	if client == nil {
		client = http.DefaultClient
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := downloadOnce(ctx, client, url, dest)
		if err == nil {
			return nil
		}
		var statusErr *httpStatusError
		if errors.As(err, &statusErr) {
			// HTTP error status aborts immediately; only transport
			// failures are retried.
			return err
		}
		lastErr = err
		if attempt < maxAttempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}
	}
	return fmt.Errorf("bootstrap: download %s failed after %d attempts: %w", url, maxAttempts, lastErr)
}

type httpStatusError struct {
	StatusCode int
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("bootstrap: http status %d", e.StatusCode)
}

func downloadOnce(ctx context.Context, client *http.Client, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("bootstrap: build request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("bootstrap: request %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &httpStatusError{StatusCode: resp.StatusCode}
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("bootstrap: mkdir %s: %w", filepath.Dir(dest), err)
	}
	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("bootstrap: create %s: %w", dest, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		return fmt.Errorf("bootstrap: write %s: %w", dest, err)
	}
	return nil
}

// WriteEmptyTestZip writes a minimal valid, empty ZIP archive to
// destDir/filename, matching the original's
// zipfile.ZipFile(path, mode="w") with no entries added.
func WriteEmptyTestZip(destDir, filename string) error {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("bootstrap: mkdir %s: %w", destDir, err)
	}
	dest := filepath.Join(destDir, filename)
	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("bootstrap: create %s: %w", dest, err)
	}
	defer f.Close()

	w := zip.NewWriter(f)
	return w.Close()
}
