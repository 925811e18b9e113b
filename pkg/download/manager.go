// Package download implements the streaming transfer engine: a chunked HTTP
// download with pooled buffers, progress callbacks and an atomic temp-file
// commit so readers of the destination path never observe partial content.
package download

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/glorpus-work/modelfetch/internal/logger"
	pkgerrors "github.com/glorpus-work/modelfetch/pkg/errors"
	"github.com/glorpus-work/modelfetch/pkg/fsutil"
)

// TempSuffix is appended to the destination path while a transfer is in
// flight. A failed transfer leaves the temporary file behind for inspection.
const TempSuffix = ".tmp"

// bufferSize is the size of each pooled copy buffer. Large enough to keep
// syscall overhead low on multi-gigabyte transfers.
const bufferSize = 1 << 20

// bufferPool recycles copy buffers across transfers instead of reallocating
// per chunk.
var bufferPool = sync.Pool{
	New: func() interface{} {
		buf := make([]byte, bufferSize)
		return &buf
	},
}

// ManagerImpl is an HTTP-based transfer engine with optional checksum
// verification.
type ManagerImpl struct {
	client    *http.Client
	userAgent string
}

// NewManager creates a new transfer engine with the given timeout and user agent.
func NewManager(timeout time.Duration, userAgent string) *ManagerImpl {
	if userAgent == "" {
		userAgent = "modelfetch/1.0"
	}
	return &ManagerImpl{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

// Fetch streams item.URL to item.Dest. See Manager for the contract.
func (m *ManagerImpl) Fetch(ctx context.Context, item Item) (int64, error) {
	if item.Dest == "" || !filepath.IsAbs(item.Dest) {
		return 0, fmt.Errorf("destination must be absolute: %s: %w", item.Dest, pkgerrors.ErrInvalidPath)
	}
	if err := os.MkdirAll(filepath.Dir(item.Dest), fsutil.DirModeDefault); err != nil {
		return 0, pkgerrors.Wrap(err, "could not create destination dir")
	}

	resp, err := m.doRequest(ctx, item.URL)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	// The Content-Length header is authoritative when present.
	expected := item.ExpectedSize
	if resp.ContentLength > 0 {
		expected = resp.ContentLength
	}

	tmpPath := item.Dest + TempSuffix
	written, err := writeBody(resp.Body, tmpPath, expected, item.OnProgress)
	if err != nil {
		// The temporary file is deliberately left in place.
		return 0, err
	}

	if item.Checksum != "" {
		ok, err := verifySHA256(tmpPath, item.Checksum)
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, fmt.Errorf("checksum mismatch for %s: %w", item.URL, pkgerrors.ErrFileHashMismatch)
		}
		logger.Debugf("download: checksum verified for %s", item.Dest)
	}

	if err := commit(tmpPath, item.Dest); err != nil {
		return 0, err
	}
	return written, nil
}

func (m *ManagerImpl) doRequest(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to create request")
	}
	req.Header.Set("User-Agent", m.userAgent)

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "download failed")
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("unexpected status code: %d: %w", resp.StatusCode, pkgerrors.ErrDownloadFailed)
	}
	return resp, nil
}

// writeBody copies the response body to tmpPath chunk by chunk, reporting
// fractional progress after every write when the expected size is known.
func writeBody(body io.Reader, tmpPath string, expected int64, onProgress func(float64)) (int64, error) {
	tmp, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, fsutil.FileModeDefault)
	if err != nil {
		return 0, pkgerrors.Wrap(err, "could not create temp file")
	}

	bufPtr := bufferPool.Get().(*[]byte)
	defer bufferPool.Put(bufPtr)
	buf := *bufPtr

	var written int64
	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			if _, writeErr := tmp.Write(buf[:n]); writeErr != nil {
				_ = tmp.Close()
				return 0, pkgerrors.Wrap(writeErr, "could not write file")
			}
			written += int64(n)
			if onProgress != nil && expected > 0 {
				onProgress(float64(written) / float64(expected))
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			_ = tmp.Close()
			return 0, pkgerrors.Wrap(readErr, "could not read response body")
		}
	}

	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return 0, pkgerrors.Wrap(err, "could not sync file")
	}
	if err := tmp.Close(); err != nil {
		return 0, pkgerrors.Wrap(err, "could not close file")
	}
	return written, nil
}

// commit replaces dest with the completed temporary file. The rename is the
// sole externally visible state transition.
func commit(tmpPath, dest string) error {
	if _, err := os.Stat(dest); err == nil {
		if err := os.Remove(dest); err != nil {
			return pkgerrors.Wrap(err, "could not remove previous file")
		}
	}
	if err := fsutil.Move(tmpPath, dest); err != nil {
		return pkgerrors.Wrap(err, "could not finalize file")
	}
	return nil
}

func verifySHA256(path string, wantHex string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, pkgerrors.Wrap(err, "open for checksum")
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return false, pkgerrors.Wrap(err, "hashing")
	}
	got := hex.EncodeToString(h.Sum(nil))
	return got == strings.ToLower(strings.TrimSpace(wantHex)), nil
}
