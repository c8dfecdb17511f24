package catalog

import (
	"context"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/time/rate"

	"github.com/c360studio/semcat/errors"
)

// Download is the local mirror of one distribution.
type Download struct {
	// Distribution is the catalog entry the file came from.
	Distribution Distribution

	// Path is the local file path.
	Path string

	// Cached reports whether an existing verified copy was reused.
	Cached bool
}

// downloader mirrors distribution files into the working directory.
type downloader struct {
	workDir string
	client  *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// fetch downloads one distribution, reusing a cached copy when its
// checksum still verifies.
func (d *downloader) fetch(ctx context.Context, dist Distribution) (Download, error) {
	if dist.DownloadURL == "" {
		return Download{}, fmt.Errorf("catalog: distribution %s has no download URL: %w",
			dist.IRI, errors.ErrInvalidData)
	}
	local := d.localPath(dist)

	if _, err := os.Stat(local); err == nil {
		if verifyErr := verifyChecksum(local, dist.Checksum, d.logger); verifyErr == nil {
			d.logger.Debug("distribution cached", "url", dist.DownloadURL, "path", local)
			return Download{Distribution: dist, Path: local, Cached: true}, nil
		}
		d.logger.Warn("cached copy failed verification, redownloading",
			"url", dist.DownloadURL, "path", local)
	}

	if err := d.limiter.Wait(ctx); err != nil {
		return Download{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, dist.DownloadURL, nil)
	if err != nil {
		return Download{}, errors.WrapInvalid(err, "catalog", "fetch", "build request")
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return Download{}, errors.WrapTransient(err, "catalog", "fetch",
			"download "+dist.DownloadURL)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Download{}, fmt.Errorf("catalog: download %s returned %d: %w",
			dist.DownloadURL, resp.StatusCode, errors.ErrEndpointDown)
	}

	tmp, err := os.CreateTemp(d.workDir, ".download-*")
	if err != nil {
		return Download{}, errors.Wrap(err, "catalog", "fetch", "create temp file")
	}
	defer os.Remove(tmp.Name())

	written, err := io.Copy(tmp, resp.Body)
	closeErr := tmp.Close()
	if err != nil {
		return Download{}, errors.WrapTransient(err, "catalog", "fetch",
			"read body of "+dist.DownloadURL)
	}
	if closeErr != nil {
		return Download{}, errors.Wrap(closeErr, "catalog", "fetch", "flush temp file")
	}

	if err := verifyChecksum(tmp.Name(), dist.Checksum, d.logger); err != nil {
		return Download{}, err
	}
	if err := os.Rename(tmp.Name(), local); err != nil {
		return Download{}, errors.Wrap(err, "catalog", "fetch", "move into place")
	}

	d.logger.Info("distribution downloaded",
		"url", dist.DownloadURL, "path", local, "bytes", written)
	return Download{Distribution: dist, Path: local}, nil
}

// localPath derives a stable per-URL file name so different distributions
// with the same base name do not collide.
func (d *downloader) localPath(dist Distribution) string {
	sum := sha256.Sum256([]byte(dist.DownloadURL))
	base := path.Base(dist.DownloadURL)
	if base == "." || base == "/" || base == "" {
		base = "distribution"
	}
	return filepath.Join(d.workDir, hex.EncodeToString(sum[:6])+"_"+base)
}

// verifyChecksum checks the file against the expected digest. A nil
// checksum passes; an unsupported algorithm is logged and passes.
func verifyChecksum(filePath string, expected *Checksum, logger *slog.Logger) error {
	if expected == nil {
		return nil
	}
	var h hash.Hash
	switch expected.Algorithm {
	case "sha256":
		h = sha256.New()
	case "sha1":
		h = sha1.New()
	case "md5":
		h = md5.New()
	default:
		logger.Warn("unsupported checksum algorithm, skipping verification",
			"algorithm", expected.Algorithm, "path", filePath)
		return nil
	}

	f, err := os.Open(filePath)
	if err != nil {
		return errors.Wrap(err, "catalog", "verifyChecksum", "open file")
	}
	defer f.Close()
	if _, err := io.Copy(h, f); err != nil {
		return errors.Wrap(err, "catalog", "verifyChecksum", "hash file")
	}

	got := hex.EncodeToString(h.Sum(nil))
	if !strings.EqualFold(got, expected.Value) {
		return fmt.Errorf("catalog: %s digest %s does not match expected %s: %w",
			expected.Algorithm, got, expected.Value, errors.ErrChecksumMismatch)
	}
	return nil
}
