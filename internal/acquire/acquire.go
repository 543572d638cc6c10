// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package acquire downloads open-access full text for fetched articles and
// writes a metadata record next to each PDF.
package acquire

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/snowball/internal/httputil"
	"github.com/pdiddy/snowball/pkg/types"
)

// ErrNoFullText is returned when no resolver found a PDF for an article.
var ErrNoFullText = errors.New("no open-access full text found")

var pdfMagic = []byte("%PDF-")

// Record is the metadata written beside a downloaded PDF as <id>.yaml.
type Record struct {
	ID        types.ArticleID  `yaml:"id"`
	Source    Source           `yaml:"source,omitempty"`
	SourceURL string           `yaml:"source_url,omitempty"`
	PDFPath   string           `yaml:"pdf_path"`
	Bib       *types.BibRecord `yaml:"bib,omitempty"`
}

// BatchResult holds the outcome of a batch acquisition run.
type BatchResult struct {
	Downloaded int
	Skipped    int
	Failed     int
	Records    []Record
	Failures   []types.Failure
}

// Total returns the total number of articles processed.
func (r BatchResult) Total() int {
	return r.Downloaded + r.Skipped + r.Failed
}

// HasFailures reports whether any article failed.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

// Acquirer resolves and downloads PDFs into cfg.PapersDir.
type Acquirer struct {
	client *http.Client
	cfg    types.AcquisitionConfig
	logger *log.Logger

	// sleep waits between downloads; tests replace it.
	sleep func(ctx context.Context, d time.Duration) error
}

// New returns an Acquirer. A nil client gets one with cfg.Timeout; a nil
// logger discards output.
func New(client *http.Client, cfg types.AcquisitionConfig, logger *log.Logger) *Acquirer {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Acquirer{client: client, cfg: cfg, logger: logger, sleep: sleepContext}
}

// Slug returns a filesystem-safe filename stem for id.
func Slug(id types.ArticleID) string {
	s := strings.NewReplacer("/", "-", `\`, "-", ":", "-").Replace(strings.TrimSpace(string(id)))
	if s == "" || s == "." || s == ".." {
		return "unknown"
	}
	return s
}

// AcquirePaper resolves and downloads the PDF for a, then writes its
// metadata record. If the PDF already exists on disk, it skips the download.
// The skipped return value indicates whether the download was skipped.
func (q *Acquirer) AcquirePaper(ctx context.Context, a types.Article) (rec Record, skipped bool, err error) {
	slug := Slug(a.ID)
	pdfPath := filepath.Join(q.cfg.PapersDir, slug+".pdf")
	metaPath := filepath.Join(q.cfg.PapersDir, slug+".yaml")

	if _, err := os.Stat(pdfPath); err == nil {
		q.logger.Info("Skipped (already exists)", "id", a.ID)
		r, readErr := readMetadata(metaPath)
		if readErr != nil {
			r = Record{ID: a.ID, PDFPath: pdfPath, Bib: a.Bib}
		}
		return r, true, nil
	}

	loc, errs := Resolve(ctx, q.client, a, q.cfg)
	if loc.URL == "" {
		if len(errs) > 0 {
			return Record{}, false, fmt.Errorf("%w for %s: %w", ErrNoFullText, a.ID, errors.Join(errs...))
		}
		return Record{}, false, fmt.Errorf("%w for %s", ErrNoFullText, a.ID)
	}

	if err := os.MkdirAll(q.cfg.PapersDir, 0o755); err != nil {
		return Record{}, false, fmt.Errorf("creating directory %s: %w", q.cfg.PapersDir, err)
	}

	q.logger.Info("Downloading", "id", a.ID, "source", loc.Source)
	if err := q.downloadFile(ctx, loc.URL, pdfPath); err != nil {
		return Record{}, false, fmt.Errorf("downloading %s: %w", a.ID, err)
	}

	rec = Record{
		ID:        a.ID,
		Source:    loc.Source,
		SourceURL: loc.URL,
		PDFPath:   pdfPath,
		Bib:       a.Bib,
	}
	if err := writeMetadata(rec, metaPath); err != nil {
		return Record{}, false, fmt.Errorf("writing metadata for %s: %w", a.ID, err)
	}
	return rec, false, nil
}

// AcquireBatch processes multiple articles, logging per-item status and
// returning a summary. It continues after individual failures and applies
// DownloadDelay between consecutive articles. Cancellation ends the batch
// early; unprocessed articles are not counted.
func (q *Acquirer) AcquireBatch(ctx context.Context, articles []types.Article) BatchResult {
	var result BatchResult
	for i, a := range articles {
		if i > 0 && q.cfg.DownloadDelay > 0 {
			if err := q.sleep(ctx, q.cfg.DownloadDelay); err != nil {
				break
			}
		}
		if ctx.Err() != nil {
			break
		}
		rec, wasSkipped, err := q.AcquirePaper(ctx, a)
		if err != nil {
			q.logger.Warn("Failed", "id", a.ID, "err", err)
			result.Failed++
			result.Failures = append(result.Failures, types.Failure{ID: a.ID, Err: err.Error()})
			continue
		}
		if wasSkipped {
			result.Skipped++
		} else {
			result.Downloaded++
		}
		result.Records = append(result.Records, rec)
	}
	q.logger.Infof("Batch summary: %d downloaded, %d skipped, %d failed (total: %d)",
		result.Downloaded, result.Skipped, result.Failed, result.Total())
	return result
}

// downloadFile fetches url to destPath using a temporary file. The body must
// start with the PDF magic bytes, so HTML landing pages are rejected.
func (q *Acquirer) downloadFile(ctx context.Context, url, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if q.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", q.cfg.UserAgent)
	}
	req.Header.Set("Accept", "application/pdf")

	resp, err := httputil.DoWithRetry(ctx, q.client, req, 0)
	if err != nil {
		return fmt.Errorf("HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d from %s", resp.StatusCode, url)
	}

	body := bufio.NewReader(resp.Body)
	head, _ := body.Peek(len(pdfMagic))
	if !bytes.Equal(head, pdfMagic) {
		return fmt.Errorf("response from %s is not a PDF", url)
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), ".acquire-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	_, copyErr := io.Copy(tmpFile, body)
	closeErr := tmpFile.Close()
	if copyErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing download: %w", copyErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// writeMetadata writes a Record to a YAML file.
func writeMetadata(rec Record, path string) error {
	data, err := yaml.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshaling metadata: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// readMetadata reads a Record from a YAML file.
func readMetadata(path string) (Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Record{}, err
	}
	var rec Record
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
