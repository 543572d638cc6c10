// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pdiddy/snowball/internal/httputil"
	"github.com/pdiddy/snowball/pkg/types"
)

func init() {
	httputil.RetryBaseDelay = time.Millisecond
}

const fakePDFContent = "%PDF-1.4 fake"

// newTestServer serves OpenAlex lookups under /openalex/, PDFs under /pdf/
// and Europe PMC renders under /europepmc/.
//
//	pmid:1  -> OA PDF at /pdf/1.pdf
//	pmid:2  -> 404, DOI 10.1000/two has OA PDF /pdf/2.pdf
//	pmid:3  -> no OA location (Europe PMC fallback if PMCID set)
//	pmid:4  -> OA URL that serves HTML
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	var ts *httptest.Server
	ts = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		switch {
		case path == "/openalex/pmid:1":
			fmt.Fprintf(w, `{"best_oa_location": {"pdf_url": %q}}`, ts.URL+"/pdf/1.pdf")
		case path == "/openalex/pmid:2":
			w.WriteHeader(http.StatusNotFound)
		case path == "/openalex/https://doi.org/10.1000/two":
			fmt.Fprintf(w, `{"best_oa_location": {"pdf_url": %q}}`, ts.URL+"/pdf/2.pdf")
		case path == "/openalex/pmid:3":
			fmt.Fprint(w, `{"best_oa_location": null}`)
		case path == "/openalex/pmid:4":
			fmt.Fprintf(w, `{"best_oa_location": {"pdf_url": %q}}`, ts.URL+"/html")
		case strings.HasPrefix(path, "/openalex/"):
			w.WriteHeader(http.StatusNotFound)
		case strings.HasPrefix(path, "/pdf/"):
			if r.Header.Get("Accept") != "application/pdf" {
				t.Errorf("Accept = %q, want application/pdf", r.Header.Get("Accept"))
			}
			w.Header().Set("Content-Type", "application/pdf")
			fmt.Fprint(w, fakePDFContent)
		case path == "/europepmc/PMC7":
			if r.URL.Query().Get("pdf") != "render" {
				t.Errorf("pdf query = %q, want render", r.URL.Query().Get("pdf"))
			}
			fmt.Fprint(w, fakePDFContent)
		case path == "/html":
			fmt.Fprint(w, "<html>landing page</html>")
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(ts.Close)
	return ts
}

// overrideBaseURLs points the resolvers at tsURL and restores them on cleanup.
func overrideBaseURLs(t *testing.T, tsURL string) {
	t.Helper()
	origOA, origPMC := openAlexAPIBase, europePMCBase
	openAlexAPIBase = tsURL + "/openalex/"
	europePMCBase = tsURL + "/europepmc/"
	t.Cleanup(func() {
		openAlexAPIBase, europePMCBase = origOA, origPMC
	})
}

func testConfig(dir string) types.AcquisitionConfig {
	return types.AcquisitionConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   10 * time.Second,
			UserAgent: "snowball-test/0.1",
		},
		PapersDir: dir,
		Email:     "test@example.com",
	}
}

func newTestAcquirer(t *testing.T, ts *httptest.Server, cfg types.AcquisitionConfig) *Acquirer {
	t.Helper()
	overrideBaseURLs(t, ts.URL)
	return New(ts.Client(), cfg, nil)
}

func TestSlug(t *testing.T) {
	tests := []struct {
		in   types.ArticleID
		want string
	}{
		{"31875792", "31875792"},
		{"a/b", "a-b"},
		{"x:y", "x-y"},
		{"..", "unknown"},
		{"", "unknown"},
	}
	for _, tt := range tests {
		if got := Slug(tt.in); got != tt.want {
			t.Errorf("Slug(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAcquirePaperViaOpenAlex(t *testing.T) {
	ts := newTestServer(t)
	dir := t.TempDir()
	q := newTestAcquirer(t, ts, testConfig(dir))

	art := types.Article{ID: "1", Bib: &types.BibRecord{Title: "One"}}
	rec, skipped, err := q.AcquirePaper(context.Background(), art)
	if err != nil {
		t.Fatalf("AcquirePaper: %v", err)
	}
	if skipped {
		t.Error("should not be skipped")
	}
	if rec.Source != SourceOpenAlex {
		t.Errorf("Source = %q, want %q", rec.Source, SourceOpenAlex)
	}

	data, err := os.ReadFile(filepath.Join(dir, "1.pdf"))
	if err != nil {
		t.Fatalf("reading PDF: %v", err)
	}
	if string(data) != fakePDFContent {
		t.Errorf("PDF content = %q, want %q", data, fakePDFContent)
	}

	meta, err := readMetadata(filepath.Join(dir, "1.yaml"))
	if err != nil {
		t.Fatalf("reading metadata: %v", err)
	}
	if meta.Bib == nil || meta.Bib.Title != "One" {
		t.Errorf("metadata bib = %+v, want title One", meta.Bib)
	}
	if meta.SourceURL != ts.URL+"/pdf/1.pdf" {
		t.Errorf("SourceURL = %q", meta.SourceURL)
	}
}

func TestAcquirePaperDOIFallback(t *testing.T) {
	ts := newTestServer(t)
	dir := t.TempDir()
	q := newTestAcquirer(t, ts, testConfig(dir))

	art := types.Article{ID: "2", Bib: &types.BibRecord{DOI: "10.1000/two"}}
	rec, _, err := q.AcquirePaper(context.Background(), art)
	if err != nil {
		t.Fatalf("AcquirePaper: %v", err)
	}
	if rec.SourceURL != ts.URL+"/pdf/2.pdf" {
		t.Errorf("SourceURL = %q, want DOI-resolved PDF", rec.SourceURL)
	}
}

func TestAcquirePaperEuropePMCFallback(t *testing.T) {
	ts := newTestServer(t)
	dir := t.TempDir()
	q := newTestAcquirer(t, ts, testConfig(dir))

	art := types.Article{ID: "3", Bib: &types.BibRecord{PMCID: "PMC7"}}
	rec, _, err := q.AcquirePaper(context.Background(), art)
	if err != nil {
		t.Fatalf("AcquirePaper: %v", err)
	}
	if rec.Source != SourceEuropePMC {
		t.Errorf("Source = %q, want %q", rec.Source, SourceEuropePMC)
	}
	if _, err := os.Stat(filepath.Join(dir, "3.pdf")); err != nil {
		t.Errorf("PDF not written: %v", err)
	}
}

func TestAcquirePaperNoFullText(t *testing.T) {
	ts := newTestServer(t)
	dir := t.TempDir()
	q := newTestAcquirer(t, ts, testConfig(dir))

	_, _, err := q.AcquirePaper(context.Background(), types.Article{ID: "3"})
	if !errors.Is(err, ErrNoFullText) {
		t.Fatalf("err = %v, want ErrNoFullText", err)
	}
	if _, statErr := os.Stat(filepath.Join(dir, "3.pdf")); !os.IsNotExist(statErr) {
		t.Error("no PDF should be written")
	}
}

func TestAcquirePaperRejectsHTML(t *testing.T) {
	ts := newTestServer(t)
	dir := t.TempDir()
	q := newTestAcquirer(t, ts, testConfig(dir))

	_, _, err := q.AcquirePaper(context.Background(), types.Article{ID: "4"})
	if err == nil || !strings.Contains(err.Error(), "not a PDF") {
		t.Fatalf("err = %v, want not a PDF", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("directory should be empty, found %d entries", len(entries))
	}
}

func TestAcquirePaperSkipExisting(t *testing.T) {
	ts := newTestServer(t)
	dir := t.TempDir()
	q := newTestAcquirer(t, ts, testConfig(dir))

	if err := os.WriteFile(filepath.Join(dir, "1.pdf"), []byte("existing"), 0o644); err != nil {
		t.Fatal(err)
	}

	rec, skipped, err := q.AcquirePaper(context.Background(), types.Article{ID: "1"})
	if err != nil {
		t.Fatalf("AcquirePaper: %v", err)
	}
	if !skipped {
		t.Error("existing PDF should be skipped")
	}
	if rec.PDFPath != filepath.Join(dir, "1.pdf") {
		t.Errorf("PDFPath = %q", rec.PDFPath)
	}
	data, _ := os.ReadFile(filepath.Join(dir, "1.pdf"))
	if string(data) != "existing" {
		t.Error("existing PDF was overwritten")
	}
}

func TestAcquireBatch(t *testing.T) {
	ts := newTestServer(t)
	dir := t.TempDir()
	cfg := testConfig(dir)
	cfg.DownloadDelay = time.Second
	q := newTestAcquirer(t, ts, cfg)

	var sleeps []time.Duration
	q.sleep = func(ctx context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return nil
	}

	if err := os.WriteFile(filepath.Join(dir, "3.pdf"), []byte("%PDF-old"), 0o644); err != nil {
		t.Fatal(err)
	}

	result := q.AcquireBatch(context.Background(), []types.Article{
		{ID: "1"},
		{ID: "3"},
		{ID: "99"},
	})

	if result.Downloaded != 1 || result.Skipped != 1 || result.Failed != 1 {
		t.Errorf("result = %+v, want 1 downloaded, 1 skipped, 1 failed", result)
	}
	if result.Total() != 3 {
		t.Errorf("Total() = %d, want 3", result.Total())
	}
	if !result.HasFailures() {
		t.Error("HasFailures() = false")
	}
	if len(result.Failures) != 1 || result.Failures[0].ID != "99" {
		t.Errorf("Failures = %+v, want one failure for 99", result.Failures)
	}
	if len(sleeps) != 2 {
		t.Errorf("slept %d times, want 2", len(sleeps))
	}
}

func TestAcquireBatchCancelled(t *testing.T) {
	ts := newTestServer(t)
	q := newTestAcquirer(t, ts, testConfig(t.TempDir()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result := q.AcquireBatch(ctx, []types.Article{{ID: "1"}, {ID: "2"}})
	if result.Total() != 0 {
		t.Errorf("Total() = %d, want 0 after cancellation", result.Total())
	}
}

func TestNormalizePMCID(t *testing.T) {
	tests := map[string]string{
		"PMC123": "PMC123",
		"pmc123": "PMC123",
		"123":    "PMC123",
		" PMC9 ": "PMC9",
		"PMC":    "",
		"PMCabc": "",
		"":       "",
	}
	for in, want := range tests {
		if got := normalizePMCID(in); got != want {
			t.Errorf("normalizePMCID(%q) = %q, want %q", in, got, want)
		}
	}
}
