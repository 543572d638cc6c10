// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pubmed implements the article provider on top of the NCBI
// E-utilities API: efetch for bibliographic records and elink for the
// related, cited-by and reference identifier sets.
//
// The E-utilities API documentation is available at:
// https://www.ncbi.nlm.nih.gov/books/NBK25499/
package pubmed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"github.com/pdiddy/snowball/internal/httputil"
	"github.com/pdiddy/snowball/internal/provider"
	"github.com/pdiddy/snowball/pkg/types"
)

// eutilsBase is the E-utilities root. Declared as a var so tests can
// substitute an httptest server.
var eutilsBase = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/"

const (
	toolName           = "snowball"
	defaultCallTimeout = 30 * time.Second
	defaultCacheSize   = 4096

	// NCBI allows 3 requests per second without an API key and 10 with one.
	anonymousRate = 3
	keyedRate     = 10

	maxResponseBytes = 32 << 20
)

// Client fetches PubMed records. It paces requests to the NCBI budget and
// caches raw responses for the lifetime of the process, so members that are
// fetched again in a later expansion round cost no extra requests.
// Client is not safe for concurrent use.
type Client struct {
	http    *http.Client
	cfg     types.PubMedConfig
	limiter *rate.Limiter
	cache   *lru.Cache[string, []byte]
}

// New creates a Client. A nil httpClient gets one with cfg.Timeout.
func New(httpClient *http.Client, cfg types.PubMedConfig) (*Client, error) {
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = defaultCallTimeout
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = defaultCacheSize
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	cache, err := lru.New[string, []byte](cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating response cache: %w", err)
	}

	perSecond := anonymousRate
	if cfg.APIKey != "" {
		perSecond = keyedRate
	}

	return &Client{
		http:    httpClient,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Every(time.Second/time.Duration(perSecond)), 1),
		cache:   cache,
	}, nil
}

// FetchBibliography retrieves the bibliographic record for id via efetch.
func (c *Client) FetchBibliography(ctx context.Context, id types.ArticleID) (*types.BibRecord, error) {
	var bib *types.BibRecord
	err := c.get(ctx, "efetch.fcgi", url.Values{
		"db":      {"pubmed"},
		"id":      {string(id)},
		"retmode": {"xml"},
	}, func(body []byte) error {
		var err error
		bib, err = parseBibliography(body, id)
		return err
	})
	if err != nil {
		return nil, provider.Wrap(provider.OpBibliography, id, err)
	}
	return bib, nil
}

// FetchRelated retrieves the related, cited-by and reference sets for id
// via elink.
func (c *Client) FetchRelated(ctx context.Context, id types.ArticleID) (types.RelatedSet, error) {
	var rel types.RelatedSet
	err := c.get(ctx, "elink.fcgi", url.Values{
		"dbfrom":  {"pubmed"},
		"db":      {"pubmed"},
		"id":      {string(id)},
		"cmd":     {"neighbor"},
		"retmode": {"json"},
	}, func(body []byte) error {
		var err error
		rel, err = parseRelated(body, id)
		return err
	})
	if err != nil {
		return types.RelatedSet{}, provider.Wrap(provider.OpRelated, id, err)
	}
	return rel, nil
}

// get performs one paced E-utilities GET and hands the body to decode.
// Bodies are cached only when decode accepts them.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values, decode func([]byte) error) error {
	key := endpoint + "?" + params.Encode()
	if body, ok := c.cache.Get(key); ok {
		return decode(body)
	}

	params.Set("tool", toolName)
	if c.cfg.Email != "" {
		params.Set("email", c.cfg.Email)
	}
	if c.cfg.APIKey != "" {
		params.Set("api_key", c.cfg.APIKey)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	callCtx, cancel := context.WithTimeout(ctx, c.cfg.CallTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, eutilsBase+endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	resp, err := httputil.DoWithRetry(callCtx, c.http, req, 0)
	if err != nil {
		return fmt.Errorf("E-utilities %s request: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("E-utilities %s returned HTTP %d", endpoint, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("reading %s response: %w", endpoint, err)
	}

	if err := decode(body); err != nil {
		return err
	}
	c.cache.Add(key, body)
	return nil
}

var _ provider.Provider = (*Client)(nil)
