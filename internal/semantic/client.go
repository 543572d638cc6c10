// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package semantic implements the article provider on top of the Semantic
// Scholar Graph and Recommendations APIs. Articles are addressed by PubMed
// identifier; linked papers without a PubMed identifier are dropped.
//
// API documentation: https://api.semanticscholar.org/api-docs/
package semantic

import (
	"context"
	"errors"
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

// apiBase is the Semantic Scholar API root. Declared as a var so tests can
// substitute an httptest server.
var apiBase = "https://api.semanticscholar.org/"

const (
	paperFields = "title,abstract,authors,externalIds,year,venue,journal,fieldsOfStudy"
	linkFields  = "externalIds"

	defaultCallTimeout = 30 * time.Second
	defaultCacheSize   = 4096
	defaultRate        = 1.0
	defaultLinkLimit   = 1000

	// The recommendations endpoint rejects limits above 500.
	maxRecommendations = 500

	maxResponseBytes = 32 << 20
)

// Client fetches Semantic Scholar records. Requests are paced and raw
// responses cached for the lifetime of the process. Client is not safe for
// concurrent use.
type Client struct {
	http    *http.Client
	cfg     types.SemanticScholarConfig
	limiter *rate.Limiter
	cache   *lru.Cache[string, []byte]
}

// New creates a Client. A nil httpClient gets one with cfg.Timeout.
func New(httpClient *http.Client, cfg types.SemanticScholarConfig) (*Client, error) {
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = defaultCallTimeout
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = defaultCacheSize
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = defaultRate
	}
	if cfg.LinkLimit <= 0 {
		cfg.LinkLimit = defaultLinkLimit
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	cache, err := lru.New[string, []byte](cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating response cache: %w", err)
	}

	return &Client{
		http:    httpClient,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		cache:   cache,
	}, nil
}

// FetchBibliography retrieves the paper record for the PubMed id.
func (c *Client) FetchBibliography(ctx context.Context, id types.ArticleID) (*types.BibRecord, error) {
	var p paper
	err := c.get(ctx, "graph/v1/paper/"+paperRef(id), url.Values{"fields": {paperFields}}, func(body []byte) error {
		return decode(body, &p)
	})
	if err != nil {
		return nil, provider.Wrap(provider.OpBibliography, id, err)
	}
	return p.bib(), nil
}

// FetchRelated assembles the related set for id from three calls:
// recommendations become Forward, citing papers CitedBy and cited papers
// References.
func (c *Client) FetchRelated(ctx context.Context, id types.ArticleID) (types.RelatedSet, error) {
	var rel types.RelatedSet
	if err := c.related(ctx, id, &rel); err != nil {
		return types.RelatedSet{}, provider.Wrap(provider.OpRelated, id, err)
	}
	return rel, nil
}

func (c *Client) related(ctx context.Context, id types.ArticleID, rel *types.RelatedSet) error {
	ref := paperRef(id)

	var recs recommendations
	err := c.get(ctx, "recommendations/v1/papers/forpaper/"+ref, url.Values{
		"fields": {linkFields},
		"limit":  {fmt.Sprint(min(c.cfg.LinkLimit, maxRecommendations))},
	}, func(body []byte) error { return decode(body, &recs) })
	if err != nil {
		return err
	}
	rel.Forward = pubmedIDs(recs.Papers, id)

	var cites linkPage
	err = c.get(ctx, "graph/v1/paper/"+ref+"/citations", c.linkParams(), func(body []byte) error {
		return decode(body, &cites)
	})
	if err != nil {
		return err
	}
	rel.CitedBy = pubmedIDs(cites.citing(), id)

	var refs linkPage
	err = c.get(ctx, "graph/v1/paper/"+ref+"/references", c.linkParams(), func(body []byte) error {
		return decode(body, &refs)
	})
	if err != nil {
		return err
	}
	rel.References = pubmedIDs(refs.cited(), id)
	return nil
}

func (c *Client) linkParams() url.Values {
	return url.Values{
		"fields": {linkFields},
		"limit":  {fmt.Sprint(c.cfg.LinkLimit)},
	}
}

// errStatus is a non-200 response other than 404.
var errStatus = errors.New("unexpected HTTP status")

// get performs one paced GET and hands the body to decode. Bodies are cached
// only when decode accepts them.
func (c *Client) get(ctx context.Context, path string, params url.Values, decode func([]byte) error) error {
	key := path + "?" + params.Encode()
	if body, ok := c.cache.Get(key); ok {
		return decode(body)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	callCtx, cancel := context.WithTimeout(ctx, c.cfg.CallTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, apiBase+key, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if c.cfg.APIKey != "" {
		req.Header.Set("x-api-key", c.cfg.APIKey)
	}
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	resp, err := httputil.DoWithRetry(callCtx, c.http, req, 0)
	if err != nil {
		return fmt.Errorf("Semantic Scholar request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return provider.ErrNotFound
	default:
		return fmt.Errorf("Semantic Scholar %s: %w %d", path, errStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("reading Semantic Scholar response: %w", err)
	}

	if err := decode(body); err != nil {
		return err
	}
	c.cache.Add(key, body)
	return nil
}

// paperRef is the Semantic Scholar external-id form of a PubMed id.
func paperRef(id types.ArticleID) string {
	return "PMID:" + url.PathEscape(string(id))
}

var _ provider.Provider = (*Client)(nil)
