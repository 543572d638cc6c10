// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/pdiddy/snowball/internal/httputil"
	"github.com/pdiddy/snowball/pkg/types"
)

// openAlexAPIBase is the OpenAlex works endpoint. Declared as a var so tests
// can substitute an httptest server.
var openAlexAPIBase = "https://api.openalex.org/works/"

var errOpenAlexNotFound = errors.New("work not found in OpenAlex")

// openAlexResponse captures the fields we need from an OpenAlex work record.
type openAlexResponse struct {
	BestOALocation *openAlexLocation `json:"best_oa_location"`
}

// openAlexLocation represents an open-access location in the OpenAlex response.
type openAlexLocation struct {
	PDFURL     string `json:"pdf_url"`
	LandingURL string `json:"landing_page_url"`
}

// resolveOpenAlex looks the article up in OpenAlex by PMID, falling back to
// its DOI when the PMID is unknown, and returns the best open-access PDF URL.
func resolveOpenAlex(ctx context.Context, client *http.Client, a types.Article, cfg types.AcquisitionConfig) (Location, error) {
	pdf, err := queryOpenAlex(ctx, client, "pmid:"+string(a.ID), cfg)
	if errors.Is(err, errOpenAlexNotFound) && a.Bib != nil && a.Bib.DOI != "" {
		pdf, err = queryOpenAlex(ctx, client, "https://doi.org/"+a.Bib.DOI, cfg)
	}
	if errors.Is(err, errOpenAlexNotFound) {
		return Location{}, nil
	}
	if err != nil || pdf == "" {
		return Location{}, err
	}
	return Location{URL: pdf, Source: SourceOpenAlex}, nil
}

// queryOpenAlex fetches one work record and returns its open-access PDF URL,
// or an empty string when the work has none.
func queryOpenAlex(ctx context.Context, client *http.Client, key string, cfg types.AcquisitionConfig) (string, error) {
	apiURL := openAlexAPIBase + key
	if cfg.Email != "" {
		apiURL += "?mailto=" + url.QueryEscape(cfg.Email)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return "", fmt.Errorf("creating OpenAlex request: %w", err)
	}
	if cfg.UserAgent != "" {
		req.Header.Set("User-Agent", cfg.UserAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, client, req, 0)
	if err != nil {
		return "", fmt.Errorf("OpenAlex API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", errOpenAlexNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("OpenAlex API returned HTTP %d", resp.StatusCode)
	}

	var oa openAlexResponse
	if err := json.NewDecoder(resp.Body).Decode(&oa); err != nil {
		return "", fmt.Errorf("parsing OpenAlex response: %w", err)
	}

	if oa.BestOALocation == nil {
		return "", nil
	}
	return oa.BestOALocation.PDFURL, nil
}
