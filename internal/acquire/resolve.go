// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"context"
	"net/http"
	"strings"

	"github.com/pdiddy/snowball/pkg/types"
)

// europePMCBase renders PMC articles as PDF. Declared as a var so tests can
// substitute an httptest server.
var europePMCBase = "https://europepmc.org/articles/"

// Source names where a PDF URL came from.
type Source string

const (
	SourceOpenAlex  Source = "openalex"
	SourceEuropePMC Source = "europepmc"
)

// Location is a resolved full-text URL.
type Location struct {
	URL    string `yaml:"url"`
	Source Source `yaml:"source"`
}

// resolver finds a PDF URL for an article. It returns a zero Location when
// the source knows of no PDF.
type resolver func(ctx context.Context, client *http.Client, a types.Article, cfg types.AcquisitionConfig) (Location, error)

// resolvers are tried in order; the first non-empty Location wins.
var resolvers = []struct {
	name Source
	fn   resolver
}{
	{SourceOpenAlex, resolveOpenAlex},
	{SourceEuropePMC, resolveEuropePMC},
}

// Resolve walks the resolver chain for a. Errors from one resolver are
// collected but do not stop later resolvers; they are returned only when no
// resolver produced a URL.
func Resolve(ctx context.Context, client *http.Client, a types.Article, cfg types.AcquisitionConfig) (Location, []error) {
	var errs []error
	for _, r := range resolvers {
		loc, err := r.fn(ctx, client, a, cfg)
		if err != nil {
			if ctx.Err() != nil {
				return Location{}, append(errs, ctx.Err())
			}
			errs = append(errs, err)
			continue
		}
		if loc.URL != "" {
			return loc, nil
		}
	}
	return Location{}, errs
}

// resolveEuropePMC builds the Europe PMC render URL from the article's PMCID.
// It needs no request; the download itself verifies the PDF exists.
func resolveEuropePMC(_ context.Context, _ *http.Client, a types.Article, _ types.AcquisitionConfig) (Location, error) {
	if a.Bib == nil {
		return Location{}, nil
	}
	pmcid := normalizePMCID(a.Bib.PMCID)
	if pmcid == "" {
		return Location{}, nil
	}
	return Location{URL: europePMCBase + pmcid + "?pdf=render", Source: SourceEuropePMC}, nil
}

// normalizePMCID accepts "PMC123", "pmc123" and "123" and returns "PMC123".
func normalizePMCID(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if len(s) >= 3 && strings.EqualFold(s[:3], "PMC") {
		s = s[3:]
	}
	if s == "" {
		return ""
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return ""
		}
	}
	return "PMC" + s
}
