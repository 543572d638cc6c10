// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package snowball grows a set of seed PubMed identifiers by following
// related-article links, fetches bibliographic metadata for the final set,
// and ranks the articles by inbound citations inside the discovered subgraph.
package snowball

import (
	"context"
	"errors"
	"time"

	"github.com/pdiddy/snowball/internal/provider"
	"github.com/pdiddy/snowball/internal/retry"
	"github.com/pdiddy/snowball/pkg/types"
)

// ArticleFetcher builds Article aggregates from a provider, retrying each
// provider call independently.
type ArticleFetcher struct {
	provider provider.Provider
	retrier  *retry.Retrier
	delay    time.Duration
}

// NewArticleFetcher returns a fetcher over p. delay is the fixed pause taken
// after each successful article fetch; zero disables it.
func NewArticleFetcher(p provider.Provider, r *retry.Retrier, delay time.Duration) *ArticleFetcher {
	return &ArticleFetcher{provider: p, retrier: r, delay: delay}
}

// Fetch retrieves the related sets for id and, when includeBib is set, its
// bibliographic record. Both calls are attempted even if the first fails;
// any failure fails the whole Article so no partial aggregate is returned.
// Context errors abort immediately.
func (f *ArticleFetcher) Fetch(ctx context.Context, id types.ArticleID, includeBib bool) (types.Article, error) {
	var bib *types.BibRecord
	var bibErr error
	if includeBib {
		bib, bibErr = retry.Do(ctx, f.retrier, "bibliography fetch for "+string(id),
			func(ctx context.Context) (*types.BibRecord, error) {
				return f.provider.FetchBibliography(ctx, id)
			})
		if ctx.Err() != nil {
			return types.Article{}, ctx.Err()
		}
	}

	rel, relErr := retry.Do(ctx, f.retrier, "related fetch for "+string(id),
		func(ctx context.Context) (types.RelatedSet, error) {
			return f.provider.FetchRelated(ctx, id)
		})
	if ctx.Err() != nil {
		return types.Article{}, ctx.Err()
	}

	if err := errors.Join(bibErr, relErr); err != nil {
		return types.Article{}, err
	}
	return types.Article{ID: id, Bib: bib, Related: rel}, nil
}

// pause waits out the configured inter-article delay.
func (f *ArticleFetcher) pause(ctx context.Context) error {
	if f.delay <= 0 {
		return nil
	}
	return f.retrier.Sleep(ctx, f.delay)
}

// recoverable reports whether err is a per-identifier failure that should
// be recorded and skipped rather than stopping the run.
func recoverable(ctx context.Context, err error) bool {
	return ctx.Err() == nil && retry.IsExhausted(err)
}
