// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package snowball

import (
	"context"
	"io"

	"github.com/charmbracelet/log"

	"github.com/pdiddy/snowball/pkg/types"
)

// Fetcher retrieves full Articles, bibliography included, for a final set.
type Fetcher struct {
	fetcher *ArticleFetcher
	logger  *log.Logger
}

// NewFetcher returns a Fetcher. A nil logger discards output.
func NewFetcher(f *ArticleFetcher, logger *log.Logger) *Fetcher {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Fetcher{fetcher: f, logger: logger}
}

// Fetch retrieves every member of ids with bibliography. Identifiers that
// fail are recorded in the result's Failures and stay in its IDs. A context
// error stops the pass and is returned with what was fetched so far.
func (f *Fetcher) Fetch(ctx context.Context, ids types.IDSet) (types.ExpansionResult, error) {
	res := types.ExpansionResult{IDs: ids.Clone()}
	sorted := ids.Sorted()

	for i, id := range sorted {
		art, err := f.fetcher.Fetch(ctx, id, true)
		if err != nil {
			if !recoverable(ctx, err) {
				return res, err
			}
			f.logger.Warn("Skipping article", "id", id, "err", err)
			res.Failures = append(res.Failures, types.Failure{ID: id, Err: err.Error()})
			continue
		}
		res.Articles = append(res.Articles, art)
		f.logger.Debugf("Fetched %s (%d/%d)", id, i+1, len(sorted))

		if err := f.fetcher.pause(ctx); err != nil {
			return res, err
		}
	}
	return res, nil
}

// Report is the combined outcome of expansion and the bibliography pass.
type Report struct {
	Expansion Expansion
	Result    types.ExpansionResult
}

// Collect expands seeds and then fetches bibliography for the resulting set.
// An aborted expansion still proceeds to the bibliography pass with the set
// it kept; only a context error stops Collect.
func Collect(ctx context.Context, e *Expander, f *Fetcher, seeds types.IDSet) (Report, error) {
	exp, err := e.Expand(ctx, seeds)
	if err != nil {
		return Report{}, err
	}
	rep := Report{Expansion: exp}
	if ctx.Err() != nil {
		rep.Result = types.ExpansionResult{IDs: exp.IDs.Clone()}
		return rep, ctx.Err()
	}

	res, err := f.Fetch(ctx, exp.IDs)
	rep.Result = res
	return rep, err
}
