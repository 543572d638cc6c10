// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package snowball

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/snowball/internal/provider"
	"github.com/pdiddy/snowball/internal/retry"
	"github.com/pdiddy/snowball/pkg/types"
)

// graphProvider serves a static graph and lets tests inject behaviour per
// call.
type graphProvider struct {
	*provider.Static
	relatedCalls map[types.ArticleID]int
	bibCalls     map[types.ArticleID]int
	onRelated    func(id types.ArticleID) error
	onBib        func(id types.ArticleID) error
}

func newGraphProvider(articles ...types.Article) *graphProvider {
	return &graphProvider{
		Static:       provider.NewStatic(articles),
		relatedCalls: map[types.ArticleID]int{},
		bibCalls:     map[types.ArticleID]int{},
	}
}

func (g *graphProvider) FetchRelated(ctx context.Context, id types.ArticleID) (types.RelatedSet, error) {
	g.relatedCalls[id]++
	if g.onRelated != nil {
		if err := g.onRelated(id); err != nil {
			return types.RelatedSet{}, err
		}
	}
	return g.Static.FetchRelated(ctx, id)
}

func (g *graphProvider) FetchBibliography(ctx context.Context, id types.ArticleID) (*types.BibRecord, error) {
	g.bibCalls[id]++
	if g.onBib != nil {
		if err := g.onBib(id); err != nil {
			return nil, err
		}
	}
	return g.Static.FetchBibliography(ctx, id)
}

func article(id types.ArticleID, forward ...types.ArticleID) types.Article {
	return types.Article{
		ID:      id,
		Bib:     &types.BibRecord{Title: "Title " + string(id)},
		Related: types.RelatedSet{Forward: forward},
	}
}

// newRetrier returns a Retrier that records sleeps instead of waiting.
func newRetrier(sleeps *[]time.Duration) *retry.Retrier {
	r := retry.New(types.RetryConfig{MaxAttempts: 3, JitterFraction: -1}, nil)
	r.Sleep = func(ctx context.Context, d time.Duration) error {
		if sleeps != nil {
			*sleeps = append(*sleeps, d)
		}
		return ctx.Err()
	}
	return r
}

func TestFanOut(t *testing.T) {
	tests := []struct {
		name                   string
		topK, minSize, setSize int
		want                   int
	}{
		{"single seed capped by topK", 10, 100, 1, 10},
		{"large set floors at one", 10, 100, 1000, 1},
		{"ceil of ratio", 10, 100, 20, 8},
		{"exact", 10, 10, 15, 1},
		{"topK two", 2, 2, 1, 2},
		{"empty set", 5, 100, 0, 5},
		{"zero topK", 0, 100, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FanOut(tt.topK, tt.minSize, tt.setSize))
		})
	}
}

func TestExpand_EmptySeeds(t *testing.T) {
	e := NewExpander(NewArticleFetcher(newGraphProvider(), newRetrier(nil), 0), types.ExpansionConfig{}, nil)
	_, err := e.Expand(context.Background(), types.NewIDSet())
	assert.ErrorIs(t, err, ErrEmptySeedSet)
}

func TestExpand_TakesTopKForward(t *testing.T) {
	p := newGraphProvider(
		article("A", "B", "C", "D"),
		article("B"), article("C"), article("D"),
	)
	e := NewExpander(NewArticleFetcher(p, newRetrier(nil), 0),
		types.ExpansionConfig{TopK: 2, MinSize: 2}, nil)

	exp, err := e.Expand(context.Background(), types.NewIDSet("A"))
	require.NoError(t, err)

	assert.Equal(t, types.NewIDSet("A", "B", "C"), exp.IDs)
	assert.Equal(t, StopReachedMinSize, exp.Stop)
	require.Len(t, exp.Rounds, 1)
	assert.Equal(t, 2, exp.Rounds[0].FanOut)
	assert.Equal(t, 1, exp.Rounds[0].Fetched)
	assert.Nil(t, exp.Aborted)
}

func TestExpand_SupersetOfSeeds(t *testing.T) {
	// A and B point only at each other, so the set never grows.
	p := newGraphProvider(article("A", "B"), article("B", "A"))
	e := NewExpander(NewArticleFetcher(p, newRetrier(nil), 0),
		types.ExpansionConfig{TopK: 5, MinSize: 50}, nil)

	exp, err := e.Expand(context.Background(), types.NewIDSet("A", "B"))
	require.NoError(t, err)
	assert.Equal(t, types.NewIDSet("A", "B"), exp.IDs)
	assert.Equal(t, StopNoGrowth, exp.Stop)
	assert.Len(t, exp.Rounds, 1)
}

func TestExpand_MultipleRounds(t *testing.T) {
	p := newGraphProvider(
		article("1", "2"),
		article("2", "3"),
		article("3", "4"),
		article("4"),
	)
	e := NewExpander(NewArticleFetcher(p, newRetrier(nil), 0),
		types.ExpansionConfig{TopK: 1, MinSize: 4}, nil)

	exp, err := e.Expand(context.Background(), types.NewIDSet("1"))
	require.NoError(t, err)
	assert.Equal(t, types.NewIDSet("1", "2", "3", "4"), exp.IDs)
	assert.Equal(t, StopReachedMinSize, exp.Stop)
	require.Len(t, exp.Rounds, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{exp.Rounds[0].InputSize, exp.Rounds[1].InputSize, exp.Rounds[2].InputSize})
}

func TestExpand_MaxRounds(t *testing.T) {
	p := newGraphProvider(
		article("1", "2"),
		article("2", "3"),
		article("3", "4"),
		article("4", "5"),
	)
	e := NewExpander(NewArticleFetcher(p, newRetrier(nil), 0),
		types.ExpansionConfig{TopK: 1, MinSize: 100, MaxRounds: 2}, nil)

	exp, err := e.Expand(context.Background(), types.NewIDSet("1"))
	require.NoError(t, err)
	assert.Equal(t, StopMaxRounds, exp.Stop)
	assert.Len(t, exp.Rounds, 2)
	assert.Equal(t, types.NewIDSet("1", "2", "3"), exp.IDs)
}

func TestExpand_FailedIDStaysInSet(t *testing.T) {
	// X is unknown to the provider, so every attempt fails.
	p := newGraphProvider(article("A", "B"), article("B"))
	var sleeps []time.Duration
	e := NewExpander(NewArticleFetcher(p, newRetrier(&sleeps), 0),
		types.ExpansionConfig{TopK: 5, MinSize: 3}, nil)

	exp, err := e.Expand(context.Background(), types.NewIDSet("A", "X"))
	require.NoError(t, err)

	assert.True(t, exp.IDs.Has("X"))
	assert.Equal(t, types.NewIDSet("A", "B", "X"), exp.IDs)
	require.Len(t, exp.Failures(), 1)
	assert.Equal(t, types.ArticleID("X"), exp.Failures()[0].ID)
	assert.Equal(t, 3, p.relatedCalls["X"])
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, sleeps)
}

func TestExpand_NoSuccess(t *testing.T) {
	p := newGraphProvider()
	e := NewExpander(NewArticleFetcher(p, newRetrier(nil), 0),
		types.ExpansionConfig{TopK: 5, MinSize: 10}, nil)

	exp, err := e.Expand(context.Background(), types.NewIDSet("A", "B"))
	require.NoError(t, err)
	assert.Equal(t, StopNoSuccess, exp.Stop)
	assert.Equal(t, types.NewIDSet("A", "B"), exp.IDs)
	assert.Len(t, exp.Failures(), 2)
}

func TestExpand_AbortKeepsPreviousSet(t *testing.T) {
	p := newGraphProvider(
		article("1", "2"),
		article("2", "3"),
		article("3"),
	)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.onRelated = func(id types.ArticleID) error {
		if id == "2" {
			cancel()
			return context.Canceled
		}
		return nil
	}

	e := NewExpander(NewArticleFetcher(p, newRetrier(nil), 0),
		types.ExpansionConfig{TopK: 1, MinSize: 10}, nil)

	exp, err := e.Expand(ctx, types.NewIDSet("1"))
	require.NoError(t, err)
	require.NotNil(t, exp.Aborted)
	assert.Equal(t, 2, exp.Aborted.Round)
	assert.ErrorIs(t, exp.Aborted, context.Canceled)
	assert.Equal(t, StopAborted, exp.Stop)
	assert.Equal(t, types.NewIDSet("1", "2"), exp.IDs)
	assert.Equal(t, 1, p.relatedCalls["2"], "context errors are not retried")
}

func TestExpand_FetchDelay(t *testing.T) {
	p := newGraphProvider(article("A", "B"), article("C"))
	var sleeps []time.Duration
	e := NewExpander(NewArticleFetcher(p, newRetrier(&sleeps), time.Second),
		types.ExpansionConfig{TopK: 5, MinSize: 3}, nil)

	_, err := e.Expand(context.Background(), types.NewIDSet("A", "C"))
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{time.Second, time.Second}, sleeps)
}

func TestArticleFetcher_BothCallsAttempted(t *testing.T) {
	p := newGraphProvider(article("A", "B"))
	boom := errors.New("boom")
	p.onBib = func(types.ArticleID) error { return boom }

	f := NewArticleFetcher(p, newRetrier(nil), 0)
	_, err := f.Fetch(context.Background(), "A", true)

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.True(t, retry.IsExhausted(err))
	assert.Equal(t, 3, p.bibCalls["A"])
	assert.Equal(t, 1, p.relatedCalls["A"], "related fetch still attempted")
}

func TestArticleFetcher_RelatedOnly(t *testing.T) {
	p := newGraphProvider(article("A", "B"))
	f := NewArticleFetcher(p, newRetrier(nil), 0)

	art, err := f.Fetch(context.Background(), "A", false)
	require.NoError(t, err)
	assert.False(t, art.HasBib())
	assert.Equal(t, []types.ArticleID{"B"}, art.Related.Forward)
	assert.Zero(t, p.bibCalls["A"])
}

func TestFetcher_RecordsFailures(t *testing.T) {
	p := newGraphProvider(article("A", "B"), article("B"))
	f := NewFetcher(NewArticleFetcher(p, newRetrier(nil), 0), nil)

	res, err := f.Fetch(context.Background(), types.NewIDSet("A", "B", "Z"))
	require.NoError(t, err)

	assert.Equal(t, 3, res.IDs.Len())
	require.Len(t, res.Articles, 2)
	assert.Equal(t, types.ArticleID("A"), res.Articles[0].ID)
	assert.Equal(t, "Title A", res.Articles[0].Bib.Title)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, types.ArticleID("Z"), res.Failures[0].ID)
}

func TestCollect(t *testing.T) {
	p := newGraphProvider(article("A", "B", "C", "D"), article("B"), article("C"), article("D"))
	af := NewArticleFetcher(p, newRetrier(nil), 0)

	rep, err := Collect(context.Background(),
		NewExpander(af, types.ExpansionConfig{TopK: 2, MinSize: 2}, nil),
		NewFetcher(af, nil),
		types.NewIDSet("A"))
	require.NoError(t, err)
	assert.Equal(t, types.NewIDSet("A", "B", "C"), rep.Result.IDs)
	assert.Len(t, rep.Result.Articles, 3)
}

func TestRankByInboundDegree(t *testing.T) {
	mk := func(id types.ArticleID, citedBy, refs []types.ArticleID) types.Article {
		return types.Article{ID: id, Related: types.RelatedSet{CitedBy: citedBy, References: refs}}
	}
	result := types.ExpansionResult{
		IDs: types.NewIDSet("A", "B", "C"),
		Articles: []types.Article{
			mk("C", nil, nil),
			mk("B", []types.ArticleID{"A", "Z"}, nil),
			mk("A", []types.ArticleID{"B", "C"}, []types.ArticleID{"C", "C"}),
		},
	}

	ranked := RankByInboundDegree(result, 0)
	require.Len(t, ranked, 3)
	assert.Equal(t, types.ArticleID("A"), ranked[0].Article.ID)
	assert.Equal(t, 3, ranked[0].Inbound)
	assert.Equal(t, types.ArticleID("B"), ranked[1].Article.ID)
	assert.Equal(t, 1, ranked[1].Inbound)
	assert.Equal(t, 0, ranked[2].Inbound)

	top := RankByInboundDegree(result, 1)
	require.Len(t, top, 1)
	assert.Equal(t, types.ArticleID("A"), top[0].Article.ID)
}

func TestRankByInboundDegree_StableTies(t *testing.T) {
	result := types.ExpansionResult{
		IDs:      types.NewIDSet("X", "Y"),
		Articles: []types.Article{{ID: "Y"}, {ID: "X"}},
	}
	ranked := RankByInboundDegree(result, 10)
	require.Len(t, ranked, 2)
	assert.Equal(t, types.ArticleID("Y"), ranked[0].Article.ID)
	assert.Equal(t, types.ArticleID("X"), ranked[1].Article.ID)
}
