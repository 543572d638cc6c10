// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package snowball

import (
	"context"
	"io"
	"math"

	"github.com/charmbracelet/log"

	"github.com/pdiddy/snowball/pkg/types"
)

const (
	defaultTopK      = 10
	defaultMinSize   = 100
	defaultMaxRounds = 10

	// overshoot scales the per-article fan-out so a round tends to land past
	// minSize rather than just short of it.
	overshoot = 1.5
)

// StopReason says why expansion ended.
type StopReason int

const (
	StopReachedMinSize StopReason = iota
	StopNoGrowth
	StopNoSuccess
	StopMaxRounds
	StopAborted
)

func (s StopReason) String() string {
	switch s {
	case StopReachedMinSize:
		return "reached minimum size"
	case StopNoGrowth:
		return "no new articles"
	case StopNoSuccess:
		return "no fetch succeeded"
	case StopMaxRounds:
		return "round limit"
	case StopAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Round summarises one expansion round.
type Round struct {
	Number     int             `json:"round" yaml:"round"`
	InputSize  int             `json:"input_size" yaml:"input_size"`
	FanOut     int             `json:"fan_out" yaml:"fan_out"`
	Fetched    int             `json:"fetched" yaml:"fetched"`
	Failures   []types.Failure `json:"failures,omitempty" yaml:"failures,omitempty"`
	OutputSize int             `json:"output_size" yaml:"output_size"`
}

// Expansion is the outcome of Expand. IDs always contains the seeds.
// When Aborted is set, IDs is the set from before the failing round.
type Expansion struct {
	IDs     types.IDSet
	Rounds  []Round
	Stop    StopReason
	Aborted *AbortedError
}

// Failures returns every per-identifier failure across all rounds.
func (e Expansion) Failures() []types.Failure {
	var out []types.Failure
	for _, r := range e.Rounds {
		out = append(out, r.Failures...)
	}
	return out
}

// FanOut returns how many Forward links to take from each article when the
// set currently holds setSize members: ceil(minSize*1.5/setSize) clamped to
// [1, topK].
func FanOut(topK, minSize, setSize int) int {
	if topK < 1 {
		topK = 1
	}
	if setSize <= 0 {
		return topK
	}
	k := int(math.Ceil(float64(minSize) * overshoot / float64(setSize)))
	return min(max(k, 1), topK)
}

// Expander grows a seed set by following Forward links.
type Expander struct {
	fetcher *ArticleFetcher
	cfg     types.ExpansionConfig
	logger  *log.Logger
}

// NewExpander returns an Expander. Zero config fields take the defaults
// (topK 10, minSize 100, 10 rounds). A nil logger discards output.
func NewExpander(f *ArticleFetcher, cfg types.ExpansionConfig, logger *log.Logger) *Expander {
	if cfg.TopK <= 0 {
		cfg.TopK = defaultTopK
	}
	if cfg.MinSize <= 0 {
		cfg.MinSize = defaultMinSize
	}
	if cfg.MaxRounds <= 0 {
		cfg.MaxRounds = defaultMaxRounds
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Expander{fetcher: f, cfg: cfg, logger: logger}
}

// Expand runs expansion rounds from seeds until the set reaches MinSize,
// stops growing, no fetch in a round succeeds, or MaxRounds is hit.
// Per-identifier failures are logged and skipped. An unrecoverable error
// (cancellation, deadline) ends expansion with the last completed set and
// is reported in Expansion.Aborted rather than returned.
func (e *Expander) Expand(ctx context.Context, seeds types.IDSet) (Expansion, error) {
	if seeds.Len() == 0 {
		return Expansion{}, ErrEmptySeedSet
	}

	current := seeds.Clone()
	exp := Expansion{IDs: current}

	for n := 1; ; n++ {
		if n > e.cfg.MaxRounds {
			exp.Stop = StopMaxRounds
			e.logger.Warnf("Stopping after %d rounds with %d articles", e.cfg.MaxRounds, current.Len())
			return exp, nil
		}

		next, round, err := e.round(ctx, n, current)
		exp.Rounds = append(exp.Rounds, round)
		if err != nil {
			exp.Aborted = &AbortedError{Round: n, Err: err}
			exp.Stop = StopAborted
			e.logger.Error("Stopping expansion due to error", "round", n, "err", err)
			return exp, nil
		}
		exp.IDs = next

		switch {
		case next.Len() >= e.cfg.MinSize:
			exp.Stop = StopReachedMinSize
		case round.Fetched == 0:
			exp.Stop = StopNoSuccess
		case next.Len() == current.Len():
			exp.Stop = StopNoGrowth
		default:
			e.logger.Infof("Found %d articles, extending further...", next.Len())
			current = next
			continue
		}
		e.logger.Info("Expansion finished", "articles", next.Len(), "rounds", n, "reason", exp.Stop)
		return exp, nil
	}
}

// round performs one expansion round over current. On an unrecoverable
// error it returns a nil set.
func (e *Expander) round(ctx context.Context, n int, current types.IDSet) (types.IDSet, Round, error) {
	k := FanOut(e.cfg.TopK, e.cfg.MinSize, current.Len())
	r := Round{Number: n, InputSize: current.Len(), FanOut: k}
	e.logger.Debug("Starting round", "round", n, "size", r.InputSize, "fan_out", k)

	next := current.Clone()
	for _, id := range current.Sorted() {
		art, err := e.fetcher.Fetch(ctx, id, false)
		if err != nil {
			if !recoverable(ctx, err) {
				return nil, r, err
			}
			e.logger.Warn("Skipping article", "id", id, "err", err)
			r.Failures = append(r.Failures, types.Failure{ID: id, Err: err.Error()})
			continue
		}
		r.Fetched++

		fwd := art.Related.Forward
		if len(fwd) > k {
			fwd = fwd[:k]
		}
		for _, rid := range fwd {
			next.Add(rid)
		}

		if err := e.fetcher.pause(ctx); err != nil {
			return nil, r, err
		}
	}
	r.OutputSize = next.Len()
	return next, r, nil
}
