// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package snowball

import (
	"slices"

	"github.com/pdiddy/snowball/pkg/types"
)

// Ranked pairs an article with its inbound degree inside the result set.
type Ranked struct {
	Article types.Article `json:"article" yaml:"article"`
	Inbound int           `json:"inbound" yaml:"inbound"`
}

// InboundDegree counts how many members of ids appear in a's CitedBy or
// References lists. An identifier present in both counts twice.
func InboundDegree(a types.Article, ids types.IDSet) int {
	return ids.CountIn(a.Related.CitedBy) + ids.CountIn(a.Related.References)
}

// RankByInboundDegree orders result.Articles by inbound degree, highest
// first. Ties keep their input order. topN > 0 truncates the ranking.
func RankByInboundDegree(result types.ExpansionResult, topN int) []Ranked {
	ranked := make([]Ranked, 0, len(result.Articles))
	for _, a := range result.Articles {
		ranked = append(ranked, Ranked{Article: a, Inbound: InboundDegree(a, result.IDs)})
	}
	slices.SortStableFunc(ranked, func(a, b Ranked) int {
		return b.Inbound - a.Inbound
	})
	if topN > 0 && len(ranked) > topN {
		ranked = ranked[:topN]
	}
	return ranked
}
