// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/snowball/internal/snowball"
	"github.com/pdiddy/snowball/pkg/types"
)

const maxTitleWidth = 60

// Report is the serialisable form of a ranked expansion.
type Report struct {
	Seeds    []types.ArticleID `json:"seeds" yaml:"seeds"`
	IDs      types.IDSet       `json:"ids" yaml:"ids"`
	Rounds   []snowball.Round  `json:"rounds" yaml:"rounds"`
	Stop     string            `json:"stop" yaml:"stop"`
	Aborted  string            `json:"aborted,omitempty" yaml:"aborted,omitempty"`
	Ranking  []snowball.Ranked `json:"ranking" yaml:"ranking"`
	Failures []types.Failure   `json:"failures,omitempty" yaml:"failures,omitempty"`
}

// NewReport assembles a Report from a collect run and its ranking.
func NewReport(seeds types.IDSet, rep snowball.Report, ranked []snowball.Ranked) Report {
	r := Report{
		Seeds:    seeds.Sorted(),
		IDs:      rep.Result.IDs,
		Rounds:   rep.Expansion.Rounds,
		Stop:     rep.Expansion.Stop.String(),
		Ranking:  ranked,
		Failures: rep.Result.Failures,
	}
	if rep.Expansion.Aborted != nil {
		r.Aborted = rep.Expansion.Aborted.Error()
	}
	return r
}

// WriteRankingTable writes one row per ranked article.
func WriteRankingTable(w io.Writer, ranked []snowball.Ranked) error {
	t := NewTable(w, []string{"Rank", "PMID", "Inbound", "Year", "Authors", "Title"})
	for i, r := range ranked {
		var year, authors, title string
		if b := r.Article.Bib; b != nil {
			year = b.Year
			authors = shortAuthors(b.AuthorList())
			title = truncate(b.Title, maxTitleWidth)
		}
		t.AddRow(strconv.Itoa(i+1), string(r.Article.ID), strconv.Itoa(r.Inbound), year, authors, title)
	}
	return t.Render()
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteYAML writes v as YAML.
func WriteYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(v)
}

// WriteIDs writes one identifier per line in sorted order.
func WriteIDs(w io.Writer, ids types.IDSet) error {
	for _, id := range ids.Sorted() {
		if _, err := fmt.Fprintln(w, id); err != nil {
			return err
		}
	}
	return nil
}

func shortAuthors(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	default:
		return names[0] + " et al."
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n-3])) + "..."
}
