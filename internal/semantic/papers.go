// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package semantic

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/pdiddy/snowball/pkg/types"
)

// paper is the subset of a Graph API paper object this package reads.
type paper struct {
	PaperID       string      `json:"paperId"`
	Title         string      `json:"title"`
	Abstract      string      `json:"abstract"`
	Year          int         `json:"year"`
	Venue         string      `json:"venue"`
	Journal       *journal    `json:"journal"`
	Authors       []author    `json:"authors"`
	ExternalIDs   externalIDs `json:"externalIds"`
	FieldsOfStudy []string    `json:"fieldsOfStudy"`
}

type author struct {
	Name string `json:"name"`
}

type journal struct {
	Name string `json:"name"`
}

type externalIDs struct {
	DOI           string `json:"DOI"`
	PubMed        string `json:"PubMed"`
	PubMedCentral string `json:"PubMedCentral"`
}

// linkPage is one page of /citations or /references.
type linkPage struct {
	Data []struct {
		CitingPaper *paper `json:"citingPaper"`
		CitedPaper  *paper `json:"citedPaper"`
	} `json:"data"`
}

func (lp linkPage) citing() []*paper {
	out := make([]*paper, 0, len(lp.Data))
	for _, d := range lp.Data {
		out = append(out, d.CitingPaper)
	}
	return out
}

func (lp linkPage) cited() []*paper {
	out := make([]*paper, 0, len(lp.Data))
	for _, d := range lp.Data {
		out = append(out, d.CitedPaper)
	}
	return out
}

type recommendations struct {
	Papers []*paper `json:"recommendedPapers"`
}

func decode(body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("parsing Semantic Scholar response: %w", err)
	}
	return nil
}

// bib converts the paper to a BibRecord with PubMed-style author names.
func (p paper) bib() *types.BibRecord {
	names := make([]string, 0, len(p.Authors))
	for _, a := range p.Authors {
		if n := pubmedName(a.Name); n != "" {
			names = append(names, n)
		}
	}

	b := &types.BibRecord{
		Authors:  strings.Join(names, "; "),
		Title:    p.Title,
		DOI:      p.ExternalIDs.DOI,
		Journal:  p.Venue,
		Keywords: p.FieldsOfStudy,
		Abstract: p.Abstract,
	}
	if p.Journal != nil && p.Journal.Name != "" {
		b.Journal = p.Journal.Name
	}
	if p.Year > 0 {
		b.Year = strconv.Itoa(p.Year)
	}
	if pmc := p.ExternalIDs.PubMedCentral; pmc != "" {
		b.PMCID = "PMC" + strings.TrimPrefix(strings.ToUpper(pmc), "PMC")
	}
	return b
}

// pubmedName rewrites "John A. Smith" as "Smith JA". Single-word names are
// returned unchanged.
func pubmedName(name string) string {
	parts := strings.Fields(name)
	if len(parts) < 2 {
		return strings.Join(parts, "")
	}
	family := parts[len(parts)-1]
	var initials strings.Builder
	for _, given := range parts[:len(parts)-1] {
		for _, r := range given {
			if unicode.IsLetter(r) {
				initials.WriteRune(unicode.ToUpper(r))
				break
			}
		}
	}
	if initials.Len() == 0 {
		return family
	}
	return family + " " + initials.String()
}

// pubmedIDs returns the PubMed ids of papers in order, without duplicates,
// blanks or self.
func pubmedIDs(papers []*paper, self types.ArticleID) []types.ArticleID {
	var out []types.ArticleID
	seen := make(map[types.ArticleID]struct{}, len(papers))
	for _, p := range papers {
		if p == nil {
			continue
		}
		id := types.NormalizeID(p.ExternalIDs.PubMed)
		if id == "" || id == self {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
