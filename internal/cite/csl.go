// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cite renders fetched articles as citation files: CSL-YAML for
// Pandoc, BibTeX, and RIS for reference managers.
package cite

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/snowball/pkg/types"
)

// Format names a citation output format.
type Format string

const (
	FormatCSL    Format = "csl"
	FormatBibTeX Format = "bibtex"
	FormatRIS    Format = "ris"
)

// Formats lists the supported formats in help-text order.
var Formats = []Format{FormatCSL, FormatBibTeX, FormatRIS}

// ParseFormat validates a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case FormatCSL, FormatBibTeX, FormatRIS:
		return f, nil
	case "yaml", "csl-yaml":
		return FormatCSL, nil
	case "bib":
		return FormatBibTeX, nil
	}
	return "", fmt.Errorf("unknown citation format %q (want csl, bibtex or ris)", s)
}

// Write renders articles to w in the given format. Articles without a
// bibliographic record are skipped.
func Write(w io.Writer, f Format, articles []types.Article) error {
	switch f {
	case FormatCSL:
		return WriteCSL(w, articles)
	case FormatBibTeX:
		return WriteBibTeX(w, articles)
	case FormatRIS:
		return WriteRIS(w, articles)
	}
	return fmt.Errorf("unknown citation format %q", f)
}

// CSLItem represents a bibliographic entry in CSL (Citation Style Language)
// format. The field names and structure follow the CSL-JSON/CSL-YAML schema
// so that output is consumable by Pandoc and reference managers.
type CSLItem struct {
	ID             string    `yaml:"id"`
	Type           string    `yaml:"type"`
	Title          string    `yaml:"title"`
	Author         []CSLName `yaml:"author,omitempty"`
	ContainerTitle string    `yaml:"container-title,omitempty"`
	Abstract       string    `yaml:"abstract,omitempty"`
	Keyword        string    `yaml:"keyword,omitempty"`
	Issued         *CSLDate  `yaml:"issued,omitempty"`
	DOI            string    `yaml:"DOI,omitempty"`
	PMID           string    `yaml:"PMID,omitempty"`
	PMCID          string    `yaml:"PMCID,omitempty"`
}

// CSLName represents a person's name in CSL format.
type CSLName struct {
	Family  string `yaml:"family,omitempty"`
	Given   string `yaml:"given,omitempty"`
	Literal string `yaml:"literal,omitempty"`
}

// CSLDate represents a date in CSL format using date-parts.
type CSLDate struct {
	DateParts [][]int `yaml:"date-parts"`
}

// WriteCSL writes articles as a CSL-YAML list to w.
func WriteCSL(w io.Writer, articles []types.Article) error {
	items := make([]CSLItem, 0, len(articles))
	for _, a := range articles {
		if a.HasBib() {
			items = append(items, toCSLItem(a))
		}
	}
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(items)
}

// CiteKey returns the citation key used for an article in every format.
func CiteKey(id types.ArticleID) string {
	return "pmid" + string(id)
}

func toCSLItem(a types.Article) CSLItem {
	b := a.Bib
	item := CSLItem{
		ID:             CiteKey(a.ID),
		Type:           "article-journal",
		Title:          b.Title,
		ContainerTitle: b.Journal,
		Abstract:       b.Abstract,
		Keyword:        strings.Join(b.Keywords, ", "),
		DOI:            b.DOI,
		PMID:           string(a.ID),
		PMCID:          b.PMCID,
	}
	for _, name := range b.AuthorList() {
		item.Author = append(item.Author, parseAuthorName(name))
	}
	if y, ok := year(b.Year); ok {
		item.Issued = &CSLDate{DateParts: [][]int{{y}}}
	}
	return item
}

// parseAuthorName splits a PubMed author string ("Smith JA") into CSL
// family/given parts. The trailing token is taken as initials only when it
// is a short run of capitals; anything else, such as a collective author,
// uses the literal field.
func parseAuthorName(name string) CSLName {
	name = strings.TrimSpace(name)
	if name == "" {
		return CSLName{}
	}
	idx := strings.LastIndex(name, " ")
	if idx < 0 || !isInitials(name[idx+1:]) {
		return CSLName{Literal: name}
	}
	return CSLName{
		Family: name[:idx],
		Given:  name[idx+1:],
	}
}

func isInitials(s string) bool {
	if s == "" || len(s) > 4 {
		return false
	}
	for _, r := range s {
		if !unicode.IsUpper(r) {
			return false
		}
	}
	return true
}

// year extracts a four-digit year from the provider's year string.
func year(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if len(s) < 4 {
		return 0, false
	}
	y, err := strconv.Atoi(s[:4])
	if err != nil || y <= 0 {
		return 0, false
	}
	return y, true
}
