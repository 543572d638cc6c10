// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the snowball pipeline:
// article identifiers, related-identifier sets, bibliographic records, the
// Article aggregate, identifier sets, and expansion results.
package types

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
)

// ArticleID is an opaque token naming an article in the provider's namespace
// (a PubMed PMID). Equality is string equality.
type ArticleID string

// NormalizeID trims whitespace and canonicalises purely numeric identifiers
// so that "031875792" and "31875792" compare equal. Non-numeric input is
// returned trimmed but otherwise unchanged.
func NormalizeID(raw string) ArticleID {
	s := strings.TrimSpace(raw)
	if n, err := strconv.ParseUint(s, 10, 64); err == nil {
		return ArticleID(strconv.FormatUint(n, 10))
	}
	return ArticleID(s)
}

// IDFromInt converts an integer PMID to an ArticleID.
func IDFromInt(n int) ArticleID {
	return ArticleID(strconv.Itoa(n))
}

// RelatedSet holds the three related-identifier sequences for one article.
// Order within each sequence is provider-ranked and meaningful.
type RelatedSet struct {
	// Forward lists generic "related" suggestions, most relevant first.
	Forward []ArticleID `json:"forward" yaml:"forward"`

	// CitedBy lists articles citing this one.
	CitedBy []ArticleID `json:"cited_by" yaml:"cited_by"`

	// References lists articles this one cites.
	References []ArticleID `json:"references" yaml:"references"`
}

// BibRecord holds bibliographic metadata for an article.
type BibRecord struct {
	// Authors is the provider's author string ("Smith J; Doe A").
	Authors string `json:"authors" yaml:"authors"`

	Title string `json:"title" yaml:"title"`
	DOI   string `json:"doi,omitempty" yaml:"doi,omitempty"`

	// Year is the publication year as reported by the provider (may be empty).
	Year     string   `json:"year,omitempty" yaml:"year,omitempty"`
	Journal  string   `json:"journal,omitempty" yaml:"journal,omitempty"`
	Keywords []string `json:"keywords,omitempty" yaml:"keywords,omitempty"`
	Abstract string   `json:"abstract,omitempty" yaml:"abstract,omitempty"`

	// PMCID is the PubMed Central identifier, used to locate open-access full text.
	PMCID string `json:"pmcid,omitempty" yaml:"pmcid,omitempty"`
}

// AuthorList splits the author string into individual names.
func (b BibRecord) AuthorList() []string {
	var out []string
	for _, a := range strings.Split(b.Authors, ";") {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}

// Article aggregates one identifier, its optional bibliography, and its
// related-identifier sets. An Article is fully populated when returned by a
// fetch and is read-only afterwards.
type Article struct {
	ID      ArticleID  `json:"id" yaml:"id"`
	Bib     *BibRecord `json:"bib,omitempty" yaml:"bib,omitempty"`
	Related RelatedSet `json:"related" yaml:"related"`
}

// HasBib reports whether the article carries bibliographic metadata.
func (a Article) HasBib() bool { return a.Bib != nil }

// IDSet is a set of unique article identifiers.
type IDSet map[ArticleID]struct{}

// NewIDSet returns a set holding ids.
func NewIDSet(ids ...ArticleID) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Add inserts id and reports whether it was new.
func (s IDSet) Add(id ArticleID) bool {
	if _, ok := s[id]; ok {
		return false
	}
	s[id] = struct{}{}
	return true
}

// Has reports membership.
func (s IDSet) Has(id ArticleID) bool {
	_, ok := s[id]
	return ok
}

// Len returns the number of members.
func (s IDSet) Len() int { return len(s) }

// Clone returns an independent copy of s.
func (s IDSet) Clone() IDSet {
	c := make(IDSet, len(s))
	for id := range s {
		c[id] = struct{}{}
	}
	return c
}

// CountIn returns how many of ids are members of s. Duplicates in ids are
// counted once.
func (s IDSet) CountIn(ids []ArticleID) int {
	seen := make(map[ArticleID]struct{}, len(ids))
	n := 0
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if s.Has(id) {
			n++
		}
	}
	return n
}

// Sorted returns the members in ascending order. Numeric identifiers sort
// numerically; everything else sorts lexically after them.
func (s IDSet) Sorted() []ArticleID {
	out := make([]ArticleID, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return lessID(out[i], out[j]) })
	return out
}

// MarshalJSON encodes the set as a sorted list.
func (s IDSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

// UnmarshalJSON decodes a list of identifiers into the set.
func (s *IDSet) UnmarshalJSON(data []byte) error {
	var ids []ArticleID
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*s = NewIDSet(ids...)
	return nil
}

// MarshalYAML encodes the set as a sorted list.
func (s IDSet) MarshalYAML() (interface{}, error) {
	return s.Sorted(), nil
}

// UnmarshalYAML decodes a list of identifiers into the set.
func (s *IDSet) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var ids []ArticleID
	if err := unmarshal(&ids); err != nil {
		return err
	}
	*s = NewIDSet(ids...)
	return nil
}

func lessID(a, b ArticleID) bool {
	na, errA := strconv.ParseUint(string(a), 10, 64)
	nb, errB := strconv.ParseUint(string(b), 10, 64)
	switch {
	case errA == nil && errB == nil:
		return na < nb
	case errA == nil:
		return true
	case errB == nil:
		return false
	default:
		return a < b
	}
}

// Failure records one identifier whose fetch failed after retries.
type Failure struct {
	ID  ArticleID `json:"id" yaml:"id"`
	Err string    `json:"error" yaml:"error"`
}

// ExpansionResult is the final identifier set plus the articles fetched with
// bibliography during the closing pass. Identifiers whose fetch failed stay
// in IDs and are listed in Failures.
type ExpansionResult struct {
	IDs      IDSet     `json:"ids" yaml:"ids"`
	Articles []Article `json:"articles" yaml:"articles"`
	Failures []Failure `json:"failures,omitempty" yaml:"failures,omitempty"`
}
