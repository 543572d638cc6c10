// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/snowball/pkg/types"
)

// GraphFile is the on-disk form of a static citation graph.
//
//	articles:
//	  - id: "A"
//	    bib: {title: "...", authors: "Smith J"}
//	    related: {forward: ["B", "C"], cited_by: [], references: []}
type GraphFile struct {
	Articles []types.Article `yaml:"articles"`
}

// Static serves articles from an in-memory graph. Unknown identifiers fail
// with ErrNotFound wrapped in *Error.
type Static struct {
	articles map[types.ArticleID]types.Article
}

// NewStatic builds a provider over articles. Later duplicates replace
// earlier ones.
func NewStatic(articles []types.Article) *Static {
	m := make(map[types.ArticleID]types.Article, len(articles))
	for _, a := range articles {
		m[a.ID] = a
	}
	return &Static{articles: m}
}

// LoadStatic reads a GraphFile from path.
func LoadStatic(path string) (*Static, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening graph file: %w", err)
	}
	defer f.Close()
	return ReadStatic(f)
}

// ReadStatic decodes a GraphFile from r.
func ReadStatic(r io.Reader) (*Static, error) {
	var g GraphFile
	if err := yaml.NewDecoder(r).Decode(&g); err != nil {
		return nil, fmt.Errorf("parsing graph file: %w", err)
	}
	return NewStatic(g.Articles), nil
}

// FetchBibliography returns the stored record for id.
func (s *Static) FetchBibliography(ctx context.Context, id types.ArticleID) (*types.BibRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	a, ok := s.articles[id]
	if !ok {
		return nil, &Error{Op: OpBibliography, ID: id, Err: ErrNotFound}
	}
	if a.Bib == nil {
		return &types.BibRecord{}, nil
	}
	bib := *a.Bib
	bib.Keywords = append([]string(nil), a.Bib.Keywords...)
	return &bib, nil
}

// FetchRelated returns the stored related sets for id.
func (s *Static) FetchRelated(ctx context.Context, id types.ArticleID) (types.RelatedSet, error) {
	if err := ctx.Err(); err != nil {
		return types.RelatedSet{}, err
	}
	a, ok := s.articles[id]
	if !ok {
		return types.RelatedSet{}, &Error{Op: OpRelated, ID: id, Err: ErrNotFound}
	}
	return types.RelatedSet{
		Forward:    append([]types.ArticleID(nil), a.Related.Forward...),
		CitedBy:    append([]types.ArticleID(nil), a.Related.CitedBy...),
		References: append([]types.ArticleID(nil), a.Related.References...),
	}, nil
}

var _ Provider = (*Static)(nil)
