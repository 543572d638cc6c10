// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package provider defines the article-metadata source consumed by the
// snowball pipeline, the error it reports, and a static YAML-backed
// implementation for offline runs.
package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/pdiddy/snowball/pkg/types"
)

// Provider fetches bibliographic records and related-identifier sets.
// Each call is blocking; failures are reported as *Error.
type Provider interface {
	FetchBibliography(ctx context.Context, id types.ArticleID) (*types.BibRecord, error)
	FetchRelated(ctx context.Context, id types.ArticleID) (types.RelatedSet, error)
}

// Op names a provider operation.
type Op string

const (
	OpBibliography Op = "bibliography"
	OpRelated      Op = "related"
)

// ErrNotFound marks an identifier the provider does not know.
var ErrNotFound = errors.New("article not found")

// Error is a transport or parse failure from the provider.
type Error struct {
	Op  Op
	ID  types.ArticleID
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s fetch for %s: %v", e.Op, e.ID, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Wrap returns err as a *Error for op and id. A nil err stays nil and an
// err that already is a *Error is returned unchanged.
func Wrap(op Op, id types.ArticleID, err error) error {
	if err == nil {
		return nil
	}
	var pe *Error
	if errors.As(err, &pe) {
		return err
	}
	return &Error{Op: op, ID: id, Err: err}
}
