// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package snowball

import (
	"errors"
	"fmt"
)

// ErrEmptySeedSet is returned when expansion is asked to start from nothing.
var ErrEmptySeedSet = errors.New("seed set is empty")

// AbortedError records an unrecoverable error that stopped expansion during
// a round. The expansion keeps the set from before that round.
type AbortedError struct {
	Round int
	Err   error
}

func (e *AbortedError) Error() string {
	return fmt.Sprintf("expansion aborted in round %d: %v", e.Round, e.Err)
}

func (e *AbortedError) Unwrap() error { return e.Err }
