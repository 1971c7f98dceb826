package parser

import (
	"errors"
	"fmt"
)

// ErrMalformedFeed indicates the fetched document is not an RSS feed at all.
var ErrMalformedFeed = errors.New("malformed feed document")

// ParseError indicates a single feed entry could not be read as a field bag.
// Callers skip the entry and keep going.
type ParseError struct {
	Err error
}

func (e ParseError) Error() string {
	return fmt.Errorf("parse entry: %w", e.Err).Error()
}

func (e ParseError) Unwrap() error {
	return e.Err
}
