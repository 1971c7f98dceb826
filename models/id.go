package models

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Row id prefixes.
const (
	PrefixUser         = "usr"
	PrefixBook         = "bk"
	PrefixUserBook     = "ub"
	PrefixFeedSnapshot = "rss"
)

// NewID returns a prefixed NanoID, e.g. "usr-V1StGXR8_Z5jdHi6B-myT".
func NewID(prefix string) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}
