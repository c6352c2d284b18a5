// Package idgen generates identifiers for geotifications created without one.
// Identifiers double as region subscription keys, so they stay short and
// limited to lowercase letters and digits.
package idgen

import (
	"errors"
	"fmt"

	nanoid "github.com/matoous/go-nanoid/v2"
)

const (
	// Prefix starts every generated identifier.
	Prefix = "geo-"
	// Length is the number of random characters after Prefix.
	Length = 12

	alphabet    = "abcdefghijklmnopqrstuvwxyz0123456789"
	maxAttempts = 8
)

// ErrExhausted is returned when every attempt produced a taken identifier.
var ErrExhausted = errors.New("idgen: no free identifier")

// Generate returns an identifier for which taken reports false. A nil taken
// accepts the first candidate.
func Generate(taken func(string) bool) (string, error) {
	for range maxAttempts {
		suffix, err := nanoid.Generate(alphabet, Length)
		if err != nil {
			return "", fmt.Errorf("idgen: %w", err)
		}
		if id := Prefix + suffix; taken == nil || !taken(id) {
			return id, nil
		}
	}
	return "", ErrExhausted
}
