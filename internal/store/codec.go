package store

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/alfredjeanlab/geotify/internal/model"
)

// DecodeError describes one stored entry that could not be restored.
type DecodeError struct {
	Index int
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("entry %d: %v", e.Index, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// EncodeItems serializes the set as a JSON array with one object per
// geotification. A nil or empty set encodes as "[]".
func EncodeItems(items []model.Geotification) ([]byte, error) {
	raw := make([]json.RawMessage, 0, len(items))
	for _, g := range items {
		b, err := json.Marshal(g)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", g.Identifier, err)
		}
		raw = append(raw, b)
	}
	return json.Marshal(raw)
}

// DecodeItems restores a set written by EncodeItems. Each entry is decoded
// and validated on its own; entries that fail are reported in skipped and
// left out of the result. Empty data yields an empty set. Data that is not a
// JSON array at all yields no entries and a single DecodeError with Index -1.
func DecodeItems(data []byte) (items []model.Geotification, skipped []*DecodeError) {
	items = []model.Geotification{}
	if len(data) == 0 {
		return items, nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return items, []*DecodeError{{Index: -1, Err: err}}
	}

	for i, entry := range raw {
		var g model.Geotification
		if err := json.Unmarshal(entry, &g); err != nil {
			skipped = append(skipped, &DecodeError{Index: i, Err: err})
			continue
		}
		if err := model.ValidateGeotification(&g); err != nil {
			skipped = append(skipped, &DecodeError{Index: i, Err: err})
			continue
		}
		items = append(items, g)
	}
	return items, skipped
}

// LogSkipped records each dropped entry at warn level.
func LogSkipped(logger *slog.Logger, skipped []*DecodeError) {
	for _, s := range skipped {
		logger.Warn("skipping unreadable geotification", "key", SavedItemsKey, "index", s.Index, "err", s.Err)
	}
}
