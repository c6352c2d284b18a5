package sync

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/alfredjeanlab/geotify/internal/model"
	"github.com/alfredjeanlab/geotify/internal/store"
)

// Source supplies the persisted geotification set. store.Store satisfies it.
type Source interface {
	LoadAll(ctx context.Context) ([]model.Geotification, error)
}

// header is the first JSONL record written by ExportJSONL.
type header struct {
	Version            string    `json:"version"`
	Type               string    `json:"type"`
	Timestamp          time.Time `json:"timestamp"`
	Key                string    `json:"key"`
	GeotificationCount int       `json:"geotification_count"`
}

// record wraps a single JSONL line with a type discriminator.
type record struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	exportVersion     = "1"
	typeHeader        = "header"
	typeGeotification = "geotification"
)

// Backup is one rendered export of the geotification set.
type Backup struct {
	Data  []byte // JSONL, header first
	Count int
	// Digest is the hex SHA-256 of the geotification records. The header
	// carries a timestamp and is left out, so equal sets share a digest.
	Digest string
}

// NewBackup renders items in the ExportJSONL format.
func NewBackup(items []model.Geotification) (*Backup, error) {
	var buf bytes.Buffer
	digest, err := writeJSONL(&buf, items)
	if err != nil {
		return nil, err
	}
	return &Backup{Data: buf.Bytes(), Count: len(items), Digest: digest}, nil
}

// ExportJSONL writes the stored geotifications as JSONL to w: a header line
// followed by one record per geotification, in display order.
func ExportJSONL(ctx context.Context, s Source, w io.Writer) error {
	items, err := s.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("load geotifications: %w", err)
	}
	_, err = writeJSONL(w, items)
	return err
}

func writeJSONL(w io.Writer, items []model.Geotification) (string, error) {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(header{
		Version:            exportVersion,
		Type:               typeHeader,
		Timestamp:          time.Now().UTC(),
		Key:                store.SavedItemsKey,
		GeotificationCount: len(items),
	}); err != nil {
		return "", fmt.Errorf("encode header: %w", err)
	}

	h := sha256.New()
	enc = json.NewEncoder(io.MultiWriter(w, h))
	enc.SetEscapeHTML(false)
	for _, g := range items {
		data, err := json.Marshal(g)
		if err != nil {
			return "", fmt.Errorf("encode geotification %s: %w", g.Identifier, err)
		}
		if err := enc.Encode(record{Type: typeGeotification, Data: data}); err != nil {
			return "", fmt.Errorf("encode geotification %s: %w", g.Identifier, err)
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// ImportJSONL reads an export produced by ExportJSONL. Geotification
// records that fail to decode or validate are returned as skipped, the way
// the store treats malformed entries.
func ImportJSONL(r io.Reader) (items []model.Geotification, skipped []*store.DecodeError, err error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	items = []model.Geotification{}
	index, sawHeader := 0, false
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec struct {
			Type    string          `json:"type"`
			Version string          `json:"version"`
			Data    json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(line, &rec); err != nil {
			skipped = append(skipped, &store.DecodeError{Index: index, Err: err})
			index++
			continue
		}
		switch rec.Type {
		case typeHeader:
			if rec.Version != exportVersion {
				return nil, nil, fmt.Errorf("unsupported export version %q", rec.Version)
			}
			sawHeader = true
		case typeGeotification:
			var g model.Geotification
			if err := json.Unmarshal(rec.Data, &g); err != nil {
				skipped = append(skipped, &store.DecodeError{Index: index, Err: err})
			} else if err := model.ValidateGeotification(&g); err != nil {
				skipped = append(skipped, &store.DecodeError{Index: index, Err: err})
			} else {
				items = append(items, g)
			}
			index++
		}
	}
	if err := sc.Err(); err != nil {
		return nil, nil, fmt.Errorf("read export: %w", err)
	}
	if !sawHeader {
		return nil, nil, errors.New("export has no header")
	}
	return items, skipped, nil
}
