package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/geotify/internal/client"
	"github.com/alfredjeanlab/geotify/internal/model"
	geosync "github.com/alfredjeanlab/geotify/internal/sync"
)

// remoteSource reads the geotification set from a running coordinator.
type remoteSource struct {
	c client.GeotifyClient
}

func (s remoteSource) LoadAll(ctx context.Context) ([]model.Geotification, error) {
	snap, err := s.c.ListGeotifications(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]model.Geotification, len(snap.Items))
	for i, e := range snap.Items {
		items[i] = e.Geotification
	}
	return items, nil
}

var exportCmd = &cobra.Command{
	Use:     "export [file]",
	Short:   "Export geotifications as JSONL",
	GroupID: "data",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := cmd.OutOrStdout()
		if len(args) == 1 {
			f, err := os.Create(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			w = f
		}
		if err := geosync.ExportJSONL(cmd.Context(), remoteSource{geoClient}, w); err != nil {
			return fmt.Errorf("exporting: %w", err)
		}
		return nil
	},
}

// importResult summarizes an import.
type importResult struct {
	Added      []string `json:"added"`
	Duplicates []string `json:"duplicates,omitempty"`
	Skipped    int      `json:"skipped"`
}

var importCmd = &cobra.Command{
	Use:     "import <file>",
	Short:   "Add geotifications from a JSONL export",
	Long:    "Adds every geotification in a JSONL export. Identifiers that already exist are left alone.",
	GroupID: "data",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var r io.Reader = os.Stdin
		if args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			r = f
		}

		res, err := importGeotifications(cmd.Context(), geoClient, r)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), res)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d geotifications (%d already present, %d unreadable)\n",
			len(res.Added), len(res.Duplicates), res.Skipped)
		return nil
	},
}

func importGeotifications(ctx context.Context, c client.GeotifyClient, r io.Reader) (*importResult, error) {
	items, skipped, err := geosync.ImportJSONL(r)
	if err != nil {
		return nil, fmt.Errorf("reading export: %w", err)
	}

	res := &importResult{Added: []string{}, Skipped: len(skipped)}
	for _, g := range items {
		_, err := c.AddGeotification(ctx, &client.AddGeotificationRequest{
			Identifier: g.Identifier,
			Coordinate: g.Coordinate,
			Radius:     g.Radius,
			Note:       g.Note,
			EventType:  g.EventType,
		})
		var apiErr *client.APIError
		switch {
		case err == nil:
			res.Added = append(res.Added, g.Identifier)
		case errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusConflict && g.Identifier != "" && isDuplicate(ctx, c, g.Identifier):
			res.Duplicates = append(res.Duplicates, g.Identifier)
		default:
			return res, fmt.Errorf("adding %s: %w", g.Identifier, err)
		}
	}
	return res, nil
}

// isDuplicate distinguishes an existing identifier from a full coordinator,
// which also answers 409.
func isDuplicate(ctx context.Context, c client.GeotifyClient, identifier string) bool {
	_, err := c.GetGeotification(ctx, identifier)
	return err == nil
}
