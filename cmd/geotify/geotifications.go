package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/geotify/internal/client"
	"github.com/alfredjeanlab/geotify/internal/model"
)

var addCmd = &cobra.Command{
	Use:     "add",
	Short:   "Add a geotification",
	GroupID: "geotifications",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		id, _ := cmd.Flags().GetString("id")
		lat, _ := cmd.Flags().GetFloat64("lat")
		lon, _ := cmd.Flags().GetFloat64("lon")
		radius, _ := cmd.Flags().GetFloat64("radius")
		note, _ := cmd.Flags().GetString("note")
		event, _ := cmd.Flags().GetString("event")

		eventType, err := parseEventType(event)
		if err != nil {
			return err
		}

		g, err := geoClient.AddGeotification(cmd.Context(), &client.AddGeotificationRequest{
			Identifier: id,
			Coordinate: model.Coordinate{Latitude: lat, Longitude: lon},
			Radius:     radius,
			Note:       note,
			EventType:  eventType,
		})
		if err != nil {
			return fmt.Errorf("adding geotification: %w", err)
		}

		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), g)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added %s\n", g.Identifier)
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List geotifications and their monitoring status",
	GroupID: "geotifications",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := geoClient.ListGeotifications(cmd.Context())
		if err != nil {
			return fmt.Errorf("listing geotifications: %w", err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), snap)
		}
		return printSnapshotTable(cmd.OutOrStdout(), snap)
	},
}

var showCmd = &cobra.Command{
	Use:     "show <id>",
	Short:   "Show a geotification",
	GroupID: "geotifications",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := geoClient.GetGeotification(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("getting geotification %s: %w", args[0], err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), g)
		}
		printGeotification(cmd.OutOrStdout(), g)
		return nil
	},
}

var removeCmd = &cobra.Command{
	Use:     "remove <id>...",
	Aliases: []string{"rm"},
	Short:   "Remove geotifications",
	GroupID: "geotifications",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, id := range args {
			if err := geoClient.RemoveGeotification(cmd.Context(), id); err != nil {
				return fmt.Errorf("removing %s: %w", id, err)
			}
			if !jsonOutput {
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", id)
			}
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), map[string][]string{"removed": args})
		}
		return nil
	},
}

var countCmd = &cobra.Command{
	Use:     "count",
	Short:   "Show how many geotifications exist and whether more can be added",
	GroupID: "geotifications",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := geoClient.Count(cmd.Context())
		if err != nil {
			return fmt.Errorf("counting geotifications: %w", err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), resp)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Geotifications: %d/%d\n", resp.Count, resp.Capacity)
		if !resp.CanAdd {
			fmt.Fprintln(cmd.OutOrStdout(), "At capacity: remove one before adding more.")
		}
		return nil
	},
}

func init() {
	addCmd.Flags().String("id", "", "identifier (generated when empty)")
	addCmd.Flags().Float64("lat", 0, "latitude in degrees (required)")
	addCmd.Flags().Float64("lon", 0, "longitude in degrees (required)")
	addCmd.Flags().Float64("radius", 100, "radius in meters")
	addCmd.Flags().String("note", "", "note shown when the geotification fires")
	addCmd.Flags().String("event", "entry", "event to fire on (entry or exit)")
	_ = addCmd.MarkFlagRequired("lat")
	_ = addCmd.MarkFlagRequired("lon")
}
