package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/alfredjeanlab/geotify/internal/coordinator"
	"github.com/alfredjeanlab/geotify/internal/model"
	"github.com/alfredjeanlab/geotify/internal/ui"
)

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// monitoringStatus describes whether e is actively monitored.
func monitoringStatus(e coordinator.Entry, auth model.AuthorizationLevel) string {
	switch {
	case e.Monitored:
		return ui.RenderOK("monitored")
	case e.Unsupported:
		return ui.RenderError("unsupported")
	case !auth.AllowsRegionMonitoring():
		return ui.RenderWarn("deferred")
	default:
		return ui.RenderError("inactive")
	}
}

// eventLabel is the short form of an event type used in tables.
func eventLabel(e model.EventType) string {
	return strings.TrimPrefix(string(e), "on_")
}

// parseEventType accepts "entry", "exit", or the full "on_entry"/"on_exit".
func parseEventType(s string) (model.EventType, error) {
	e := model.EventType(strings.ToLower(strings.TrimSpace(s)))
	if !strings.HasPrefix(string(e), "on_") {
		e = "on_" + e
	}
	if !e.IsValid() {
		return "", fmt.Errorf("unknown event %q (must be entry or exit)", s)
	}
	return e, nil
}

// parseAuthorization accepts short forms like "always" and "when-in-use".
func parseAuthorization(s string) (model.AuthorizationLevel, error) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	switch norm {
	case "always":
		norm = string(model.AuthorizationAlways)
	case "when_in_use":
		norm = string(model.AuthorizationWhenInUse)
	}
	level := model.AuthorizationLevel(norm)
	if !level.IsValid() {
		return "", fmt.Errorf("unknown authorization level %q", s)
	}
	return level, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func printSnapshotTable(w io.Writer, snap *coordinator.Snapshot) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tEVENT\tRADIUS\tLATITUDE\tLONGITUDE\tSTATUS\tNOTE")
	for _, e := range snap.Items {
		fmt.Fprintf(tw, "%s\t%s\t%.0fm\t%.6f\t%.6f\t%s\t%s\n",
			e.Identifier,
			eventLabel(e.EventType),
			e.Radius,
			e.Coordinate.Latitude,
			e.Coordinate.Longitude,
			monitoringStatus(e, snap.Authorization),
			truncate(e.Note, 40),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n%d/%d geotifications, authorization %s\n",
		len(snap.Items), snap.Capacity, ui.RenderMuted(string(snap.Authorization)))
	return err
}

func printGeotification(w io.Writer, g *model.Geotification) {
	fmt.Fprintf(w, "ID:         %s\n", g.Identifier)
	fmt.Fprintf(w, "Event:      %s\n", eventLabel(g.EventType))
	fmt.Fprintf(w, "Latitude:   %.6f\n", g.Coordinate.Latitude)
	fmt.Fprintf(w, "Longitude:  %.6f\n", g.Coordinate.Longitude)
	fmt.Fprintf(w, "Radius:     %.0fm\n", g.Radius)
	if g.Note != "" {
		fmt.Fprintf(w, "Note:       %s\n", g.Note)
	}
}

func printRegionTable(w io.Writer, regions []model.Region) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tRADIUS\tLATITUDE\tLONGITUDE\tENTRY\tEXIT")
	for _, r := range regions {
		fmt.Fprintf(tw, "%s\t%.0fm\t%.6f\t%.6f\t%t\t%t\n",
			r.Identifier, r.Radius, r.Center.Latitude, r.Center.Longitude, r.NotifyOnEntry, r.NotifyOnExit)
	}
	return tw.Flush()
}
