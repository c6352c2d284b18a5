package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/geotify/internal/client"
	"github.com/alfredjeanlab/geotify/internal/events"
	"github.com/alfredjeanlab/geotify/internal/ui"
)

// watchTopics match the coordinator notifications the watch command follows.
// Both NATS and the SSE endpoint accept these wildcard patterns.
var watchTopics = []string{events.TopicGeotifications, events.TopicMonitoring}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream coordinator notifications",
	Long: `Prints geotification and monitoring notifications as they happen.

Events are read from NATS when a NATS URL is configured (--nats,
GEOTIFY_NATS_URL, or the active remote), and from the server's event stream
otherwise.`,
	GroupID: "platform",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		natsURL, _ := cmd.Flags().GetString("nats")
		if natsURL == "" {
			natsURL = os.Getenv("GEOTIFY_NATS_URL")
		}
		if natsURL == "" {
			natsURL = activeRemoteNATSURL()
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		out := cmd.OutOrStdout()
		emit := func(topic string, data []byte) { printEvent(out, topic, data) }

		if natsURL != "" {
			return watchNATS(ctx, natsURL, emit)
		}
		return client.NewHTTPClient(httpURL, authToken).StreamEvents(ctx, watchTopics, emit)
	},
}

// watchNATS subscribes to every watch topic and delivers events until ctx
// is done.
func watchNATS(ctx context.Context, natsURL string, fn func(topic string, data []byte)) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	sub, err := events.NewNATSSubscriber(natsURL,
		nats.Name("geotify-watch"),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats: disconnected", "err", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats: reconnected")
		}),
	)
	if err != nil {
		return fmt.Errorf("connecting to NATS: %w", err)
	}
	defer sub.Close()

	merged := make(chan events.Message)
	for _, pattern := range watchTopics {
		ch, cancel, err := sub.Subscribe(pattern)
		if err != nil {
			return fmt.Errorf("subscribing to %s: %w", pattern, err)
		}
		defer cancel()

		go func() {
			for msg := range ch {
				select {
				case merged <- msg:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	for {
		select {
		case <-ctx.Done():
			if n := sub.Dropped(); n > 0 {
				logger.Warn("events dropped while printing", "count", n)
			}
			return nil
		case msg := <-merged:
			fn(msg.Topic, msg.Data)
		}
	}
}

// printEvent writes a one-line description of an event.
func printEvent(w io.Writer, topic string, data []byte) {
	if jsonOutput {
		fmt.Fprintf(w, "{\"topic\":%q,\"data\":%s}\n", topic, data)
		return
	}
	fmt.Fprintf(w, "%s %s\n", ui.RenderMuted(time.Now().Format("15:04:05")), describeEvent(topic, data))
}

func describeEvent(topic string, data []byte) string {
	switch topic {
	case events.TopicGeotificationAdded, events.TopicGeotificationRemoved:
		var e events.GeotificationAdded
		if err := json.Unmarshal(data, &e); err != nil {
			break
		}
		verb := "added"
		if topic == events.TopicGeotificationRemoved {
			verb = "removed"
		}
		g := e.Geotification
		return fmt.Sprintf("%s %s (%s, %.0fm)", verb, ui.RenderAccent(g.Identifier), eventLabel(g.EventType), g.Radius)
	case events.TopicMonitoringUnsupported, events.TopicMonitoringDeferred, events.TopicMonitoringFailed:
		var r events.MonitoringReport
		if err := json.Unmarshal(data, &r); err != nil {
			break
		}
		title := ui.RenderError(r.Title)
		if topic == events.TopicMonitoringDeferred {
			title = ui.RenderWarn(r.Title)
		}
		return fmt.Sprintf("%s: %s", title, r.Message)
	}
	return fmt.Sprintf("%s %s", topic, data)
}

func init() {
	watchCmd.Flags().String("nats", "", "NATS URL to read events from")
}
