package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/alfredjeanlab/geotify/internal/coordinator"
	"github.com/alfredjeanlab/geotify/internal/model"
)

const publishTimeout = 2 * time.Second

// Notifier publishes coordinator observer callbacks and reports. Publish
// failures are logged and otherwise ignored.
type Notifier struct {
	pub    Publisher
	logger *slog.Logger
}

var (
	_ coordinator.Observer = (*Notifier)(nil)
	_ coordinator.Reporter = (*Notifier)(nil)
)

func NewNotifier(pub Publisher, logger *slog.Logger) *Notifier {
	return &Notifier{pub: pub, logger: logger}
}

func (n *Notifier) GeotificationAdded(g model.Geotification) {
	n.publish(TopicGeotificationAdded, GeotificationAdded{Geotification: g})
}

func (n *Notifier) GeotificationRemoved(g model.Geotification) {
	n.publish(TopicGeotificationRemoved, GeotificationRemoved{Geotification: g})
}

func (n *Notifier) Report(r coordinator.Report) {
	n.publish(TopicForReport(r.Kind), NewMonitoringReport(r))
}

func (n *Notifier) publish(topic string, event any) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := n.pub.Publish(ctx, topic, event); err != nil {
		n.logger.Warn("publishing event failed", "topic", topic, "err", err)
	}
}
