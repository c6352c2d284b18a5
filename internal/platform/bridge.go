// Package platform feeds platform callbacks received over the event bus
// into a monitor.Delegate, normally the coordinator.
package platform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/alfredjeanlab/geotify/internal/events"
	"github.com/alfredjeanlab/geotify/internal/monitor"
)

// Bridge decodes platform callback payloads and forwards them.
type Bridge struct {
	delegate monitor.Delegate
	logger   *slog.Logger
}

// NewBridge creates a bridge delivering to d.
func NewBridge(d monitor.Delegate, logger *slog.Logger) *Bridge {
	return &Bridge{delegate: d, logger: logger}
}

// HandleAuthorization decodes an events.AuthorizationChanged payload and
// forwards the level.
func (b *Bridge) HandleAuthorization(raw []byte) error {
	var event events.AuthorizationChanged
	if err := json.Unmarshal(raw, &event); err != nil {
		return fmt.Errorf("decoding authorization callback: %w", err)
	}
	if !event.Authorization.IsValid() {
		return fmt.Errorf("unknown authorization level %q", event.Authorization)
	}
	b.delegate.AuthorizationChanged(event.Authorization)
	return nil
}

// HandleMonitoringFailed decodes an events.MonitoringFailed payload. A
// failure without an identifier concerns the location service as a whole and
// is only logged.
func (b *Bridge) HandleMonitoringFailed(raw []byte) error {
	var event events.MonitoringFailed
	if err := json.Unmarshal(raw, &event); err != nil {
		return fmt.Errorf("decoding monitoring failure: %w", err)
	}
	if event.Error == "" {
		event.Error = "unknown error"
	}
	if event.Identifier == "" {
		b.logger.Error("platform: location service failed", "err", event.Error)
		return nil
	}
	b.delegate.MonitoringFailed(event.Identifier, errors.New(event.Error))
	return nil
}

// Handle dispatches a platform callback by its topic.
func (b *Bridge) Handle(msg events.Message) error {
	switch msg.Topic {
	case events.TopicPlatformAuthorization:
		return b.HandleAuthorization(msg.Data)
	case events.TopicPlatformMonitoringFailed:
		return b.HandleMonitoringFailed(msg.Data)
	default:
		return fmt.Errorf("unknown platform topic %q", msg.Topic)
	}
}

// StartSubscriber listens for platform callbacks on the event bus. It blocks
// until ctx is cancelled or the subscription closes.
func (b *Bridge) StartSubscriber(ctx context.Context, sub events.Subscriber) error {
	msgs, cancel, err := sub.Subscribe(events.TopicPlatform)
	if err != nil {
		return fmt.Errorf("platform: subscribe: %w", err)
	}
	defer cancel()

	b.logger.Info("platform: subscriber started", "pattern", events.TopicPlatform)
	for {
		select {
		case <-ctx.Done():
			b.logger.Info("platform: subscriber stopping")
			return nil
		case msg, ok := <-msgs:
			if !ok {
				b.logger.Info("platform: subscription closed")
				return nil
			}
			if err := b.Handle(msg); err != nil {
				b.logger.Warn("platform: bad callback", "topic", msg.Topic, "err", err)
			}
		}
	}
}
