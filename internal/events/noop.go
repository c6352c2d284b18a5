package events

import "context"

// NoopPublisher discards events. The service uses it when no NATS URL is
// configured, so observers need no nil checks.
type NoopPublisher struct{}

// Publish reports only context cancellation, matching NATSPublisher.
func (NoopPublisher) Publish(ctx context.Context, _ string, _ any) error { return ctx.Err() }

func (NoopPublisher) Close() error { return nil }
