package events

// Message is one event received from the bus.
type Message struct {
	// Topic is the concrete subject, also for wildcard subscriptions.
	Topic string
	Data  []byte
}

// Subscriber receives events from the event bus.
type Subscriber interface {
	// Subscribe delivers messages whose subject matches pattern, which may
	// use NATS wildcards. Call the returned cancel function to unsubscribe
	// and close the channel.
	Subscribe(pattern string) (<-chan Message, func(), error)
	Close() error
}
