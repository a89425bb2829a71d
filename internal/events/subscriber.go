package events

// Message is one payload received from the event bus.
type Message struct {
	Subject string
	// Reply is the inbox a requester is waiting on, if any.
	Reply string
	Data  []byte
}

// Subscriber receives events from the event bus.
type Subscriber interface {
	// Subscribe delivers messages on the returned channel.
	// Call the returned cancel function to unsubscribe and close the channel.
	Subscribe(topic string) (<-chan Message, func(), error)
	Close() error
}
