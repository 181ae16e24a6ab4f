package ports

// MessagePublisher relays domain events to the message broker. A nil publisher
// is valid for deployments without a broker; callers must treat relay failures
// as non-fatal.
type MessagePublisher interface {
	Publish(exchange, routingKey string, body []byte) error
}
