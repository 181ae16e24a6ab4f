package contracts

// Exchanges
const (
	ExchangeRequestFanout = "request_fanout"
	ExchangeRequestTopic  = "request_topic"
)

// Queues
const (
	QueueRequestEvents = "request_events"
	QueueRequestStatus = "request_status"
)

// Routing patterns
const (
	RouteRequestStatusPrefix = "request.status." // {STATUS}
)
