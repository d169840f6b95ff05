package enums

// OutboxEventType names the domain events the workflow core emits.
type OutboxEventType string

const (
	EventOrderStatusChanged       OutboxEventType = "order.status_changed"
	EventOrderSentBack            OutboxEventType = "order.sent_back"
	EventOrderAssigned            OutboxEventType = "order.assigned"
	EventOrderReturnedToQueue     OutboxEventType = "order.returned_to_queue"
	EventExternalJobStatusChanged OutboxEventType = "external_job.status_changed"
)

// OutboxAggregateType names the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateOrder       OutboxAggregateType = "order"
	AggregateExternalJob OutboxAggregateType = "external_job"
)
