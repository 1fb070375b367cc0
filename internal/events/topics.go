package events

// Topics emitted by the checkout engine.
const (
	TopicOrderCreated  = "order.created"
	TopicOrderPaid     = "order.paid"
	TopicPaymentFailed = "payment.failed"
)
