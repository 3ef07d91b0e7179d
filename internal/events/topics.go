package events

// Topic constants for domain events emitted by the sale engine.
const (
	TopicBatchFinalized = "sale.batch.finalized"
	TopicBatchDiscarded = "sale.batch.discarded"
)
