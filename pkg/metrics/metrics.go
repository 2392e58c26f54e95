package metrics

import "time"

// Collector defines the interface for gateway metrics.
// Implementations can export to various backends (Prometheus, StatsD, etc.).
type Collector interface {
	// Payment lifecycle
	RecordPaymentCreated(method string)
	RecordStatusCheck(outcome string, duration time.Duration)
	RecordRedemption(outcome string, duration time.Duration)

	// Receipt outbox
	RecordReceipt(status string)
	RecordOutboxDepth(depth int)
}

// Status check and redemption outcomes.
const (
	OutcomeCompleted = "completed"
	OutcomePending   = "pending"
	OutcomeNotFound  = "not_found"
	OutcomeDeclined  = "declined"
	OutcomeError     = "error"
)

// Receipt statuses.
const (
	ReceiptSent    = "sent"
	ReceiptFailed  = "failed"
	ReceiptDropped = "dropped"
)

// NoOpCollector is a no-op implementation of Collector.
// It's used as the default collector when metrics are not needed.
type NoOpCollector struct{}

// RecordPaymentCreated does nothing.
func (NoOpCollector) RecordPaymentCreated(method string) {}

// RecordStatusCheck does nothing.
func (NoOpCollector) RecordStatusCheck(outcome string, duration time.Duration) {}

// RecordRedemption does nothing.
func (NoOpCollector) RecordRedemption(outcome string, duration time.Duration) {}

// RecordReceipt does nothing.
func (NoOpCollector) RecordReceipt(status string) {}

// RecordOutboxDepth does nothing.
func (NoOpCollector) RecordOutboxDepth(depth int) {}
