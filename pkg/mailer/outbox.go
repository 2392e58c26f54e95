package mailer

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"payment-gateway/pkg/ledger"
	"payment-gateway/pkg/logging"
	"payment-gateway/pkg/metrics"

	"go.uber.org/zap"
)

// Outbox errors.
var (
	// ErrQueueFull is returned when the outbox drops a receipt under backpressure.
	ErrQueueFull = errors.New("mailer: outbox queue full")

	// ErrOutboxClosed is returned when enqueueing after Close.
	ErrOutboxClosed = errors.New("mailer: outbox closed")
)

// Outbox queues receipt emails and delivers them from a worker pool.
// Enqueue never blocks the payment flow beyond MaxWaitTime; delivery
// failures are logged and counted, never surfaced to the payment caller.
type Outbox struct {
	sender     Sender
	queue      chan job
	wg         sync.WaitGroup
	ctx        context.Context
	cancelFunc context.CancelFunc
	config     OutboxConfig
	metrics    metrics.Collector
	logger     *logging.Logger

	// Statistics (accessed atomically)
	enqueued int64
	dropped  int64
	failed   int64

	depthTicker *time.Ticker
	depthStop   chan struct{}
}

type job struct {
	to      string
	subject string
	html    string
	txID    string
}

// OutboxConfig configures the outbox behavior.
type OutboxConfig struct {
	// QueueSize is the bounded queue size (default: 100)
	QueueSize int

	// Workers is the number of concurrent delivery workers (default: 2)
	Workers int

	// MaxWaitTime is the max time to wait if the queue is full before
	// dropping the receipt (default: 10ms)
	MaxWaitTime time.Duration
}

// NewOutbox creates an outbox and starts its workers. Callers must Close it.
func NewOutbox(sender Sender, config OutboxConfig, collector metrics.Collector) *Outbox {
	if config.QueueSize <= 0 {
		config.QueueSize = 100
	}
	if config.Workers <= 0 {
		config.Workers = 2
	}
	if config.MaxWaitTime == 0 {
		config.MaxWaitTime = 10 * time.Millisecond
	}
	if collector == nil {
		collector = metrics.NoOpCollector{}
	}

	ctx, cancel := context.WithCancel(context.Background())

	o := &Outbox{
		sender:      sender,
		queue:       make(chan job, config.QueueSize),
		ctx:         ctx,
		cancelFunc:  cancel,
		config:      config,
		metrics:     collector,
		logger:      logging.Global().Named("mailer"),
		depthTicker: time.NewTicker(5 * time.Second),
		depthStop:   make(chan struct{}),
	}

	for i := 0; i < config.Workers; i++ {
		o.wg.Add(1)
		go o.worker()
	}
	go o.reportDepth()

	return o
}

// EnqueueReceipt renders a receipt for the transaction and queues it for
// delivery. Returns ErrQueueFull when dropped under backpressure.
func (o *Outbox) EnqueueReceipt(tx *ledger.Transaction) error {
	select {
	case <-o.ctx.Done():
		return ErrOutboxClosed
	default:
	}

	receipt := BuildReceipt(tx)
	html, err := receipt.Render()
	if err != nil {
		o.metrics.RecordReceipt(metrics.ReceiptFailed)
		return err
	}

	j := job{to: tx.Email, subject: receipt.Subject(), html: html, txID: tx.ID}

	timer := time.NewTimer(o.config.MaxWaitTime)
	defer timer.Stop()

	select {
	case o.queue <- j:
		atomic.AddInt64(&o.enqueued, 1)
		return nil
	case <-timer.C:
		atomic.AddInt64(&o.dropped, 1)
		o.metrics.RecordReceipt(metrics.ReceiptDropped)
		o.logger.Warn("receipt dropped, outbox full", zap.String("tx_id", tx.ID))
		return ErrQueueFull
	case <-o.ctx.Done():
		return ErrOutboxClosed
	}
}

func (o *Outbox) worker() {
	defer o.wg.Done()

	for {
		select {
		case j, ok := <-o.queue:
			if !ok {
				return
			}
			o.deliver(j)
		case <-o.ctx.Done():
			// Drain remaining receipts before exiting.
			for {
				select {
				case j, ok := <-o.queue:
					if !ok {
						return
					}
					o.deliver(j)
				default:
					return
				}
			}
		}
	}
}

func (o *Outbox) deliver(j job) {
	start := time.Now()
	err := o.sender.Send(context.Background(), j.to, j.subject, j.html)
	duration := time.Since(start)

	if err != nil {
		atomic.AddInt64(&o.failed, 1)
		o.metrics.RecordReceipt(metrics.ReceiptFailed)
		o.logger.Error("receipt delivery failed",
			zap.String("tx_id", j.txID),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return
	}

	o.metrics.RecordReceipt(metrics.ReceiptSent)
	o.logger.Info("receipt sent",
		zap.String("tx_id", j.txID),
		zap.Duration("duration", duration),
	)
}

func (o *Outbox) reportDepth() {
	for {
		select {
		case <-o.depthTicker.C:
			o.metrics.RecordOutboxDepth(len(o.queue))
		case <-o.depthStop:
			return
		}
	}
}

// Stats reports outbox counters.
type Stats struct {
	Enqueued int64
	Dropped  int64
	Failed   int64
	Depth    int
}

// Stats returns a snapshot of the outbox counters.
func (o *Outbox) Stats() Stats {
	return Stats{
		Enqueued: atomic.LoadInt64(&o.enqueued),
		Dropped:  atomic.LoadInt64(&o.dropped),
		Failed:   atomic.LoadInt64(&o.failed),
		Depth:    len(o.queue),
	}
}

// Close stops the workers after draining queued receipts.
func (o *Outbox) Close() error {
	o.depthTicker.Stop()
	close(o.depthStop)
	o.cancelFunc()
	o.wg.Wait()
	return nil
}
