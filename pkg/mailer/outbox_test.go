package mailer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"payment-gateway/pkg/ledger"
)

type fakeSender struct {
	mu    sync.Mutex
	sent  []string // recipient addresses
	err   error
	block chan struct{} // when set, Send waits until closed
}

func (f *fakeSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, to)
	return nil
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func testTx(email string) *ledger.Transaction {
	return &ledger.Transaction{
		ID:        "TXN-1",
		Type:      ledger.TypePromptPay,
		Amount:    "10.00",
		Merchant:  "Shop",
		Email:     email,
		Status:    ledger.StatusCompleted,
		Timestamp: "1/1/2024, 12:00:00 PM",
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("Condition not met before timeout")
}

func TestOutbox_Delivers(t *testing.T) {
	sender := &fakeSender{}
	outbox := NewOutbox(sender, OutboxConfig{QueueSize: 10, Workers: 1}, nil)
	defer outbox.Close()

	if err := outbox.EnqueueReceipt(testTx("a@b.com")); err != nil {
		t.Fatalf("EnqueueReceipt failed: %v", err)
	}

	waitFor(t, time.Second, func() bool { return sender.count() == 1 })

	if sender.sent[0] != "a@b.com" {
		t.Errorf("Expected delivery to a@b.com, got %q", sender.sent[0])
	}
}

func TestOutbox_FailureIsCountedNotReturned(t *testing.T) {
	sender := &fakeSender{err: errors.New("relay refused")}
	outbox := NewOutbox(sender, OutboxConfig{QueueSize: 10, Workers: 1}, nil)
	defer outbox.Close()

	if err := outbox.EnqueueReceipt(testTx("a@b.com")); err != nil {
		t.Fatalf("EnqueueReceipt failed: %v", err)
	}

	waitFor(t, time.Second, func() bool { return outbox.Stats().Failed == 1 })
}

func TestOutbox_DropsUnderBackpressure(t *testing.T) {
	block := make(chan struct{})
	sender := &fakeSender{block: block}
	outbox := NewOutbox(sender, OutboxConfig{
		QueueSize:   1,
		Workers:     1,
		MaxWaitTime: 5 * time.Millisecond,
	}, nil)
	defer func() {
		close(block)
		outbox.Close()
	}()

	// First receipt occupies the worker, second fills the queue.
	if err := outbox.EnqueueReceipt(testTx("a@b.com")); err != nil {
		t.Fatalf("First enqueue failed: %v", err)
	}
	// Give the worker time to pick up the first job.
	time.Sleep(20 * time.Millisecond)
	if err := outbox.EnqueueReceipt(testTx("a@b.com")); err != nil {
		t.Fatalf("Second enqueue failed: %v", err)
	}

	err := outbox.EnqueueReceipt(testTx("a@b.com"))
	if !errors.Is(err, ErrQueueFull) {
		t.Errorf("Expected ErrQueueFull, got %v", err)
	}
	if outbox.Stats().Dropped != 1 {
		t.Errorf("Expected 1 dropped, got %d", outbox.Stats().Dropped)
	}
}

func TestOutbox_ClosedRejectsEnqueue(t *testing.T) {
	sender := &fakeSender{}
	outbox := NewOutbox(sender, OutboxConfig{QueueSize: 10, Workers: 1}, nil)
	outbox.Close()

	err := outbox.EnqueueReceipt(testTx("a@b.com"))
	if !errors.Is(err, ErrOutboxClosed) {
		t.Errorf("Expected ErrOutboxClosed, got %v", err)
	}
}
