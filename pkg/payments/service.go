package payments

import (
	"context"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"payment-gateway/pkg/ledger"
	"payment-gateway/pkg/logging"
	"payment-gateway/pkg/metrics"
	"payment-gateway/pkg/truemoney"

	"github.com/bits-and-blooms/bloom/v3"
	"go.uber.org/zap"
)

// Redeemer claims a gift voucher against the wallet provider.
type Redeemer interface {
	Redeem(ctx context.Context, voucherCode, mobile string) (*truemoney.Redemption, error)
}

// Notifier queues a receipt email for a completed transaction.
type Notifier interface {
	EnqueueReceipt(tx *ledger.Transaction) error
}

// Flipper decides whether a pending payment settles on this status check.
// The default is a fair coin; tests inject a deterministic one.
type Flipper func() bool

// Config holds service-level settings.
type Config struct {
	// PayoutID is the static fallback wallet identifier encoded into QR
	// codes. The demo never asks the provider for a real receiving ID.
	PayoutID string

	// DefaultMerchant labels payments created without a merchant name.
	DefaultMerchant string
}

// DefaultConfig returns the demo defaults.
func DefaultConfig() Config {
	return Config{
		PayoutID:        "0925384159",
		DefaultMerchant: "Unknown Shop",
	}
}

// Service orchestrates the ledger, the gift-link redeemer, and the receipt
// outbox behind the four gateway operations.
//
// Concurrency note: the stores are individually thread-safe, but CheckStatus
// performs an unguarded read-then-flip. Two concurrent checks on the same
// pending ID may both flip coins; completion still never reverts, so the
// race is accepted for this demo and documented rather than locked away.
type Service struct {
	store    ledger.Store
	redeemer Redeemer
	notifier Notifier
	flip     Flipper
	config   Config
	metrics  metrics.Collector
	logger   *logging.Logger

	// issued tracks every ID this ledger has seen so unknown-ID status
	// checks can be rejected without a store round trip.
	issuedMu sync.Mutex
	issued   *bloom.BloomFilter
}

// NewService creates the payment service. The bloom filter of issued IDs is
// seeded from the store so a persistent backend keeps rejecting correctly
// across restarts. redeemer and notifier may be nil in tests.
func NewService(store ledger.Store, redeemer Redeemer, notifier Notifier, config Config, collector metrics.Collector) (*Service, error) {
	if collector == nil {
		collector = metrics.NoOpCollector{}
	}

	s := &Service{
		store:    store,
		redeemer: redeemer,
		notifier: notifier,
		flip:     func() bool { return rand.Float64() > 0.5 },
		config:   config,
		metrics:  collector,
		logger:   logging.Global().Named("payments"),
		issued:   bloom.NewWithEstimates(100000, 0.01),
	}

	existing, err := store.List(context.Background())
	if err != nil {
		return nil, err
	}
	for _, tx := range existing {
		s.issued.Add([]byte(tx.ID))
	}

	return s, nil
}

// SetFlipper replaces the settlement coin. Intended for tests.
func (s *Service) SetFlipper(flip Flipper) {
	s.flip = flip
}

func (s *Service) markIssued(id string) {
	s.issuedMu.Lock()
	s.issued.Add([]byte(id))
	s.issuedMu.Unlock()
}

func (s *Service) mayBeIssued(id string) bool {
	s.issuedMu.Lock()
	defer s.issuedMu.Unlock()
	return s.issued.Test([]byte(id))
}

// emailValid reports whether the stored email warrants a receipt. The
// placeholder "-" never matches.
func emailValid(email string) bool {
	return strings.Contains(email, "@")
}

// CreatePaymentResult is the outcome of CreatePayment.
type CreatePaymentResult struct {
	TransactionID string
	PayoutID      string
}

// CreatePayment records a pending PromptPay transaction. It always succeeds;
// the amount is coerced to two decimal places and missing fields fall back
// to placeholders.
func (s *Service) CreatePayment(ctx context.Context, amount, merchantName, email string) (*CreatePaymentResult, error) {
	if merchantName == "" {
		merchantName = s.config.DefaultMerchant
	}
	if email == "" {
		email = "-"
	}

	tx := &ledger.Transaction{
		ID:        ledger.NewID(ledger.PrefixPromptPay),
		Type:      ledger.TypePromptPay,
		Amount:    ledger.FormatAmount(amount),
		Merchant:  merchantName,
		Email:     email,
		Status:    ledger.StatusPending,
		Timestamp: ledger.Timestamp(time.Now()),
	}

	if err := s.store.Append(ctx, tx); err != nil {
		return nil, err
	}
	s.markIssued(tx.ID)
	s.metrics.RecordPaymentCreated(ledger.TypePromptPay)

	s.logger.Info("payment created",
		zap.String("tx_id", tx.ID),
		zap.String("amount", tx.Amount),
		zap.String("merchant", tx.Merchant),
	)

	return &CreatePaymentResult{
		TransactionID: tx.ID,
		PayoutID:      s.config.PayoutID,
	}, nil
}

// CheckStatus reports the settlement state of a transaction. Unknown IDs
// return ledger.ErrNotFound. A completed transaction stays completed. A
// pending one settles when the coin lands heads, which also queues the
// receipt email when the stored address looks deliverable.
func (s *Service) CheckStatus(ctx context.Context, transactionID string) (string, error) {
	start := time.Now()

	if !s.mayBeIssued(transactionID) {
		s.metrics.RecordStatusCheck(metrics.OutcomeNotFound, time.Since(start))
		return "", ledger.ErrNotFound
	}

	tx, err := s.store.Find(ctx, transactionID)
	if err != nil {
		if ledger.IsNotFound(err) {
			s.metrics.RecordStatusCheck(metrics.OutcomeNotFound, time.Since(start))
		} else {
			s.metrics.RecordStatusCheck(metrics.OutcomeError, time.Since(start))
		}
		return "", err
	}

	if tx.Status == ledger.StatusCompleted {
		s.metrics.RecordStatusCheck(metrics.OutcomeCompleted, time.Since(start))
		return ledger.StatusCompleted, nil
	}

	if !s.flip() {
		s.metrics.RecordStatusCheck(metrics.OutcomePending, time.Since(start))
		return ledger.StatusPending, nil
	}

	tx.Status = ledger.StatusCompleted
	if err := s.store.Update(ctx, tx); err != nil {
		// The caller still sees completed; the demo has no settlement
		// reconciliation to fall back on.
		s.logger.Error("failed to persist completion",
			zap.String("tx_id", tx.ID),
			zap.Error(err),
		)
	}

	s.logger.Info("payment completed", zap.String("tx_id", tx.ID))
	s.sendReceipt(tx)
	s.metrics.RecordStatusCheck(metrics.OutcomeCompleted, time.Since(start))

	return ledger.StatusCompleted, nil
}

// RedeemResult is the outcome of a successful gift-link redemption.
type RedeemResult struct {
	TransactionID string
	Amount        string
}

// RedeemGiftLink validates the link, claims the voucher with the provider,
// and records a completed TrueMoney transaction. Validation failures are
// truemoney.ErrInvalidLink / truemoney.ErrNoVoucherCode and never reach the
// network; provider declines carry the provider's message.
func (s *Service) RedeemGiftLink(ctx context.Context, link, mobile, email string) (*RedeemResult, error) {
	start := time.Now()

	if link == "" || mobile == "" {
		s.metrics.RecordRedemption(metrics.OutcomeDeclined, time.Since(start))
		return nil, truemoney.ErrInvalidLink
	}

	voucherCode, err := truemoney.ParseGiftLink(link)
	if err != nil {
		s.metrics.RecordRedemption(metrics.OutcomeDeclined, time.Since(start))
		return nil, err
	}

	redemption, err := s.redeemer.Redeem(ctx, voucherCode, mobile)
	if err != nil {
		s.metrics.RecordRedemption(metrics.OutcomeError, time.Since(start))
		return nil, err
	}

	if email == "" {
		email = "-"
	}

	tx := &ledger.Transaction{
		ID:        ledger.NewID(ledger.PrefixTrueMoney),
		Type:      ledger.TypeTrueMoney,
		Amount:    ledger.FormatAmount(strconv.FormatFloat(redemption.AmountBaht, 'f', -1, 64)),
		Merchant:  "Gift from " + redemption.SenderName,
		Email:     email,
		Status:    ledger.StatusCompleted,
		Timestamp: ledger.Timestamp(time.Now()),
	}

	if err := s.store.Append(ctx, tx); err != nil {
		s.metrics.RecordRedemption(metrics.OutcomeError, time.Since(start))
		return nil, err
	}
	s.markIssued(tx.ID)
	s.metrics.RecordPaymentCreated(ledger.TypeTrueMoney)
	s.metrics.RecordRedemption(metrics.OutcomeCompleted, time.Since(start))

	s.logger.Info("gift link redeemed",
		zap.String("tx_id", tx.ID),
		zap.String("amount", tx.Amount),
	)
	s.sendReceipt(tx)

	return &RedeemResult{TransactionID: tx.ID, Amount: tx.Amount}, nil
}

// History returns the full ledger, most-recent-first.
func (s *Service) History(ctx context.Context) ([]*ledger.Transaction, error) {
	return s.store.List(ctx)
}

// sendReceipt queues a receipt if the transaction has a deliverable email.
// Delivery is fire-and-forget; failures never reach the payment caller.
func (s *Service) sendReceipt(tx *ledger.Transaction) {
	if s.notifier == nil || !emailValid(tx.Email) {
		return
	}
	if err := s.notifier.EnqueueReceipt(tx); err != nil {
		s.logger.Warn("receipt not queued",
			zap.String("tx_id", tx.ID),
			zap.Error(err),
		)
	}
}
