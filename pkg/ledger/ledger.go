package ledger

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"
)

// Transaction types.
const (
	TypePromptPay = "PromptPay"
	TypeTrueMoney = "TrueMoney"
)

// Transaction statuses. A completed transaction never reverts to pending.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
)

// ID prefixes per transaction type.
const (
	PrefixPromptPay = "TXN-"
	PrefixTrueMoney = "TMN-"
)

// Transaction is a single payment record held by the ledger.
type Transaction struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Amount   string `json:"amount"` // formatted to two decimal places
	Merchant string `json:"merchant"`
	Email    string `json:"email"` // "-" when the payer gave none
	Status   string `json:"status"`
	// Timestamp is the creation time rendered in the merchant's local zone.
	Timestamp string `json:"timestamp"`
}

// Store is the ledger repository contract. List returns transactions
// most-recent-first; Append inserts at the front of that ordering.
type Store interface {
	Append(ctx context.Context, tx *Transaction) error
	Find(ctx context.Context, id string) (*Transaction, error)
	// Update persists a status change on an existing transaction.
	Update(ctx context.Context, tx *Transaction) error
	List(ctx context.Context) ([]*Transaction, error)
	Close() error
}

// ErrNotFound is returned when a transaction ID is unknown to the store.
var ErrNotFound = errors.New("ledger: transaction not found")

// IsNotFound checks whether the error indicates an unknown transaction ID.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

var (
	idMu   sync.Mutex
	lastID int64
)

// NewID generates a transaction ID of the form <prefix><unix-millis>.
// Consecutive calls within the same millisecond still yield distinct IDs.
func NewID(prefix string) string {
	idMu.Lock()
	defer idMu.Unlock()

	now := time.Now().UnixMilli()
	if now <= lastID {
		now = lastID + 1
	}
	lastID = now

	return prefix + strconv.FormatInt(now, 10)
}

// FormatAmount coerces a raw amount string to exactly two decimal places.
// Unparseable input yields "0.00".
func FormatAmount(raw string) string {
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		value = 0
	}
	return strconv.FormatFloat(value, 'f', 2, 64)
}

var bangkok = loadBangkok()

func loadBangkok() *time.Location {
	loc, err := time.LoadLocation("Asia/Bangkok")
	if err != nil {
		return time.FixedZone("ICT", 7*60*60)
	}
	return loc
}

// Timestamp renders t in the Asia/Bangkok zone using the display format
// the receipt and history UI expect.
func Timestamp(t time.Time) string {
	return t.In(bangkok).Format("1/2/2006, 3:04:05 PM")
}
