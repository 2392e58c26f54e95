package truemoney

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"payment-gateway/pkg/logging"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// Client errors beyond link validation.
var (
	// ErrUnavailable is returned when the circuit breaker is rejecting
	// calls or the provider cannot be reached.
	ErrUnavailable = errors.New("truemoney: provider unavailable")
)

// DeclinedError carries the provider's own failure message for a voucher
// that was reachable but not redeemable (already claimed, expired, ...).
type DeclinedError struct {
	Code    string
	Message string
}

func (e *DeclinedError) Error() string {
	return fmt.Sprintf("truemoney: redemption declined (%s): %s", e.Code, e.Message)
}

// Redemption is the useful subset of a successful provider response.
type Redemption struct {
	AmountBaht float64
	SenderName string
}

// ClientConfig configures the redemption client.
type ClientConfig struct {
	// Endpoint is the provider's redeem URL.
	Endpoint string

	// Timeout bounds each redemption call.
	Timeout time.Duration

	// CircuitBreaker tuning; zero values take gobreaker defaults.
	BreakerMaxRequests uint32
	BreakerInterval    time.Duration
	BreakerTimeout     time.Duration
}

// DefaultClientConfig returns the production provider endpoint with a
// conservative timeout.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Endpoint:           "https://gift.truemoney.com/campaign/v1/redeem",
		Timeout:            10 * time.Second,
		BreakerMaxRequests: 3,
		BreakerInterval:    60 * time.Second,
		BreakerTimeout:     30 * time.Second,
	}
}

// Client redeems gift vouchers against the provider's HTTP API. Calls run
// through a circuit breaker so a dead provider fails fast instead of
// stalling every redemption request.
type Client struct {
	http   *http.Client
	cb     *gobreaker.CircuitBreaker
	config ClientConfig
	logger *logging.Logger
}

// NewClient creates a redemption client with the given configuration.
func NewClient(config ClientConfig) *Client {
	logger := logging.Global().Named("truemoney")

	settings := gobreaker.Settings{
		Name:        "truemoney",
		MaxRequests: config.BreakerMaxRequests,
		Interval:    config.BreakerInterval,
		Timeout:     config.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			// A declined voucher is a healthy provider answer; only
			// transport-level failures should trip the breaker.
			var declined *DeclinedError
			return err == nil || errors.As(err, &declined)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}

	return &Client{
		http:   &http.Client{Timeout: config.Timeout},
		cb:     gobreaker.NewCircuitBreaker(settings),
		config: config,
		logger: logger,
	}
}

type redeemRequest struct {
	Mobile      string `json:"mobile"`
	VoucherHash string `json:"voucher_hash"`
}

type redeemResponse struct {
	Status struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"status"`
	Data struct {
		MyTicket struct {
			AmountBaht float64 `json:"amount_baht"`
		} `json:"my_ticket"`
		OwnerProfile struct {
			FullName string `json:"full_name"`
		} `json:"owner_profile"`
	} `json:"data"`
}

// Redeem claims the voucher for the given mobile wallet. A reachable
// provider that declines the voucher yields *DeclinedError; transport and
// breaker failures yield ErrUnavailable-wrapped errors.
func (c *Client) Redeem(ctx context.Context, voucherCode, mobile string) (*Redemption, error) {
	start := time.Now()

	result, err := c.cb.Execute(func() (interface{}, error) {
		return c.redeemOnce(ctx, voucherCode, mobile)
	})

	duration := time.Since(start)

	if err != nil {
		var declined *DeclinedError
		if errors.As(err, &declined) {
			// A decline is a valid provider answer, not an outage.
			c.logger.Info("voucher declined",
				zap.String("code", declined.Code),
				zap.String("message", declined.Message),
				zap.Duration("duration", duration),
			)
			return nil, err
		}
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			c.logger.Warn("circuit breaker open - redemption rejected")
			return nil, fmt.Errorf("%w: circuit open", ErrUnavailable)
		}
		c.logger.Error("redemption call failed",
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	redemption := result.(*Redemption)
	c.logger.Info("voucher redeemed",
		zap.Float64("amount_baht", redemption.AmountBaht),
		zap.Duration("duration", duration),
	)
	return redemption, nil
}

func (c *Client) redeemOnce(ctx context.Context, voucherCode, mobile string) (*Redemption, error) {
	body, err := json.Marshal(redeemRequest{Mobile: mobile, VoucherHash: voucherCode})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var parsed redeemResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode provider response: %w", err)
	}

	if parsed.Status.Code != "SUCCESS" {
		return nil, &DeclinedError{Code: parsed.Status.Code, Message: parsed.Status.Message}
	}

	return &Redemption{
		AmountBaht: parsed.Data.MyTicket.AmountBaht,
		SenderName: parsed.Data.OwnerProfile.FullName,
	}, nil
}
