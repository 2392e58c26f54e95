package truemoney

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testClient(endpoint string) *Client {
	config := DefaultClientConfig()
	config.Endpoint = endpoint
	config.Timeout = 2 * time.Second
	return NewClient(config)
}

func TestClient_Redeem_Success(t *testing.T) {
	var gotBody map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"status": {"code": "SUCCESS", "message": ""},
			"data": {
				"my_ticket": {"amount_baht": 50.25},
				"owner_profile": {"full_name": "Somchai J."}
			}
		}`))
	}))
	defer server.Close()

	client := testClient(server.URL)

	redemption, err := client.Redeem(context.Background(), "ABC123", "0900000000")
	if err != nil {
		t.Fatalf("Redeem failed: %v", err)
	}

	if redemption.AmountBaht != 50.25 {
		t.Errorf("Expected 50.25, got %v", redemption.AmountBaht)
	}
	if redemption.SenderName != "Somchai J." {
		t.Errorf("Expected Somchai J., got %q", redemption.SenderName)
	}
	if gotBody["voucher_hash"] != "ABC123" {
		t.Errorf("Expected voucher_hash ABC123, got %q", gotBody["voucher_hash"])
	}
	if gotBody["mobile"] != "0900000000" {
		t.Errorf("Expected mobile 0900000000, got %q", gotBody["mobile"])
	}
}

func TestClient_Redeem_Declined(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status": {"code": "VOUCHER_OUT_OF_STOCK", "message": "voucher already redeemed"}}`))
	}))
	defer server.Close()

	client := testClient(server.URL)

	_, err := client.Redeem(context.Background(), "ABC123", "0900000000")
	var declined *DeclinedError
	if !errors.As(err, &declined) {
		t.Fatalf("Expected DeclinedError, got %v", err)
	}
	if declined.Message != "voucher already redeemed" {
		t.Errorf("Expected provider message, got %q", declined.Message)
	}
}

func TestClient_Redeem_ProviderDown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // Connection refused from here on

	client := testClient(server.URL)

	_, err := client.Redeem(context.Background(), "ABC123", "0900000000")
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("Expected ErrUnavailable, got %v", err)
	}
}

func TestClient_Redeem_BreakerOpensAfterFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := testClient(server.URL)
	ctx := context.Background()

	// Trip the breaker with consecutive transport failures.
	for i := 0; i < 6; i++ {
		client.Redeem(ctx, "ABC123", "0900000000")
	}

	_, err := client.Redeem(ctx, "ABC123", "0900000000")
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("Expected ErrUnavailable with open breaker, got %v", err)
	}
}

func TestClient_Redeem_DeclineDoesNotTripBreaker(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": {"code": "EXPIRED", "message": "expired"}}`))
	}))
	defer server.Close()

	client := testClient(server.URL)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, err := client.Redeem(ctx, "ABC123", "0900000000")
		var declined *DeclinedError
		if !errors.As(err, &declined) {
			t.Fatalf("Call %d: expected DeclinedError, got %v", i, err)
		}
	}
}
