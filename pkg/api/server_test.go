package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"payment-gateway/pkg/ledger/memory"
	"payment-gateway/pkg/payments"
	"payment-gateway/pkg/truemoney"
)

type stubRedeemer struct {
	redemption *truemoney.Redemption
	err        error
}

func (s *stubRedeemer) Redeem(ctx context.Context, voucherCode, mobile string) (*truemoney.Redemption, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.redemption, nil
}

func setupTestServer(t *testing.T) (*Server, *payments.Service) {
	t.Helper()

	redeemer := &stubRedeemer{
		redemption: &truemoney.Redemption{AmountBaht: 25, SenderName: "Somchai J."},
	}
	service, err := payments.NewService(memory.NewMemoryStore(), redeemer, nil, payments.DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("Failed to create service: %v", err)
	}

	server := NewServer(service, nil, nil, DefaultServerConfig())
	return server, service
}

func postJSON(path, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestServer_CreatePayment(t *testing.T) {
	server, _ := setupTestServer(t)

	req := postJSON("/api/create-payment", `{"amount":"250.5","merchantName":"Test Shop","email":"a@b.com"}`)
	w := httptest.NewRecorder()

	server.handleCreatePayment(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var response map[string]interface{}
	json.NewDecoder(w.Body).Decode(&response)

	if response["success"] != true {
		t.Errorf("Expected success true, got %v", response["success"])
	}
	if id, _ := response["transactionId"].(string); !strings.HasPrefix(id, "TXN-") {
		t.Errorf("Expected TXN- transaction id, got %v", response["transactionId"])
	}
	if response["walletPayoutId"] != payments.DefaultConfig().PayoutID {
		t.Errorf("Expected fallback payout id, got %v", response["walletPayoutId"])
	}
}

func TestServer_CreatePayment_BadBody(t *testing.T) {
	server, _ := setupTestServer(t)

	req := postJSON("/api/create-payment", `{not json`)
	w := httptest.NewRecorder()

	server.handleCreatePayment(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestServer_CheckStatus_UnknownID(t *testing.T) {
	server, _ := setupTestServer(t)

	req := postJSON("/api/check-status", `{"transactionId":"TXN-0000000"}`)
	w := httptest.NewRecorder()

	server.handleCheckStatus(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}

	var response map[string]interface{}
	json.NewDecoder(w.Body).Decode(&response)
	if response["success"] != false {
		t.Errorf("Expected success false, got %v", response["success"])
	}
}

func TestServer_CheckStatus_Completed(t *testing.T) {
	server, service := setupTestServer(t)
	service.SetFlipper(func() bool { return true })

	result, err := service.CreatePayment(context.Background(), "100", "Shop", "")
	if err != nil {
		t.Fatalf("CreatePayment failed: %v", err)
	}

	req := postJSON("/api/check-status", `{"transactionId":"`+result.TransactionID+`"}`)
	w := httptest.NewRecorder()

	server.handleCheckStatus(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var response map[string]interface{}
	json.NewDecoder(w.Body).Decode(&response)
	if response["status"] != "completed" {
		t.Errorf("Expected completed, got %v", response["status"])
	}
}

func TestServer_RedeemAngpao_InvalidLink(t *testing.T) {
	server, _ := setupTestServer(t)

	req := postJSON("/api/redeem-angpao", `{"link":"https://example.com/?v=A","mobile":"0900000000","email":"a@b.com"}`)
	w := httptest.NewRecorder()

	server.handleRedeemAngpao(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}

	var response map[string]interface{}
	json.NewDecoder(w.Body).Decode(&response)
	if response["message"] != "Invalid Link" {
		t.Errorf("Expected Invalid Link message, got %v", response["message"])
	}
}

func TestServer_RedeemAngpao_Success(t *testing.T) {
	server, _ := setupTestServer(t)

	req := postJSON("/api/redeem-angpao",
		`{"link":"https://gift.truemoney.com/campaign/?v=ABC123","mobile":"0900000000","email":"a@b.com"}`)
	w := httptest.NewRecorder()

	server.handleRedeemAngpao(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var response map[string]interface{}
	json.NewDecoder(w.Body).Decode(&response)
	if response["success"] != true {
		t.Errorf("Expected success true, got %v", response["success"])
	}
	if response["amount"] != "25.00" {
		t.Errorf("Expected amount 25.00, got %v", response["amount"])
	}
	if id, _ := response["transactionId"].(string); !strings.HasPrefix(id, "TMN-") {
		t.Errorf("Expected TMN- transaction id, got %v", response["transactionId"])
	}
}

func TestServer_RedeemAngpao_ProviderUnavailable(t *testing.T) {
	server, _ := setupTestServer(t)

	// Swap in a redeemer that fails at transport level.
	service, err := payments.NewService(memory.NewMemoryStore(),
		&stubRedeemer{err: truemoney.ErrUnavailable}, nil, payments.DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("Failed to create service: %v", err)
	}
	server.service = service

	req := postJSON("/api/redeem-angpao",
		`{"link":"https://gift.truemoney.com/campaign/?v=ABC123","mobile":"0900000000","email":"a@b.com"}`)
	w := httptest.NewRecorder()

	server.handleRedeemAngpao(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var response map[string]interface{}
	json.NewDecoder(w.Body).Decode(&response)
	if response["success"] != false {
		t.Errorf("Expected success false, got %v", response["success"])
	}
	if response["message"] != "Link Invalid or Expired" {
		t.Errorf("Expected generic failure message, got %v", response["message"])
	}
}

func TestServer_RedeemAngpao_Declined(t *testing.T) {
	server, _ := setupTestServer(t)

	service, err := payments.NewService(memory.NewMemoryStore(),
		&stubRedeemer{err: &truemoney.DeclinedError{Code: "EXPIRED", Message: "voucher expired"}},
		nil, payments.DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("Failed to create service: %v", err)
	}
	server.service = service

	req := postJSON("/api/redeem-angpao",
		`{"link":"https://gift.truemoney.com/campaign/?v=ABC123","mobile":"0900000000","email":"a@b.com"}`)
	w := httptest.NewRecorder()

	server.handleRedeemAngpao(w, req)

	var response map[string]interface{}
	json.NewDecoder(w.Body).Decode(&response)
	if response["message"] != "voucher expired" {
		t.Errorf("Expected provider message, got %v", response["message"])
	}
}

func TestServer_History(t *testing.T) {
	server, service := setupTestServer(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := service.CreatePayment(ctx, "10", "Shop", ""); err != nil {
			t.Fatalf("CreatePayment failed: %v", err)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/history", nil)
	w := httptest.NewRecorder()

	server.handleHistory(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var history []map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&history); err != nil {
		t.Fatalf("Failed to decode history: %v", err)
	}
	if len(history) != 3 {
		t.Errorf("Expected 3 records, got %d", len(history))
	}
}

func TestServer_Health(t *testing.T) {
	server, _ := setupTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	server.handleHealth(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var response map[string]interface{}
	json.NewDecoder(w.Body).Decode(&response)
	if response["status"] != "healthy" {
		t.Errorf("Expected healthy, got %v", response["status"])
	}
}
