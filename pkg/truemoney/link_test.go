package truemoney

import (
	"errors"
	"testing"
)

func TestParseGiftLink(t *testing.T) {
	code, err := ParseGiftLink("https://gift.truemoney.com/campaign/?v=ABC123&x=1")
	if err != nil {
		t.Fatalf("ParseGiftLink failed: %v", err)
	}
	if code != "ABC123" {
		t.Errorf("Expected ABC123, got %q", code)
	}
}

func TestParseGiftLink_InvalidDomain(t *testing.T) {
	_, err := ParseGiftLink("https://example.com/?v=ABC123")
	if !errors.Is(err, ErrInvalidLink) {
		t.Errorf("Expected ErrInvalidLink, got %v", err)
	}
}

func TestParseGiftLink_Empty(t *testing.T) {
	_, err := ParseGiftLink("")
	if !errors.Is(err, ErrInvalidLink) {
		t.Errorf("Expected ErrInvalidLink, got %v", err)
	}
}

func TestParseGiftLink_NoVoucherCode(t *testing.T) {
	_, err := ParseGiftLink("https://gift.truemoney.com/campaign/?x=1")
	if !errors.Is(err, ErrNoVoucherCode) {
		t.Errorf("Expected ErrNoVoucherCode, got %v", err)
	}

	_, err = ParseGiftLink("https://gift.truemoney.com/campaign/")
	if !errors.Is(err, ErrNoVoucherCode) {
		t.Errorf("Expected ErrNoVoucherCode, got %v", err)
	}
}
