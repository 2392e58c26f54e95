package truemoney

import (
	"errors"
	"net/url"
	"strings"
)

// GiftDomain is the substring every redeemable gift link must contain.
const GiftDomain = "gift.truemoney.com"

// Link validation errors.
var (
	// ErrInvalidLink is returned when the link is empty or not a gift link.
	ErrInvalidLink = errors.New("truemoney: invalid gift link")

	// ErrNoVoucherCode is returned when the link has no v= query parameter.
	ErrNoVoucherCode = errors.New("truemoney: link has no voucher code")
)

// ParseGiftLink extracts the voucher code from a TrueMoney gift link.
// The code travels in the v query parameter, e.g.
// https://gift.truemoney.com/campaign/?v=ABC123.
func ParseGiftLink(link string) (string, error) {
	if link == "" || !strings.Contains(link, GiftDomain) {
		return "", ErrInvalidLink
	}

	u, err := url.Parse(link)
	if err != nil {
		return "", ErrInvalidLink
	}

	code := u.Query().Get("v")
	if code == "" {
		return "", ErrNoVoucherCode
	}
	return code, nil
}
