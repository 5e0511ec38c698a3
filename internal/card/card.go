package card

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Card holds raw card input for the short window between validation and
// encryption. It is never persisted and never logged in clear form: the
// slog representation carries only the masked number.
type Card struct {
	Number         string
	ExpiryMonth    string
	ExpiryYear     string
	SecurityCode   string
	HolderName     string
	GenerationTime time.Time
}

// NewCard validates the raw fields and returns an immutable Card value.
// The security code and holder name are optional; number and expiry are not.
func NewCard(number, expiryMonth, expiryYear, securityCode, holderName string, now time.Time) (Card, error) {
	validity, normalized := ValidateNumber(number)
	if validity != Valid {
		return Card{}, fmt.Errorf("card number is %s", validity)
	}

	expiry := fmt.Sprintf("%s/%s", expiryMonth, expiryYear)
	validity, parsed := ValidateExpiry(expiry, now)
	if validity != Valid {
		return Card{}, fmt.Errorf("expiry date is %s", validity)
	}

	brands := Estimate(normalized)
	brand := Brand("")
	if len(brands) == 1 {
		brand = brands[0]
	}
	validity, code := ValidateSecurityCode(securityCode, brand, false)
	if validity != Valid {
		return Card{}, fmt.Errorf("security code is %s", validity)
	}

	validity, holder := ValidateHolderName(holderName, false)
	if validity != Valid {
		return Card{}, errors.New("holder name is invalid")
	}

	return Card{
		Number:         normalized,
		ExpiryMonth:    fmt.Sprintf("%d", parsed.Month),
		ExpiryYear:     fmt.Sprintf("%d", parsed.Year),
		SecurityCode:   code,
		HolderName:     holder,
		GenerationTime: now,
	}, nil
}

// LogValue keeps raw card data out of logs.
func (c Card) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("number", MaskNumber(c.Number)),
		slog.String("expiry", c.ExpiryMonth+"/"+c.ExpiryYear),
	)
}

// MaskNumber returns the PCI display form of a PAN: first six and last four
// digits visible, everything in between replaced with asterisks. Short
// inputs are fully masked.
func MaskNumber(number string) string {
	if len(number) <= 10 {
		return strings.Repeat("*", len(number))
	}
	var b strings.Builder
	b.Grow(len(number))
	b.WriteString(number[:6])
	b.WriteString(strings.Repeat("*", len(number)-10))
	b.WriteString(number[len(number)-4:])
	return b.String()
}

// EncryptedCard is the transmissible counterpart of Card: opaque tokens per
// field, or a single combined token. Safe to log and to send.
type EncryptedCard struct {
	EncryptedNumber       string `json:"encryptedCardNumber,omitempty"`
	EncryptedExpiryMonth  string `json:"encryptedExpiryMonth,omitempty"`
	EncryptedExpiryYear   string `json:"encryptedExpiryYear,omitempty"`
	EncryptedSecurityCode string `json:"encryptedSecurityCode,omitempty"`
}
