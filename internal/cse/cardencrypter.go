package cse

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/veltapay/checkout/internal/card"
)

// GenerationTimeFormat is ISO-8601 UTC with millisecond precision. The
// backend checks token freshness against this timestamp, so it is always
// rendered in UTC regardless of the local timezone.
const GenerationTimeFormat = "2006-01-02T15:04:05.000Z"

// ErrPartialExpiry is returned when only one of expiry month and year is
// set. The pair is all-or-nothing.
var ErrPartialExpiry = errors.New("cse: expiry month and year must both be set or both be empty")

// CardEncrypter routes validated card fields through the envelope encrypter,
// either as one token per field or as a single combined token.
type CardEncrypter struct {
	enc *Encrypter
}

// NewCardEncrypter builds a CardEncrypter for the given public key string.
func NewCardEncrypter(publicKey string) (*CardEncrypter, error) {
	enc, err := NewEncrypter(publicKey)
	if err != nil {
		return nil, err
	}
	return &CardEncrypter{enc: enc}, nil
}

// fieldPayload is the JSON body of a single encrypted field token.
type fieldPayload struct {
	Number         string `json:"number,omitempty"`
	ExpiryMonth    string `json:"expiryMonth,omitempty"`
	ExpiryYear     string `json:"expiryYear,omitempty"`
	CVC            string `json:"cvc,omitempty"`
	GenerationTime string `json:"generationtime"`
}

// blobPayload is the JSON body of a single-token card blob.
type blobPayload struct {
	Number         string `json:"number,omitempty"`
	ExpiryMonth    string `json:"expiryMonth,omitempty"`
	ExpiryYear     string `json:"expiryYear,omitempty"`
	CVC            string `json:"cvc,omitempty"`
	HolderName     string `json:"holderName,omitempty"`
	GenerationTime string `json:"generationtime"`
}

// EncryptFields encrypts each provided card field independently, producing
// the discrete tokens expected by backends that take encryptedCardNumber,
// encryptedExpiryMonth and friends.
func (c *CardEncrypter) EncryptFields(cd card.Card, generationTime time.Time) (card.EncryptedCard, error) {
	if (cd.ExpiryMonth == "") != (cd.ExpiryYear == "") {
		return card.EncryptedCard{}, ErrPartialExpiry
	}
	ts := generationTime.UTC().Format(GenerationTimeFormat)

	var out card.EncryptedCard
	var err error
	if cd.Number != "" {
		out.EncryptedNumber, err = c.encryptField(fieldPayload{Number: cd.Number, GenerationTime: ts})
		if err != nil {
			return card.EncryptedCard{}, err
		}
	}
	if cd.ExpiryMonth != "" {
		out.EncryptedExpiryMonth, err = c.encryptField(fieldPayload{ExpiryMonth: cd.ExpiryMonth, GenerationTime: ts})
		if err != nil {
			return card.EncryptedCard{}, err
		}
		out.EncryptedExpiryYear, err = c.encryptField(fieldPayload{ExpiryYear: cd.ExpiryYear, GenerationTime: ts})
		if err != nil {
			return card.EncryptedCard{}, err
		}
	}
	if cd.SecurityCode != "" {
		out.EncryptedSecurityCode, err = c.encryptField(fieldPayload{CVC: cd.SecurityCode, GenerationTime: ts})
		if err != nil {
			return card.EncryptedCard{}, err
		}
	}
	return out, nil
}

// Encrypt produces one token covering all provided fields plus the holder
// name, for integrations that take a single encrypted block.
func (c *CardEncrypter) Encrypt(cd card.Card, generationTime time.Time) (string, error) {
	if (cd.ExpiryMonth == "") != (cd.ExpiryYear == "") {
		return "", ErrPartialExpiry
	}
	payload := blobPayload{
		Number:         cd.Number,
		ExpiryMonth:    cd.ExpiryMonth,
		ExpiryYear:     cd.ExpiryYear,
		CVC:            cd.SecurityCode,
		HolderName:     cd.HolderName,
		GenerationTime: generationTime.UTC().Format(GenerationTimeFormat),
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", &EncryptionError{Op: "marshal card", Err: err}
	}
	return c.enc.Encrypt(raw)
}

func (c *CardEncrypter) encryptField(p fieldPayload) (string, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return "", &EncryptionError{Op: "marshal field", Err: err}
	}
	return c.enc.Encrypt(raw)
}
