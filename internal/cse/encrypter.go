// Package cse implements client-side encryption for payment data: a hybrid
// envelope scheme where a fresh AES key protects the payload under CCM and
// an RSA public key protects the AES key. The output is an opaque versioned
// token that is safe to transmit and log.
package cse

import (
	"crypto/aes"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"fmt"
	"math/big"
	"strings"
)

const (
	// tokenPrefix and tokenVersion identify the token format. A token looks
	// like "veltacse0_1_1$<b64 rsa(aesKey)>$<b64 nonce||ccm(payload)>".
	tokenPrefix  = "veltacse"
	tokenVersion = "0_1_1"

	aesKeySize = 32
	nonceSize  = 12
	tagSize    = 8
)

// EncryptionError is fatal to the payment attempt: a malformed public key or
// an unavailable crypto primitive cannot be retried into success.
type EncryptionError struct {
	Op  string
	Err error
}

func (e *EncryptionError) Error() string {
	return fmt.Sprintf("cse: %s: %v", e.Op, e.Err)
}

func (e *EncryptionError) Unwrap() error { return e.Err }

// ParsePublicKey parses the "<exponentHex>|<modulusHex>" key format.
func ParsePublicKey(key string) (*rsa.PublicKey, error) {
	expHex, modHex, ok := strings.Cut(key, "|")
	if !ok {
		return nil, &EncryptionError{Op: "parse public key", Err: fmt.Errorf("expected exponent|modulus")}
	}
	exponent, ok := new(big.Int).SetString(expHex, 16)
	if !ok {
		return nil, &EncryptionError{Op: "parse public key", Err: fmt.Errorf("invalid exponent")}
	}
	modulus, ok := new(big.Int).SetString(modHex, 16)
	if !ok {
		return nil, &EncryptionError{Op: "parse public key", Err: fmt.Errorf("invalid modulus")}
	}
	if !exponent.IsInt64() || exponent.Int64() <= 1 {
		return nil, &EncryptionError{Op: "parse public key", Err: fmt.Errorf("exponent out of range")}
	}
	return &rsa.PublicKey{N: modulus, E: int(exponent.Int64())}, nil
}

// Encrypter produces envelope-encrypted tokens under a fixed public key.
// Safe for concurrent use: every call draws a fresh AES key and nonce from
// crypto/rand.
type Encrypter struct {
	pub *rsa.PublicKey
}

// NewEncrypter builds an Encrypter from the "<exponentHex>|<modulusHex>"
// public key string.
func NewEncrypter(publicKey string) (*Encrypter, error) {
	pub, err := ParsePublicKey(publicKey)
	if err != nil {
		return nil, err
	}
	return &Encrypter{pub: pub}, nil
}

// Encrypt envelope-encrypts plaintext. Every call uses a fresh 256-bit AES
// key and a fresh 12-byte nonce; CCM forbids nonce reuse under one key.
func (e *Encrypter) Encrypt(plaintext []byte) (string, error) {
	key := make([]byte, aesKeySize)
	if _, err := rand.Read(key); err != nil {
		return "", &EncryptionError{Op: "generate aes key", Err: err}
	}
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", &EncryptionError{Op: "generate nonce", Err: err}
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", &EncryptionError{Op: "init aes", Err: err}
	}
	aead, err := NewCCM(block, nonceSize, tagSize)
	if err != nil {
		return "", &EncryptionError{Op: "init ccm", Err: err}
	}

	// nonce || ciphertext||tag, so the recipient can strip the nonce back off.
	sealed := aead.Seal(nonce, nonce, plaintext, nil)

	encryptedKey, err := rsa.EncryptPKCS1v15(rand.Reader, e.pub, key)
	if err != nil {
		return "", &EncryptionError{Op: "encrypt aes key", Err: err}
	}

	var b strings.Builder
	b.WriteString(tokenPrefix)
	b.WriteString(tokenVersion)
	b.WriteByte('$')
	b.WriteString(base64.StdEncoding.EncodeToString(encryptedKey))
	b.WriteByte('$')
	b.WriteString(base64.StdEncoding.EncodeToString(sealed))
	return b.String(), nil
}
