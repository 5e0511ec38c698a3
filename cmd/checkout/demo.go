package main

import (
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/veltapay/checkout/internal/availability"
	"github.com/veltapay/checkout/internal/backend"
	"github.com/veltapay/checkout/internal/card"
	"github.com/veltapay/checkout/internal/cse"
	"github.com/veltapay/checkout/internal/model"
	"github.com/veltapay/checkout/internal/session"
)

func newDemoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Run a scripted card checkout against the mock backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo()
		},
	}
}

// runDemo drives one full happy-path checkout: session start, method
// selection, card encryption, payment, result. The RSA key pair is
// generated in-process since there is no backend to hold the private half.
func runDemo() error {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return fmt.Errorf("generate demo key: %w", err)
	}
	publicKey := fmt.Sprintf("%x|%x", key.PublicKey.E, key.PublicKey.N)
	encrypter, err := cse.NewCardEncrypter(publicKey)
	if err != nil {
		return err
	}

	gateway := backend.NewMock(backend.MockConfig{
		Name:     "demo",
		Outcomes: backend.OutcomeDistribution{CompleteRate: 1.0},
		Seed:     1,
	})

	var sess *session.Session
	sess, err = session.New(session.Config{
		Setup: model.PaymentSetup{
			MerchantReference: "demo-order-001",
			Amount:            decimal.NewFromFloat(17.95),
			Currency:          "EUR",
			CountryCode:       "NL",
			ReturnURL:         "https://merchant.example.test/return",
		},
		Methods: defaultCatalog(),
		Gateway: gateway,
		Checker: availability.NewChecker(),
		Callbacks: session.Callbacks{
			PaymentDataRequired: func(token string) {
				slog.Info("demo_payment_data_minted", "token_bytes", len(token))
				sess.ProvidePaymentData(token)
			},
			SelectionRequired: func(methods []model.PaymentMethod) {
				slog.Info("demo_selecting_method", "offered", len(methods))
				if err := sess.SelectMethod("scheme"); err != nil {
					sess.Fail(err)
				}
			},
			DetailsRequired: func(method model.PaymentMethod) {
				now := time.Now()
				c, err := card.NewCard("4111 1111 1111 1111", "03", "2030", "737", "S. Hopper", now)
				if err != nil {
					sess.Fail(err)
					return
				}
				encrypted, err := encrypter.EncryptFields(c, now)
				if err != nil {
					sess.Fail(err)
					return
				}
				slog.Info("demo_card_encrypted",
					"card", card.MaskNumber(c.Number),
					"brands", fmt.Sprint(card.Estimate(c.Number)),
				)
				sess.SubmitDetails(model.PaymentDetails{Values: map[string]string{
					"encryptedCardNumber":   encrypted.EncryptedNumber,
					"encryptedExpiryMonth":  encrypted.EncryptedExpiryMonth,
					"encryptedExpiryYear":   encrypted.EncryptedExpiryYear,
					"encryptedSecurityCode": encrypted.EncryptedSecurityCode,
				}})
			},
		},
	})
	if err != nil {
		return err
	}

	sess.Start()
	select {
	case <-sess.Done():
	case <-time.After(10 * time.Second):
		sess.Close()
		return fmt.Errorf("demo timed out")
	}

	result := sess.Result()
	slog.Info("demo_finished", "code", string(result.Code), "reference", result.Reference)
	return nil
}
