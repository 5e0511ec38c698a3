package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/veltapay/checkout/internal/api"
	"github.com/veltapay/checkout/internal/availability"
	"github.com/veltapay/checkout/internal/backend"
	"github.com/veltapay/checkout/internal/config"
	"github.com/veltapay/checkout/internal/cse"
	"github.com/veltapay/checkout/internal/handler"
	"github.com/veltapay/checkout/internal/model"
)

// catalogFile is the yaml shape of a payment-method catalog file.
type catalogFile struct {
	Methods []model.PaymentMethod `yaml:"methods"`
}

func newServeCmd() *cobra.Command {
	var (
		addr        string
		methodsPath string
		backendName string
		paymentsURL string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the demo merchant server",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Optional .env for the public key and API key.
			_ = godotenv.Load()

			methods, err := loadCatalog(methodsPath)
			if err != nil {
				return err
			}

			gateway, err := buildGateway(backendName, paymentsURL)
			if err != nil {
				return err
			}

			var encrypter *cse.CardEncrypter
			if key := os.Getenv("VELTA_CSE_PUBLIC_KEY"); key != "" {
				encrypter, err = cse.NewCardEncrypter(key)
				if err != nil {
					return fmt.Errorf("invalid VELTA_CSE_PUBLIC_KEY: %w", err)
				}
			}

			checker := availability.NewChecker()
			h := handler.New(gateway, checker, methods, encrypter)

			mux := http.NewServeMux()
			h.RegisterRoutes(mux)

			slog.Info("server_starting",
				"addr", addr,
				"backend", backendName,
				"methods", len(methods),
				"cse_enabled", encrypter != nil,
			)
			return http.ListenAndServe(addr, mux)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", config.ServerAddr, "listen address")
	cmd.Flags().StringVar(&methodsPath, "methods", "", "payment-method catalog yaml file")
	cmd.Flags().StringVar(&backendName, "backend", "card", "payments backend: card, wallet, flaky, or http")
	cmd.Flags().StringVar(&paymentsURL, "payments-url", "", "payments endpoint base URL (backend=http)")
	return cmd
}

// loadCatalog reads the yaml catalog, falling back to the built-in default.
func loadCatalog(path string) ([]model.PaymentMethod, error) {
	if path == "" {
		return defaultCatalog(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var f catalogFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(f.Methods) == 0 {
		return nil, fmt.Errorf("catalog %s contains no methods", path)
	}
	return f.Methods, nil
}

func defaultCatalog() []model.PaymentMethod {
	return []model.PaymentMethod{
		{Type: "scheme", Name: "Credit Card", RequiresDetails: true, SupportedBrands: []string{"visa", "mc", "amex"}},
		{Type: "wallet", Name: "InstaWallet", RequiresDetails: false},
	}
}

func buildGateway(name, paymentsURL string) (api.Gateway, error) {
	switch name {
	case "card":
		return backend.NewCardBackend(), nil
	case "wallet":
		return backend.NewWalletBackend(), nil
	case "flaky":
		return backend.NewFlakyBackend(), nil
	case "http":
		if paymentsURL == "" {
			return nil, fmt.Errorf("--payments-url is required with backend=http")
		}
		return api.NewClient(paymentsURL, os.Getenv("VELTA_API_KEY")), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", name)
	}
}
