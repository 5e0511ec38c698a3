package backend

import "time"

// NewCardBackend completes almost every payment directly: 92% complete
// (with occasional refusals), 5% redirect for 3DS, 3% errors.
func NewCardBackend() *Mock {
	return NewMock(MockConfig{
		Name: "card",
		Outcomes: OutcomeDistribution{
			CompleteRate: 0.92,
			RedirectRate: 0.05,
		},
		RefusalRate: 0.08,
		RedirectURL: "https://checkout.example.test/3ds",
		MinLatency:  40 * time.Millisecond,
		MaxLatency:  180 * time.Millisecond,
	})
}

// NewWalletBackend always redirects to an external wallet page.
func NewWalletBackend() *Mock {
	return NewMock(MockConfig{
		Name: "wallet",
		Outcomes: OutcomeDistribution{
			CompleteRate: 0.0,
			RedirectRate: 1.0,
		},
		RedirectURL: "https://wallet.example.test/authorize",
		MinLatency:  30 * time.Millisecond,
		MaxLatency:  120 * time.Millisecond,
	})
}

// NewFlakyBackend errors often enough to exercise the abort path.
func NewFlakyBackend() *Mock {
	return NewMock(MockConfig{
		Name: "flaky",
		Outcomes: OutcomeDistribution{
			CompleteRate: 0.40,
			RedirectRate: 0.10,
		},
		RedirectURL: "https://checkout.example.test/3ds",
		MinLatency:  60 * time.Millisecond,
		MaxLatency:  400 * time.Millisecond,
	})
}
