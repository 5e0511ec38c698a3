// Package backend simulates the payments endpoint in-process. It implements
// api.Gateway with configurable outcome distributions, so the orchestrator,
// the demo server and the tests can exercise complete, redirect and error
// flows without a network.
package backend

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/veltapay/checkout/internal/model"
)

// OutcomeDistribution defines the probability of each response type. The
// remainder after complete and redirect rates is an error response.
type OutcomeDistribution struct {
	CompleteRate float64
	RedirectRate float64
}

// MockConfig holds configuration for creating a mock backend.
type MockConfig struct {
	Name        string
	Outcomes    OutcomeDistribution
	RedirectURL string
	RefusalRate float64 // portion of complete responses that come back refused
	MinLatency  time.Duration
	MaxLatency  time.Duration
	Seed        int64 // 0 means time-seeded
}

// Mock simulates a payments backend with configurable behavior.
type Mock struct {
	config MockConfig
	mu     sync.Mutex
	rng    *rand.Rand
	calls  int
}

// NewMock creates a mock backend from the given config.
func NewMock(cfg MockConfig) *Mock {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Mock{
		config: cfg,
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// Payments simulates one payments-endpoint call.
func (m *Mock) Payments(ctx context.Context, req model.PaymentRequest) (model.PaymentResponse, error) {
	m.mu.Lock()
	m.calls++
	roll := m.rng.Float64()
	refusalRoll := m.rng.Float64()
	latency := m.latency()
	m.mu.Unlock()

	select {
	case <-time.After(latency):
	case <-ctx.Done():
		return model.PaymentResponse{}, ctx.Err()
	}

	dist := m.config.Outcomes
	switch {
	case roll < dist.CompleteRate:
		code := "authorised"
		if refusalRoll < m.config.RefusalRate {
			code = "refused"
		}
		return model.PaymentResponse{Type: model.ResponseComplete, ResultCode: code}, nil
	case roll < dist.CompleteRate+dist.RedirectRate:
		return model.PaymentResponse{Type: model.ResponseRedirect, URL: m.config.RedirectURL}, nil
	default:
		return model.PaymentResponse{Type: model.ResponseError, Reason: "simulated backend failure"}, nil
	}
}

// Calls returns how many payments calls the mock has served.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *Mock) latency() time.Duration {
	min := m.config.MinLatency
	max := m.config.MaxLatency
	if max <= min {
		return min
	}
	return min + time.Duration(m.rng.Int63n(int64(max-min)))
}
