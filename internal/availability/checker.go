// Package availability filters the payment-method catalog down to the
// methods that can actually be offered on this device/session. Probes run
// concurrently and join before the aggregate result is reported; a failing
// probe marks its method unavailable, it never fails the whole fetch.
package availability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/veltapay/checkout/internal/config"
	"github.com/veltapay/checkout/internal/model"
)

// Probe checks whether a single payment method is usable. A nil error means
// available.
type Probe func(ctx context.Context, method model.PaymentMethod) error

// Outcome records the last probe result for a method.
type Outcome struct {
	MethodType string    `json:"method_type"`
	Available  bool      `json:"available"`
	Reason     string    `json:"reason,omitempty"`
	CheckedAt  time.Time `json:"checked_at"`
}

// Checker runs availability probes with a per-probe timeout and keeps the
// latest outcome per method for diagnostics.
type Checker struct {
	mu       sync.RWMutex
	probes   map[string]Probe
	outcomes map[string]Outcome
	timeout  time.Duration
}

// NewChecker creates a checker with the default probe timeout.
func NewChecker() *Checker {
	return NewCheckerWithConfig(config.AvailabilityTimeout)
}

// NewCheckerWithConfig creates a checker with a custom probe timeout for tests.
func NewCheckerWithConfig(timeout time.Duration) *Checker {
	return &Checker{
		probes:   make(map[string]Probe),
		outcomes: make(map[string]Outcome),
		timeout:  timeout,
	}
}

// Register installs a probe for a method type. Methods without a probe are
// considered available.
func (c *Checker) Register(methodType string, probe Probe) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.probes[methodType] = probe
}

// Check fans out one probe per method, waits for all of them, and returns
// the available subset in catalog order.
func (c *Checker) Check(ctx context.Context, methods []model.PaymentMethod) []model.PaymentMethod {
	results := make([]bool, len(methods))

	var wg sync.WaitGroup
	for i, m := range methods {
		c.mu.RLock()
		probe := c.probes[m.Type]
		c.mu.RUnlock()

		if probe == nil {
			results[i] = true
			c.record(m.Type, true, "")
			continue
		}

		wg.Add(1)
		go func(i int, m model.PaymentMethod, probe Probe) {
			defer wg.Done()
			probeCtx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()

			err := probe(probeCtx, m)
			if err != nil {
				slog.Info("method_unavailable",
					"method", m.Type,
					"reason", err.Error(),
				)
				c.record(m.Type, false, err.Error())
				return
			}
			results[i] = true
			c.record(m.Type, true, "")
		}(i, m, probe)
	}
	wg.Wait()

	available := make([]model.PaymentMethod, 0, len(methods))
	for i, ok := range results {
		if ok {
			available = append(available, methods[i])
		}
	}
	return available
}

// Outcomes returns the latest recorded probe outcomes.
func (c *Checker) Outcomes() []Outcome {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Outcome, 0, len(c.outcomes))
	for _, o := range c.outcomes {
		out = append(out, o)
	}
	return out
}

func (c *Checker) record(methodType string, available bool, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.outcomes[methodType] = Outcome{
		MethodType: methodType,
		Available:  available,
		Reason:     reason,
		CheckedAt:  time.Now(),
	}
}
