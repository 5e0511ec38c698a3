package availability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veltapay/checkout/internal/model"
)

func methods(types ...string) []model.PaymentMethod {
	out := make([]model.PaymentMethod, 0, len(types))
	for _, t := range types {
		out = append(out, model.PaymentMethod{Type: t, Name: t})
	}
	return out
}

func TestChecker_NoProbesMeansAvailable(t *testing.T) {
	c := NewChecker()
	got := c.Check(context.Background(), methods("scheme", "wallet"))
	assert.Equal(t, methods("scheme", "wallet"), got)
}

func TestChecker_FailingProbeExcludesOnlyItsMethod(t *testing.T) {
	c := NewCheckerWithConfig(time.Second)
	c.Register("wallet", func(ctx context.Context, m model.PaymentMethod) error {
		return errors.New("wallet app missing")
	})

	got := c.Check(context.Background(), methods("scheme", "wallet", "bank"))
	assert.Equal(t, methods("scheme", "bank"), got)

	outcomes := c.Outcomes()
	require.Len(t, outcomes, 3)
	for _, o := range outcomes {
		if o.MethodType == "wallet" {
			assert.False(t, o.Available)
			assert.Equal(t, "wallet app missing", o.Reason)
		} else {
			assert.True(t, o.Available)
		}
	}
}

func TestChecker_SlowProbeTimesOut(t *testing.T) {
	c := NewCheckerWithConfig(30 * time.Millisecond)
	c.Register("slow", func(ctx context.Context, m model.PaymentMethod) error {
		select {
		case <-time.After(time.Second):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	start := time.Now()
	got := c.Check(context.Background(), methods("slow", "fast"))
	assert.Equal(t, methods("fast"), got)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestChecker_AllProbesJoinBeforeReturning(t *testing.T) {
	c := NewCheckerWithConfig(time.Second)
	for _, mt := range []string{"a", "b", "c"} {
		c.Register(mt, func(ctx context.Context, m model.PaymentMethod) error {
			time.Sleep(20 * time.Millisecond)
			return nil
		})
	}

	got := c.Check(context.Background(), methods("a", "b", "c"))
	// Catalog order survives the concurrent fan-out.
	assert.Equal(t, methods("a", "b", "c"), got)
	assert.Len(t, c.Outcomes(), 3)
}
