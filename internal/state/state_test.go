package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allStates = []State{
	Idle, WaitingForPaymentData, FetchingPaymentMethods, WaitingForSelection,
	WaitingForDetails, Processing, WaitingForRedirect, Processed, Aborted, Cancelled,
}

var allTriggers = []Trigger{
	PaymentRequested, PaymentDataProvided, MethodsAvailable, DetailsRequired,
	DetailsNotRequired, DetailsProvided, SelectionCancelled, ResultReceived,
	RedirectRequired, ReturnURIReceived, ErrorOccurred, PaymentCancelled,
}

func TestTransition_Table(t *testing.T) {
	tests := []struct {
		from    State
		trigger Trigger
		to      State
	}{
		{Idle, PaymentRequested, WaitingForPaymentData},
		{WaitingForPaymentData, PaymentDataProvided, FetchingPaymentMethods},
		{FetchingPaymentMethods, MethodsAvailable, WaitingForSelection},
		{WaitingForSelection, DetailsRequired, WaitingForDetails},
		{WaitingForSelection, DetailsNotRequired, Processing},
		{WaitingForDetails, DetailsProvided, Processing},
		{WaitingForDetails, DetailsNotRequired, Processing},
		{WaitingForDetails, SelectionCancelled, WaitingForSelection},
		{Processing, ResultReceived, Processed},
		{Processing, RedirectRequired, WaitingForRedirect},
		{WaitingForRedirect, ReturnURIReceived, Processed},
		{WaitingForRedirect, DetailsRequired, WaitingForDetails},
		{WaitingForRedirect, DetailsNotRequired, Processing},
		{WaitingForRedirect, DetailsProvided, Processing},
	}

	for _, tt := range tests {
		t.Run(tt.from.String()+"_"+tt.trigger.String(), func(t *testing.T) {
			next, changed := Transition(tt.from, tt.trigger)
			assert.True(t, changed)
			assert.Equal(t, tt.to, next)
		})
	}
}

func TestTransition_ErrorAbortsFromAnyNonTerminal(t *testing.T) {
	for _, s := range allStates {
		if s.Terminal() {
			continue
		}
		next, changed := Transition(s, ErrorOccurred)
		assert.True(t, changed, "from %s", s)
		assert.Equal(t, Aborted, next, "from %s", s)
	}
}

func TestTransition_CancelFromAnyNonTerminal(t *testing.T) {
	for _, s := range allStates {
		if s.Terminal() {
			continue
		}
		next, changed := Transition(s, PaymentCancelled)
		assert.True(t, changed, "from %s", s)
		assert.Equal(t, Cancelled, next, "from %s", s)
	}
}

func TestTransition_TerminalStatesAbsorbEverything(t *testing.T) {
	for _, s := range []State{Processed, Aborted, Cancelled} {
		for _, tr := range allTriggers {
			next, changed := Transition(s, tr)
			assert.False(t, changed, "%s + %s", s, tr)
			assert.Equal(t, s, next, "%s + %s", s, tr)
		}
	}
}

func TestTransition_UndefinedTriggersAreNoOps(t *testing.T) {
	tests := []struct {
		from    State
		trigger Trigger
	}{
		{Idle, MethodsAvailable},
		{Idle, DetailsProvided},
		{WaitingForPaymentData, PaymentRequested},
		{FetchingPaymentMethods, DetailsRequired},
		{WaitingForSelection, ResultReceived},
		{WaitingForDetails, ReturnURIReceived},
		{Processing, PaymentRequested},
		{WaitingForRedirect, MethodsAvailable},
	}

	for _, tt := range tests {
		t.Run(tt.from.String()+"_"+tt.trigger.String(), func(t *testing.T) {
			next, changed := Transition(tt.from, tt.trigger)
			assert.False(t, changed)
			assert.Equal(t, tt.from, next)
		})
	}
}

func TestTransition_HappyPathScenario(t *testing.T) {
	s := Idle
	steps := []struct {
		trigger Trigger
		want    State
	}{
		{PaymentRequested, WaitingForPaymentData},
		{PaymentDataProvided, FetchingPaymentMethods},
		{MethodsAvailable, WaitingForSelection},
		{DetailsNotRequired, Processing},
		{ResultReceived, Processed},
	}

	for _, step := range steps {
		var changed bool
		s, changed = Transition(s, step.trigger)
		require.True(t, changed)
		require.Equal(t, step.want, s)
	}
	assert.True(t, s.Terminal())
}

func TestTransition_OnceLeftIdleNeverReturns(t *testing.T) {
	for _, s := range allStates {
		if s == Idle {
			continue
		}
		for _, tr := range allTriggers {
			next, _ := Transition(s, tr)
			assert.NotEqual(t, Idle, next, "%s + %s must not re-enter idle", s, tr)
		}
	}
}

func TestStateAndTriggerStrings(t *testing.T) {
	assert.Equal(t, "processing_payment", Processing.String())
	assert.Equal(t, "payment_cancelled", PaymentCancelled.String())
	assert.Equal(t, "unknown", State(99).String())
	assert.Equal(t, "unknown", Trigger(99).String())
}
