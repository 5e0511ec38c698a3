package session

import (
	"github.com/veltapay/checkout/internal/model"
	"github.com/veltapay/checkout/internal/state"
)

// Callbacks is the boundary between the orchestrator and the merchant/UI
// layer. Every field is optional; nil callbacks are skipped. The Result
// callback fires exactly once per session, after which no further callback
// is ever invoked.
type Callbacks struct {
	// PaymentDataRequired hands the freshly minted SDK token to the merchant,
	// who answers with Session.ProvidePaymentData.
	PaymentDataRequired func(sdkToken string)

	// SelectionRequired offers the available methods; answered with
	// Session.SelectMethod.
	SelectionRequired func(methods []model.PaymentMethod)

	// DetailsRequired asks for the selected method's details; answered with
	// Session.SubmitDetails (or Session.BackToSelection).
	DetailsRequired func(method model.PaymentMethod)

	// RedirectRequired hands off an external redirect URL; answered with
	// Session.Return.
	RedirectRequired func(redirectURL string)

	// Result delivers the single terminal notification.
	Result func(result model.PaymentResult)

	// StateChanged observes every applied transition.
	StateChanged func(from, to state.State, trigger state.Trigger)

	// StateNotChanged observes ignored triggers.
	StateNotChanged func(current state.State, trigger state.Trigger)
}

func (c Callbacks) paymentDataRequired(token string) {
	if c.PaymentDataRequired != nil {
		c.PaymentDataRequired(token)
	}
}

func (c Callbacks) selectionRequired(methods []model.PaymentMethod) {
	if c.SelectionRequired != nil {
		c.SelectionRequired(methods)
	}
}

func (c Callbacks) detailsRequired(method model.PaymentMethod) {
	if c.DetailsRequired != nil {
		c.DetailsRequired(method)
	}
}

func (c Callbacks) redirectRequired(url string) {
	if c.RedirectRequired != nil {
		c.RedirectRequired(url)
	}
}

func (c Callbacks) result(r model.PaymentResult) {
	if c.Result != nil {
		c.Result(r)
	}
}

func (c Callbacks) stateChanged(from, to state.State, t state.Trigger) {
	if c.StateChanged != nil {
		c.StateChanged(from, to, t)
	}
}

func (c Callbacks) stateNotChanged(s state.State, t state.Trigger) {
	if c.StateNotChanged != nil {
		c.StateNotChanged(s, t)
	}
}
