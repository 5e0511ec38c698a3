// Package state defines the payment request state machine: an enumerated
// state, an enumerated trigger, and a pure transition function. Side effects
// live entirely in the session orchestrator that observes transitions.
package state

// State is one step of the payment request lifecycle.
type State int

const (
	Idle State = iota
	WaitingForPaymentData
	FetchingPaymentMethods
	WaitingForSelection
	WaitingForDetails
	Processing
	WaitingForRedirect
	Processed
	Aborted
	Cancelled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case WaitingForPaymentData:
		return "waiting_for_payment_data"
	case FetchingPaymentMethods:
		return "fetching_payment_methods"
	case WaitingForSelection:
		return "waiting_for_method_selection"
	case WaitingForDetails:
		return "waiting_for_method_details"
	case Processing:
		return "processing_payment"
	case WaitingForRedirect:
		return "waiting_for_redirection"
	case Processed:
		return "processed"
	case Aborted:
		return "aborted"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is possible from s.
func (s State) Terminal() bool {
	return s == Processed || s == Aborted || s == Cancelled
}

// Trigger is an external event fed into the state machine.
type Trigger int

const (
	PaymentRequested Trigger = iota
	PaymentDataProvided
	MethodsAvailable
	DetailsRequired
	DetailsNotRequired
	DetailsProvided
	SelectionCancelled
	ResultReceived
	RedirectRequired
	ReturnURIReceived
	ErrorOccurred
	PaymentCancelled
)

func (t Trigger) String() string {
	switch t {
	case PaymentRequested:
		return "payment_requested"
	case PaymentDataProvided:
		return "payment_data_provided"
	case MethodsAvailable:
		return "payment_methods_available"
	case DetailsRequired:
		return "payment_details_required"
	case DetailsNotRequired:
		return "payment_details_not_required"
	case DetailsProvided:
		return "payment_details_provided"
	case SelectionCancelled:
		return "payment_selection_cancelled"
	case ResultReceived:
		return "payment_result_received"
	case RedirectRequired:
		return "redirection_required"
	case ReturnURIReceived:
		return "return_uri_received"
	case ErrorOccurred:
		return "error_occurred"
	case PaymentCancelled:
		return "payment_cancelled"
	default:
		return "unknown"
	}
}

// Transition applies a trigger to a state and returns the next state plus
// whether anything changed. Triggers not defined for a state are no-ops;
// terminal states absorb everything. Errors abort and an explicit
// cancellation cancels from any non-terminal state.
func Transition(s State, t Trigger) (State, bool) {
	if s.Terminal() {
		return s, false
	}

	switch t {
	case ErrorOccurred:
		return Aborted, true
	case PaymentCancelled:
		return Cancelled, true
	}

	switch s {
	case Idle:
		if t == PaymentRequested {
			return WaitingForPaymentData, true
		}
	case WaitingForPaymentData:
		if t == PaymentDataProvided {
			return FetchingPaymentMethods, true
		}
	case FetchingPaymentMethods:
		if t == MethodsAvailable {
			return WaitingForSelection, true
		}
	case WaitingForSelection:
		switch t {
		case DetailsRequired:
			return WaitingForDetails, true
		case DetailsNotRequired:
			return Processing, true
		}
	case WaitingForDetails:
		switch t {
		case DetailsProvided, DetailsNotRequired:
			return Processing, true
		case SelectionCancelled:
			return WaitingForSelection, true
		}
	case Processing:
		switch t {
		case ResultReceived:
			return Processed, true
		case RedirectRequired:
			return WaitingForRedirect, true
		}
	case WaitingForRedirect:
		// A shopper can abandon an external redirect, go back and pick a
		// different method, so the detail-collection triggers re-enter the
		// earlier states.
		switch t {
		case ReturnURIReceived:
			return Processed, true
		case DetailsRequired:
			return WaitingForDetails, true
		case DetailsNotRequired, DetailsProvided:
			return Processing, true
		}
	}
	return s, false
}
