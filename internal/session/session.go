// Package session orchestrates one checkout attempt. It owns the state
// machine instance, serializes triggers through a single event loop, and
// performs exactly one side effect per entered state. All blocking work
// (availability checks, the payments call) runs on worker goroutines that
// feed results back as triggers; the loop itself never blocks on I/O.
package session

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/veltapay/checkout/internal/api"
	"github.com/veltapay/checkout/internal/availability"
	"github.com/veltapay/checkout/internal/config"
	"github.com/veltapay/checkout/internal/model"
	"github.com/veltapay/checkout/internal/state"
)

// Config wires a session's collaborators.
type Config struct {
	Setup     model.PaymentSetup
	Methods   []model.PaymentMethod
	Gateway   api.Gateway
	Checker   *availability.Checker
	Callbacks Callbacks
}

// event pairs a trigger with its payload on the serialized queue.
type event struct {
	trigger state.Trigger
	payload any
}

// Session drives a single payment attempt from Idle to a terminal state.
// One session, one payment reference, one terminal notification.
type Session struct {
	ref string
	cfg Config

	events chan event
	done   chan struct{}

	ctx    context.Context
	cancel context.CancelFunc

	finishOnce sync.Once
	closeOnce  sync.Once

	mu          sync.RWMutex
	current     state.State
	paymentData string
	available   []model.PaymentMethod
	selected    *model.PaymentMethod
	details     *model.PaymentDetails
	redirectURL string
	lastErr     error
	response    model.PaymentResponse
	result      *model.PaymentResult
}

// New creates a session in the Idle state. Start begins the flow.
func New(cfg Config) (*Session, error) {
	if cfg.Gateway == nil {
		return nil, errors.New("session: gateway is required")
	}
	if cfg.Setup.Currency == "" {
		return nil, errors.New("session: currency is required")
	}
	if cfg.Setup.Amount.Sign() <= 0 {
		return nil, errors.New("session: amount must be positive")
	}
	if len(cfg.Methods) == 0 {
		return nil, errors.New("session: at least one payment method is required")
	}
	if cfg.Checker == nil {
		cfg.Checker = availability.NewChecker()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		ref:     uuid.NewString(),
		cfg:     cfg,
		events:  make(chan event, config.TriggerQueueSize),
		done:    make(chan struct{}),
		ctx:     ctx,
		cancel:  cancel,
		current: state.Idle,
	}
	go s.loop()
	return s, nil
}

// Reference returns the unique payment reference for this attempt.
func (s *Session) Reference() string { return s.ref }

// State returns the current state.
func (s *Session) State() state.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// AvailableMethods returns the filtered method list, once fetched.
func (s *Session) AvailableMethods() []model.PaymentMethod {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.available
}

// SelectedMethod returns the chosen method, if any.
func (s *Session) SelectedMethod() *model.PaymentMethod {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected
}

// RedirectURL returns the pending redirect URL, if any.
func (s *Session) RedirectURL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.redirectURL
}

// Result returns the terminal result, or nil while the session is live.
func (s *Session) Result() *model.PaymentResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.result
}

// Done is closed once the session reaches a terminal state.
func (s *Session) Done() <-chan struct{} { return s.done }

// Start kicks off the flow.
func (s *Session) Start() {
	s.Dispatch(state.PaymentRequested, nil)
}

// ProvidePaymentData supplies the merchant's server-side payment data blob.
func (s *Session) ProvidePaymentData(paymentData string) {
	s.Dispatch(state.PaymentDataProvided, paymentData)
}

// SelectMethod chooses one of the available payment methods.
func (s *Session) SelectMethod(methodType string) error {
	s.mu.Lock()
	var selected *model.PaymentMethod
	for i := range s.available {
		if s.available[i].Type == methodType {
			selected = &s.available[i]
			break
		}
	}
	if selected == nil {
		s.mu.Unlock()
		return fmt.Errorf("session: method %q is not available", methodType)
	}
	s.selected = selected
	requiresDetails := selected.RequiresDetails
	s.mu.Unlock()

	if requiresDetails {
		s.Dispatch(state.DetailsRequired, *selected)
	} else {
		s.Dispatch(state.DetailsNotRequired, *selected)
	}
	return nil
}

// SubmitDetails supplies the shopper-filled details for the selected method.
func (s *Session) SubmitDetails(details model.PaymentDetails) {
	s.Dispatch(state.DetailsProvided, details)
}

// BackToSelection returns from detail collection to method selection.
func (s *Session) BackToSelection() {
	s.Dispatch(state.SelectionCancelled, nil)
}

// Return resumes the flow with the URI the shopper was redirected back with.
func (s *Session) Return(returnURI string) {
	s.Dispatch(state.ReturnURIReceived, returnURI)
}

// Cancel aborts the attempt with a cancellation result.
func (s *Session) Cancel() {
	s.Dispatch(state.PaymentCancelled, nil)
}

// Fail aborts the attempt with an error result.
func (s *Session) Fail(err error) {
	s.Dispatch(state.ErrorOccurred, err)
}

// Dispatch enqueues a trigger. Triggers arriving after the terminal state
// are logged no-ops, which is what makes stale in-flight completions safe.
func (s *Session) Dispatch(trigger state.Trigger, payload any) {
	select {
	case <-s.done:
		slog.Debug("trigger_after_terminal",
			"reference", s.ref,
			"trigger", trigger.String(),
			"state", s.State().String(),
		)
		s.cfg.Callbacks.stateNotChanged(s.State(), trigger)
		return
	default:
	}

	select {
	case s.events <- event{trigger: trigger, payload: payload}:
	case <-s.done:
		s.cfg.Callbacks.stateNotChanged(s.State(), trigger)
	}
}

// Close tears the session down. Idempotent; safe to call on a session that
// already finished or never started.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		select {
		case <-s.done:
			// loop already exited at a terminal state
		default:
			s.Dispatch(state.PaymentCancelled, nil)
		}
	})
}

// loop is the single orchestration goroutine. Transitions are applied one
// at a time; concurrent triggers queue up rather than interleave.
func (s *Session) loop() {
	for ev := range s.events {
		if s.apply(ev) {
			return
		}
	}
}

// apply runs one transition and its side effect. Returns true once the
// session is terminal and the loop should exit.
func (s *Session) apply(ev event) bool {
	from := s.State()
	next, changed := state.Transition(from, ev.trigger)
	if !changed {
		slog.Info("state_not_changed",
			"reference", s.ref,
			"state", from.String(),
			"trigger", ev.trigger.String(),
		)
		s.cfg.Callbacks.stateNotChanged(from, ev.trigger)
		return false
	}

	s.mu.Lock()
	s.current = next
	s.absorb(ev)
	s.mu.Unlock()

	slog.Info("state_changed",
		"reference", s.ref,
		"from", from.String(),
		"to", next.String(),
		"trigger", ev.trigger.String(),
	)
	s.cfg.Callbacks.stateChanged(from, next, ev.trigger)

	s.enter(next)
	return next.Terminal()
}

// absorb stores a trigger's payload. Called under mu.
func (s *Session) absorb(ev event) {
	switch ev.trigger {
	case state.PaymentDataProvided:
		if data, ok := ev.payload.(string); ok {
			s.paymentData = data
		}
	case state.MethodsAvailable:
		if methods, ok := ev.payload.([]model.PaymentMethod); ok {
			s.available = methods
		}
	case state.DetailsProvided:
		if details, ok := ev.payload.(model.PaymentDetails); ok {
			s.details = &details
		}
	case state.RedirectRequired:
		if url, ok := ev.payload.(string); ok {
			s.redirectURL = url
		}
	case state.ResultReceived:
		if resp, ok := ev.payload.(model.PaymentResponse); ok {
			s.response = resp
		}
	case state.ErrorOccurred:
		if err, ok := ev.payload.(error); ok {
			s.lastErr = err
		}
	}
}

// enter performs the single side effect of the freshly entered state.
func (s *Session) enter(st state.State) {
	switch st {
	case state.WaitingForPaymentData:
		s.cfg.Callbacks.paymentDataRequired(s.mintSDKToken())

	case state.FetchingPaymentMethods:
		go s.fetchMethods()

	case state.WaitingForSelection:
		s.cfg.Callbacks.selectionRequired(s.AvailableMethods())

	case state.WaitingForDetails:
		if m := s.SelectedMethod(); m != nil {
			s.cfg.Callbacks.detailsRequired(*m)
		}

	case state.Processing:
		go s.processPayment()

	case state.WaitingForRedirect:
		s.cfg.Callbacks.redirectRequired(s.RedirectURL())

	case state.Processed:
		s.finish(s.processedResult())

	case state.Aborted:
		s.mu.RLock()
		msg := "payment aborted"
		if s.lastErr != nil {
			msg = s.lastErr.Error()
		}
		s.mu.RUnlock()
		s.finish(model.PaymentResult{Reference: s.ref, Code: model.ResultError, Message: msg})

	case state.Cancelled:
		s.finish(model.PaymentResult{Reference: s.ref, Code: model.ResultCancelled, Message: "payment cancelled by shopper"})
	}
}

// mintSDKToken produces the opaque token handed to the merchant when
// payment data is requested.
func (s *Session) mintSDKToken() string {
	token, _ := json.Marshal(map[string]string{
		"deviceFingerprint": uuid.NewString(),
		"sdkReference":      s.ref,
		"generatedAt":       time.Now().UTC().Format(time.RFC3339),
	})
	return base64.StdEncoding.EncodeToString(token)
}

// fetchMethods fans out the availability checks and reports the aggregate.
func (s *Session) fetchMethods() {
	available := s.cfg.Checker.Check(s.ctx, s.cfg.Methods)
	if len(available) == 0 {
		s.Dispatch(state.ErrorOccurred, errors.New("session: no payment method available"))
		return
	}
	s.Dispatch(state.MethodsAvailable, available)
}

// processPayment performs the payments call and classifies the response.
func (s *Session) processPayment() {
	s.mu.RLock()
	req := model.PaymentRequest{
		PaymentData:       s.paymentData,
		PaymentMethodData: s.methodData(),
		PaymentDetails:    s.details,
	}
	s.mu.RUnlock()

	ctx, cancel := context.WithTimeout(s.ctx, config.RequestTimeout)
	defer cancel()

	resp, err := s.cfg.Gateway.Payments(ctx, req)
	if err != nil {
		s.Dispatch(state.ErrorOccurred, err)
		return
	}
	switch resp.Type {
	case model.ResponseComplete:
		s.Dispatch(state.ResultReceived, resp)
	case model.ResponseRedirect:
		s.Dispatch(state.RedirectRequired, resp.URL)
	case model.ResponseError:
		s.Dispatch(state.ErrorOccurred, fmt.Errorf("session: payment failed: %s", resp.Reason))
	default:
		s.Dispatch(state.ErrorOccurred, fmt.Errorf("session: unexpected response type %q", resp.Type))
	}
}

// methodData encodes the selected method for the wire. Called under mu.
func (s *Session) methodData() string {
	if s.selected == nil {
		return ""
	}
	data, _ := json.Marshal(map[string]string{"type": s.selected.Type})
	return base64.StdEncoding.EncodeToString(data)
}

// processedResult builds the final result for the Processed state.
func (s *Session) processedResult() model.PaymentResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	code := model.ResultAuthorised
	if s.response.ResultCode == "refused" {
		code = model.ResultRefused
	}
	return model.PaymentResult{
		Reference: s.ref,
		Code:      code,
		Message:   s.response.ResultCode,
	}
}

// finish delivers the terminal notification exactly once and releases the
// session's resources.
func (s *Session) finish(result model.PaymentResult) {
	s.finishOnce.Do(func() {
		s.mu.Lock()
		s.result = &result
		s.mu.Unlock()

		s.cancel()

		slog.Info("payment_finished",
			"reference", s.ref,
			"code", string(result.Code),
		)
		s.cfg.Callbacks.result(result)

		// Closing done last means anyone woken by Done sees the result and
		// the delivered notification.
		close(s.done)
	})
}
