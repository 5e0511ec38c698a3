// Package handler exposes the demo merchant surface over HTTP. It is the
// stand-in for the UI layer: it creates sessions, answers their callbacks
// and feeds shopper actions back into the orchestrator.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/veltapay/checkout/internal/api"
	"github.com/veltapay/checkout/internal/availability"
	"github.com/veltapay/checkout/internal/card"
	"github.com/veltapay/checkout/internal/config"
	"github.com/veltapay/checkout/internal/cse"
	"github.com/veltapay/checkout/internal/model"
	"github.com/veltapay/checkout/internal/session"
)

// Handler holds HTTP handler dependencies.
type Handler struct {
	gateway   api.Gateway
	checker   *availability.Checker
	methods   []model.PaymentMethod
	encrypter *cse.CardEncrypter

	store *session.Store

	mu      sync.RWMutex
	results map[string]model.PaymentResult
}

// New creates a new Handler. The card encrypter is optional: without it the
// details endpoint only accepts pre-encrypted values.
func New(gateway api.Gateway, checker *availability.Checker, methods []model.PaymentMethod, encrypter *cse.CardEncrypter) *Handler {
	return &Handler{
		gateway:   gateway,
		checker:   checker,
		methods:   methods,
		encrypter: encrypter,
		store:     session.NewStore(),
		results:   make(map[string]model.PaymentResult),
	}
}

// RegisterRoutes registers all API routes on the given mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /sessions", h.CreateSession)
	mux.HandleFunc("GET /sessions/{ref}", h.GetSession)
	mux.HandleFunc("POST /sessions/{ref}/select", h.SelectMethod)
	mux.HandleFunc("POST /sessions/{ref}/details", h.SubmitDetails)
	mux.HandleFunc("POST /sessions/{ref}/cancel", h.CancelSession)
	mux.HandleFunc("GET /sessions/{ref}/return", h.RedirectReturn)
	mux.HandleFunc("GET /methods", h.GetMethodAvailability)
}

// createSessionRequest is the request body for POST /sessions.
type createSessionRequest struct {
	MerchantReference string          `json:"merchant_reference"`
	Amount            decimal.Decimal `json:"amount"`
	Currency          string          `json:"currency"`
	CountryCode       string          `json:"country_code"`
	ReturnURL         string          `json:"return_url"`
}

// CreateSession handles POST /sessions.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Amount.Sign() <= 0 {
		writeError(w, http.StatusBadRequest, "amount must be greater than 0")
		return
	}
	if len(req.Currency) != 3 {
		writeError(w, http.StatusBadRequest, "currency must be a 3-letter code")
		return
	}

	var sess *session.Session
	sess, err := session.New(session.Config{
		Setup: model.PaymentSetup{
			MerchantReference: req.MerchantReference,
			Amount:            req.Amount,
			Currency:          req.Currency,
			CountryCode:       req.CountryCode,
			ReturnURL:         req.ReturnURL,
		},
		Methods: h.methods,
		Gateway: h.gateway,
		Checker: h.checker,
		Callbacks: session.Callbacks{
			// The demo merchant answers the payment-data callback itself;
			// a real integration would fetch the blob from its server.
			PaymentDataRequired: func(token string) { sess.ProvidePaymentData(token) },
			Result:              func(result model.PaymentResult) { h.sessionFinished(result) },
		},
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.store.Save(sess)
	sess.Start()

	slog.Info("session_created",
		"reference", sess.Reference(),
		"merchant_reference", req.MerchantReference,
		"amount", req.Amount.String(),
		"currency", req.Currency,
	)
	writeJSON(w, http.StatusCreated, map[string]string{"reference": sess.Reference()})
}

// sessionView is the response body for GET /sessions/{ref}.
type sessionView struct {
	Reference   string                `json:"reference"`
	State       string                `json:"state"`
	Methods     []model.PaymentMethod `json:"methods,omitempty"`
	RedirectURL string                `json:"redirect_url,omitempty"`
	Result      *model.PaymentResult  `json:"result,omitempty"`
}

// GetSession handles GET /sessions/{ref}.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	ref := r.PathValue("ref")

	if sess, ok := h.store.Get(ref); ok {
		writeJSON(w, http.StatusOK, sessionView{
			Reference:   ref,
			State:       sess.State().String(),
			Methods:     sess.AvailableMethods(),
			RedirectURL: sess.RedirectURL(),
			Result:      sess.Result(),
		})
		return
	}

	h.mu.RLock()
	result, ok := h.results[ref]
	h.mu.RUnlock()
	if !ok {
		writeError(w, http.StatusNotFound, "session not found: "+ref)
		return
	}
	writeJSON(w, http.StatusOK, sessionView{
		Reference: ref,
		State:     string(result.Code),
		Result:    &result,
	})
}

// selectRequest is the request body for POST /sessions/{ref}/select.
type selectRequest struct {
	Method string `json:"method"`
}

// SelectMethod handles POST /sessions/{ref}/select.
func (h *Handler) SelectMethod(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.liveSession(w, r)
	if !ok {
		return
	}

	var req selectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Method == "" {
		writeError(w, http.StatusBadRequest, "method is required")
		return
	}
	if err := sess.SelectMethod(req.Method); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"reference": sess.Reference(),
		"method":    req.Method,
	})
}

// detailsRequest is the request body for POST /sessions/{ref}/details.
// Either raw card fields (encrypted server-side here, in lieu of a client
// SDK) or already-encrypted values.
type detailsRequest struct {
	Card *struct {
		Number      string `json:"number"`
		ExpiryMonth string `json:"expiry_month"`
		ExpiryYear  string `json:"expiry_year"`
		CVC         string `json:"cvc"`
		Holder      string `json:"holder"`
	} `json:"card,omitempty"`
	Values            map[string]string `json:"values,omitempty"`
	OverrideReturnURL string            `json:"overrideReturnUrl,omitempty"`
}

// SubmitDetails handles POST /sessions/{ref}/details.
func (h *Handler) SubmitDetails(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.liveSession(w, r)
	if !ok {
		return
	}

	var req detailsRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, config.MaxDetailBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	values := req.Values
	if req.Card != nil {
		if h.encrypter == nil {
			writeError(w, http.StatusBadRequest, "raw card details are not accepted without an encryption key")
			return
		}
		now := time.Now()
		c, err := card.NewCard(req.Card.Number, req.Card.ExpiryMonth, req.Card.ExpiryYear, req.Card.CVC, req.Card.Holder, now)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		encrypted, err := h.encrypter.EncryptFields(c, now)
		if err != nil {
			// Encryption failure is fatal to the attempt, not a bad request.
			sess.Fail(err)
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		slog.Info("card_details_encrypted",
			"reference", sess.Reference(),
			"card", card.MaskNumber(c.Number),
		)
		values = map[string]string{
			"encryptedCardNumber":   encrypted.EncryptedNumber,
			"encryptedExpiryMonth":  encrypted.EncryptedExpiryMonth,
			"encryptedExpiryYear":   encrypted.EncryptedExpiryYear,
			"encryptedSecurityCode": encrypted.EncryptedSecurityCode,
		}
	}
	if len(values) == 0 {
		writeError(w, http.StatusBadRequest, "details are required")
		return
	}

	sess.SubmitDetails(model.PaymentDetails{
		Values:            values,
		OverrideReturnURL: req.OverrideReturnURL,
	})
	writeJSON(w, http.StatusAccepted, map[string]string{"reference": sess.Reference()})
}

// CancelSession handles POST /sessions/{ref}/cancel.
func (h *Handler) CancelSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.liveSession(w, r)
	if !ok {
		return
	}
	sess.Cancel()
	writeJSON(w, http.StatusAccepted, map[string]string{"reference": sess.Reference()})
}

// RedirectReturn handles GET /sessions/{ref}/return.
func (h *Handler) RedirectReturn(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.liveSession(w, r)
	if !ok {
		return
	}
	sess.Return(r.URL.RequestURI())
	writeJSON(w, http.StatusOK, map[string]string{"reference": sess.Reference()})
}

// GetMethodAvailability handles GET /methods.
func (h *Handler) GetMethodAvailability(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"catalog":  h.methods,
		"outcomes": h.checker.Outcomes(),
	})
}

// sessionFinished archives the terminal result and drops the live session.
func (h *Handler) sessionFinished(result model.PaymentResult) {
	h.mu.Lock()
	h.results[result.Reference] = result
	h.mu.Unlock()
	h.store.Remove(result.Reference)
}

// liveSession resolves the path reference to a live session or writes the
// appropriate error.
func (h *Handler) liveSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	ref := r.PathValue("ref")
	sess, ok := h.store.Get(ref)
	if !ok {
		h.mu.RLock()
		_, finished := h.results[ref]
		h.mu.RUnlock()
		if finished {
			writeError(w, http.StatusConflict, "session already finished: "+ref)
		} else {
			writeError(w, http.StatusNotFound, "session not found: "+ref)
		}
		return nil, false
	}
	return sess, true
}
