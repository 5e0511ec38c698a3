package handler

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veltapay/checkout/internal/availability"
	"github.com/veltapay/checkout/internal/cse"
	"github.com/veltapay/checkout/internal/model"
)

// fakeGateway returns a fixed response and counts calls.
type fakeGateway struct {
	mu    sync.Mutex
	resp  model.PaymentResponse
	calls int
}

func (g *fakeGateway) Payments(ctx context.Context, req model.PaymentRequest) (model.PaymentResponse, error) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()
	return g.resp, nil
}

func (g *fakeGateway) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func testMethods() []model.PaymentMethod {
	return []model.PaymentMethod{
		{Type: "scheme", Name: "Credit Card", RequiresDetails: true, SupportedBrands: []string{"visa", "mc"}},
		{Type: "wallet", Name: "InstaWallet", RequiresDetails: false},
	}
}

func newTestMux(gateway *fakeGateway, encrypter *cse.CardEncrypter) *http.ServeMux {
	h := New(gateway, availability.NewChecker(), testMethods(), encrypter)
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return mux
}

func doJSON(t *testing.T, mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func createSession(t *testing.T, mux *http.ServeMux) string {
	t.Helper()
	w := doJSON(t, mux, http.MethodPost, "/sessions",
		`{"merchant_reference":"order-1","amount":"17.95","currency":"EUR","country_code":"NL","return_url":"https://m.example.test/return"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp["reference"])
	return resp["reference"]
}

func getView(t *testing.T, mux *http.ServeMux, ref string) sessionView {
	t.Helper()
	w := doJSON(t, mux, http.MethodGet, "/sessions/"+ref, "")
	require.Equal(t, http.StatusOK, w.Code)
	var view sessionView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	return view
}

func waitForState(t *testing.T, mux *http.ServeMux, ref, want string) {
	t.Helper()
	require.Eventually(t, func() bool {
		return getView(t, mux, ref).State == want
	}, 5*time.Second, 10*time.Millisecond, "session never reached %s", want)
}

func TestCreateSession_Validation(t *testing.T) {
	mux := newTestMux(&fakeGateway{}, nil)

	tests := []struct {
		name string
		body string
	}{
		{name: "invalid body", body: `{`},
		{name: "zero amount", body: `{"amount":"0","currency":"EUR"}`},
		{name: "bad currency", body: `{"amount":"10","currency":"EURO"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, mux, http.MethodPost, "/sessions", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestWalletFlow_CompletesWithoutDetails(t *testing.T) {
	gateway := &fakeGateway{resp: model.PaymentResponse{Type: model.ResponseComplete, ResultCode: "authorised"}}
	mux := newTestMux(gateway, nil)

	ref := createSession(t, mux)
	waitForState(t, mux, ref, "waiting_for_method_selection")

	view := getView(t, mux, ref)
	require.Len(t, view.Methods, 2)

	w := doJSON(t, mux, http.MethodPost, "/sessions/"+ref+"/select", `{"method":"wallet"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	waitForState(t, mux, ref, "authorised")
	view = getView(t, mux, ref)
	require.NotNil(t, view.Result)
	assert.Equal(t, model.ResultAuthorised, view.Result.Code)
	assert.Equal(t, 1, gateway.Calls())
}

func TestCardFlow_EncryptsDetails(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 1024)
	require.NoError(t, err)
	encrypter, err := cse.NewCardEncrypter(fmt.Sprintf("%x|%x", key.PublicKey.E, key.PublicKey.N))
	require.NoError(t, err)

	gateway := &fakeGateway{resp: model.PaymentResponse{Type: model.ResponseComplete, ResultCode: "authorised"}}
	mux := newTestMux(gateway, encrypter)

	ref := createSession(t, mux)
	waitForState(t, mux, ref, "waiting_for_method_selection")

	w := doJSON(t, mux, http.MethodPost, "/sessions/"+ref+"/select", `{"method":"scheme"}`)
	require.Equal(t, http.StatusOK, w.Code)
	waitForState(t, mux, ref, "waiting_for_method_details")

	w = doJSON(t, mux, http.MethodPost, "/sessions/"+ref+"/details",
		`{"card":{"number":"4111 1111 1111 1111","expiry_month":"03","expiry_year":"2030","cvc":"737","holder":"S. Hopper"}}`)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	waitForState(t, mux, ref, "authorised")
	assert.Equal(t, 1, gateway.Calls())
}

func TestCardFlow_RejectsInvalidCard(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 1024)
	require.NoError(t, err)
	encrypter, err := cse.NewCardEncrypter(fmt.Sprintf("%x|%x", key.PublicKey.E, key.PublicKey.N))
	require.NoError(t, err)

	mux := newTestMux(&fakeGateway{resp: model.PaymentResponse{Type: model.ResponseComplete}}, encrypter)

	ref := createSession(t, mux)
	waitForState(t, mux, ref, "waiting_for_method_selection")
	doJSON(t, mux, http.MethodPost, "/sessions/"+ref+"/select", `{"method":"scheme"}`)
	waitForState(t, mux, ref, "waiting_for_method_details")

	w := doJSON(t, mux, http.MethodPost, "/sessions/"+ref+"/details",
		`{"card":{"number":"1234","expiry_month":"03","expiry_year":"2030"}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "card number")
}

func TestCardFlow_RawCardWithoutEncrypterRejected(t *testing.T) {
	mux := newTestMux(&fakeGateway{resp: model.PaymentResponse{Type: model.ResponseComplete}}, nil)

	ref := createSession(t, mux)
	waitForState(t, mux, ref, "waiting_for_method_selection")
	doJSON(t, mux, http.MethodPost, "/sessions/"+ref+"/select", `{"method":"scheme"}`)
	waitForState(t, mux, ref, "waiting_for_method_details")

	w := doJSON(t, mux, http.MethodPost, "/sessions/"+ref+"/details",
		`{"card":{"number":"4111111111111111","expiry_month":"03","expiry_year":"2030"}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "encryption key")
}

func TestRedirectFlow_ReturnLeg(t *testing.T) {
	gateway := &fakeGateway{resp: model.PaymentResponse{Type: model.ResponseRedirect, URL: "https://wallet.example.test/authorize"}}
	mux := newTestMux(gateway, nil)

	ref := createSession(t, mux)
	waitForState(t, mux, ref, "waiting_for_method_selection")
	doJSON(t, mux, http.MethodPost, "/sessions/"+ref+"/select", `{"method":"wallet"}`)
	waitForState(t, mux, ref, "waiting_for_redirection")

	view := getView(t, mux, ref)
	assert.Equal(t, "https://wallet.example.test/authorize", view.RedirectURL)

	w := doJSON(t, mux, http.MethodGet, "/sessions/"+ref+"/return?redirectResult=ok", "")
	require.Equal(t, http.StatusOK, w.Code)
	waitForState(t, mux, ref, "authorised")
}

func TestCancelSession(t *testing.T) {
	gateway := &fakeGateway{resp: model.PaymentResponse{Type: model.ResponseComplete}}
	mux := newTestMux(gateway, nil)

	ref := createSession(t, mux)
	waitForState(t, mux, ref, "waiting_for_method_selection")

	w := doJSON(t, mux, http.MethodPost, "/sessions/"+ref+"/cancel", "")
	require.Equal(t, http.StatusAccepted, w.Code)

	waitForState(t, mux, ref, "cancelled")
	view := getView(t, mux, ref)
	require.NotNil(t, view.Result)
	assert.Equal(t, model.ResultCancelled, view.Result.Code)
	assert.Equal(t, 0, gateway.Calls())

	// Acting on a finished session conflicts rather than 404s.
	w = doJSON(t, mux, http.MethodPost, "/sessions/"+ref+"/select", `{"method":"wallet"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestGetSession_NotFound(t *testing.T) {
	mux := newTestMux(&fakeGateway{}, nil)
	w := doJSON(t, mux, http.MethodGet, "/sessions/does-not-exist", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetMethodAvailability(t *testing.T) {
	mux := newTestMux(&fakeGateway{resp: model.PaymentResponse{Type: model.ResponseComplete}}, nil)

	w := doJSON(t, mux, http.MethodGet, "/methods", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "scheme"))
	assert.True(t, strings.Contains(w.Body.String(), "wallet"))
}
