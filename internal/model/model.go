package model

import (
	"github.com/shopspring/decimal"
)

// PaymentSetup describes one checkout attempt as configured by the merchant.
type PaymentSetup struct {
	MerchantReference string          `json:"merchant_reference"`
	Amount            decimal.Decimal `json:"amount"`
	Currency          string          `json:"currency"`
	CountryCode       string          `json:"country_code"`
	ReturnURL         string          `json:"return_url"`
}

// PaymentMethod is one entry of the merchant's payment-method catalog.
type PaymentMethod struct {
	Type            string   `json:"type" yaml:"type"`
	Name            string   `json:"name" yaml:"name"`
	RequiresDetails bool     `json:"requires_details" yaml:"requires_details"`
	SupportedBrands []string `json:"supported_brands,omitempty" yaml:"supported_brands,omitempty"`
}

// PaymentDetails holds the shopper-filled detail values for the selected
// method. Values for card methods carry encrypted tokens, never raw data.
type PaymentDetails struct {
	Values            map[string]string `json:"values"`
	OverrideReturnURL string            `json:"overrideReturnUrl,omitempty"`
}

// PaymentRequest is the wire payload POSTed to the payments endpoint.
type PaymentRequest struct {
	PaymentData       string          `json:"paymentData"`
	PaymentMethodData string          `json:"paymentMethodData"`
	PaymentDetails    *PaymentDetails `json:"paymentDetails,omitempty"`
}

// ResponseType discriminates the payments endpoint response.
type ResponseType string

const (
	ResponseRedirect ResponseType = "redirect"
	ResponseComplete ResponseType = "complete"
	ResponseError    ResponseType = "error"
)

// PaymentResponse is the wire payload returned by the payments endpoint.
type PaymentResponse struct {
	Type       ResponseType `json:"type"`
	URL        string       `json:"url,omitempty"`
	ResultCode string       `json:"resultCode,omitempty"`
	Reason     string       `json:"reason,omitempty"`
}

// ResultCode is the terminal outcome of a checkout attempt.
type ResultCode string

const (
	ResultAuthorised ResultCode = "authorised"
	ResultRefused    ResultCode = "refused"
	ResultCancelled  ResultCode = "cancelled"
	ResultError      ResultCode = "error"
)

// PaymentResult is the single final notification delivered per attempt.
type PaymentResult struct {
	Reference string     `json:"reference"`
	Code      ResultCode `json:"code"`
	Message   string     `json:"message,omitempty"`
}

// IsFailure reports whether the result represents an aborted attempt.
func (r PaymentResult) IsFailure() bool {
	return r.Code == ResultError || r.Code == ResultRefused
}
