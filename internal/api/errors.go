package api

import "fmt"

// statusError carries the HTTP status and response body of a failed call.
type statusError struct {
	Status int
	Body   string
}

func (e statusError) message(kind string) string {
	return fmt.Sprintf("api: %s (status %d): %s", kind, e.Status, e.Body)
}

// AuthenticationError is returned for 401 responses.
type AuthenticationError struct{ statusError }

func (e *AuthenticationError) Error() string { return e.message("authentication failed") }

// AuthorizationError is returned for 403 responses.
type AuthorizationError struct{ statusError }

func (e *AuthorizationError) Error() string { return e.message("not authorized") }

// MaintenanceError is returned for 503 responses.
type MaintenanceError struct{ statusError }

func (e *MaintenanceError) Error() string { return e.message("service in maintenance") }

// ServerError is returned for other 5xx responses.
type ServerError struct{ statusError }

func (e *ServerError) Error() string { return e.message("server error") }

// UnexpectedError is returned for any other non-2xx response.
type UnexpectedError struct{ statusError }

func (e *UnexpectedError) Error() string { return e.message("unexpected response") }

// classifyStatus maps an HTTP status class to its typed error.
func classifyStatus(status int, body []byte) error {
	se := statusError{Status: status, Body: string(body)}
	switch {
	case status == 401:
		return &AuthenticationError{se}
	case status == 403:
		return &AuthorizationError{se}
	case status == 503:
		return &MaintenanceError{se}
	case status >= 500:
		return &ServerError{se}
	default:
		return &UnexpectedError{se}
	}
}
