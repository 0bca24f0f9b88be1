package lava

import (
	"errors"
	"fmt"
)

// ErrGateway matches every failure talking to the payment provider.
var ErrGateway = errors.New("lava: gateway error")

// HTTPError is returned when the provider answers with a non-2xx status.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("lava: unexpected status code: %d, body: %s", e.StatusCode, e.Body)
}

func (e *HTTPError) Unwrap() error { return ErrGateway }

// ResponseError is returned when a 2xx response carries no payment URL.
type ResponseError struct {
	Body map[string]any
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("lava: response has no payment url: %v", e.Body)
}

func (e *ResponseError) Unwrap() error { return ErrGateway }
