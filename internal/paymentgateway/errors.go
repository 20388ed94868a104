package paymentgateway

import "fmt"

// TransportError means the gateway could not be reached or its reply could not be decoded.
type TransportError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: gateway transport error (status %d): %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: gateway transport error: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// UserMessage is the text shown to the payer for this failure.
func (e *TransportError) UserMessage() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("Server error (%d). Please try again later.", e.StatusCode)
	}
	return "Failed to send STK push. Please try again."
}

// GatewayRejectedError is a well-formed refusal of a push-payment request.
type GatewayRejectedError struct {
	StatusCode int
	Message    string
}

func (e *GatewayRejectedError) Error() string {
	return fmt.Sprintf("gateway rejected request (status %d): %s", e.StatusCode, e.Message)
}
