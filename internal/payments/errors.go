package payments

import "errors"

var (
	// ErrGateway wraps any failed, timed out or unparseable gateway call.
	ErrGateway = errors.New("payment gateway error")
	// ErrOrderNotFound means the gateway has no transaction for the order id.
	ErrOrderNotFound = errors.New("gateway order not found")
	// ErrInvalidSignature is returned when a notification's signature_key does not match.
	ErrInvalidSignature = errors.New("invalid signature key")
)
