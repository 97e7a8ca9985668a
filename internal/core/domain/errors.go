package domain

import (
	"errors"
	"fmt"
)

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates the resource already exists
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates authentication failed or missing
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates the user lacks permission for this action
	ErrForbidden = errors.New("forbidden")

	// ErrTokenExpired indicates the auth token has expired
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenInvalid indicates the auth token is malformed or invalid
	ErrTokenInvalid = errors.New("token invalid")

	// ErrInvalidCredentials indicates wrong email/password combination
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrCSRFInvalid indicates a missing or mismatched form nonce
	ErrCSRFInvalid = errors.New("failed security check")

	// ErrUnsupportedAppType indicates no flow handler is registered for the app type
	ErrUnsupportedAppType = errors.New("unsupported app type")
)

// Authorization flow errors
var (
	// ErrConfiguration indicates missing consumer key, secret or API URL
	ErrConfiguration = errors.New("configuration error")

	// ErrTransport indicates a network failure or timeout talking to the remote server
	ErrTransport = errors.New("transport error")

	// ErrProtocol indicates the remote server returned a malformed response
	ErrProtocol = errors.New("protocol error")

	// ErrRemoteRejected indicates the remote server explicitly rejected the request
	ErrRemoteRejected = errors.New("remote rejection")

	// ErrExpiredOrMissingSecret indicates the return leg found no cached token secret
	ErrExpiredOrMissingSecret = errors.New("expired or missing temporary secret")
)

// FlowErrorKind classifies authorization flow failures
type FlowErrorKind string

const (
	FlowErrorConfiguration  FlowErrorKind = "configuration"
	FlowErrorTransport      FlowErrorKind = "transport"
	FlowErrorProtocol       FlowErrorKind = "protocol"
	FlowErrorRemoteRejected FlowErrorKind = "remote_rejection"
	FlowErrorExpiredSecret  FlowErrorKind = "expired_or_missing_secret"
	FlowErrorUnknown        FlowErrorKind = "unknown"
)

// FlowError is a classified failure of one flow operation
type FlowError struct {
	Kind FlowErrorKind
	Op   string
	Err  error
}

// NewFlowError wraps err with the sentinel for kind
func NewFlowError(kind FlowErrorKind, op string, err error) *FlowError {
	return &FlowError{Kind: kind, Op: op, Err: err}
}

func (e *FlowError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind.sentinel())
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind.sentinel(), e.Err)
}

func (e *FlowError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel error for the kind
func (e *FlowError) Is(target error) bool {
	return target == e.Kind.sentinel()
}

func (k FlowErrorKind) sentinel() error {
	switch k {
	case FlowErrorConfiguration:
		return ErrConfiguration
	case FlowErrorTransport:
		return ErrTransport
	case FlowErrorProtocol:
		return ErrProtocol
	case FlowErrorRemoteRejected:
		return ErrRemoteRejected
	case FlowErrorExpiredSecret:
		return ErrExpiredOrMissingSecret
	default:
		return errUnknownFlow
	}
}

var errUnknownFlow = errors.New("flow error")

// ClassifyFlowError maps an error to its flow error kind
func ClassifyFlowError(err error) FlowErrorKind {
	var fe *FlowError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &fe):
		return fe.Kind
	case errors.Is(err, ErrConfiguration):
		return FlowErrorConfiguration
	case errors.Is(err, ErrTransport):
		return FlowErrorTransport
	case errors.Is(err, ErrProtocol):
		return FlowErrorProtocol
	case errors.Is(err, ErrRemoteRejected):
		return FlowErrorRemoteRejected
	case errors.Is(err, ErrExpiredOrMissingSecret):
		return FlowErrorExpiredSecret
	default:
		return FlowErrorUnknown
	}
}
