package agent

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrMaxIterations ends a run whose model never stopped requesting tools.
	ErrMaxIterations = errors.New("maximum iterations reached without a final response")

	// ErrNoCandidates is returned when the model response has nothing in it.
	ErrNoCandidates = errors.New("model returned no candidates")

	// ErrEmptyToolName is returned for a tool call without a name.
	ErrEmptyToolName = errors.New("model requested a tool call without a name")
)

// ClientError is a provider rejection of the request itself: quota
// exhaustion, bad credentials, invalid model. Retrying the same request will
// not help.
type ClientError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *ClientError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s client error (status %d): %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s client error: %v", e.Provider, e.Err)
}

func (e *ClientError) Unwrap() error { return e.Err }

// TransportError is any other failure to get a response from the provider.
type TransportError struct {
	Provider string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s request failed: %v", e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError is a response the loop cannot act on.
type ProtocolError struct {
	Provider string
	Err      error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s protocol violation: %v", e.Provider, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// classify wraps a provider SDK error. status is the HTTP status the SDK
// reported, or 0 when there was none.
func classify(provider string, status int, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if status >= 400 && status < 500 {
		return &ClientError{Provider: provider, StatusCode: status, Err: err}
	}
	return &TransportError{Provider: provider, Err: err}
}

func outcomeOf(err error) Outcome {
	var (
		clientErr   *ClientError
		protocolErr *ProtocolError
	)
	switch {
	case err == nil:
		return OutcomeAnswered
	case errors.Is(err, ErrMaxIterations):
		return OutcomeMaxIterations
	case errors.As(err, &clientErr):
		return OutcomeClientError
	case errors.As(err, &protocolErr):
		return OutcomeProtocolError
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeCanceled
	default:
		return OutcomeTransportError
	}
}
