package erp

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// TransientError marks a failure worth retrying: timeouts, rate limiting,
// and server-side errors.
type TransientError struct {
	Status  int
	Payload string
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient erp error (status %d): %s", e.Status, e.Payload)
}

// PermanentError marks a failure that retrying cannot fix: the ERP rejected
// the document or the credentials are invalid.
type PermanentError struct {
	Status  int
	Payload string
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("permanent erp error (status %d): %s", e.Status, e.Payload)
}

// IsTransient reports whether err belongs to the retryable failure class.
// Network timeouts and deadline expiry count as transient alongside
// explicit TransientError classifications.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var ne net.Error
	if errors.As(err, &ne) {
		return ne.Timeout()
	}

	return false
}

// classifyStatus wraps a non-2xx response into the transient or permanent
// class by HTTP status.
func classifyStatus(status int, payload string) error {
	switch {
	case status == 408 || status == 429 || status >= 500:
		return &TransientError{Status: status, Payload: payload}
	default:
		return &PermanentError{Status: status, Payload: payload}
	}
}
