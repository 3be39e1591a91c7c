package errs

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrUnauthenticated  = errors.New("not authenticated")
	ErrCSRFVerification = errors.New("authentication failed: CSRF verification failed")
	ErrLoanFailed       = errors.New("failed to loan book")
	ErrRedirectLoop     = errors.New("too many redirects")
)

// HTTPError is returned for every non-2xx API response.
type HTTPError struct {
	StatusCode int
	Message    string
	Body       []byte
}

func (e *HTTPError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("%d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.Message)
}

// StatusCode digs the HTTP status out of a wrapped error, 0 if there is none.
func StatusCode(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	return 0
}

// Message returns the server supplied message of a wrapped HTTPError.
func Message(err error) (string, bool) {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) && httpErr.Message != "" {
		return httpErr.Message, true
	}
	return "", false
}

func IsAuthStatus(err error) bool {
	code := StatusCode(err)
	return code == http.StatusUnauthorized || code == http.StatusForbidden
}

// LoanError carries the server's explanation of a refused loan.
// It matches ErrLoanFailed with errors.Is.
type LoanError struct {
	BookID  int
	Message string
	Cause   error
}

func (e *LoanError) Error() string {
	if e.Message == "" {
		return ErrLoanFailed.Error()
	}
	return e.Message
}

func (e *LoanError) Is(target error) bool {
	return target == ErrLoanFailed
}

func (e *LoanError) Unwrap() error {
	return e.Cause
}

type ValidationErrorResponse struct {
	Message string            `json:"message,omitempty"`
	Errors  map[string]string `json:"errors"`
}
