package portal

import (
	"errors"
	"fmt"
)

var (
	ErrBrowserStart       = errors.New("browser session failed to start")
	ErrLoginFailed        = errors.New("login failed")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrCaptchaRejected    = errors.New("captcha code rejected")

	ErrNavigationFailed = errors.New("navigation failed")
	ErrRecordNotFound   = errors.New("record could not be re-located")

	ErrEmptyPayload     = errors.New("export attribute is empty")
	ErrMalformedPayload = errors.New("export attribute is not valid JSON")
	ErrNoDataRows       = errors.New("export payload has no data rows")

	ErrParsingFailed = errors.New("failed to parse portal page")
	ErrTimeout       = errors.New("operation timed out")
)

// PipelineError provides detailed error context
type PipelineError struct {
	Category  Category
	Operation string
	Cause     error
	Details   string
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("[%s] %s failed: %v - %s", e.Category, e.Operation, e.Cause, e.Details)
}

func (e *PipelineError) Unwrap() error {
	return e.Cause
}
