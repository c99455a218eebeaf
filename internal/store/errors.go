package store

import "fmt"

// ValidationError reports caller-supplied data failing a local precondition.
// It is raised before any backend call is made.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// AuthRequiredError reports an operation that needs a signed-in identity.
// It is raised before any backend call is made.
type AuthRequiredError struct {
	Op string
}

func (e *AuthRequiredError) Error() string {
	return fmt.Sprintf("%s requires an authenticated session", e.Op)
}

// BackendFault wraps a backend service failure. The service message is
// preserved for the caller; no retry is attempted.
type BackendFault struct {
	Op  string
	Err error
}

func (e *BackendFault) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *BackendFault) Unwrap() error {
	return e.Err
}
