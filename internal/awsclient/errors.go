package awsclient

import (
	"errors"
	"fmt"
)

// ErrNotConfigured means the stored settings are missing the access key,
// secret key, or region. A scheduled cycle treats this as a skip, not a
// failure.
var ErrNotConfigured = errors.New("aws credentials are not configured")

// CredentialExchangeError wraps a failed role assumption, including a
// structurally valid response that is missing part of the temporary
// credential triple.
type CredentialExchangeError struct {
	RoleArn string
	Err     error
}

func (e *CredentialExchangeError) Error() string {
	return fmt.Sprintf("failed to assume role %s: %v", e.RoleArn, e.Err)
}

func (e *CredentialExchangeError) Unwrap() error {
	return e.Err
}
