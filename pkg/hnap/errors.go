package hnap

import (
	"errors"
	"fmt"
)

// ErrSessionExpired is returned when the device rejects the current session
// token. Callers are expected to login again and retry once.
var ErrSessionExpired = errors.New("hnap: session expired")

// AuthError means the device refused the credentials or the login exchange
// was malformed. Retrying without a config change is pointless.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("hnap: authentication failed: %s", e.Reason)
}

// ConnectionError wraps transport failures (unreachable host, timeout).
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("hnap: connection error: %s", e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// ProtocolError means the device answered with something that is not a valid
// HNAP response.
type ProtocolError struct {
	Reason string
	Err    error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("hnap: protocol error: %s: %s", e.Reason, e.Err)
	}
	return fmt.Sprintf("hnap: protocol error: %s", e.Reason)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}
