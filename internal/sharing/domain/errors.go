package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies everything that can go wrong while sharing.
type ErrorKind string

const (
	KindPermissionDenied    ErrorKind = "PERMISSION_DENIED"
	KindPositionUnavailable ErrorKind = "POSITION_UNAVAILABLE"
	KindTimeout             ErrorKind = "TIMEOUT"
	KindUnsupported         ErrorKind = "UNSUPPORTED"
	KindNetworkSendFailed   ErrorKind = "NETWORK_SEND_FAILED"
	KindUnknown             ErrorKind = "UNKNOWN"
)

// Fatal reports whether an error of this kind terminates the session.
// Permission loss cannot self-heal without user action, so the session is
// torn down; unavailability and timeouts are expected on real devices and
// must not abort an active session. Send failures never end a session.
func (k ErrorKind) Fatal() bool {
	return k == KindPermissionDenied || k == KindUnsupported
}

// ShareError carries a kind and an optional human-readable message.
type ShareError struct {
	Kind    ErrorKind
	Message string
}

func (e *ShareError) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Feed error codes as reported by the device's position facility.
const (
	CodePermissionDenied    = 1
	CodePositionUnavailable = 2
	CodeTimeout             = 3
)

// ClassifySourceError maps a device-reported error code to the taxonomy.
// Unrecognized codes classify as Unknown and are treated as transient.
func ClassifySourceError(code int, message string) *ShareError {
	switch code {
	case CodePermissionDenied:
		return &ShareError{Kind: KindPermissionDenied, Message: message}
	case CodePositionUnavailable:
		return &ShareError{Kind: KindPositionUnavailable, Message: message}
	case CodeTimeout:
		return &ShareError{Kind: KindTimeout, Message: message}
	default:
		return &ShareError{Kind: KindUnknown, Message: message}
	}
}

var (
	ErrNoCredential   = errors.New("no credential available")
	ErrRemoteRejected = errors.New("remote rejected location update")
	ErrUnsupported    = errors.New("position sampling unsupported")
)
