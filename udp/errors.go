// Copyright (c) 2026 by Marko Gaćeša.
// Licensed under the Apache License, Version 2.0.
// See the LICENSE file or http://www.apache.org/licenses/LICENSE-2.0 for details.

package udp

import "errors"

var (
	ErrCreateFailed         = errors.New("failed to create socket")
	ErrBroadcastUnavailable = errors.New("broadcast option unavailable")
	ErrBindFailed           = errors.New("failed to bind")
	ErrSendFailed           = errors.New("failed to send message")
	ErrReceiveFailed        = errors.New("failed to receive message")
	ErrClosed               = errors.New("connection closed")
)

// TransportError carries one of the Err* kinds together with the underlying OS error.
// Both are reachable with errors.Is and errors.As.
type TransportError struct {
	Kind  error
	inner error
}

func newTransportError(kind, inner error) *TransportError {
	return &TransportError{Kind: kind, inner: inner}
}

func (e *TransportError) Error() string {
	if e.inner == nil {
		return "udp broadcaster: " + e.Kind.Error()
	}
	return "udp broadcaster: " + e.Kind.Error() + ": " + e.inner.Error()
}

func (e *TransportError) Unwrap() []error {
	if e.inner == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.inner}
}

// IsStartupError reports whether err is one of the errors Open can fail with.
func IsStartupError(err error) bool {
	return errors.Is(err, ErrCreateFailed) ||
		errors.Is(err, ErrBroadcastUnavailable) ||
		errors.Is(err, ErrBindFailed)
}
