package observer

import "errors"

var (
	// ErrSubjectPanic wraps a panic raised while sampling a subject.
	ErrSubjectPanic = errors.New("observer: subject panicked")

	// ErrCallbackPanic wraps a panic raised by a lifecycle callback.
	ErrCallbackPanic = errors.New("observer: callback panicked")
)
