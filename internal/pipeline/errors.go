package pipeline

import (
	"errors"
	"fmt"
)

// Kind classifies a submission failure by the stage that produced it.
type Kind string

const (
	// KindValidation means the request fields were malformed or missing;
	// no external service was contacted.
	KindValidation Kind = "validation"

	// KindAddressUnresolved means geocoding failed or yielded no usable
	// city, so the report cannot be routed.
	KindAddressUnresolved Kind = "address_unresolved"

	// KindImage means the photo payload is not a decodable image.
	KindImage Kind = "image"

	// KindNotify means dispatch failed after every prior stage succeeded.
	// The most serious failure: the report was processed but not delivered.
	KindNotify Kind = "notify"
)

// Error is a classified stage failure returned by Submit.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func stageErr(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// KindOf extracts the failure kind from an error returned by Submit.
func KindOf(err error) (Kind, bool) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind, true
	}
	return "", false
}
