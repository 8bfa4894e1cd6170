// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"errors"
	"fmt"
	"net/http"

	"emperror.dev/emperror"
	"github.com/xmidt-org/showcase/model"
)

// Errors that can be returned by this package. Since some of these errors are
// returned wrapped, it is safest to use errors.Is() to check for them.
var (
	// ErrInvariantViolation marks a defect inside the core. It is never the
	// result of bad input and callers should surface it loudly.
	ErrInvariantViolation = errors.New("share core invariant violated")

	// ErrReferenceSpaceExhausted is returned by Insert when no unused
	// reference could be generated.
	ErrReferenceSpaceExhausted = errors.New("no unused share reference available")
)

// InvariantViolation wraps err so that it matches ErrInvariantViolation and
// carries the given key/value details.
func InvariantViolation(err error, msg string, details ...interface{}) error {
	return emperror.WrapWith(fmt.Errorf("%w: %w", ErrInvariantViolation, err), msg, details...)
}

// BadRequestErr is an input error which maps to a 400.
type BadRequestErr struct {
	Message string
}

func (bre BadRequestErr) Error() string {
	return bre.Message
}

func (bre BadRequestErr) StatusCode() int {
	return http.StatusBadRequest
}

// ReferenceNotFoundError is reported when a reference is unknown, expired or
// invalidated.
type ReferenceNotFoundError struct {
	Reference model.Reference
}

func (rnf ReferenceNotFoundError) Error() string {
	return fmt.Sprintf("share %q not found", rnf.Reference)
}

func (rnf ReferenceNotFoundError) StatusCode() int {
	return http.StatusNotFound
}
