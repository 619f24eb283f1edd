// Copyright (c) 2016-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package spvsync

import (
	"errors"
	"fmt"
)

// ErrorCode identifies a kind of error.
type ErrorCode int

// These constants are used to identify a specific Error.
const (
	// ErrNoFilter indicates the handshake completed but no bloom filter
	// was available to load into the peer.  Syncing without a filter
	// would download every transaction, so this is fatal.
	ErrNoFilter ErrorCode = iota

	// ErrConnectFailed indicates the connection to the peer could not be
	// established or was lost before the handshake completed.
	ErrConnectFailed

	// ErrInvalidConfig indicates a required collaborator is missing from
	// the controller configuration.
	ErrInvalidConfig
)

// Map of ErrorCode values back to their constant names for pretty printing.
var errorCodeStrings = map[ErrorCode]string{
	ErrNoFilter:      "ErrNoFilter",
	ErrConnectFailed: "ErrConnectFailed",
	ErrInvalidConfig: "ErrInvalidConfig",
}

// String returns the ErrorCode as a human-readable name.
func (e ErrorCode) String() string {
	if s := errorCodeStrings[e]; s != "" {
		return s
	}
	return fmt.Sprintf("Unknown ErrorCode (%d)", int(e))
}

// Error identifies a sync controller error.  The caller can use type
// assertions or errors.As to access the ErrorCode field.
type Error struct {
	ErrorCode   ErrorCode // Describes the kind of error
	Description string    // Human readable description of the issue
	Err         error     // Underlying error, if any
}

// Error satisfies the error interface and prints human-readable errors.
func (e Error) Error() string {
	if e.Err != nil {
		return e.Description + ": " + e.Err.Error()
	}
	return e.Description
}

// Unwrap returns the underlying error.
func (e Error) Unwrap() error {
	return e.Err
}

// syncError creates an Error given a set of arguments.
func syncError(c ErrorCode, desc string, err error) Error {
	return Error{ErrorCode: c, Description: desc, Err: err}
}

// IsErrorCode returns whether err is an Error with a matching error code.
func IsErrorCode(err error, c ErrorCode) bool {
	var e Error
	return errors.As(err, &e) && e.ErrorCode == c
}
