// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// services and handlers to distinguish between different failure
// scenarios without inspecting driver-specific errors. For example,
// ErrConflict signals a uniqueness violation (an email or username
// that is already taken), while ErrNotFound indicates that a row
// does not exist.
package repository

import "errors"

// ErrNotFound is returned when a lookup matches no row. Services map
// this to their own domain errors (invalid credentials, unknown user)
// so the transport layer never sees sql.ErrNoRows.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when an insert or update cannot be
// performed because of a uniqueness violation, such as registering
// an email that already exists. Handlers should translate this
// into an HTTP 409 response.
var ErrConflict = errors.New("conflict")
