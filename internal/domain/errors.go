// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict indicates the entity already exists (e.g. duplicate email).
var ErrConflict = errors.New("conflict")

// ErrValidation indicates invalid user input. Wrap it with the field message:
// fmt.Errorf("%w: email is required", domain.ErrValidation).
var ErrValidation = errors.New("validation failed")

// ErrConfiguration indicates a required setting or secret is missing.
// It blocks data access but never terminates the process.
var ErrConfiguration = errors.New("configuration error")

// ErrFetch indicates the row store could not be reached or rejected a query.
var ErrFetch = errors.New("fetch failed")

// ErrAuth indicates invalid credentials or a rejected sign-up.
var ErrAuth = errors.New("authentication failed")

// ErrDataShape indicates a record that cannot be decoded into its entity.
var ErrDataShape = errors.New("malformed record")
