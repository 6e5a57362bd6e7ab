// Package repository contains data access logic separated from HTTP
// handlers. This file defines sentinel error values shared by the
// repositories so that higher layers can distinguish failure scenarios
// with errors.Is and translate them to HTTP statuses without string
// matching.
package repository

import "errors"

// ErrEmailExists is returned when inserting a user whose email is
// already taken. Handlers translate this into an HTTP 409 response.
var ErrEmailExists = errors.New("email already exists")

// ErrUserNotFound is returned when a user lookup matches no row.
var ErrUserNotFound = errors.New("user not found")

// ErrTaskNotFound is returned when a task lookup matches no row.
// Handlers translate this into an HTTP 404 response.
var ErrTaskNotFound = errors.New("task not found")
