// Package repository persists the console's own records.  The backend owns
// sales, seats and payments; the only local table is the settlement
// journal, which keeps the operator-side history of every orchestrated
// operation.
package repository

import "errors"

// ErrNotFound is returned when a journal entry does not exist.  Handlers
// translate it into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrInvalidEntry is returned when an entry lacks the fields every row
// needs (id, operation, outcome).
var ErrInvalidEntry = errors.New("invalid journal entry")
