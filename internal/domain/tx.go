package domain

import "context"

// Transactor runs fn inside a single database transaction. Repository calls
// made with the context passed to fn join that transaction; if fn returns an
// error nothing is persisted. This is the atomic unit of work backing the
// confirmed-requests capacity invariant: the event counter and every affected
// request commit together or not at all.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
