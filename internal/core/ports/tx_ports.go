package ports

import "context"

// Transactor runs fn inside a database transaction carried by the context
// passed to fn. Repositories called with that context join the transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
	// WithinReadTx runs fn in a read-only snapshot.
	WithinReadTx(ctx context.Context, fn func(ctx context.Context) error) error
}
