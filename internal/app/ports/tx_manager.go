package ports

import "context"

// TxManager runs fn atomically. Repositories called with the context handed
// to fn join the same transaction.
type TxManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}
