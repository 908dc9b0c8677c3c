package memory

import "context"

type TxManager struct {
	store *Store
}

func NewTxManager(store *Store) TxManager {
	return TxManager{store: store}
}

// RunInTx runs fn exclusively against the store. When fn fails, the keys it
// wrote through the handed context are put back; other writes are kept.
func (t TxManager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	t.store.txMu.Lock()
	defer t.store.txMu.Unlock()
	undo := newUndoLog()
	if err := fn(withUndo(ctx, undo)); err != nil {
		t.store.rollback(undo)
		return err
	}
	return nil
}
