// Package registry implements the Flow registry operations: create, read,
// read by name, list, count and delete.
//
// The registry is the only component with side effects on Flow records, and
// it never holds state of its own between calls. Every operation receives
// the transactional scope (Tx) it runs in from the caller:
//
//	err := store.WithTx(ctx, func(tx registry.Tx) error {
//	    f, err := flow.New("etl-nightly", "db")
//	    if err != nil {
//	        return err
//	    }
//	    _, err = reg.Create(ctx, tx, f)
//	    return err
//	})
//
// The store adapter owns acquisition and release of the scope: WithTx
// commits when fn returns nil and rolls back on error or panic.
//
// CRITICAL PATTERNS:
//
// Uniqueness is enforced by the store's UNIQUE constraint on name. Create
// never checks for an existing name first; a duplicate surfaces as an error
// matching flow.ErrUniquenessViolation so the caller can abort its
// transaction or report the conflict.
//
// Not-found is an outcome, not an error: Read and ReadByName return
// ok=false, Delete returns false.
//
// List always orders by name then id, so limit/offset pages are stable
// while the underlying set is unchanged.
package registry
