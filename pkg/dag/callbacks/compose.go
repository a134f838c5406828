package callbacks

import "github.com/aoisakanana/railway/pkg/dag"

// Compose fans each step event out to several callbacks in order. The
// first error stops the chain, and the runner aborts with it.
func Compose(cbs ...dag.StepCallback) dag.StepCallback {
	return func(node string, state dag.StateKey, payload any) error {
		for _, cb := range cbs {
			if cb == nil {
				continue
			}
			if err := cb(node, state, payload); err != nil {
				return err
			}
		}
		return nil
	}
}
