package dag

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// RunResult is the final report of a run.
type RunResult struct {
	// ExitCode is the terminal marker reached, or "" when a non-strict run
	// stopped on an unknown state.
	ExitCode ExitOutcome
	// Context is the payload returned by the last executed step.
	Context any
	// Iterations counts step invocations, the start step included.
	Iterations int
	// ExecutionPath lists the executed node names in order.
	ExecutionPath []string
}

// IsSuccess reports whether the run reached a successful exit.
func (r *RunResult) IsSuccess() bool {
	return r.ExitCode != "" && r.ExitCode.IsSuccess()
}

// Run executes the table from start until a terminal exit.
func Run(start *Step, table Table, opts ...RunOption) (*RunResult, error) {
	return RunContext(context.Background(), start, table, opts...)
}

// RunContext is Run with a caller context. The context is handed to
// context-aware steps only; the loop itself never watches it, so
// cancellation surfaces as an error returned by whichever step honors it.
//
// The start step runs with a nil payload. After every step the reported
// status is normalized to its canonical key, the OnStep observer (if any)
// sees it, and the key selects the next target from the table. Step and
// observer errors propagate unwrapped, with no retries.
func RunContext(ctx context.Context, start *Step, table Table, opts ...RunOption) (*RunResult, error) {
	if start == nil {
		return nil, fmt.Errorf("start step must not be nil")
	}
	if table == nil {
		return nil, fmt.Errorf("transition table must not be nil")
	}

	o := NewRunOptions(opts...)
	result := &RunResult{}
	current := start
	var payload any

	for {
		log.WithField("step", current.Name).Info("executing step")

		out, status, err := current.invoke(ctx, payload)
		if err != nil {
			return nil, err
		}
		result.Iterations++
		result.ExecutionPath = append(result.ExecutionPath, current.Name)
		payload = out

		key, err := canonicalKey(current.Name, status)
		if err != nil {
			return nil, err
		}
		log.WithFields(log.Fields{"step": current.Name, "state": key}).Debug("step resolved")

		if o.OnStep != nil {
			if cbErr := o.OnStep(current.Name, key, payload); cbErr != nil {
				return nil, cbErr
			}
		}

		target, ok := table[key]
		if !ok {
			if o.Strict {
				return nil, &UndefinedStateError{Node: current.Name, Key: key}
			}
			log.WithFields(log.Fields{"step": current.Name, "state": key}).
				Warn("undefined state, stopping without exit")
			result.Context = payload
			return result, nil
		}

		switch next := target.(type) {
		case ExitOutcome:
			result.ExitCode = next
			result.Context = payload
			log.WithFields(log.Fields{
				"exit":       next,
				"iterations": result.Iterations,
			}).Info("run complete")
			return result, nil
		case *Step:
			if result.Iterations >= o.MaxIterations {
				return nil, &MaxIterationsError{
					Limit: o.MaxIterations,
					Path:  pathTail(result.ExecutionPath, 10),
				}
			}
			current = next
		default:
			return nil, fmt.Errorf("state %q: unsupported target %T", key, target)
		}
	}
}

// canonicalKey normalizes whatever a step reported to the table key form.
func canonicalKey(node string, status Status) (StateKey, error) {
	switch s := status.(type) {
	case Outcome:
		return s.StateString(node), nil
	case StateKey:
		return s, nil
	case nil:
		return "", fmt.Errorf("node %q returned no status", node)
	}
	return "", fmt.Errorf("node %q returned unsupported status %T", node, status)
}

func pathTail(path []string, n int) []string {
	if len(path) <= n {
		return path
	}
	return path[len(path)-n:]
}
