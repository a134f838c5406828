package dag

import (
	"fmt"
	"strings"
)

// ParseError reports a structural problem in a workflow definition.
type ParseError struct {
	Msg string
}

func (e *ParseError) Error() string { return "parse: " + e.Msg }

func parseErrf(format string, args ...any) error {
	return &ParseError{Msg: fmt.Sprintf(format, args...)}
}

// StateFormatError reports a string that does not follow the three-segment
// "<a>::<b>::<c>" key format.
type StateFormatError struct {
	Value string
}

func (e *StateFormatError) Error() string {
	return fmt.Sprintf("malformed state key %q: want three %q-separated segments", e.Value, sep)
}

// UndefinedStateError reports a strict-mode lookup miss: a step resolved to
// a state the transition table has no entry for.
type UndefinedStateError struct {
	Node string
	Key  StateKey
}

func (e *UndefinedStateError) Error() string {
	return fmt.Sprintf("node %q resolved to undefined state %q", e.Node, e.Key)
}

// MaxIterationsError reports that a run hit its iteration ceiling without
// reaching an exit. Path holds up to the last ten steps executed.
type MaxIterationsError struct {
	Limit int
	Path  []string
}

func (e *MaxIterationsError) Error() string {
	return fmt.Sprintf("max iterations (%d) exceeded, recent path: %s",
		e.Limit, strings.Join(e.Path, " -> "))
}
