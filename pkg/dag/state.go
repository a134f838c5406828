package dag

import "strings"

// sep joins the segments of state keys and exit markers.
const sep = "::"

const exitHead = "exit"

// Exit colors.
const (
	ColorGreen  = "green"
	ColorYellow = "yellow"
	ColorRed    = "red"
)

// StateKey is the canonical form of a resolved node outcome:
// "<node>::<status>::<detail>". Node names may contain dots
// ("sub.deep.process"); segments are always separated by "::".
type StateKey string

// MakeState builds the canonical key for a node outcome.
func MakeState(node, outcomeType, detail string) StateKey {
	return StateKey(node + sep + outcomeType + sep + detail)
}

// ParseState splits a canonical key into its three segments. Anything other
// than exactly three "::"-separated parts is rejected.
func ParseState(s string) (node, outcomeType, detail string, err error) {
	parts := strings.Split(s, sep)
	if len(parts) != 3 {
		return "", "", "", &StateFormatError{Value: s}
	}
	return parts[0], parts[1], parts[2], nil
}

func (k StateKey) segment(i int) string {
	parts := strings.Split(string(k), sep)
	if len(parts) != 3 {
		return ""
	}
	return parts[i]
}

// NodeName returns the node segment of the key, or "" if the key is malformed.
func (k StateKey) NodeName() string { return k.segment(0) }

// OutcomeType returns the status segment of the key ("success" or "failure").
func (k StateKey) OutcomeType() string { return k.segment(1) }

// Detail returns the qualifier segment of the key.
func (k StateKey) Detail() string { return k.segment(2) }

// IsSuccess reports whether the key records a success outcome.
func (k StateKey) IsSuccess() bool { return k.OutcomeType() == string(KindSuccess) }

// IsFailure reports whether the key records a failure outcome.
func (k StateKey) IsFailure() bool { return k.OutcomeType() == string(KindFailure) }

// ExitOutcome is a terminal marker: "exit::<color>::<name>". Green and
// yellow exits terminate successfully (yellow signals a warning); red is a
// failure.
type ExitOutcome string

// Predefined markers for the common terminal cases.
const (
	ExitGreen  ExitOutcome = "exit::green::done"
	ExitYellow ExitOutcome = "exit::yellow::warning"
	ExitRed    ExitOutcome = "exit::red::error"
)

// MakeExit builds an exit marker, defaulting the name to "done" when empty.
func MakeExit(color, name string) ExitOutcome {
	if name == "" {
		name = "done"
	}
	return ExitOutcome(exitHead + sep + color + sep + name)
}

// ParseExit splits an exit marker into its color and name. The first
// segment must be the literal "exit".
func ParseExit(s string) (color, name string, err error) {
	parts := strings.Split(s, sep)
	if len(parts) != 3 || parts[0] != exitHead {
		return "", "", &StateFormatError{Value: s}
	}
	return parts[1], parts[2], nil
}

// IsExitKey reports whether s denotes an exit marker rather than a node
// state. Both the "exit::" and the dotted "exit." spellings count.
func IsExitKey(s string) bool {
	return s == exitHead ||
		strings.HasPrefix(s, exitHead+sep) ||
		strings.HasPrefix(s, exitHead+".")
}

func (e ExitOutcome) segment(i int) string {
	parts := strings.Split(string(e), sep)
	if len(parts) != 3 || parts[0] != exitHead {
		return ""
	}
	return parts[i]
}

// Color returns the color segment of the marker, or "" if it is malformed.
func (e ExitOutcome) Color() string { return e.segment(1) }

// ExitName returns the name segment of the marker.
func (e ExitOutcome) ExitName() string { return e.segment(2) }

// IsSuccess reports whether the exit terminates successfully. Green and
// yellow both qualify; yellow carries a warning, red does not qualify.
func (e ExitOutcome) IsSuccess() bool {
	c := e.Color()
	return c == ColorGreen || c == ColorYellow
}
