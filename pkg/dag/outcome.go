package dag

// OutcomeKind identifies how a step resolved.
type OutcomeKind string

const (
	KindSuccess OutcomeKind = "success"
	KindFailure OutcomeKind = "failure"
)

// Outcome is the structured report a step returns: a kind plus a free-form
// detail qualifier. Outcomes are plain values and compare with ==.
type Outcome struct {
	Kind   OutcomeKind
	Detail string
}

// Success builds a success outcome. An empty detail defaults to "done".
func Success(detail string) Outcome {
	if detail == "" {
		detail = "done"
	}
	return Outcome{Kind: KindSuccess, Detail: detail}
}

// Failure builds a failure outcome. An empty detail defaults to "error".
func Failure(detail string) Outcome {
	if detail == "" {
		detail = "error"
	}
	return Outcome{Kind: KindFailure, Detail: detail}
}

// IsSuccess reports whether the outcome is a success.
func (o Outcome) IsSuccess() bool { return o.Kind == KindSuccess }

// IsFailure reports whether the outcome is a failure.
func (o Outcome) IsFailure() bool { return o.Kind == KindFailure }

// StateString renders the canonical key for this outcome on the given node.
func (o Outcome) StateString(node string) StateKey {
	return MakeState(node, string(o.Kind), o.Detail)
}

// Status is what a step reports after running: either a structured Outcome
// or an already-canonical StateKey. An Outcome is normalized against the
// step's name before lookup; a StateKey is used verbatim, so the generated
// enumerated constants and hand-written outcomes address the same table
// entries and mix freely within one run.
type Status interface {
	isStatus()
}

func (Outcome) isStatus()  {}
func (StateKey) isStatus() {}
