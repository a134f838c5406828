package dag_test

import (
	"errors"
	"testing"

	"github.com/aoisakanana/railway/pkg/dag"
)

// ─── StateKey tests ───────────────────────────────────────────────────────────

func TestMakeState(t *testing.T) {
	key := dag.MakeState("fetch", "success", "done")
	if key != "fetch::success::done" {
		t.Errorf("key = %q, want fetch::success::done", key)
	}
	if key.NodeName() != "fetch" {
		t.Errorf("NodeName = %q, want fetch", key.NodeName())
	}
	if key.OutcomeType() != "success" {
		t.Errorf("OutcomeType = %q, want success", key.OutcomeType())
	}
	if key.Detail() != "done" {
		t.Errorf("Detail = %q, want done", key.Detail())
	}
}

func TestParseState_RoundTrip(t *testing.T) {
	node, outcome, detail, err := dag.ParseState("sub.deep.process::failure::timeout")
	if err != nil {
		t.Fatalf("ParseState: %v", err)
	}
	if node != "sub.deep.process" {
		t.Errorf("node = %q, want sub.deep.process", node)
	}
	if outcome != "failure" {
		t.Errorf("outcome = %q, want failure", outcome)
	}
	if detail != "timeout" {
		t.Errorf("detail = %q, want timeout", detail)
	}
}

func TestParseState_Malformed(t *testing.T) {
	for _, s := range []string{"", "fetch", "fetch::success", "a::b::c::d"} {
		_, _, _, err := dag.ParseState(s)
		if err == nil {
			t.Errorf("ParseState(%q): expected error", s)
			continue
		}
		var ferr *dag.StateFormatError
		if !errors.As(err, &ferr) {
			t.Errorf("ParseState(%q): error %T, want *StateFormatError", s, err)
		}
	}
}

func TestStateKey_Outcomes(t *testing.T) {
	ok := dag.MakeState("a", "success", "done")
	if !ok.IsSuccess() || ok.IsFailure() {
		t.Errorf("%q: IsSuccess=%v IsFailure=%v", ok, ok.IsSuccess(), ok.IsFailure())
	}
	bad := dag.MakeState("a", "failure", "error")
	if bad.IsSuccess() || !bad.IsFailure() {
		t.Errorf("%q: IsSuccess=%v IsFailure=%v", bad, bad.IsSuccess(), bad.IsFailure())
	}
	if malformed := dag.StateKey("oops"); malformed.NodeName() != "" {
		t.Errorf("malformed NodeName = %q, want empty", malformed.NodeName())
	}
}

// ─── ExitOutcome tests ────────────────────────────────────────────────────────

func TestMakeExit(t *testing.T) {
	if e := dag.MakeExit(dag.ColorYellow, "slow"); e != "exit::yellow::slow" {
		t.Errorf("MakeExit = %q, want exit::yellow::slow", e)
	}
	// Empty names default to "done".
	if e := dag.MakeExit(dag.ColorGreen, ""); e != dag.ExitGreen {
		t.Errorf("MakeExit default = %q, want %q", e, dag.ExitGreen)
	}
}

func TestExitConstants(t *testing.T) {
	tests := []struct {
		e    dag.ExitOutcome
		want string
	}{
		{dag.ExitGreen, "exit::green::done"},
		{dag.ExitYellow, "exit::yellow::warning"},
		{dag.ExitRed, "exit::red::error"},
	}
	for _, tt := range tests {
		if string(tt.e) != tt.want {
			t.Errorf("constant = %q, want %q", tt.e, tt.want)
		}
	}
}

func TestParseExit(t *testing.T) {
	color, name, err := dag.ParseExit("exit::red::disk_full")
	if err != nil {
		t.Fatalf("ParseExit: %v", err)
	}
	if color != dag.ColorRed || name != "disk_full" {
		t.Errorf("got (%q, %q), want (red, disk_full)", color, name)
	}

	for _, s := range []string{"fetch::success::done", "exit::green", "exit"} {
		if _, _, err := dag.ParseExit(s); err == nil {
			t.Errorf("ParseExit(%q): expected error", s)
		}
	}
}

func TestIsExitKey(t *testing.T) {
	tests := []struct {
		s    string
		want bool
	}{
		{"exit", true},
		{"exit::green::done", true},
		{"exit::done", true},
		{"exit.success.done", true},
		{"exitish", false},
		{"fetch::success::done", false},
		{"exiting.cleanup", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := dag.IsExitKey(tt.s); got != tt.want {
			t.Errorf("IsExitKey(%q) = %v, want %v", tt.s, got, tt.want)
		}
	}
}

func TestExitOutcome_IsSuccess(t *testing.T) {
	if !dag.ExitGreen.IsSuccess() {
		t.Error("green exit should be a success")
	}
	if !dag.ExitYellow.IsSuccess() {
		t.Error("yellow exit should be a success")
	}
	if dag.ExitRed.IsSuccess() {
		t.Error("red exit should not be a success")
	}
	if dag.ExitOutcome("garbage").IsSuccess() {
		t.Error("malformed exit should not be a success")
	}
}

// ─── Outcome tests ────────────────────────────────────────────────────────────

func TestOutcome_Defaults(t *testing.T) {
	if o := dag.Success(""); o.Detail != "done" {
		t.Errorf("Success detail = %q, want done", o.Detail)
	}
	if o := dag.Failure(""); o.Detail != "error" {
		t.Errorf("Failure detail = %q, want error", o.Detail)
	}
}

func TestOutcome_StateString(t *testing.T) {
	got := dag.Failure("timeout").StateString("sub.fetch")
	if got != "sub.fetch::failure::timeout" {
		t.Errorf("StateString = %q, want sub.fetch::failure::timeout", got)
	}
}

func TestOutcome_Kinds(t *testing.T) {
	if o := dag.Success("ok"); !o.IsSuccess() || o.IsFailure() {
		t.Error("Success outcome misclassified")
	}
	if o := dag.Failure("bad"); o.IsSuccess() || !o.IsFailure() {
		t.Error("Failure outcome misclassified")
	}
}
