package dag_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aoisakanana/railway/pkg/dag"
)

func succeedStep(name, out string) *dag.Step {
	return dag.NewStep(name, func(payload any) (any, dag.Status, error) {
		return out, dag.Success(""), nil
	})
}

// ─── Run paths ────────────────────────────────────────────────────────────────

func TestRun_LinearPath(t *testing.T) {
	var bSaw any
	a := succeedStep("a", "a-out")
	b := dag.NewStep("b", func(payload any) (any, dag.Status, error) {
		bSaw = payload
		return "b-out", dag.Success(""), nil
	})
	table := dag.Table{
		"a::success::done": b,
		"b::success::done": dag.ExitGreen,
	}

	res, err := dag.Run(a, table)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.ExitCode != dag.ExitGreen {
		t.Errorf("exit = %q, want %q", res.ExitCode, dag.ExitGreen)
	}
	if res.Iterations != 2 {
		t.Errorf("iterations = %d, want 2", res.Iterations)
	}
	if len(res.ExecutionPath) != 2 || res.ExecutionPath[0] != "a" || res.ExecutionPath[1] != "b" {
		t.Errorf("path = %v, want [a b]", res.ExecutionPath)
	}
	if bSaw != "a-out" {
		t.Errorf("b received %v, want a-out", bSaw)
	}
	if res.Context != "b-out" {
		t.Errorf("context = %v, want b-out", res.Context)
	}
	if !res.IsSuccess() {
		t.Error("IsSuccess() = false for a green exit")
	}
}

func TestRun_FailureBranch(t *testing.T) {
	a := dag.NewStep("a", func(payload any) (any, dag.Status, error) {
		return nil, dag.Failure("timeout"), nil
	})
	table := dag.Table{
		"a::success::done":    dag.ExitGreen,
		"a::failure::timeout": dag.ExitRed,
	}

	res, err := dag.Run(a, table)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.ExitCode != dag.ExitRed {
		t.Errorf("exit = %q, want %q", res.ExitCode, dag.ExitRed)
	}
	if res.IsSuccess() {
		t.Error("IsSuccess() = true for a red exit")
	}
}

func TestRun_YellowExitIsSuccess(t *testing.T) {
	a := dag.NewStep("a", func(payload any) (any, dag.Status, error) {
		return nil, dag.Success("partial"), nil
	})
	table := dag.Table{"a::success::partial": dag.ExitYellow}

	res, err := dag.Run(a, table)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !res.IsSuccess() {
		t.Error("a yellow exit terminates successfully")
	}
}

func TestRun_SelfLoopHitsCeiling(t *testing.T) {
	invocations := 0
	spin := dag.NewStep("spin", func(payload any) (any, dag.Status, error) {
		invocations++
		return nil, dag.Success("again"), nil
	})
	table := dag.Table{"spin::success::again": spin}

	_, err := dag.Run(spin, table, dag.WithMaxIterations(5))
	if err == nil {
		t.Fatal("expected max iterations error")
	}
	var mErr *dag.MaxIterationsError
	if !errors.As(err, &mErr) {
		t.Fatalf("error %T, want *MaxIterationsError", err)
	}
	if mErr.Limit != 5 {
		t.Errorf("limit = %d, want 5", mErr.Limit)
	}
	if invocations != 5 {
		t.Errorf("invocations = %d, want exactly 5", invocations)
	}
	if len(mErr.Path) != 5 || mErr.Path[0] != "spin" {
		t.Errorf("path = %v, want five spins", mErr.Path)
	}
}

func TestRun_ExitBeatsCeiling(t *testing.T) {
	// A step that resolves straight to an exit finishes even when it is the
	// last allowed iteration.
	a := succeedStep("a", "")
	table := dag.Table{"a::success::done": dag.ExitGreen}

	res, err := dag.Run(a, table, dag.WithMaxIterations(1))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Iterations != 1 {
		t.Errorf("iterations = %d, want 1", res.Iterations)
	}
}

// ─── Strictness ───────────────────────────────────────────────────────────────

func TestRun_StrictUndefinedState(t *testing.T) {
	a := dag.NewStep("a", func(payload any) (any, dag.Status, error) {
		return "a-out", dag.Success("odd"), nil
	})
	table := dag.Table{"a::success::done": dag.ExitGreen}

	_, err := dag.Run(a, table)
	if err == nil {
		t.Fatal("expected undefined state error")
	}
	var uErr *dag.UndefinedStateError
	if !errors.As(err, &uErr) {
		t.Fatalf("error %T, want *UndefinedStateError", err)
	}
	if uErr.Node != "a" || uErr.Key != "a::success::odd" {
		t.Errorf("error = %+v", uErr)
	}
}

func TestRun_NonStrictStops(t *testing.T) {
	a := dag.NewStep("a", func(payload any) (any, dag.Status, error) {
		return "a-out", dag.Success("odd"), nil
	})
	table := dag.Table{"a::success::done": dag.ExitGreen}

	res, err := dag.Run(a, table, dag.WithStrict(false))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.ExitCode != "" {
		t.Errorf("exit = %q, want empty for a degraded stop", res.ExitCode)
	}
	if res.IsSuccess() {
		t.Error("a degraded stop is not a success")
	}
	if res.Iterations != 1 || res.Context != "a-out" {
		t.Errorf("result = %+v", res)
	}
}

// ─── Callbacks ────────────────────────────────────────────────────────────────

func TestRun_CallbackObservesSteps(t *testing.T) {
	type event struct {
		node  string
		state dag.StateKey
	}
	var events []event

	a := succeedStep("a", "a-out")
	table := dag.Table{
		"a::success::done": succeedStep("b", "b-out"),
		"b::success::done": dag.ExitGreen,
	}
	_, err := dag.Run(a, table, dag.WithOnStep(func(node string, state dag.StateKey, payload any) error {
		events = append(events, event{node, state})
		return nil
	}))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []event{
		{"a", "a::success::done"},
		{"b", "b::success::done"},
	}
	if len(events) != len(want) {
		t.Fatalf("events = %v, want %v", events, want)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Errorf("event[%d] = %v, want %v", i, events[i], want[i])
		}
	}
}

func TestRun_CallbackErrorAborts(t *testing.T) {
	sentinel := errors.New("audit refused")
	bInvoked := false

	a := succeedStep("a", "a-out")
	b := dag.NewStep("b", func(payload any) (any, dag.Status, error) {
		bInvoked = true
		return nil, dag.Success(""), nil
	})
	table := dag.Table{
		"a::success::done": b,
		"b::success::done": dag.ExitGreen,
	}
	_, err := dag.Run(a, table, dag.WithOnStep(func(string, dag.StateKey, any) error {
		return sentinel
	}))
	if !errors.Is(err, sentinel) {
		t.Errorf("err = %v, want the callback's error unwrapped", err)
	}
	if bInvoked {
		t.Error("b ran after the callback aborted")
	}
}

// ─── Error handling ───────────────────────────────────────────────────────────

func TestRun_StepErrorPropagates(t *testing.T) {
	sentinel := errors.New("disk on fire")
	a := dag.NewStep("a", func(payload any) (any, dag.Status, error) {
		return nil, nil, sentinel
	})
	table := dag.Table{"a::success::done": dag.ExitGreen}

	res, err := dag.Run(a, table)
	if !errors.Is(err, sentinel) {
		t.Errorf("err = %v, want the step's error unwrapped", err)
	}
	if res != nil {
		t.Errorf("result = %+v, want nil on error", res)
	}
}

func TestRun_NilStatus(t *testing.T) {
	a := dag.NewStep("a", func(payload any) (any, dag.Status, error) {
		return nil, nil, nil
	})
	table := dag.Table{"a::success::done": dag.ExitGreen}

	_, err := dag.Run(a, table)
	if err == nil || !strings.Contains(err.Error(), "returned no status") {
		t.Errorf("err = %v, want a no-status error", err)
	}
}

func TestRun_NilInputs(t *testing.T) {
	table := dag.Table{"a::success::done": dag.ExitGreen}
	if _, err := dag.Run(nil, table); err == nil {
		t.Error("expected error for nil start")
	}
	if _, err := dag.Run(succeedStep("a", ""), nil); err == nil {
		t.Error("expected error for nil table")
	}
}

func TestRun_StepWithoutImplementation(t *testing.T) {
	empty := &dag.Step{Name: "empty"}
	table := dag.Table{"empty::success::done": dag.ExitGreen}
	_, err := dag.Run(empty, table)
	if err == nil || !strings.Contains(err.Error(), "no implementation") {
		t.Errorf("err = %v, want a no-implementation error", err)
	}
}

// ─── Status forms and contexts ────────────────────────────────────────────────

func TestRun_StateKeyStatusUsedVerbatim(t *testing.T) {
	// A step may return a fully qualified key, including one that names a
	// different node; the runner looks it up as is.
	router := dag.NewStep("router", func(payload any) (any, dag.Status, error) {
		return nil, dag.StateKey("dispatch::success::fast"), nil
	})
	table := dag.Table{"dispatch::success::fast": dag.ExitGreen}

	res, err := dag.Run(router, table)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.ExitCode != dag.ExitGreen {
		t.Errorf("exit = %q, want green", res.ExitCode)
	}
}

type ctxKey struct{}

func TestRunContext_ReachesSteps(t *testing.T) {
	var saw any
	a := dag.NewStepContext("a", func(ctx context.Context, payload any) (any, dag.Status, error) {
		saw = ctx.Value(ctxKey{})
		return nil, dag.Success(""), nil
	})
	table := dag.Table{"a::success::done": dag.ExitGreen}

	ctx := context.WithValue(context.Background(), ctxKey{}, "threaded")
	if _, err := dag.RunContext(ctx, a, table); err != nil {
		t.Fatalf("RunContext: %v", err)
	}
	if saw != "threaded" {
		t.Errorf("step saw %v, want threaded", saw)
	}
}

func TestRunContext_MixedSteps(t *testing.T) {
	a := dag.NewStepContext("a", func(ctx context.Context, payload any) (any, dag.Status, error) {
		return "from-a", dag.Success(""), nil
	})
	var bSaw any
	b := dag.NewStep("b", func(payload any) (any, dag.Status, error) {
		bSaw = payload
		return nil, dag.Success(""), nil
	})
	table := dag.Table{
		"a::success::done": b,
		"b::success::done": dag.ExitGreen,
	}

	res, err := dag.RunContext(context.Background(), a, table)
	if err != nil {
		t.Fatalf("RunContext: %v", err)
	}
	if len(res.ExecutionPath) != 2 {
		t.Fatalf("path = %v, want length 2", res.ExecutionPath)
	}
	if bSaw != "from-a" {
		t.Errorf("plain step received %v, want from-a", bSaw)
	}
}

func TestRunContext_CancellationSurfacesFromStep(t *testing.T) {
	a := dag.NewStepContext("a", func(ctx context.Context, payload any) (any, dag.Status, error) {
		return nil, nil, ctx.Err()
	})
	table := dag.Table{"a::success::done": dag.ExitGreen}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := dag.RunContext(ctx, a, table)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

// ─── Options ──────────────────────────────────────────────────────────────────

func TestRunOptions_Defaults(t *testing.T) {
	o := dag.NewRunOptions()
	if o.MaxIterations != 100 || !o.Strict || o.OnStep != nil {
		t.Errorf("defaults = %+v, want {100 true <nil>}", o)
	}
}

func TestRunOptions_WithGraphOptions(t *testing.T) {
	g := dag.GraphOptions{MaxIterations: 7, StrictStateCheck: false, EnableLoopDetection: true}
	o := dag.NewRunOptions(dag.WithGraphOptions(g))
	if o.MaxIterations != 7 || o.Strict {
		t.Errorf("options = %+v, want max 7 and strict off", o)
	}
}
