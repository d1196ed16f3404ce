package tapemachine_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	. "github.com/comalice/tapemachine"
	"github.com/comalice/tapemachine/internal/tables"
)

func act(write Optional[Symbol], move Optional[Move], next StateID) Action {
	return Action{Write: write, Move: move, Next: next}
}

var (
	noWrite = None[Symbol]()
	noMove  = None[Move]()
	right   = Some(Right)
	left    = Some(Left)
)

func TestAdditionOracle(t *testing.T) {
	in := tables.SampleTape()
	want := Tape{0, 0, 0, 0, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 0, 0, 0, 0}

	res, err := Execute(tables.Addition(), in, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(want, res.Tape); diff != "" {
		t.Errorf("final tape mismatch (-want +got):\n%s", diff)
	}
	if res.Status != HaltedQuiescent {
		t.Errorf("expected quiescent halt, got %s", res.Status)
	}
	if res.Steps != 19 || res.Head != 16 || res.State != 3 {
		t.Errorf("expected steps=19 head=16 state=3, got steps=%d head=%d state=%d", res.Steps, res.Head, res.State)
	}

	// Input must not be mutated.
	if diff := cmp.Diff(tables.SampleTape(), in); diff != "" {
		t.Errorf("input tape mutated (-want +got):\n%s", diff)
	}
}

func TestRunMatchesExecute(t *testing.T) {
	got, err := Run(tables.Addition(), tables.SampleTape(), 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	res, err := Execute(tables.Addition(), tables.SampleTape(), 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(res.Tape, got); diff != "" {
		t.Errorf("Run and Execute disagree (-execute +run):\n%s", diff)
	}
}

func TestDeterminism(t *testing.T) {
	first, err := Run(tables.Addition(), tables.SampleTape(), 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 20; i++ {
		got, err := Run(tables.Addition(), tables.SampleTape(), 0, 0)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(first, got); diff != "" {
			t.Fatalf("run %d differs (-first +got):\n%s", i, diff)
		}
	}
}

func TestOffTapeHalt(t *testing.T) {
	table := Table{{OnZero: act(Some(One), right, 0), OnOne: act(Some(Zero), right, 0)}}
	tape := Tape{0, 1, 0}

	for _, head := range []int{-1, 3, 100, -50} {
		res, err := Execute(table, tape, head, 0)
		if err != nil {
			t.Fatalf("head %d: %v", head, err)
		}
		if diff := cmp.Diff(tape, res.Tape); diff != "" {
			t.Errorf("head %d: tape changed (-want +got):\n%s", head, diff)
		}
		if res.Status != HaltedOffTape || res.Steps != 0 {
			t.Errorf("head %d: expected off-tape halt after 0 steps, got %s after %d", head, res.Status, res.Steps)
		}
	}
}

func TestRunsOffEitherEnd(t *testing.T) {
	tests := []struct {
		name     string
		move     Optional[Move]
		head     int
		wantTape Tape
		wantHead int
	}{
		{"right edge", right, 0, Tape{1, 1, 1}, 3},
		{"left edge", left, 2, Tape{1, 1, 1}, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := Table{{OnZero: act(Some(One), tt.move, 0), OnOne: act(Some(One), tt.move, 0)}}
			res, err := Execute(table, Tape{0, 1, 0}, tt.head, 0)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.wantTape, res.Tape); diff != "" {
				t.Errorf("tape mismatch (-want +got):\n%s", diff)
			}
			if res.Head != tt.wantHead || res.Status != HaltedOffTape {
				t.Errorf("expected head %d off tape, got head %d status %s", tt.wantHead, res.Head, res.Status)
			}
		})
	}
}

func TestEmptyTape(t *testing.T) {
	got, err := Run(tables.Addition(), Tape{}, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty tape, got %v", got)
	}

	got, err = Run(tables.Addition(), nil, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("expected non-nil empty tape, got %#v", got)
	}
}

func TestCanonicalHaltAfterOneStep(t *testing.T) {
	table := Table{
		{OnZero: act(noWrite, right, 1), OnOne: act(noWrite, right, 1)},
		{OnZero: Halt(1), OnOne: Halt(1)},
	}
	tape := Tape{1, 0, 1}

	for head := range tape {
		res, err := Execute(table, tape, head, 1)
		if err != nil {
			t.Fatal(err)
		}
		if res.Steps != 1 || res.Status != HaltedQuiescent {
			t.Errorf("head %d: expected quiescent halt after 1 step, got %s after %d", head, res.Status, res.Steps)
		}
		if diff := cmp.Diff(tape, res.Tape); diff != "" {
			t.Errorf("head %d: tape changed (-want +got):\n%s", head, diff)
		}
		if res.Head != head || res.State != 1 {
			t.Errorf("head %d: expected head/state unchanged, got head %d state %d", head, res.Head, res.State)
		}
	}
}

func TestSingleStepWrite(t *testing.T) {
	table := Table{
		{OnZero: act(Some(One), right, 1), OnOne: act(noWrite, right, 1)},
		{OnZero: Halt(1), OnOne: Halt(1)},
	}

	res, err := Execute(table, Tape{0, 0}, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(Tape{1, 0}, res.Tape); diff != "" {
		t.Errorf("tape mismatch (-want +got):\n%s", diff)
	}
	if res.Steps != 2 || res.Status != HaltedQuiescent || res.Head != 1 || res.State != 1 {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestQuiescenceOnRedundantWrite(t *testing.T) {
	// Writing the symbol already under the head is a no-op in effect.
	table := Table{{OnZero: act(Some(Zero), noMove, 0), OnOne: act(Some(One), noMove, 0)}}

	res, err := Execute(table, Tape{1}, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if res.Steps != 1 || res.Status != HaltedQuiescent {
		t.Errorf("expected quiescent halt after 1 step, got %s after %d", res.Status, res.Steps)
	}
}

func TestWriteInPlaceIsNotQuiescent(t *testing.T) {
	// Flipping 0 to 1 in place changes the tape; the next step reads 1 and halts.
	table := Table{{OnZero: act(Some(One), noMove, 0), OnOne: Halt(0)}}

	res, err := Execute(table, Tape{0}, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(Tape{1}, res.Tape); diff != "" {
		t.Errorf("tape mismatch (-want +got):\n%s", diff)
	}
	if res.Steps != 2 {
		t.Errorf("expected 2 steps, got %d", res.Steps)
	}
}

func TestInPlaceFlipFlopNeverHalts(t *testing.T) {
	// Every step rewrites the cell, so no step is quiescent.
	table := Table{{OnZero: act(Some(One), noMove, 0), OnOne: act(Some(Zero), noMove, 0)}}

	_, err := Execute(table, Tape{0}, 0, 0, WithMaxSteps(1000))
	if !errors.Is(err, ErrStepLimitExceeded) {
		t.Fatalf("expected ErrStepLimitExceeded, got %v", err)
	}
}

func TestInvalidStartState(t *testing.T) {
	for _, start := range []StateID{99, 4, -1} {
		_, err := Run(tables.Addition(), tables.SampleTape(), 0, start)
		if !errors.Is(err, ErrInvalidState) {
			t.Fatalf("start %d: expected ErrInvalidState, got %v", start, err)
		}
		var se *StateError
		if !errors.As(err, &se) || se.State != start || se.Step != 0 || se.States != 4 {
			t.Errorf("start %d: unexpected StateError %+v", start, se)
		}
	}

	// Checked before the tape is considered.
	if _, err := Run(tables.Addition(), Tape{}, 0, 99); !errors.Is(err, ErrInvalidState) {
		t.Errorf("expected ErrInvalidState on empty tape, got %v", err)
	}
}

func TestInvalidNextState(t *testing.T) {
	table := Table{
		{OnZero: act(noWrite, right, 0), OnOne: act(Some(Zero), right, 7)},
	}

	got, err := Run(table, Tape{0, 0, 1, 0}, 0, 0)
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
	if got != nil {
		t.Errorf("expected no tape on error, got %v", got)
	}
	var se *StateError
	if !errors.As(err, &se) || se.State != 7 || se.Step != 3 {
		t.Errorf("unexpected StateError %+v", se)
	}
}

func TestEmptyTable(t *testing.T) {
	for _, table := range []Table{nil, {}} {
		if _, err := Run(table, Tape{0}, 0, 0); !errors.Is(err, ErrInvalidTable) {
			t.Errorf("expected ErrInvalidTable, got %v", err)
		}
	}
}

func TestStepLimit(t *testing.T) {
	// Two-state ping-pong never repeats a no-op step.
	table := Table{
		{OnZero: act(noWrite, right, 1), OnOne: act(noWrite, right, 1)},
		{OnZero: act(noWrite, left, 0), OnOne: act(noWrite, left, 0)},
	}

	_, err := Execute(table, Tape{0, 0}, 0, 0, WithMaxSteps(50))
	if !errors.Is(err, ErrStepLimitExceeded) {
		t.Fatalf("expected ErrStepLimitExceeded, got %v", err)
	}

	_, err = Run(table, Tape{0, 0}, 0, 0)
	if !errors.Is(err, ErrStepLimitExceeded) {
		t.Fatalf("expected default ceiling to trip, got %v", err)
	}
}

func TestStepLimitBoundary(t *testing.T) {
	// The addition run needs exactly 19 steps.
	if _, err := Execute(tables.Addition(), tables.SampleTape(), 0, 0, WithMaxSteps(19)); err != nil {
		t.Errorf("expected success at the ceiling, got %v", err)
	}
	if _, err := Execute(tables.Addition(), tables.SampleTape(), 0, 0, WithMaxSteps(18)); !errors.Is(err, ErrStepLimitExceeded) {
		t.Errorf("expected ErrStepLimitExceeded, got %v", err)
	}
	if _, err := Execute(tables.Addition(), tables.SampleTape(), 0, 0, WithMaxSteps(0)); err != nil {
		t.Errorf("expected unlimited run to succeed, got %v", err)
	}
}

func TestHaltedStateIsIdempotent(t *testing.T) {
	first, err := Execute(tables.Addition(), tables.SampleTape(), 0, 0)
	if err != nil {
		t.Fatal(err)
	}

	again, err := Execute(tables.Addition(), first.Tape, first.Head, first.State)
	if err != nil {
		t.Fatal(err)
	}
	if again.Steps != 1 || again.Status != HaltedQuiescent {
		t.Errorf("expected one more no-op step, got %s after %d", again.Status, again.Steps)
	}
	if diff := cmp.Diff(first.Tape, again.Tape); diff != "" {
		t.Errorf("tape changed on re-run (-want +got):\n%s", diff)
	}
}

func TestObserverSeesStateChanges(t *testing.T) {
	var changes []StateChange
	var steps int

	_, err := Execute(tables.Addition(), tables.SampleTape(), 0, 0,
		WithObserver(func(c StateChange) { changes = append(changes, c) }),
		WithStepHook(func(Step) { steps++ }),
	)
	if err != nil {
		t.Fatal(err)
	}

	want := []StateChange{
		{Step: 5, From: 0, To: 1, Head: 5},
		{Step: 10, From: 1, To: 2, Head: 10},
		{Step: 17, From: 2, To: 3, Head: 15},
	}
	if diff := cmp.Diff(want, changes); diff != "" {
		t.Errorf("state changes mismatch (-want +got):\n%s", diff)
	}
	if steps != 19 {
		t.Errorf("expected step hook called 19 times, got %d", steps)
	}
}

func TestStatusString(t *testing.T) {
	tests := map[Status]string{
		Running:         "running",
		HaltedOffTape:   "halted_off_tape",
		HaltedQuiescent: "halted_quiescent",
	}
	for s, want := range tests {
		if s.String() != want {
			t.Errorf("got %q, want %q", s.String(), want)
		}
		var back Status
		if err := back.UnmarshalText([]byte(want)); err != nil || back != s {
			t.Errorf("UnmarshalText(%q) = %v, %v", want, back, err)
		}
	}
	if Running.Halted() || !HaltedOffTape.Halted() || !HaltedQuiescent.Halted() {
		t.Error("Halted() mismatch")
	}
}
