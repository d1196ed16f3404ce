package tapemachine

import (
	"errors"
	"fmt"
	"strconv"
)

type StateID int

// Symbol is a tape cell value. The alphabet is binary.
type Symbol int8

const (
	Zero Symbol = 0
	One  Symbol = 1
)

// Move is a head displacement. "No move" is an absent Optional[Move], never a Move value.
type Move int8

const (
	Left  Move = -1
	Right Move = 1
)

func (m Move) String() string {
	switch m {
	case Left:
		return "L"
	case Right:
		return "R"
	}
	return "Move(" + strconv.Itoa(int(m)) + ")"
}

func (m Move) MarshalText() ([]byte, error) {
	switch m {
	case Left, Right:
		return []byte(m.String()), nil
	}
	return nil, fmt.Errorf("invalid move %d", int8(m))
}

func (m *Move) UnmarshalText(text []byte) error {
	switch string(text) {
	case "L", "left", "Left":
		*m = Left
	case "R", "right", "Right":
		*m = Right
	default:
		return fmt.Errorf("invalid move %q", text)
	}
	return nil
}

// Action is one branch of a Transition.
type Action struct {
	Write Optional[Symbol] `json:"write" yaml:"write"`
	Move  Optional[Move]   `json:"move" yaml:"move"`
	Next  StateID          `json:"next" yaml:"next"`
}

// Transition pairs the actions taken when reading 0 and when reading 1.
type Transition struct {
	OnZero Action `json:"onZero" yaml:"onZero"`
	OnOne  Action `json:"onOne" yaml:"onOne"`
}

// Select returns the action for the symbol under the head.
func (t Transition) Select(sym Symbol) Action {
	if sym == Zero {
		return t.OnZero
	}
	return t.OnOne
}

// Table is indexed by StateID.
type Table []Transition

// Tape is a fixed-length sequence of cells.
type Tape []Symbol

// Clone returns an independent copy. A nil tape clones to an empty one.
func (t Tape) Clone() Tape {
	out := make(Tape, len(t))
	copy(out, t)
	return out
}

// Halt returns the canonical halting action for state s: no write, no move, stay in s.
func Halt(s StateID) Action {
	return Action{Next: s}
}

// Status is the engine's run state.
type Status int

const (
	Running Status = iota
	HaltedOffTape
	HaltedQuiescent
)

func (s Status) String() string {
	switch s {
	case Running:
		return "running"
	case HaltedOffTape:
		return "halted_off_tape"
	case HaltedQuiescent:
		return "halted_quiescent"
	}
	return "Status(" + strconv.Itoa(int(s)) + ")"
}

// Halted reports whether s is terminal.
func (s Status) Halted() bool {
	return s == HaltedOffTape || s == HaltedQuiescent
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	switch string(text) {
	case "running":
		*s = Running
	case "halted_off_tape":
		*s = HaltedOffTape
	case "halted_quiescent":
		*s = HaltedQuiescent
	default:
		return fmt.Errorf("invalid status %q", text)
	}
	return nil
}

var (
	ErrInvalidTable      = errors.New("invalid table")
	ErrInvalidState      = errors.New("invalid state")
	ErrStepLimitExceeded = errors.New("step limit exceeded")
)

// StateError reports a state index outside the table.
// Step is 0 for the starting state, otherwise the step that produced it.
type StateError struct {
	State  StateID
	Step   int
	States int
}

func (e *StateError) Error() string {
	if e.Step == 0 {
		return fmt.Sprintf("invalid state: start state %d out of range [0, %d)", e.State, e.States)
	}
	return fmt.Sprintf("invalid state: step %d transitions to state %d out of range [0, %d)", e.Step, e.State, e.States)
}

func (e *StateError) Unwrap() error {
	return ErrInvalidState
}

// StateChange is passed to an Observer whenever a step changes the current state.
type StateChange struct {
	Step int     `json:"step" yaml:"step"`
	From StateID `json:"from" yaml:"from"`
	To   StateID `json:"to" yaml:"to"`
	Head int     `json:"head" yaml:"head"`
}

// Step describes one applied transition. Head is the position the action was applied at.
type Step struct {
	N      int
	State  StateID
	Head   int
	Read   Symbol
	Action Action
}

type Observer func(StateChange)
type StepHook func(Step)

// DefaultMaxSteps bounds runs that do not set WithMaxSteps.
const DefaultMaxSteps = 1_000_000

type options struct {
	maxSteps int
	observer Observer
	stepHook StepHook
}

type Option func(*options)

// WithMaxSteps sets the step ceiling. n <= 0 disables it.
func WithMaxSteps(n int) Option {
	return func(o *options) {
		o.maxSteps = n
	}
}

// WithObserver registers fn to be called on every state change.
func WithObserver(fn Observer) Option {
	return func(o *options) {
		o.observer = fn
	}
}

// WithStepHook registers fn to be called after every applied step.
func WithStepHook(fn StepHook) Option {
	return func(o *options) {
		o.stepHook = fn
	}
}

// Result is the outcome of a halted run.
type Result struct {
	Tape   Tape
	Head   int
	State  StateID
	Steps  int
	Status Status
}

//
// Public API
//

// Run executes table against a copy of tape and returns the final tape.
func Run(table Table, tape Tape, head int, state StateID) (Tape, error) {
	res, err := Execute(table, tape, head, state)
	if err != nil {
		return nil, err
	}
	return res.Tape, nil
}

// Execute is Run with options, reporting why and where the machine halted.
func Execute(table Table, tape Tape, head int, state StateID, opts ...Option) (Result, error) {
	o := options{maxSteps: DefaultMaxSteps}
	for _, opt := range opts {
		opt(&o)
	}

	if len(table) == 0 {
		return Result{}, fmt.Errorf("%w: table is empty", ErrInvalidTable)
	}
	if !table.valid(state) {
		return Result{}, &StateError{State: state, States: len(table)}
	}

	m := &machine{
		table: table,
		tape:  tape.Clone(),
		head:  head,
		state: state,
		opts:  &o,
	}
	for m.status == Running {
		if err := m.step(); err != nil {
			return Result{}, err
		}
	}

	return Result{
		Tape:   m.tape,
		Head:   m.head,
		State:  m.state,
		Steps:  m.steps,
		Status: m.status,
	}, nil
}

//
// Helper Functions (internal API)
//

func (t Table) valid(s StateID) bool {
	return s >= 0 && int(s) < len(t)
}

// machine is the run state of one execution.
type machine struct {
	table  Table
	tape   Tape
	head   int
	state  StateID
	steps  int
	status Status
	opts   *options
}

// step applies one transition or moves the machine to a terminal status.
func (m *machine) step() error {
	if m.head < 0 || m.head >= len(m.tape) {
		m.status = HaltedOffTape
		return nil
	}
	if m.opts.maxSteps > 0 && m.steps >= m.opts.maxSteps {
		return fmt.Errorf("%w: no halt after %d steps (head %d, state %d)", ErrStepLimitExceeded, m.steps, m.head, m.state)
	}

	read := m.tape[m.head]
	act := m.table[m.state].Select(read)
	m.steps++

	wrote := false
	if sym, ok := act.Write.Get(); ok {
		m.tape[m.head] = sym
		wrote = sym != read
	}

	prevHead, prevState := m.head, m.state
	if mv, ok := act.Move.Get(); ok {
		m.head += int(mv)
	}
	if !m.table.valid(act.Next) {
		return &StateError{State: act.Next, Step: m.steps, States: len(m.table)}
	}
	m.state = act.Next

	if m.opts.stepHook != nil {
		m.opts.stepHook(Step{N: m.steps, State: prevState, Head: prevHead, Read: read, Action: act})
	}
	if m.state != prevState && m.opts.observer != nil {
		m.opts.observer(StateChange{Step: m.steps, From: prevState, To: m.state, Head: m.head})
	}

	if !wrote && m.head == prevHead && m.state == prevState {
		m.status = HaltedQuiescent
	}
	return nil
}
