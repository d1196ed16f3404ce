package tapemachine

import (
	"fmt"
	"sort"
	"strings"
)

// TableBuilder provides a fluent API for constructing tables using state names
// instead of manual integer StateIDs. IDs are assigned densely in first-use order.
type TableBuilder struct {
	nextID   StateID
	nameToID map[string]StateID
	idToName map[StateID]string // For debugging/reverse lookup
	defined  map[StateID]bool
	rows     map[StateID]*Transition
}

// StateBuilder configures the transition of a single named state.
type StateBuilder struct {
	b    *TableBuilder
	row  *Transition
	name string
}

// ActionBuilder describes one branch. Start one with TableBuilder.Goto or TableBuilder.Stay.
type ActionBuilder struct {
	next   string
	write  Optional[Symbol]
	move   Optional[Move]
	stayIn bool
}

// NewTableBuilder creates an empty builder.
func NewTableBuilder() *TableBuilder {
	return &TableBuilder{
		nameToID: make(map[string]StateID),
		idToName: make(map[StateID]string),
		defined:  make(map[StateID]bool),
		rows:     make(map[StateID]*Transition),
	}
}

// State creates or retrieves a state by name.
func (b *TableBuilder) State(name string) *StateBuilder {
	id := b.assignID(name)
	b.defined[id] = true
	row, ok := b.rows[id]
	if !ok {
		row = &Transition{OnZero: Halt(id), OnOne: Halt(id)}
		b.rows[id] = row
	}
	return &StateBuilder{b: b, row: row, name: name}
}

// Goto starts an action that transitions to the named state.
func (b *TableBuilder) Goto(name string) *ActionBuilder {
	b.assignID(name) // Forward ref ok
	return &ActionBuilder{next: name}
}

// Stay starts an action that keeps the current state.
func (b *TableBuilder) Stay() *ActionBuilder {
	return &ActionBuilder{stayIn: true}
}

// Write sets the symbol written before the head moves.
func (a *ActionBuilder) Write(sym Symbol) *ActionBuilder {
	a.write = Some(sym)
	return a
}

// Left moves the head one cell left.
func (a *ActionBuilder) Left() *ActionBuilder {
	a.move = Some(Left)
	return a
}

// Right moves the head one cell right.
func (a *ActionBuilder) Right() *ActionBuilder {
	a.move = Some(Right)
	return a
}

// OnZero sets the action taken when the head reads 0.
func (sb *StateBuilder) OnZero(a *ActionBuilder) *StateBuilder {
	sb.row.OnZero = sb.resolve(a)
	return sb
}

// OnOne sets the action taken when the head reads 1.
func (sb *StateBuilder) OnOne(a *ActionBuilder) *StateBuilder {
	sb.row.OnOne = sb.resolve(a)
	return sb
}

// ID returns the state's assigned ID.
func (sb *StateBuilder) ID() StateID {
	return sb.b.nameToID[sb.name]
}

func (sb *StateBuilder) resolve(a *ActionBuilder) Action {
	next := sb.ID()
	if !a.stayIn {
		next = sb.b.assignID(a.next)
	}
	return Action{Write: a.write, Move: a.move, Next: next}
}

// Build validates that every referenced state was defined and returns the table.
func (b *TableBuilder) Build() (Table, error) {
	if b.nextID == 0 {
		return nil, fmt.Errorf("%w: no states defined", ErrInvalidTable)
	}

	var missing []string
	for id := StateID(0); id < b.nextID; id++ {
		if !b.defined[id] {
			missing = append(missing, b.idToName[id])
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("%w: referenced but undefined states: %s", ErrInvalidTable, strings.Join(missing, ", "))
	}

	table := make(Table, b.nextID)
	for id, row := range b.rows {
		table[id] = *row
	}
	return table, nil
}

// ID returns the StateID for a state name, or -1 if unknown.
func (b *TableBuilder) ID(name string) StateID {
	if id, ok := b.nameToID[name]; ok {
		return id
	}
	return -1
}

// Name returns the state name for a StateID (for debugging).
func (b *TableBuilder) Name(id StateID) string {
	return b.idToName[id]
}

// Names returns state names indexed by StateID.
func (b *TableBuilder) Names() []string {
	names := make([]string, b.nextID)
	for id, name := range b.idToName {
		names[id] = name
	}
	return names
}

// assignID gets or creates an ID for a name.
func (b *TableBuilder) assignID(name string) StateID {
	if id, exists := b.nameToID[name]; exists {
		return id
	}
	id := b.nextID
	b.nextID++
	b.nameToID[name] = id
	b.idToName[id] = name
	return id
}
