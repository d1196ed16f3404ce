// Package benchmarks provides shared helpers for benchmark tests.
package benchmarks

import (
	"context"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/comalice/tapemachine"
	"github.com/comalice/tapemachine/internal/core"
	"github.com/comalice/tapemachine/internal/tables"
)

// GenSweepTable creates n states that move right unconditionally, cycling through
// every state. A run from head 0 falls off the right edge after len(tape) steps.
func GenSweepTable(n int) tapemachine.Table {
	if n < 1 {
		n = 1
	}
	table := make(tapemachine.Table, n)
	for i := range table {
		next := tapemachine.StateID((i + 1) % n)
		act := tapemachine.Action{Move: tapemachine.Some(tapemachine.Right), Next: next}
		table[i] = tapemachine.Transition{OnZero: act, OnOne: act}
	}
	return table
}

// GenFlipTable creates a single state that inverts the cell under the head forever.
// It never halts; use it with a step ceiling.
func GenFlipTable() tapemachine.Table {
	return tapemachine.Table{{
		OnZero: tapemachine.Action{Write: tapemachine.Some(tapemachine.One), Next: 0},
		OnOne:  tapemachine.Action{Write: tapemachine.Some(tapemachine.Zero), Next: 0},
	}}
}

// GenTape creates a tape of n cells alternating 0 and 1.
func GenTape(n int) tapemachine.Tape {
	tape := make(tapemachine.Tape, n)
	for i := range tape {
		tape[i] = tapemachine.Symbol(i % 2)
	}
	return tape
}

// GenAdditionRequests creates n addition requests with operands growing with i.
func GenAdditionRequests(n int) []core.Request {
	reqs := make([]core.Request, n)
	for i := range reqs {
		reqs[i] = core.Request{
			Name:  fmt.Sprintf("add_%d", i),
			Table: tables.Addition(),
			Tape:  tables.UnaryTape(i%50+1, i%30+1, 2, 2),
		}
	}
	return reqs
}

// GenRecordYAML runs a sweep over a tape of tapeLen cells and returns its record as YAML.
func GenRecordYAML(tapeLen int) []byte {
	rec, err := core.NewRunner().Run(context.Background(), core.Request{
		Name:  "sweep",
		Table: GenSweepTable(4),
		Tape:  GenTape(tapeLen),
	})
	if err != nil {
		panic(err)
	}
	data, err := yaml.Marshal(rec)
	if err != nil {
		panic(err)
	}
	return data
}
