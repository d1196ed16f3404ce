package tables

import "github.com/comalice/tapemachine"

// Addition returns the binary (unary-encoded) addition table.
//
// Starting left of two blocks of ones separated by a single zero, it fills
// the gap and erases the last one of the second block, leaving one block
// whose length is the sum.
//
//	0: skip zeros; on the first 1 enter state 1
//	1: skip the first block; fill the gap with 1, enter state 2
//	2: skip the second block; on the trailing 0 step back, enter state 3
//	3: erase the last 1 and step right; halt on 0
func Addition() tapemachine.Table {
	r := tapemachine.Some(tapemachine.Right)
	l := tapemachine.Some(tapemachine.Left)
	keep := tapemachine.None[tapemachine.Symbol]()

	return tapemachine.Table{
		{
			OnZero: tapemachine.Action{Write: keep, Move: r, Next: 0},
			OnOne:  tapemachine.Action{Write: keep, Move: r, Next: 1},
		},
		{
			OnZero: tapemachine.Action{Write: tapemachine.Some(tapemachine.One), Move: r, Next: 2},
			OnOne:  tapemachine.Action{Write: keep, Move: r, Next: 1},
		},
		{
			OnZero: tapemachine.Action{Write: keep, Move: l, Next: 3},
			OnOne:  tapemachine.Action{Write: keep, Move: r, Next: 2},
		},
		{
			OnZero: tapemachine.Halt(3),
			OnOne:  tapemachine.Action{Write: tapemachine.Some(tapemachine.Zero), Move: r, Next: 3},
		},
	}
}

// SampleTape returns the tape shipped with the addition demo: 5 + 6.
func SampleTape() tapemachine.Tape {
	return tapemachine.Tape{0, 0, 0, 0, 1, 1, 1, 1, 1, 0, 1, 1, 1, 1, 1, 1, 0, 0, 0}
}

// UnaryTape encodes a and b as two blocks of ones separated by a zero,
// padded with lead zeros in front and trail zeros behind.
func UnaryTape(a, b, lead, trail int) tapemachine.Tape {
	tape := make(tapemachine.Tape, 0, lead+a+1+b+trail)
	for i := 0; i < lead; i++ {
		tape = append(tape, tapemachine.Zero)
	}
	for i := 0; i < a; i++ {
		tape = append(tape, tapemachine.One)
	}
	tape = append(tape, tapemachine.Zero)
	for i := 0; i < b; i++ {
		tape = append(tape, tapemachine.One)
	}
	for i := 0; i < trail; i++ {
		tape = append(tape, tapemachine.Zero)
	}
	return tape
}

// CountOnes returns the number of 1 cells.
func CountOnes(tape tapemachine.Tape) int {
	n := 0
	for _, sym := range tape {
		if sym == tapemachine.One {
			n++
		}
	}
	return n
}
