package tables

import (
	"fmt"

	"github.com/comalice/tapemachine"
)

// Validate validates the entire table:
// - Non-empty
// - Every Next of every action is an index into the table
// - Every Move is Left or Right
func Validate(table tapemachine.Table) error {
	if len(table) == 0 {
		return fmt.Errorf("%w: table is empty", tapemachine.ErrInvalidTable)
	}
	for sid, tr := range table {
		for sym, act := range []tapemachine.Action{tr.OnZero, tr.OnOne} {
			if act.Next < 0 || int(act.Next) >= len(table) {
				return fmt.Errorf("%w: state %d on %d transitions to %d, table has %d states",
					tapemachine.ErrInvalidState, sid, sym, act.Next, len(table))
			}
			if mv, ok := act.Move.Get(); ok && mv != tapemachine.Left && mv != tapemachine.Right {
				return fmt.Errorf("%w: state %d on %d has invalid move %d", tapemachine.ErrInvalidTable, sid, sym, int8(mv))
			}
			if w, ok := act.Write.Get(); ok && w != tapemachine.Zero && w != tapemachine.One {
				return fmt.Errorf("%w: state %d on %d writes non-binary symbol %d", tapemachine.ErrInvalidTable, sid, sym, w)
			}
		}
	}
	return nil
}

// ValidateTape reports cells outside the binary alphabet.
func ValidateTape(tape tapemachine.Tape) error {
	for i, sym := range tape {
		if sym != tapemachine.Zero && sym != tapemachine.One {
			return fmt.Errorf("tape cell %d holds non-binary symbol %d", i, sym)
		}
	}
	return nil
}

// Unreachable returns, in ascending order, the states no transition path from start can reach.
// Out-of-range targets are ignored; use Validate to reject them.
func Unreachable(table tapemachine.Table, start tapemachine.StateID) []tapemachine.StateID {
	visited := make([]bool, len(table))
	markReachable(table, start, visited)

	var out []tapemachine.StateID
	for sid, ok := range visited {
		if !ok {
			out = append(out, tapemachine.StateID(sid))
		}
	}
	return out
}

// markReachable walks transition targets depth-first.
func markReachable(table tapemachine.Table, s tapemachine.StateID, visited []bool) {
	if s < 0 || int(s) >= len(table) || visited[s] {
		return
	}
	visited[s] = true
	markReachable(table, table[s].OnZero.Next, visited)
	markReachable(table, table[s].OnOne.Next, visited)
}
