package production

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/comalice/tapemachine"
)

// DefaultVisualizer renders transition tables.
type DefaultVisualizer struct{}

// ExportDOT generates Graphviz DOT source for the table.
// names optionally labels states by StateID; current is highlighted when in range.
func (v *DefaultVisualizer) ExportDOT(table tapemachine.Table, names []string, current tapemachine.StateID) string {
	var buf bytes.Buffer
	buf.WriteString(`digraph TransitionTable {
  rankdir=LR;
  node [shape=circle, fontsize=10];
  edge [fontsize=9];
`)

	for sid := range table {
		id := tapemachine.StateID(sid)
		label := stateLabel(names, id)
		style := ""
		if id == current {
			style = ` style=filled fillcolor=lightgreen`
		}
		if isHalting(table[sid], id) {
			style += ` shape=doublecircle`
		}
		buf.WriteString(fmt.Sprintf("  \"%d\" [label=\"%s\"%s];\n", sid, label, style))
	}

	for _, edge := range collectEdges(table) {
		buf.WriteString(fmt.Sprintf("  \"%d\" -> \"%d\" [label=\"%s\"];\n", edge.From, edge.To, edge.Label))
	}

	buf.WriteString("}\n")
	return buf.String()
}

// ExportJSON serializes the table to JSON.
func (v *DefaultVisualizer) ExportJSON(table tapemachine.Table) ([]byte, error) {
	return json.MarshalIndent(table, "", "  ")
}

// Edge represents one branch of a transition.
type Edge struct {
	From  tapemachine.StateID
	To    tapemachine.StateID
	Label string
}

// collectEdges returns two edges per state, 0-branch first.
func collectEdges(table tapemachine.Table) []Edge {
	edges := make([]Edge, 0, 2*len(table))
	for sid, tr := range table {
		for read, act := range []tapemachine.Action{tr.OnZero, tr.OnOne} {
			edges = append(edges, Edge{
				From:  tapemachine.StateID(sid),
				To:    act.Next,
				Label: edgeLabel(read, act),
			})
		}
	}
	return edges
}

// edgeLabel formats read/write,move with "-" for absent fields, e.g. "0/1,R" or "1/-,-".
func edgeLabel(read int, act tapemachine.Action) string {
	write, move := "-", "-"
	if w, ok := act.Write.Get(); ok {
		write = strconv.Itoa(int(w))
	}
	if m, ok := act.Move.Get(); ok {
		move = m.String()
	}
	return fmt.Sprintf("%d/%s,%s", read, write, move)
}

// dotEscaper quotes text for a double-quoted DOT attribute.
var dotEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", "")

func stateLabel(names []string, id tapemachine.StateID) string {
	if int(id) < len(names) && names[id] != "" {
		return fmt.Sprintf("%d: %s", id, dotEscaper.Replace(names[id]))
	}
	return strconv.Itoa(int(id))
}

// isHalting reports whether either branch of tr is the canonical halt for id.
func isHalting(tr tapemachine.Transition, id tapemachine.StateID) bool {
	halt := tapemachine.Halt(id)
	return tr.OnZero == halt || tr.OnOne == halt
}
