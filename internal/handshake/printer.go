package handshake

import (
	"fmt"
	"io"
	"strings"
)

// Dump writes a simple human-readable representation of the design.
func Dump(design *Design, w io.Writer) {
	if design == nil {
		fmt.Fprintln(w, "<nil design>")
		return
	}
	for _, fn := range design.Funcs {
		DumpFunc(fn, w)
		fmt.Fprintln(w)
	}
}

// DumpFunc writes one function.
func DumpFunc(fn *Func, w io.Writer) {
	fmt.Fprintf(w, "func %s(%s) -> (%s)\n", fn.Name, typeList(fn.Params), typeList(fn.Results))
	for _, n := range fn.Body {
		dumpNode(fn, n, w, "  ")
	}
}

func dumpNode(fn *Func, n *Node, w io.Writer, indent string) {
	fmt.Fprintf(w, "%s%s\n", indent, renderNode(fn, n))
	if pipe, ok := n.Op.(*Pipeline); ok {
		for idx, block := range pipe.Region.Blocks {
			fmt.Fprintf(w, "%s  block %d (%s)\n", indent, idx, valueList(block.Args))
			for _, inner := range block.Nodes {
				dumpNode(fn, inner, w, indent+"    ")
			}
		}
	}
}

func renderNode(fn *Func, n *Node) string {
	var b strings.Builder
	if len(n.Results) > 0 {
		b.WriteString(valueList(n.Results))
		b.WriteString(" = ")
	}
	b.WriteString(n.Op.OpName())
	switch op := n.Op.(type) {
	case *Cmp:
		fmt.Fprintf(&b, " %s", op.Pred)
	case *Constant:
		fmt.Fprintf(&b, " %d", op.Value)
	case *Buffer:
		fmt.Fprintf(&b, " %dslots", op.Slots)
		if op.Sequential {
			b.WriteString(" seq")
		}
	}
	if len(n.Operands) > 0 {
		fmt.Fprintf(&b, " (%s)", valueList(n.Operands))
	}
	if len(n.Results) > 0 {
		types := make([]string, len(n.Results))
		for i, v := range n.Results {
			types[i] = fn.ValueType(v).String()
		}
		fmt.Fprintf(&b, " : %s", strings.Join(types, ", "))
	}
	return b.String()
}

func typeList(types []Type) string {
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = t.String()
	}
	return strings.Join(parts, ", ")
}

func valueList(values []ValueID) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%%%d", v)
	}
	return strings.Join(parts, ", ")
}
