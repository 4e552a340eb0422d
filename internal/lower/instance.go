package lower

import (
	"fmt"

	"github.com/ericleaf/circt/internal/firrtl"
	"github.com/ericleaf/circt/internal/handshake"
)

// instantiate creates an instance of sub in the top module and wires it:
// operand ports receive the operator's operand values, result ports become
// the binding of the operator's results, and trailing ports connect to the
// clock and reset of the selected clock domain. The input operator is
// erased afterwards.
func (l *lowering) instantiate(n *handshake.Node, sub *firrtl.Module, clockDomain int) {
	b := firrtl.NewBuilder(l.top)

	// The caller's view is the dual of the callee's: every port direction
	// is flipped in the instance bundle.
	fields := make([]firrtl.BundleField, len(sub.Ports))
	for i, port := range sub.Ports {
		fields[i] = firrtl.BundleField{Name: port.Name, Flip: true, Type: port.Type}
	}
	instType := firrtl.BundleType{Fields: fields}
	inst := b.Instance(l.instanceName(sub.Name), sub, instType)

	numIns := len(n.Operands)
	numArgs := numIns + len(n.Results)
	firstClock := len(l.fn.Params) + len(l.fn.Results)

	for i, field := range instType.Fields {
		subfield := firrtl.FieldOf(inst, field.Name)
		switch {
		case i < numIns:
			// A cyclic graph may feed this port from an operator that is
			// lowered later; defer the connect until its binding exists.
			if src := l.binding[n.Operands[i]]; src != nil {
				b.Connect(subfield, src)
			} else {
				l.pending = append(l.pending, pendingConnect{dest: subfield, src: n.Operands[i], pos: n.Source})
			}
		case i < numArgs:
			l.binding[n.Results[i-numIns]] = subfield
		default:
			signal := l.top.PortExpr(firstClock + 2*clockDomain + i - numArgs)
			b.Connect(subfield, signal)
		}
	}

	l.fn.EraseNode(n)
}

func (l *lowering) instanceName(subName string) string {
	idx := l.instanceIdx[subName]
	l.instanceIdx[subName]++
	return fmt.Sprintf("%s_%d", subName, idx)
}
