package lower

import (
	"fmt"

	"github.com/ericleaf/circt/internal/firrtl"
	"github.com/ericleaf/circt/internal/handshake"
)

// createSubModule builds a sub-module for one operator occurrence, with one
// bundle port per operand and result named arg0..argN-1, plus clock and
// reset when the operator is stateful. The module is inserted immediately
// before the top module in the circuit.
func (l *lowering) createSubModule(name string, n *handshake.Node, hasClock bool) (*firrtl.Module, bool) {
	m := &firrtl.Module{Name: name}

	argsIdx := 0
	for _, v := range n.Operands {
		t, ok := l.bundleOf(l.fn.ValueType(v), Forward, n.Source)
		if !ok {
			return nil, false
		}
		m.Ports = append(m.Ports, firrtl.Port{
			Name:      fmt.Sprintf("arg%d", argsIdx),
			Direction: firrtl.Input,
			Type:      t,
		})
		argsIdx++
	}
	for _, v := range n.Results {
		t, ok := l.bundleOf(l.fn.ValueType(v), Reverse, n.Source)
		if !ok {
			return nil, false
		}
		m.Ports = append(m.Ports, firrtl.Port{
			Name:      fmt.Sprintf("arg%d", argsIdx),
			Direction: firrtl.Output,
			Type:      t,
		})
		argsIdx++
	}

	if hasClock {
		m.Ports = append(m.Ports,
			firrtl.Port{Name: "clock", Direction: firrtl.Input, Type: firrtl.ClockType{}},
			firrtl.Port{Name: "reset", Direction: firrtl.Input, Type: firrtl.UIntType{Width: 1}},
		)
	}

	l.circuit.InsertBeforeTop(m)
	return m, true
}

// extractSubfields produces the per-port wire handles the logic builders
// read and connect. Bundle ports yield [valid, ready, data?] in field order;
// clock and 1-bit scalar ports yield the port itself.
func extractSubfields(m *firrtl.Module) [][]firrtl.Expr {
	portList := make([][]firrtl.Expr, 0, len(m.Ports))
	for i, port := range m.Ports {
		ref := m.PortExpr(i)
		if bundle, ok := port.Type.(firrtl.BundleType); ok {
			subfields := make([]firrtl.Expr, 0, len(bundle.Fields))
			for _, field := range bundle.Fields {
				subfields = append(subfields, &firrtl.Subfield{
					Of:   ref,
					Name: field.Name,
					Type: field.Type,
					Flip: field.Flip,
				})
			}
			portList = append(portList, subfields)
			continue
		}
		portList = append(portList, []firrtl.Expr{ref})
	}
	return portList
}
