package lower

import (
	"fmt"

	"github.com/ericleaf/circt/internal/handshake"
)

// SubModuleName returns the structural signature of an operator occurrence.
// The signature uniquely determines the sub-module's port shape and internal
// logic; occurrences with equal signatures share one sub-module. The grammar
// is stable and external tooling may depend on it:
//
//	signature := opcode "_" N "ins_" M "outs" predicate? buffer? ctrl?
//	predicate := "_" ("eq"|"ne"|"slt"|"sle"|"sgt"|"sge")
//	buffer    := "_" S "slots" ("_seq")?
//	ctrl      := "_ctrl"
func SubModuleName(n *handshake.Node) string {
	name := fmt.Sprintf("%s_%dins_%douts", n.Op.OpName(), len(n.Operands), len(n.Results))

	if cmp, ok := n.Op.(*handshake.Cmp); ok {
		name += "_" + cmp.Pred.String()
	}

	if buf, ok := n.Op.(*handshake.Buffer); ok {
		name += fmt.Sprintf("_%dslots", buf.Slots)
		if buf.Sequential {
			name += "_seq"
		}
	}

	if ctrl, ok := handshake.ControlAttr(n.Op); ok && ctrl {
		name += "_ctrl"
	}

	return name
}
