package lower

import (
	"github.com/ericleaf/circt/internal/firrtl"
	"github.com/ericleaf/circt/internal/handshake"
)

// buildLogic fills the sub-module body with the combinational logic
// realizing the operator's handshake semantics. ports is the subfield list
// of extractSubfields, aligned with the module's port order.
func (l *lowering) buildLogic(n *handshake.Node, m *firrtl.Module, ports [][]firrtl.Expr) bool {
	b := firrtl.NewBuilder(m)

	switch op := n.Op.(type) {
	case *handshake.Arith:
		buildBinaryLogic(b, ports, arithPrim(op.Kind))
	case *handshake.Cmp:
		buildBinaryLogic(b, ports, cmpPrim(op.Pred))
	case *handshake.Sink:
		buildSinkLogic(b, ports)
	case *handshake.Join:
		buildJoinLogic(b, ports)
	case *handshake.Mux:
		buildMuxLogic(b, ports)
	case *handshake.Merge:
		buildMergeLogic(b, ports)
	case *handshake.ControlMerge:
		buildControlMergeLogic(b, ports, op.Control)
	case *handshake.Branch:
		buildBranchLogic(b, ports, op.Control)
	case *handshake.CondBranch:
		buildConditionalBranchLogic(b, ports, op.Control)
	case *handshake.Fork:
		// Fork is built as a lazy fork for now. An eager fork is a timing
		// component with a register tracking which outputs have accepted
		// the token.
		buildForkLogic(b, ports, op.Control)
	case *handshake.LazyFork:
		buildForkLogic(b, ports, op.Control)
	case *handshake.Constant:
		buildConstantLogic(b, ports, op.Value)
	case *handshake.Buffer:
		buildBufferLogic(b, ports)
	default:
		l.reporter.Error(n.Source, "Unsupported operation type.")
		return false
	}
	return true
}

func arithPrim(kind handshake.ArithKind) firrtl.PrimKind {
	switch kind {
	case handshake.Add:
		return firrtl.PrimAdd
	case handshake.Sub:
		return firrtl.PrimSub
	case handshake.Mul:
		return firrtl.PrimMul
	case handshake.And:
		return firrtl.PrimAnd
	case handshake.Or:
		return firrtl.PrimOr
	case handshake.Xor:
		return firrtl.PrimXor
	case handshake.Shl:
		return firrtl.PrimDshl
	case handshake.ShrS:
		return firrtl.PrimDshr
	default:
		return firrtl.PrimAdd
	}
}

func cmpPrim(pred handshake.Predicate) firrtl.PrimKind {
	switch pred {
	case handshake.CmpEQ:
		return firrtl.PrimEq
	case handshake.CmpNE:
		return firrtl.PrimNeq
	case handshake.CmpSLT:
		return firrtl.PrimLt
	case handshake.CmpSLE:
		return firrtl.PrimLeq
	case handshake.CmpSGT:
		return firrtl.PrimGt
	case handshake.CmpSGE:
		return firrtl.PrimGeq
	default:
		return firrtl.PrimEq
	}
}

// buildBinaryLogic realizes two-operand operators. An operand is consumed
// only when both operands are valid and the result is downstream-ready.
func buildBinaryLogic(b *firrtl.Builder, ports [][]firrtl.Expr, kind firrtl.PrimKind) {
	arg0, arg1, result := ports[0], ports[1], ports[2]
	arg0Valid, arg0Ready, arg0Data := arg0[0], arg0[1], arg0[2]
	arg1Valid, arg1Ready, arg1Data := arg1[0], arg1[1], arg1[2]
	resultValid, resultReady, resultData := result[0], result[1], result[2]

	b.Connect(resultData, firrtl.Binary(kind, arg0Data, arg1Data))

	validOp := firrtl.And(arg0Valid, arg1Valid)
	b.Connect(resultValid, validOp)

	readyOp := firrtl.And(resultReady, validOp)
	b.Connect(arg0Ready, readyOp)
	b.Connect(arg1Ready, readyOp)
}

// buildSinkLogic drops every token: a sink is always ready. The valid and
// data subfields have no reader.
func buildSinkLogic(b *firrtl.Builder, ports [][]firrtl.Expr) {
	argReady := ports[0][1]
	b.Connect(argReady, firrtl.UIntConst(1, 1))
}

// buildJoinLogic synchronizes control inputs: the output fires only after
// all inputs are valid.
func buildJoinLogic(b *firrtl.Builder, ports [][]firrtl.Expr) {
	result := ports[len(ports)-1]
	resultValid, resultReady := result[0], result[1]

	validOp := ports[0][0]
	for i := 1; i < len(ports)-1; i++ {
		validOp = firrtl.And(ports[i][0], validOp)
	}
	b.Connect(resultValid, validOp)

	readyOp := firrtl.And(resultReady, validOp)
	for i := 0; i < len(ports)-1; i++ {
		b.Connect(ports[i][1], readyOp)
	}
}

// buildMuxLogic selects among data inputs by the select input's value,
// through a priority chain of equality comparisons gated on select.valid.
// The final branch has no else.
func buildMuxLogic(b *firrtl.Builder, ports [][]firrtl.Expr) {
	sel := ports[0]
	selValid, selReady, selData := sel[0], sel[1], sel[2]
	selType := selData.ExprType()

	result := ports[len(ports)-1]
	resultValid, resultReady, resultData := result[0], result[1], result[2]

	inputs := ports[1 : len(ports)-1]

	b.When(selValid, func() {
		var chain func(i int)
		chain = func(i int) {
			arg := inputs[i]
			argValid, argReady, argData := arg[0], arg[1], arg[2]
			condOp := firrtl.Eq(selData, firrtl.Const(selType, uint64(i)))

			branch := func() {
				b.Connect(resultValid, argValid)
				b.Connect(resultData, argData)
				b.Connect(argReady, resultReady)
				// The select is consumed once data passed from input to
				// output.
				b.Connect(selReady, firrtl.And(argValid, resultReady))
			}
			if i == len(inputs)-1 {
				b.When(condOp, branch)
				return
			}
			b.WhenElse(condOp, branch, func() { chain(i + 1) })
		}
		chain(0)
	})
}

// buildMergeLogic forwards the first valid input. At most one input is
// assumed valid at a time; ties go to the lowest index.
func buildMergeLogic(b *firrtl.Builder, ports [][]firrtl.Expr) {
	result := ports[len(ports)-1]
	resultValid, resultReady := result[0], result[1]

	var chain func(i int)
	chain = func(i int) {
		arg := ports[i]
		argValid, argReady := arg[0], arg[1]

		branch := func() {
			if len(arg) > 2 && len(result) > 2 {
				b.Connect(result[2], arg[2])
			}
			b.Connect(resultValid, argValid)
			b.Connect(argReady, resultReady)
		}
		if i == len(ports)-2 {
			b.When(argValid, branch)
			return
		}
		b.WhenElse(argValid, branch, func() { chain(i + 1) })
	}
	chain(0)
}

// buildControlMergeLogic forwards the first valid input and reports its
// index on the second output. Both outputs must be ready before the input
// is consumed.
func buildControlMergeLogic(b *firrtl.Builder, ports [][]firrtl.Expr, isControl bool) {
	numPorts := len(ports)
	result := ports[numPorts-2]
	resultValid, resultReady := result[0], result[1]

	control := ports[numPorts-1]
	controlValid, controlReady, controlData := control[0], control[1], control[2]
	controlType := controlData.ExprType()

	readyOp := firrtl.And(resultReady, controlReady)

	var chain func(i int)
	chain = func(i int) {
		arg := ports[i]
		argValid, argReady := arg[0], arg[1]

		branch := func() {
			b.Connect(controlData, firrtl.Const(controlType, uint64(i)))
			b.Connect(controlValid, argValid)
			b.Connect(resultValid, argValid)
			b.Connect(argReady, readyOp)
			if !isControl {
				b.Connect(result[2], arg[2])
			}
		}
		if i == numPorts-3 {
			b.When(argValid, branch)
			return
		}
		b.WhenElse(argValid, branch, func() { chain(i + 1) })
	}
	chain(0)
}

// buildBranchLogic passes the input through unchanged.
func buildBranchLogic(b *firrtl.Builder, ports [][]firrtl.Expr, isControl bool) {
	arg, result := ports[0], ports[1]
	argValid, argReady := arg[0], arg[1]
	resultValid, resultReady := result[0], result[1]

	b.Connect(resultValid, argValid)
	b.Connect(argReady, resultReady)

	if !isControl {
		b.Connect(result[2], arg[2])
	}
}

// buildConditionalBranchLogic steers the input to the first output when the
// control token carries true and to the second otherwise.
func buildConditionalBranchLogic(b *firrtl.Builder, ports [][]firrtl.Expr, isControl bool) {
	control, arg, result0, result1 := ports[0], ports[1], ports[2], ports[3]
	controlValid, controlReady, controlData := control[0], control[1], control[2]
	argValid, argReady := arg[0], arg[1]

	b.When(controlValid, func() {
		b.WhenElse(controlData, func() {
			b.Connect(result0[0], argValid)
			b.Connect(argReady, result0[1])
			if !isControl {
				b.Connect(result0[2], arg[2])
			}
			b.Connect(controlReady, firrtl.And(argValid, result0[1]))
		}, func() {
			b.Connect(result1[0], argValid)
			b.Connect(argReady, result1[1])
			if !isControl {
				b.Connect(result1[2], arg[2])
			}
			b.Connect(controlReady, firrtl.And(argValid, result1[1]))
		})
	})
}

// buildForkLogic replicates the input token. The input is consumed, and the
// outputs fire together, only when every output is ready.
func buildForkLogic(b *firrtl.Builder, ports [][]firrtl.Expr, isControl bool) {
	arg := ports[0]
	argValid, argReady := arg[0], arg[1]

	readyOp := ports[1][1]
	for i := 2; i < len(ports); i++ {
		readyOp = firrtl.And(ports[i][1], readyOp)
	}
	b.Connect(argReady, readyOp)

	validOp := firrtl.And(argValid, readyOp)
	for i := 1; i < len(ports); i++ {
		result := ports[i]
		b.Connect(result[0], validOp)
		if !isControl {
			b.Connect(result[2], arg[2])
		}
	}
}

// buildConstantLogic emits the fixed value each time the control input
// fires.
func buildConstantLogic(b *firrtl.Builder, ports [][]firrtl.Expr, value uint64) {
	control := ports[0]
	controlValid, controlReady := control[0], control[1]

	result := ports[1]
	resultValid, resultReady, resultData := result[0], result[1], result[2]

	b.Connect(resultValid, controlValid)
	b.Connect(controlReady, resultReady)
	b.Connect(resultData, firrtl.Const(resultData.ExprType(), value))
}

// buildBufferLogic emits no logic. The buffer sub-module carries the
// handshake ports plus clock and reset; no internal register chain is built
// and the ports are left undriven.
func buildBufferLogic(b *firrtl.Builder, ports [][]firrtl.Expr) {
}
