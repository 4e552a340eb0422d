package passes

import (
	"fmt"

	"github.com/ericleaf/circt/internal/diag"
	"github.com/ericleaf/circt/internal/handshake"
)

// ShapeCheck verifies operand and result shapes of a dataflow graph before
// lowering: operand type agreement on binary operators, control typing on
// joins, select coverage on muxes, and region structure on pipelines.
type ShapeCheck struct {
	reporter *diag.Reporter
}

// NewShapeCheck constructs the pass. reporter is optional but recommended so
// the pass can surface precise diagnostics.
func NewShapeCheck(reporter *diag.Reporter) *ShapeCheck {
	return &ShapeCheck{reporter: reporter}
}

// Name implements the Pass interface.
func (s *ShapeCheck) Name() string {
	return "shape-check"
}

// Run executes the pass over the entire design.
func (s *ShapeCheck) Run(design *handshake.Design) error {
	if design == nil {
		return fmt.Errorf("shape check requires a non-nil design")
	}
	for _, fn := range design.Funcs {
		s.visitFunc(fn)
	}
	if s.reporter != nil && s.reporter.HasErrors() {
		return fmt.Errorf("shape check reported errors")
	}
	return nil
}

func (s *ShapeCheck) visitFunc(fn *handshake.Func) {
	var terminator *handshake.Node
	for _, n := range fn.Body {
		switch op := n.Op.(type) {
		case *handshake.Arith:
			s.checkBinary(fn, n, op.Kind)
		case *handshake.Cmp:
			s.checkCompare(fn, n)
		case *handshake.Sink:
			s.wantShape(n, 1, 0)
		case *handshake.Join:
			s.checkJoin(fn, n)
		case *handshake.Mux:
			s.checkMux(fn, n)
		case *handshake.Merge:
			s.checkMerge(fn, n)
		case *handshake.ControlMerge:
			s.checkControlMerge(fn, n, op.Control)
		case *handshake.Branch:
			s.checkPassThrough(fn, n, 1)
		case *handshake.CondBranch:
			s.checkCondBranch(fn, n)
		case *handshake.Fork, *handshake.LazyFork:
			s.checkFork(fn, n)
		case *handshake.Constant:
			s.checkConstant(fn, n, op.Value)
		case *handshake.Buffer:
			s.checkBuffer(n, op)
		case *handshake.Return:
			terminator = n
			s.checkReturn(fn, n)
		case *handshake.Pipeline:
			s.checkPipeline(fn, n, op)
		}
	}
	if terminator == nil {
		s.reportf(diag.Pos{}, "function %s has no return terminator", fn.Name)
	} else if len(fn.Body) > 0 && fn.Body[len(fn.Body)-1] != terminator {
		s.report(terminator.Source, "return must terminate the function body")
	}
}

func (s *ShapeCheck) checkBinary(fn *handshake.Func, n *handshake.Node, kind handshake.ArithKind) {
	if !s.wantShape(n, 2, 1) {
		return
	}
	left := fn.ValueType(n.Operands[0])
	right := fn.ValueType(n.Operands[1])
	result := fn.ValueType(n.Results[0])
	if handshake.IsControl(left) || handshake.IsControl(right) {
		s.report(n.Source, "binary operator requires data-carrying operands")
		return
	}
	requiresMatch := kind != handshake.Shl && kind != handshake.ShrS
	if requiresMatch && left != right {
		s.reportf(n.Source, "mixed operand types (%s vs %s); operands must agree", left, right)
	}
	if result != left {
		s.reportf(n.Source, "result type %s differs from operand type %s", result, left)
	}
}

func (s *ShapeCheck) checkCompare(fn *handshake.Func, n *handshake.Node) {
	if !s.wantShape(n, 2, 1) {
		return
	}
	left := fn.ValueType(n.Operands[0])
	right := fn.ValueType(n.Operands[1])
	if left != right {
		s.reportf(n.Source, "compare operands %s vs %s have mismatched types", left, right)
	}
	if w, ok := handshake.Width(fn.ValueType(n.Results[0])); !ok || w != 1 {
		s.report(n.Source, "compare result must be a 1-bit integer")
	}
}

func (s *ShapeCheck) checkJoin(fn *handshake.Func, n *handshake.Node) {
	if len(n.Operands) < 2 {
		s.report(n.Source, "join requires at least two inputs")
	}
	for _, v := range n.Operands {
		if !handshake.IsControl(fn.ValueType(v)) {
			s.report(n.Source, "join inputs must be control-only")
			break
		}
	}
}

func (s *ShapeCheck) checkMux(fn *handshake.Func, n *handshake.Node) {
	if len(n.Operands) < 2 || len(n.Results) != 1 {
		s.report(n.Source, "mux requires a select input and at least one data input")
		return
	}
	sel := fn.ValueType(n.Operands[0])
	if handshake.IsControl(sel) {
		s.report(n.Source, "mux select must carry data")
		return
	}
	inputs := n.Operands[1:]
	first := fn.ValueType(inputs[0])
	for _, v := range inputs[1:] {
		if fn.ValueType(v) != first {
			s.reportf(n.Source, "mux inputs have mismatched types (%s vs %s)", first, fn.ValueType(v))
			break
		}
	}
	if fn.ValueType(n.Results[0]) != first {
		s.report(n.Source, "mux result type differs from its inputs")
	}
	if w, ok := handshake.Width(sel); ok && w > 0 && w < 63 && len(inputs) > 1<<uint(w) {
		s.reportf(n.Source, "select of width %d cannot address %d inputs", w, len(inputs))
	}
}

func (s *ShapeCheck) checkMerge(fn *handshake.Func, n *handshake.Node) {
	if len(n.Operands) < 1 || len(n.Results) != 1 {
		s.report(n.Source, "merge requires at least one input and one output")
		return
	}
	first := fn.ValueType(n.Operands[0])
	for _, v := range n.Operands[1:] {
		if fn.ValueType(v) != first {
			s.report(n.Source, "merge inputs have mismatched types")
			break
		}
	}
	if fn.ValueType(n.Results[0]) != first {
		s.report(n.Source, "merge result type differs from its inputs")
	}
}

func (s *ShapeCheck) checkControlMerge(fn *handshake.Func, n *handshake.Node, control bool) {
	if len(n.Operands) < 1 || len(n.Results) != 2 {
		s.report(n.Source, "control merge requires inputs and exactly two outputs")
		return
	}
	if _, ok := fn.ValueType(n.Results[1]).(handshake.IndexType); !ok {
		s.report(n.Source, "control merge index output must be index-typed")
	}
	if !control {
		for _, v := range n.Operands {
			if handshake.IsControl(fn.ValueType(v)) {
				s.report(n.Source, "data control merge requires data-carrying inputs")
				break
			}
		}
	}
}

func (s *ShapeCheck) checkPassThrough(fn *handshake.Func, n *handshake.Node, results int) {
	if !s.wantShape(n, 1, results) {
		return
	}
	in := fn.ValueType(n.Operands[0])
	for _, r := range n.Results {
		if fn.ValueType(r) != in {
			s.report(n.Source, "output type differs from input type")
			return
		}
	}
}

func (s *ShapeCheck) checkCondBranch(fn *handshake.Func, n *handshake.Node) {
	if !s.wantShape(n, 2, 2) {
		return
	}
	if w, ok := handshake.Width(fn.ValueType(n.Operands[0])); !ok || w != 1 {
		s.report(n.Source, "conditional branch control must be a 1-bit integer")
	}
	in := fn.ValueType(n.Operands[1])
	for _, r := range n.Results {
		if fn.ValueType(r) != in {
			s.report(n.Source, "output type differs from input type")
			return
		}
	}
}

func (s *ShapeCheck) checkFork(fn *handshake.Func, n *handshake.Node) {
	if len(n.Operands) != 1 || len(n.Results) < 1 {
		s.report(n.Source, "fork requires one input and at least one output")
		return
	}
	in := fn.ValueType(n.Operands[0])
	for _, r := range n.Results {
		if fn.ValueType(r) != in {
			s.report(n.Source, "fork output type differs from input type")
			return
		}
	}
}

func (s *ShapeCheck) checkConstant(fn *handshake.Func, n *handshake.Node, value uint64) {
	if !s.wantShape(n, 1, 1) {
		return
	}
	if !handshake.IsControl(fn.ValueType(n.Operands[0])) {
		s.report(n.Source, "constant trigger must be control-only")
	}
	result := fn.ValueType(n.Results[0])
	w, ok := handshake.Width(result)
	if !ok {
		s.report(n.Source, "constant result must be an integer")
		return
	}
	if w > 0 && w < 64 && value >= 1<<uint(w) {
		s.reportf(n.Source, "constant value %d does not fit in %d bits", value, w)
	}
}

func (s *ShapeCheck) checkBuffer(n *handshake.Node, op *handshake.Buffer) {
	if op.Slots < 1 {
		s.reportf(n.Source, "buffer requires at least one slot, got %d", op.Slots)
	}
}

func (s *ShapeCheck) checkReturn(fn *handshake.Func, n *handshake.Node) {
	if len(n.Operands) != len(fn.Results) {
		s.reportf(n.Source, "return has %d operands but the function declares %d results",
			len(n.Operands), len(fn.Results))
		return
	}
	for i, v := range n.Operands {
		if fn.ValueType(v) != fn.Results[i] {
			s.reportf(n.Source, "return operand %d has type %s, function declares %s",
				i, fn.ValueType(v), fn.Results[i])
		}
	}
}

func (s *ShapeCheck) checkPipeline(fn *handshake.Func, n *handshake.Node, op *handshake.Pipeline) {
	if op.Region == nil || len(op.Region.Blocks) < 2 {
		s.report(n.Source, "pipeline requires at least one stage block and a return block")
		return
	}
	entry := op.Region.Blocks[0]
	if len(entry.Args) != len(n.Operands) {
		s.reportf(n.Source, "pipeline entry declares %d arguments for %d operands",
			len(entry.Args), len(n.Operands))
	} else {
		for i, arg := range entry.Args {
			if fn.ValueType(arg) != fn.ValueType(n.Operands[i]) {
				s.reportf(n.Source, "pipeline entry argument %d type differs from its operand", i)
			}
		}
	}
	for _, block := range op.Region.Blocks[1:] {
		if len(block.Args) != 0 {
			s.report(n.Source, "only the pipeline entry block may declare arguments")
			break
		}
	}
	last := op.Region.Blocks[len(op.Region.Blocks)-1]
	term := last.Terminator()
	if term == nil {
		s.report(n.Source, "pipeline region lacks a return terminator")
		return
	}
	if len(term.Operands) != len(n.Results) {
		s.reportf(term.Source, "pipeline return has %d operands for %d results",
			len(term.Operands), len(n.Results))
		return
	}
	for i, v := range term.Operands {
		if fn.ValueType(v) != fn.ValueType(n.Results[i]) {
			s.reportf(term.Source, "pipeline return operand %d type differs from the pipeline result", i)
		}
	}
}

func (s *ShapeCheck) wantShape(n *handshake.Node, operands, results int) bool {
	if len(n.Operands) != operands || len(n.Results) != results {
		s.reportf(n.Source, "%s expects %d operands and %d results, got %d and %d",
			n.Op.OpName(), operands, results, len(n.Operands), len(n.Results))
		return false
	}
	return true
}

func (s *ShapeCheck) report(pos diag.Pos, msg string) {
	if s.reporter == nil {
		return
	}
	s.reporter.Error(pos, msg)
}

func (s *ShapeCheck) reportf(pos diag.Pos, format string, args ...interface{}) {
	s.report(pos, fmt.Sprintf(format, args...))
}
