package lower

import (
	"fmt"

	"github.com/ericleaf/circt/internal/firrtl"
	"github.com/ericleaf/circt/internal/handshake"
)

type stageRegs struct {
	valid *firrtl.RegInitDecl
	ready *firrtl.WireDecl
	pairs []dataRegPair
}

type dataRegPair struct {
	value handshake.ValueID
	reg   *firrtl.RegDecl
}

// convertPipeline lowers a statically scheduled pipeline region into its own
// stateful sub-module: one valid register and ready wire per stage, one data
// register per cross-stage value, and flushable backpressure control.
// Pipeline sub-modules are never deduplicated; each gets a unique index.
func (l *lowering) convertPipeline(n *handshake.Node) {
	op := n.Op.(*handshake.Pipeline)
	name := fmt.Sprintf("%s_%d", n.Op.OpName(), l.pipelineIdx)
	l.pipelineIdx++

	sub, created := l.createSubModule(name, n, true)
	if !created {
		return
	}
	ports := extractSubfields(sub)
	b := firrtl.NewBuilder(sub)

	numIns := len(n.Operands)
	numOuts := len(n.Results)
	clock := ports[numIns+numOuts][0]
	reset := ports[numIns+numOuts+1][0]

	signalType := firrtl.UIntType{Width: 1}
	zeroConst := firrtl.UIntConst(1, 0)
	oneConst := firrtl.UIntConst(1, 1)

	// Wire the entry-block arguments to the data subfields of the input
	// bundles.
	bind := make(map[handshake.ValueID]firrtl.Expr)
	region := op.Region
	if len(region.Blocks) == 0 {
		l.reporter.Error(n.Source, "pipeline has an empty region")
		return
	}
	entry := region.Blocks[0]
	for i, arg := range entry.Args {
		if i < len(ports) && len(ports[i]) > 2 {
			bind[arg] = ports[i][2]
		}
	}

	// Insert valid registers, ready wires and stage data registers for each
	// stage block. Ready signals stay wires so backpressure is conducted
	// combinationally.
	var stages []stageRegs
	dataRegFor := make(map[handshake.ValueID]*firrtl.RegDecl)
	for _, block := range region.Blocks {
		if block.Terminator() != nil {
			continue
		}
		stageIdx := len(stages)

		validReg := b.RegInit(fmt.Sprintf("valid%d", stageIdx), signalType, clock, reset, zeroConst)
		readyWire := b.Wire(fmt.Sprintf("ready%d", stageIdx), signalType)

		outs := stageOutputs(l.fn, block)
		stage := stageRegs{valid: validReg, ready: readyWire}
		for k, v := range outs {
			dataType, ok := dataTypeOf(l.fn.ValueType(v), l.opts.IndexWidth)
			if !ok || dataType == nil {
				l.reporter.Error(n.Source, "pipeline stage value has no data type")
				continue
			}
			reg := b.Reg(fmt.Sprintf("data%d.%d", stageIdx, k), dataType, clock)
			dataRegFor[v] = reg
			stage.pairs = append(stage.pairs, dataRegPair{value: v, reg: reg})
		}
		stages = append(stages, stage)
	}

	// Lower the data path: rewrite stage operations into their hardware
	// primitive counterparts. Cross-block operands read the stage register
	// instead of the producing expression.
	exprFor := func(v handshake.ValueID, cur *handshake.Block) firrtl.Expr {
		if reg, ok := dataRegFor[v]; ok && l.fn.DefBlock(v) != cur {
			return reg
		}
		return bind[v]
	}
	for _, block := range region.Blocks {
		for _, inner := range block.Nodes {
			switch innerOp := inner.Op.(type) {
			case *handshake.Arith:
				x := exprFor(inner.Operands[0], block)
				y := exprFor(inner.Operands[1], block)
				bind[inner.Results[0]] = firrtl.Binary(arithPrim(innerOp.Kind), x, y)
			case *handshake.Cmp:
				x := exprFor(inner.Operands[0], block)
				y := exprFor(inner.Operands[1], block)
				bind[inner.Results[0]] = firrtl.Binary(cmpPrim(innerOp.Pred), x, y)
			case *handshake.Return:
				// Handled below once the control structure exists.
			default:
				l.reporter.Error(inner.Source, "Unsupported operation type.")
			}
		}
	}

	// Build the flushable control structure.
	validIn := b.Wire("valid_in", signalType)
	readyIn := b.Wire("ready_in", signalType)

	for i, stage := range stages {
		var validPrev firrtl.Expr = validIn
		if i > 0 {
			validPrev = stages[i-1].valid
		}
		var readyNext firrtl.Expr = readyIn
		if i < len(stages)-1 {
			readyNext = stages[i+1].ready
		}
		pairs := stage.pairs
		valid := stage.valid
		ready := stage.ready

		b.WhenElse(valid, func() {
			// Stage occupied: data advances only under demand, a bubble
			// forms when upstream is idle, and backpressure propagates.
			dataWillUpdate := firrtl.And(readyNext, validPrev)
			b.When(dataWillUpdate, func() {
				for _, pair := range pairs {
					if src := bind[pair.value]; src != nil {
						b.Connect(pair.reg, src)
					}
				}
			})
			validWillUpdate := firrtl.And(readyNext, firrtl.Not(validPrev))
			b.When(validWillUpdate, func() {
				b.Connect(valid, zeroConst)
			})
			b.Connect(ready, readyNext)
		}, func() {
			// Stage holds a bubble: accept unconditionally.
			for _, pair := range pairs {
				if src := bind[pair.value]; src != nil {
					b.Connect(pair.reg, src)
				}
			}
			b.Connect(valid, validPrev)
			b.Connect(ready, oneConst)
		})
	}

	// Wire the pipeline return operands to the data subfields of the output
	// bundles.
	last := region.Blocks[len(region.Blocks)-1]
	if term := last.Terminator(); term != nil {
		for k, v := range term.Operands {
			if numIns+k < len(ports) && len(ports[numIns+k]) > 2 {
				if src := exprFor(v, last); src != nil {
					b.Connect(ports[numIns+k][2], src)
				}
			}
		}
	} else {
		l.reporter.Error(n.Source, "pipeline region lacks a return terminator")
	}

	l.instantiate(n, sub, 0)
}

// stageOutputs collects the values defined in block, as block arguments or
// node results, that are used by some other block, in definition order.
func stageOutputs(fn *handshake.Func, block *handshake.Block) []handshake.ValueID {
	var outs []handshake.ValueID
	seen := make(map[handshake.ValueID]bool)

	usedOutside := func(v handshake.ValueID) bool {
		for _, use := range fn.Uses(v) {
			if useBlock(use) != block {
				return true
			}
		}
		return false
	}

	for _, arg := range block.Args {
		if usedOutside(arg) && !seen[arg] {
			seen[arg] = true
			outs = append(outs, arg)
		}
	}
	for _, n := range block.Nodes {
		for _, res := range n.Results {
			if usedOutside(res) && !seen[res] {
				seen[res] = true
				outs = append(outs, res)
			}
		}
	}
	return outs
}

func useBlock(use handshake.Use) *handshake.Block {
	return use.Node.BlockOf()
}
