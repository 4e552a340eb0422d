package handshake

import "github.com/ericleaf/circt/internal/diag"

// Builder constructs dataflow functions. Result types are derived from the
// operand types following the operator semantics; the shape-check pass
// verifies the derived graph before lowering.
type Builder struct {
	fn  *Func
	pos diag.Pos
}

// NewBuilder starts a function with the given parameter and result types.
func NewBuilder(name string, params, results []Type) *Builder {
	return &Builder{fn: NewFunc(name, params, results)}
}

// Func returns the function under construction.
func (b *Builder) Func() *Func {
	return b.fn
}

// At sets the source position stamped on subsequently created nodes.
func (b *Builder) At(pos diag.Pos) *Builder {
	b.pos = pos
	return b
}

// Arg returns the i-th function entry value.
func (b *Builder) Arg(i int) ValueID {
	return b.fn.Arg(i)
}

// Arith appends a binary arithmetic node.
func (b *Builder) Arith(kind ArithKind, x, y ValueID) ValueID {
	n := b.fn.AddNode(&Arith{Kind: kind}, []ValueID{x, y}, []Type{b.fn.ValueType(x)}, b.pos)
	return n.Results[0]
}

// Cmp appends an integer comparison node with a 1-bit result.
func (b *Builder) Cmp(pred Predicate, x, y ValueID) ValueID {
	n := b.fn.AddNode(&Cmp{Pred: pred}, []ValueID{x, y}, []Type{SignlessType{Width: 1}}, b.pos)
	return n.Results[0]
}

// Sink appends a sink consuming v.
func (b *Builder) Sink(v ValueID) {
	b.fn.AddNode(&Sink{}, []ValueID{v}, nil, b.pos)
}

// Join appends a join over control inputs.
func (b *Builder) Join(inputs ...ValueID) ValueID {
	n := b.fn.AddNode(&Join{}, inputs, []Type{NoneType{}}, b.pos)
	return n.Results[0]
}

// Mux appends a mux; sel is the select input followed by the data inputs.
func (b *Builder) Mux(sel ValueID, inputs ...ValueID) ValueID {
	operands := append([]ValueID{sel}, inputs...)
	n := b.fn.AddNode(&Mux{}, operands, []Type{b.fn.ValueType(inputs[0])}, b.pos)
	return n.Results[0]
}

// Merge appends a priority merge.
func (b *Builder) Merge(inputs ...ValueID) ValueID {
	n := b.fn.AddNode(&Merge{}, inputs, []Type{b.fn.ValueType(inputs[0])}, b.pos)
	return n.Results[0]
}

// ControlMerge appends a control merge returning the forwarded token and the
// index of the selected input.
func (b *Builder) ControlMerge(control bool, inputs ...ValueID) (ValueID, ValueID) {
	types := []Type{b.fn.ValueType(inputs[0]), IndexType{}}
	n := b.fn.AddNode(&ControlMerge{Control: control}, inputs, types, b.pos)
	return n.Results[0], n.Results[1]
}

// Branch appends a pass-through branch.
func (b *Builder) Branch(control bool, v ValueID) ValueID {
	n := b.fn.AddNode(&Branch{Control: control}, []ValueID{v}, []Type{b.fn.ValueType(v)}, b.pos)
	return n.Results[0]
}

// CondBranch appends a conditional branch steering v by cond.
func (b *Builder) CondBranch(control bool, cond, v ValueID) (ValueID, ValueID) {
	t := b.fn.ValueType(v)
	n := b.fn.AddNode(&CondBranch{Control: control}, []ValueID{cond, v}, []Type{t, t}, b.pos)
	return n.Results[0], n.Results[1]
}

// Fork appends a fork replicating v to outputs copies.
func (b *Builder) Fork(control bool, v ValueID, outputs int) []ValueID {
	types := make([]Type, outputs)
	for i := range types {
		types[i] = b.fn.ValueType(v)
	}
	n := b.fn.AddNode(&Fork{Control: control}, []ValueID{v}, types, b.pos)
	return n.Results
}

// LazyFork appends a lazy fork replicating v to outputs copies.
func (b *Builder) LazyFork(control bool, v ValueID, outputs int) []ValueID {
	types := make([]Type, outputs)
	for i := range types {
		types[i] = b.fn.ValueType(v)
	}
	n := b.fn.AddNode(&LazyFork{Control: control}, []ValueID{v}, types, b.pos)
	return n.Results
}

// ConstantOp appends a constant of the given result type triggered by ctrl.
func (b *Builder) ConstantOp(ctrl ValueID, t Type, val uint64) ValueID {
	n := b.fn.AddNode(&Constant{Value: val}, []ValueID{ctrl}, []Type{t}, b.pos)
	return n.Results[0]
}

// BufferOp appends an elastic buffer on v.
func (b *Builder) BufferOp(v ValueID, slots int, sequential, control bool) ValueID {
	op := &Buffer{Slots: slots, Sequential: sequential, Control: control}
	n := b.fn.AddNode(op, []ValueID{v}, []Type{b.fn.ValueType(v)}, b.pos)
	return n.Results[0]
}

// ReturnOp appends the function terminator.
func (b *Builder) ReturnOp(results ...ValueID) {
	b.fn.AddNode(&Return{}, results, nil, b.pos)
}

// Pipeline starts a statically scheduled pipeline over the given operands.
// Stages are added through the returned builder; the pipeline node itself is
// appended immediately with results of the given types.
func (b *Builder) Pipeline(operands []ValueID, resultTypes []Type) *PipelineBuilder {
	region := &Region{}
	n := b.fn.AddNode(&Pipeline{Region: region}, operands, resultTypes, b.pos)
	return &PipelineBuilder{b: b, node: n, region: region}
}

// PipelineBuilder adds stage blocks and the return block to a pipeline
// region.
type PipelineBuilder struct {
	b      *Builder
	node   *Node
	region *Region
}

// Node returns the pipeline node.
func (p *PipelineBuilder) Node() *Node {
	return p.node
}

// Results returns the pipeline node's result values.
func (p *PipelineBuilder) Results() []ValueID {
	return p.node.Results
}

// Stage appends a stage block. The entry stage declares one argument per
// pipeline operand; later stages read cross-stage values directly.
func (p *PipelineBuilder) Stage(argTypes ...Type) *StageBuilder {
	block := p.b.fn.NewBlock(p.region, argTypes)
	return &StageBuilder{p: p, block: block}
}

// Return appends the terminator block yielding the pipeline results.
func (p *PipelineBuilder) Return(results ...ValueID) {
	block := p.b.fn.NewBlock(p.region, nil)
	p.b.fn.AddBlockNode(block, &Return{}, results, nil, p.b.pos)
}

// StageBuilder appends data-path nodes to one pipeline stage.
type StageBuilder struct {
	p     *PipelineBuilder
	block *Block
}

// Arg returns the i-th block argument of the stage.
func (s *StageBuilder) Arg(i int) ValueID {
	return s.block.Args[i]
}

// Arith appends a data-path arithmetic node to the stage.
func (s *StageBuilder) Arith(kind ArithKind, x, y ValueID) ValueID {
	fn := s.p.b.fn
	n := fn.AddBlockNode(s.block, &Arith{Kind: kind}, []ValueID{x, y}, []Type{fn.ValueType(x)}, s.p.b.pos)
	return n.Results[0]
}

// Cmp appends a data-path comparison node to the stage.
func (s *StageBuilder) Cmp(pred Predicate, x, y ValueID) ValueID {
	fn := s.p.b.fn
	n := fn.AddBlockNode(s.block, &Cmp{Pred: pred}, []ValueID{x, y}, []Type{SignlessType{Width: 1}}, s.p.b.pos)
	return n.Results[0]
}
