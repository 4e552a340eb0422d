package handshake

import (
	"fmt"

	"github.com/ericleaf/circt/internal/diag"
)

// ValueID addresses a value in its function's arena. IDs are stable for the
// lifetime of the function.
type ValueID int

// InvalidValue is the zero reference returned by failed lookups.
const InvalidValue ValueID = -1

// Use records a single consumer of a value.
type Use struct {
	Node  *Node
	Index int
}

type value struct {
	typ      Type
	def      *Node
	defBlock *Block
	uses     []Use
}

// Node is one dataflow operator occurrence.
type Node struct {
	Op       Op
	Operands []ValueID
	Results  []ValueID
	Source   diag.Pos

	block *Block
	dead  bool
}

// BlockOf returns the pipeline block containing n, or nil for nodes of the
// flat function body.
func (n *Node) BlockOf() *Block {
	return n.block
}

// Block is one block of a pipeline region.
type Block struct {
	Args  []ValueID
	Nodes []*Node
}

// Terminator returns the block's trailing return node, if any.
func (b *Block) Terminator() *Node {
	if len(b.Nodes) == 0 {
		return nil
	}
	last := b.Nodes[len(b.Nodes)-1]
	if _, ok := last.Op.(*Return); ok {
		return last
	}
	return nil
}

// Region is the body of a pipeline operator: an entry block whose arguments
// mirror the pipeline operands, followed by further stage blocks, with the
// final block terminated by a return.
type Region struct {
	Blocks []*Block
}

// Func is a dataflow function: a flat body of operator nodes over a value
// arena.
type Func struct {
	Name    string
	Params  []Type
	Results []Type
	Body    []*Node

	args   []ValueID
	values []value
}

// Design is a set of dataflow functions forming one compilation unit.
type Design struct {
	Funcs []*Func
}

// NewFunc creates an empty function with one entry value per parameter.
func NewFunc(name string, params, results []Type) *Func {
	f := &Func{Name: name, Params: params, Results: results}
	for _, t := range params {
		f.args = append(f.args, f.newValue(t))
	}
	return f
}

// Args returns the entry values corresponding to the function parameters.
func (f *Func) Args() []ValueID {
	return f.args
}

// Arg returns the i-th entry value.
func (f *Func) Arg(i int) ValueID {
	return f.args[i]
}

// ValueType returns the edge type of v.
func (f *Func) ValueType(v ValueID) Type {
	return f.values[v].typ
}

// Uses returns the current consumers of v.
func (f *Func) Uses(v ValueID) []Use {
	return f.values[v].uses
}

// Def returns the node defining v, or nil when v is a function or block
// argument.
func (f *Func) Def(v ValueID) *Node {
	return f.values[v].def
}

// DefBlock returns the pipeline block that defines v, either through a block
// argument or through a node result. It returns nil for values of the flat
// function body.
func (f *Func) DefBlock(v ValueID) *Block {
	if f.values[v].defBlock != nil {
		return f.values[v].defBlock
	}
	if def := f.values[v].def; def != nil {
		return def.block
	}
	return nil
}

func (f *Func) newValue(t Type) ValueID {
	f.values = append(f.values, value{typ: t})
	return ValueID(len(f.values) - 1)
}

// AddNode appends a node with the given operator, operands and result types
// to the function body and returns it.
func (f *Func) AddNode(op Op, operands []ValueID, resultTypes []Type, pos diag.Pos) *Node {
	n := f.makeNode(op, operands, resultTypes, pos)
	f.Body = append(f.Body, n)
	return n
}

// AddBlockNode appends a node to a pipeline block.
func (f *Func) AddBlockNode(b *Block, op Op, operands []ValueID, resultTypes []Type, pos diag.Pos) *Node {
	n := f.makeNode(op, operands, resultTypes, pos)
	n.block = b
	b.Nodes = append(b.Nodes, n)
	return n
}

// NewBlock appends a block with the given argument types to a pipeline
// region.
func (f *Func) NewBlock(r *Region, argTypes []Type) *Block {
	b := &Block{}
	for _, t := range argTypes {
		v := f.newValue(t)
		f.values[v].defBlock = b
		b.Args = append(b.Args, v)
	}
	r.Blocks = append(r.Blocks, b)
	return b
}

func (f *Func) makeNode(op Op, operands []ValueID, resultTypes []Type, pos diag.Pos) *Node {
	n := &Node{Op: op, Source: pos}
	n.Operands = append(n.Operands, operands...)
	for i, v := range n.Operands {
		f.values[v].uses = append(f.values[v].uses, Use{Node: n, Index: i})
	}
	for _, t := range resultTypes {
		v := f.newValue(t)
		f.values[v].def = n
		n.Results = append(n.Results, v)
	}
	return n
}

// ReplaceAllUses rewires every consumer of old to use new instead.
func (f *Func) ReplaceAllUses(old, new ValueID) {
	f.ReplaceUsesIf(old, new, func(Use) bool { return true })
}

// ReplaceUsesIf rewires the consumers of old selected by keep to use new.
func (f *Func) ReplaceUsesIf(old, new ValueID, keep func(Use) bool) {
	if old == new {
		return
	}
	var remaining []Use
	for _, use := range f.values[old].uses {
		if !keep(use) {
			remaining = append(remaining, use)
			continue
		}
		use.Node.Operands[use.Index] = new
		f.values[new].uses = append(f.values[new].uses, use)
	}
	f.values[old].uses = remaining
}

// EraseNode removes n from its function body or block and drops its operand
// uses. Results of an erased node must no longer be referenced.
func (f *Func) EraseNode(n *Node) {
	if n.dead {
		return
	}
	n.dead = true
	for i, v := range n.Operands {
		f.removeUse(v, Use{Node: n, Index: i})
	}
	if n.block != nil {
		n.block.Nodes = removeNode(n.block.Nodes, n)
		return
	}
	f.Body = removeNode(f.Body, n)
}

// EraseBlock removes b from a region after its nodes have been erased.
func (f *Func) EraseBlock(r *Region, b *Block) error {
	if len(b.Nodes) != 0 {
		return fmt.Errorf("cannot erase block with %d live nodes", len(b.Nodes))
	}
	for i, blk := range r.Blocks {
		if blk == b {
			r.Blocks = append(r.Blocks[:i], r.Blocks[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("block does not belong to region")
}

func (f *Func) removeUse(v ValueID, use Use) {
	uses := f.values[v].uses
	for i, u := range uses {
		if u == use {
			f.values[v].uses = append(uses[:i], uses[i+1:]...)
			return
		}
	}
}

func removeNode(nodes []*Node, n *Node) []*Node {
	for i, cand := range nodes {
		if cand == n {
			return append(nodes[:i], nodes[i+1:]...)
		}
	}
	return nodes
}
