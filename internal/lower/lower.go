package lower

import (
	"fmt"

	"github.com/ericleaf/circt/internal/diag"
	"github.com/ericleaf/circt/internal/firrtl"
	"github.com/ericleaf/circt/internal/handshake"
)

// Pass identity, stable for CLI registration and external tooling.
const (
	PassTag         = "lower-handshake-to-firrtl"
	PassDescription = "Lowering to FIRRTL Dialect"
)

// Options configures the lowering.
type Options struct {
	// NumClocks is the number of clock domains appended to the top module.
	// Zero means one.
	NumClocks int
	// IndexWidth is the bit width index-typed edges are lowered to. Zero
	// means 64.
	IndexWidth int
}

func (o Options) withDefaults() Options {
	if o.NumClocks <= 0 {
		o.NumClocks = 1
	}
	if o.IndexWidth <= 0 {
		o.IndexWidth = 64
	}
	return o
}

type lowering struct {
	opts     Options
	reporter *diag.Reporter
	fn       *handshake.Func

	circuit     *firrtl.Circuit
	top         *firrtl.Module
	cache       map[string]*firrtl.Module
	binding     map[handshake.ValueID]firrtl.Expr
	pending     []pendingConnect
	instanceIdx map[string]int
	pipelineIdx int
}

// pendingConnect defers an instance operand connect whose producer had not
// been lowered yet when the instance was created.
type pendingConnect struct {
	dest firrtl.Expr
	src  handshake.ValueID
	pos  diag.Pos
}

// Lower converts one dataflow function into a circuit with a top module of
// sub-module instances. The input function is consumed: its operators are
// erased as their instances are created.
func Lower(fn *handshake.Func, reporter *diag.Reporter, opts Options) (*firrtl.Circuit, error) {
	l := &lowering{
		opts:        opts.withDefaults(),
		reporter:    reporter,
		fn:          fn,
		cache:       make(map[string]*firrtl.Module),
		binding:     make(map[handshake.ValueID]firrtl.Expr),
		instanceIdx: make(map[string]int),
	}

	if err := l.createTopModule(); err != nil {
		return nil, err
	}

	// Walk body operators in source order. The body shrinks as operators
	// are erased, so iterate over a snapshot.
	body := append([]*handshake.Node(nil), fn.Body...)
	for _, n := range body {
		switch n.Op.(type) {
		case *handshake.Return:
			l.convertReturn(n)
		case *handshake.Pipeline:
			l.convertPipeline(n)
		default:
			l.convertOperator(n)
		}
	}

	l.flushPending()

	if reporter.HasErrors() {
		return nil, fmt.Errorf("lowering %s reported errors", fn.Name)
	}
	return l.circuit, nil
}

// flushPending wires the instance operands whose producers were lowered
// after the consuming instance.
func (l *lowering) flushPending() {
	if len(l.pending) == 0 {
		return
	}
	b := firrtl.NewBuilder(l.top)
	for _, p := range l.pending {
		src := l.binding[p.src]
		if src == nil {
			l.reporter.Error(p.pos, "operand has no lowered producer")
			continue
		}
		b.Connect(p.dest, src)
	}
	l.pending = nil
}

// LowerDesign lowers every function of a design into its own circuit.
func LowerDesign(design *handshake.Design, reporter *diag.Reporter, opts Options) ([]*firrtl.Circuit, error) {
	circuits := make([]*firrtl.Circuit, 0, len(design.Funcs))
	for _, fn := range design.Funcs {
		circuit, err := Lower(fn, reporter, opts)
		if err != nil {
			return nil, err
		}
		circuits = append(circuits, circuit)
	}
	return circuits, nil
}

// createTopModule synthesizes the top module's signature from the function
// type: one forward bundle per parameter, one reverse bundle per result,
// then a (clock, reset) pair per domain.
func (l *lowering) createTopModule() error {
	top := &firrtl.Module{Name: l.fn.Name}

	argsIdx := 0
	for _, t := range l.fn.Params {
		bundle, ok := l.bundleOf(t, Forward, diag.Pos{})
		if !ok {
			return fmt.Errorf("unsupported argument type on %s", l.fn.Name)
		}
		top.Ports = append(top.Ports, firrtl.Port{
			Name:      fmt.Sprintf("arg%d", argsIdx),
			Direction: firrtl.Input,
			Type:      bundle,
		})
		argsIdx++
	}
	for _, t := range l.fn.Results {
		bundle, ok := l.bundleOf(t, Reverse, diag.Pos{})
		if !ok {
			return fmt.Errorf("unsupported result type on %s", l.fn.Name)
		}
		top.Ports = append(top.Ports, firrtl.Port{
			Name:      fmt.Sprintf("arg%d", argsIdx),
			Direction: firrtl.Output,
			Type:      bundle,
		})
		argsIdx++
	}

	if l.opts.NumClocks == 1 {
		top.Ports = append(top.Ports,
			firrtl.Port{Name: "clock", Direction: firrtl.Input, Type: firrtl.ClockType{}},
			firrtl.Port{Name: "reset", Direction: firrtl.Input, Type: firrtl.UIntType{Width: 1}},
		)
	} else {
		for i := 0; i < l.opts.NumClocks; i++ {
			top.Ports = append(top.Ports,
				firrtl.Port{Name: fmt.Sprintf("clock%d", i), Direction: firrtl.Input, Type: firrtl.ClockType{}},
				firrtl.Port{Name: fmt.Sprintf("reset%d", i), Direction: firrtl.Input, Type: firrtl.UIntType{Width: 1}},
			)
		}
	}

	l.circuit = &firrtl.Circuit{Name: l.fn.Name, Top: top}
	l.circuit.AddModule(top)

	// Reconcile the function's entry values with the top module's ports.
	for i, arg := range l.fn.Args() {
		l.binding[arg] = top.PortExpr(i)
	}
	l.top = top
	return nil
}

// convertReturn connects each return operand to the correspondingly indexed
// top-module output bundle.
func (l *lowering) convertReturn(n *handshake.Node) {
	b := firrtl.NewBuilder(l.top)
	numIns := len(l.fn.Params)
	for k, v := range n.Operands {
		if src := l.binding[v]; src != nil {
			b.Connect(l.top.PortExpr(numIns+k), src)
		}
	}
	l.fn.EraseNode(n)
}

// convertOperator lowers one dataflow operator: compute its signature, look
// up or build the shared sub-module, then instantiate and wire it.
func (l *lowering) convertOperator(n *handshake.Node) {
	signature := SubModuleName(n)

	sub, ok := l.cache[signature]
	if !ok {
		_, hasClock := n.Op.(*handshake.Buffer)
		built, created := l.createSubModule(signature, n, hasClock)
		if !created {
			return
		}
		ports := extractSubfields(built)
		if !l.buildLogic(n, built, ports) {
			return
		}
		l.cache[signature] = built
		sub = built
	}

	l.instantiate(n, sub, 0)
}
