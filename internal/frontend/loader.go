// Package frontend loads dataflow functions from YAML netlists.
//
// A netlist names one or more functions. Function arguments are referenced
// as arg0..argN-1; every operator result is given a name that later
// operators refer to:
//
//	functions:
//	  - name: top
//	    params: [i32, i32]
//	    results: [i32]
//	    ops:
//	      - {result: sum, op: addi, args: [arg0, arg1]}
//	      - {op: return, args: [sum]}
//
// Types are spelled i<N> (signless), si<N> (signed), ui<N> (unsigned),
// index, and none.
package frontend

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ericleaf/circt/internal/diag"
	"github.com/ericleaf/circt/internal/handshake"
)

// LoadFile reads a netlist file and builds the dataflow design.
func LoadFile(path string, reporter *diag.Reporter) (*handshake.Design, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("frontend: read netlist: %w", err)
	}
	return Load(data, reporter)
}

// Load parses netlist source and builds the dataflow design. Input problems
// are reported through reporter; Load fails when any were errors.
func Load(data []byte, reporter *diag.Reporter) (*handshake.Design, error) {
	var spec netlistSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("frontend: parse netlist: %w", err)
	}
	if len(spec.Functions) == 0 {
		return nil, fmt.Errorf("frontend: netlist declares no functions")
	}

	design := &handshake.Design{}
	for i := range spec.Functions {
		ld := &loader{reporter: reporter}
		if fn := ld.buildFunc(&spec.Functions[i]); fn != nil {
			design.Funcs = append(design.Funcs, fn)
		}
	}
	if reporter.HasErrors() {
		return nil, fmt.Errorf("frontend: failed to load netlist")
	}
	return design, nil
}

type netlistSpec struct {
	Functions []funcSpec `yaml:"functions"`
}

type funcSpec struct {
	Name    string   `yaml:"name"`
	Params  []string `yaml:"params"`
	Results []string `yaml:"results"`
	Ops     []opSpec `yaml:"ops"`

	line   int
	column int
}

type opSpec struct {
	Op          string      `yaml:"op"`
	Args        []string    `yaml:"args"`
	Result      string      `yaml:"result"`
	Results     []string    `yaml:"results"`
	Predicate   string      `yaml:"predicate"`
	Value       *uint64     `yaml:"value"`
	Type        string      `yaml:"type"`
	Control     *bool       `yaml:"control"`
	Slots       *int        `yaml:"slots"`
	Sequential  bool        `yaml:"sequential"`
	ResultTypes []string    `yaml:"result_types"`
	Stages      []stageSpec `yaml:"stages"`

	line   int
	column int
}

type stageSpec struct {
	Args   []string `yaml:"args"`
	Ops    []opSpec `yaml:"ops"`
	Return []string `yaml:"return"`

	line   int
	column int
}

func (f *funcSpec) UnmarshalYAML(node *yaml.Node) error {
	type raw funcSpec
	var r raw
	if err := node.Decode(&r); err != nil {
		return err
	}
	*f = funcSpec(r)
	f.line, f.column = node.Line, node.Column
	return nil
}

func (o *opSpec) UnmarshalYAML(node *yaml.Node) error {
	type raw opSpec
	var r raw
	if err := node.Decode(&r); err != nil {
		return err
	}
	*o = opSpec(r)
	o.line, o.column = node.Line, node.Column
	return nil
}

func (st *stageSpec) UnmarshalYAML(node *yaml.Node) error {
	type raw stageSpec
	var r raw
	if err := node.Decode(&r); err != nil {
		return err
	}
	*st = stageSpec(r)
	st.line, st.column = node.Line, node.Column
	return nil
}

func (o *opSpec) pos() diag.Pos {
	return diag.Pos{Line: o.line, Column: o.column}
}

type loader struct {
	reporter *diag.Reporter
	names    map[string]handshake.ValueID
}

func (l *loader) buildFunc(spec *funcSpec) *handshake.Func {
	pos := diag.Pos{Line: spec.line, Column: spec.column}
	if spec.Name == "" {
		l.reporter.Error(pos, "function requires a name")
		return nil
	}

	params, ok := l.parseTypes(spec.Params, pos)
	if !ok {
		return nil
	}
	results, ok := l.parseTypes(spec.Results, pos)
	if !ok {
		return nil
	}

	b := handshake.NewBuilder(spec.Name, params, results)
	l.names = make(map[string]handshake.ValueID)
	for i := range params {
		l.names[fmt.Sprintf("arg%d", i)] = b.Arg(i)
	}

	for i := range spec.Ops {
		l.buildOp(b, &spec.Ops[i])
	}
	return b.Func()
}

func (l *loader) buildOp(b *handshake.Builder, op *opSpec) {
	pos := op.pos()
	b.At(pos)

	if kind, ok := arithKinds[op.Op]; ok {
		args, ok := l.resolveN(op, 2)
		if !ok {
			return
		}
		l.define(op, op.Result, b.Arith(kind, args[0], args[1]))
		return
	}

	switch op.Op {
	case "cmpi":
		args, ok := l.resolveN(op, 2)
		if !ok {
			return
		}
		pred, ok := predicates[op.Predicate]
		if !ok {
			l.reporter.Error(pos, fmt.Sprintf("unknown compare predicate %q", op.Predicate))
			return
		}
		l.define(op, op.Result, b.Cmp(pred, args[0], args[1]))
	case "sink":
		if args, ok := l.resolveN(op, 1); ok {
			b.Sink(args[0])
		}
	case "join":
		args, ok := l.resolveAll(op)
		if !ok {
			return
		}
		l.define(op, op.Result, b.Join(args...))
	case "select":
		args, ok := l.resolveAll(op)
		if !ok {
			return
		}
		if len(args) < 2 {
			l.reporter.Error(pos, "select requires a select input and at least one data input")
			return
		}
		l.define(op, op.Result, b.Mux(args[0], args[1:]...))
	case "merge":
		args, ok := l.resolveAll(op)
		if !ok {
			return
		}
		if len(args) == 0 {
			l.reporter.Error(pos, "merge requires at least one input")
			return
		}
		l.define(op, op.Result, b.Merge(args...))
	case "control_merge":
		args, ok := l.resolveAll(op)
		if !ok {
			return
		}
		if len(args) == 0 {
			l.reporter.Error(pos, "control_merge requires at least one input")
			return
		}
		if op.Control == nil {
			l.reporter.Error(pos, "control_merge requires an explicit control attribute")
			return
		}
		if len(op.Results) != 2 {
			l.reporter.Error(pos, "control_merge requires exactly two result names")
			return
		}
		result, index := b.ControlMerge(*op.Control, args...)
		l.defineNamed(op, op.Results[0], result)
		l.defineNamed(op, op.Results[1], index)
	case "branch":
		args, ok := l.resolveN(op, 1)
		if !ok {
			return
		}
		l.define(op, op.Result, b.Branch(l.controlOf(op), args[0]))
	case "conditional_branch":
		args, ok := l.resolveN(op, 2)
		if !ok {
			return
		}
		if len(op.Results) != 2 {
			l.reporter.Error(pos, "conditional_branch requires exactly two result names")
			return
		}
		r0, r1 := b.CondBranch(l.controlOf(op), args[0], args[1])
		l.defineNamed(op, op.Results[0], r0)
		l.defineNamed(op, op.Results[1], r1)
	case "fork", "lazy_fork":
		args, ok := l.resolveN(op, 1)
		if !ok {
			return
		}
		if len(op.Results) < 1 {
			l.reporter.Error(pos, fmt.Sprintf("%s requires result names, one per output", op.Op))
			return
		}
		var results []handshake.ValueID
		if op.Op == "fork" {
			results = b.Fork(l.controlOf(op), args[0], len(op.Results))
		} else {
			results = b.LazyFork(l.controlOf(op), args[0], len(op.Results))
		}
		for i, name := range op.Results {
			l.defineNamed(op, name, results[i])
		}
	case "constant":
		args, ok := l.resolveN(op, 1)
		if !ok {
			return
		}
		if op.Value == nil {
			l.reporter.Error(pos, "constant requires a value attribute")
			return
		}
		t, err := parseType(op.Type)
		if err != nil {
			l.reporter.Error(pos, fmt.Sprintf("constant requires a result type: %v", err))
			return
		}
		l.define(op, op.Result, b.ConstantOp(args[0], t, *op.Value))
	case "buffer":
		args, ok := l.resolveN(op, 1)
		if !ok {
			return
		}
		if op.Slots == nil {
			l.reporter.Error(pos, "buffer requires a slots attribute")
			return
		}
		l.define(op, op.Result, b.BufferOp(args[0], *op.Slots, op.Sequential, l.controlOf(op)))
	case "return":
		args, ok := l.resolveAll(op)
		if !ok {
			return
		}
		b.ReturnOp(args...)
	case "pipeline":
		l.buildPipeline(b, op)
	default:
		l.reporter.Error(pos, fmt.Sprintf("unsupported operation %q", op.Op))
	}
}

func (l *loader) buildPipeline(b *handshake.Builder, op *opSpec) {
	pos := op.pos()
	operands, ok := l.resolveAll(op)
	if !ok {
		return
	}
	resultTypes, ok := l.parseTypes(op.ResultTypes, pos)
	if !ok {
		return
	}
	if len(op.Results) != len(resultTypes) {
		l.reporter.Error(pos, "pipeline requires one result name per result type")
		return
	}
	if len(op.Stages) == 0 {
		l.reporter.Error(pos, "pipeline requires stages")
		return
	}

	pb := b.Pipeline(operands, resultTypes)
	for stageIdx := range op.Stages {
		stage := &op.Stages[stageIdx]
		stagePos := diag.Pos{Line: stage.line, Column: stage.column}
		if stage.Return != nil {
			args := make([]handshake.ValueID, 0, len(stage.Return))
			for _, name := range stage.Return {
				v, ok := l.lookup(name, stagePos)
				if !ok {
					return
				}
				args = append(args, v)
			}
			b.At(stagePos)
			pb.Return(args...)
			continue
		}

		var argTypes []handshake.Type
		if stageIdx == 0 {
			if len(stage.Args) != len(operands) {
				l.reporter.Error(stagePos, "pipeline entry stage requires one argument name per operand")
				return
			}
			for _, v := range operands {
				argTypes = append(argTypes, b.Func().ValueType(v))
			}
		} else if len(stage.Args) != 0 {
			l.reporter.Error(stagePos, "only the entry stage may declare arguments")
			return
		}

		sb := pb.Stage(argTypes...)
		for i, name := range stage.Args {
			l.names[name] = sb.Arg(i)
		}
		for i := range stage.Ops {
			l.buildStageOp(sb, &stage.Ops[i])
		}
	}
	for i, name := range op.Results {
		l.defineNamed(op, name, pb.Results()[i])
	}
}

func (l *loader) buildStageOp(sb *handshake.StageBuilder, op *opSpec) {
	pos := op.pos()
	if kind, ok := arithKinds[op.Op]; ok {
		args, ok := l.resolveN(op, 2)
		if !ok {
			return
		}
		l.define(op, op.Result, sb.Arith(kind, args[0], args[1]))
		return
	}
	if op.Op == "cmpi" {
		args, ok := l.resolveN(op, 2)
		if !ok {
			return
		}
		pred, ok := predicates[op.Predicate]
		if !ok {
			l.reporter.Error(pos, fmt.Sprintf("unknown compare predicate %q", op.Predicate))
			return
		}
		l.define(op, op.Result, sb.Cmp(pred, args[0], args[1]))
		return
	}
	l.reporter.Error(pos, fmt.Sprintf("operation %q is not allowed in a pipeline stage", op.Op))
}

func (l *loader) controlOf(op *opSpec) bool {
	return op.Control != nil && *op.Control
}

func (l *loader) define(op *opSpec, name string, v handshake.ValueID) {
	if name == "" {
		return
	}
	l.defineNamed(op, name, v)
}

func (l *loader) defineNamed(op *opSpec, name string, v handshake.ValueID) {
	if _, exists := l.names[name]; exists {
		l.reporter.Error(op.pos(), fmt.Sprintf("value %q is defined twice", name))
		return
	}
	l.names[name] = v
}

func (l *loader) lookup(name string, pos diag.Pos) (handshake.ValueID, bool) {
	v, ok := l.names[name]
	if !ok {
		l.reporter.Error(pos, fmt.Sprintf("unknown value %q", name))
		return handshake.InvalidValue, false
	}
	return v, true
}

func (l *loader) resolveN(op *opSpec, n int) ([]handshake.ValueID, bool) {
	if len(op.Args) != n {
		l.reporter.Error(op.pos(), fmt.Sprintf("%s expects %d arguments, got %d", op.Op, n, len(op.Args)))
		return nil, false
	}
	return l.resolveAll(op)
}

func (l *loader) resolveAll(op *opSpec) ([]handshake.ValueID, bool) {
	values := make([]handshake.ValueID, 0, len(op.Args))
	for _, name := range op.Args {
		v, ok := l.lookup(name, op.pos())
		if !ok {
			return nil, false
		}
		values = append(values, v)
	}
	return values, true
}

func (l *loader) parseTypes(specs []string, pos diag.Pos) ([]handshake.Type, bool) {
	types := make([]handshake.Type, 0, len(specs))
	for _, s := range specs {
		t, err := parseType(s)
		if err != nil {
			l.reporter.Error(pos, err.Error())
			return nil, false
		}
		types = append(types, t)
	}
	return types, true
}

var arithKinds = map[string]handshake.ArithKind{
	"addi":               handshake.Add,
	"subi":               handshake.Sub,
	"muli":               handshake.Mul,
	"and":                handshake.And,
	"or":                 handshake.Or,
	"xor":                handshake.Xor,
	"shift_left":         handshake.Shl,
	"shift_right_signed": handshake.ShrS,
}

var predicates = map[string]handshake.Predicate{
	"eq":  handshake.CmpEQ,
	"ne":  handshake.CmpNE,
	"slt": handshake.CmpSLT,
	"sle": handshake.CmpSLE,
	"sgt": handshake.CmpSGT,
	"sge": handshake.CmpSGE,
}

func parseType(s string) (handshake.Type, error) {
	switch {
	case s == "none":
		return handshake.NoneType{}, nil
	case s == "index":
		return handshake.IndexType{}, nil
	case strings.HasPrefix(s, "si"):
		w, err := parseWidth(s[2:])
		if err != nil {
			return nil, fmt.Errorf("invalid type %q", s)
		}
		return handshake.SignedType{Width: w}, nil
	case strings.HasPrefix(s, "ui"):
		w, err := parseWidth(s[2:])
		if err != nil {
			return nil, fmt.Errorf("invalid type %q", s)
		}
		return handshake.UnsignedType{Width: w}, nil
	case strings.HasPrefix(s, "i"):
		w, err := parseWidth(s[1:])
		if err != nil {
			return nil, fmt.Errorf("invalid type %q", s)
		}
		return handshake.SignlessType{Width: w}, nil
	default:
		return nil, fmt.Errorf("unknown type %q", s)
	}
}

func parseWidth(s string) (int, error) {
	w, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if w < 1 {
		return 0, fmt.Errorf("width must be positive")
	}
	return w, nil
}
