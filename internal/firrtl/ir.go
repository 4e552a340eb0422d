package firrtl

// PortDirection enumerates module port directions.
type PortDirection int

const (
	Input PortDirection = iota
	Output
)

// Port is a module IO port. Bundle-typed ports may flip individual subfields
// against the port direction.
type Port struct {
	Name      string
	Direction PortDirection
	Type      Type
}

// Module is a hardware module: ports plus an ordered statement body.
type Module struct {
	Name  string
	Ports []Port
	Body  []Stmt
}

// PortExpr returns a reference to the i-th port for use in expressions.
func (m *Module) PortExpr(i int) *PortRef {
	return &PortRef{Module: m, Index: i}
}

// Circuit owns a set of modules. Top designates the root of the instance
// hierarchy.
type Circuit struct {
	Name    string
	Modules []*Module
	Top     *Module
}

// AddModule appends m to the circuit.
func (c *Circuit) AddModule(m *Module) {
	c.Modules = append(c.Modules, m)
}

// InsertBeforeTop inserts m immediately before the top module, keeping
// sub-modules in first-creation order ahead of it.
func (c *Circuit) InsertBeforeTop(m *Module) {
	for i, cand := range c.Modules {
		if cand == c.Top {
			c.Modules = append(c.Modules[:i], append([]*Module{m}, c.Modules[i:]...)...)
			return
		}
	}
	c.Modules = append(c.Modules, m)
}

// Expr is a hardware expression.
type Expr interface {
	isExpr()
	ExprType() Type
}

// PortRef references a module port from inside the module body.
type PortRef struct {
	Module *Module
	Index  int
}

// Subfield selects a named field of a bundle-typed expression.
type Subfield struct {
	Of   Expr
	Name string
	Type Type
	Flip bool
}

// ConstExpr is an integer literal of a hardware integer type.
type ConstExpr struct {
	Type  Type
	Value uint64
}

// PrimKind enumerates the primitive operators.
type PrimKind int

const (
	PrimAnd PrimKind = iota
	PrimOr
	PrimXor
	PrimAdd
	PrimSub
	PrimMul
	PrimEq
	PrimNeq
	PrimLt
	PrimLeq
	PrimGt
	PrimGeq
	PrimNot
	PrimDshl
	PrimDshr
)

func (k PrimKind) String() string {
	switch k {
	case PrimAnd:
		return "and"
	case PrimOr:
		return "or"
	case PrimXor:
		return "xor"
	case PrimAdd:
		return "add"
	case PrimSub:
		return "sub"
	case PrimMul:
		return "mul"
	case PrimEq:
		return "eq"
	case PrimNeq:
		return "neq"
	case PrimLt:
		return "lt"
	case PrimLeq:
		return "leq"
	case PrimGt:
		return "gt"
	case PrimGeq:
		return "geq"
	case PrimNot:
		return "not"
	case PrimDshl:
		return "dshl"
	case PrimDshr:
		return "dshr"
	default:
		return "unknown"
	}
}

// PrimExpr applies a primitive operator to its arguments.
type PrimExpr struct {
	Kind PrimKind
	Args []Expr
	Type Type
}

func (*PortRef) isExpr()   {}
func (*Subfield) isExpr()  {}
func (*ConstExpr) isExpr() {}
func (*PrimExpr) isExpr()  {}

func (e *PortRef) ExprType() Type {
	return e.Module.Ports[e.Index].Type
}
func (e *Subfield) ExprType() Type  { return e.Type }
func (e *ConstExpr) ExprType() Type { return e.Type }
func (e *PrimExpr) ExprType() Type  { return e.Type }

// Name returns the referenced port's name.
func (e *PortRef) Name() string {
	return e.Module.Ports[e.Index].Name
}

// FieldOf selects the named subfield of a bundle-typed expression. It
// returns nil when e is not a bundle or lacks the field.
func FieldOf(e Expr, name string) Expr {
	bundle, ok := e.ExprType().(BundleType)
	if !ok {
		return nil
	}
	field, ok := bundle.Field(name)
	if !ok {
		return nil
	}
	return &Subfield{Of: e, Name: name, Type: field.Type, Flip: field.Flip}
}

// UIntConst builds an unsigned literal of the given width.
func UIntConst(width int, value uint64) *ConstExpr {
	return &ConstExpr{Type: UIntType{Width: width}, Value: value}
}

// Const builds a literal of the given integer type.
func Const(t Type, value uint64) *ConstExpr {
	return &ConstExpr{Type: t, Value: value}
}

func binary(kind PrimKind, a, b Expr) *PrimExpr {
	return &PrimExpr{Kind: kind, Args: []Expr{a, b}, Type: a.ExprType()}
}

func compare(kind PrimKind, a, b Expr) *PrimExpr {
	return &PrimExpr{Kind: kind, Args: []Expr{a, b}, Type: UIntType{Width: 1}}
}

// Binary builds kind(a, b) with the conventional result type: comparisons
// produce UInt<1>, everything else follows the first argument.
func Binary(kind PrimKind, a, b Expr) *PrimExpr {
	switch kind {
	case PrimEq, PrimNeq, PrimLt, PrimLeq, PrimGt, PrimGeq:
		return compare(kind, a, b)
	}
	return binary(kind, a, b)
}

// And builds and(a, b) typed after a.
func And(a, b Expr) *PrimExpr { return binary(PrimAnd, a, b) }

// Or builds or(a, b) typed after a.
func Or(a, b Expr) *PrimExpr { return binary(PrimOr, a, b) }

// Xor builds xor(a, b) typed after a.
func Xor(a, b Expr) *PrimExpr { return binary(PrimXor, a, b) }

// AddOf builds add(a, b) typed after a.
func AddOf(a, b Expr) *PrimExpr { return binary(PrimAdd, a, b) }

// SubOf builds sub(a, b) typed after a.
func SubOf(a, b Expr) *PrimExpr { return binary(PrimSub, a, b) }

// MulOf builds mul(a, b) typed after a.
func MulOf(a, b Expr) *PrimExpr { return binary(PrimMul, a, b) }

// Eq builds the 1-bit comparison eq(a, b).
func Eq(a, b Expr) *PrimExpr { return compare(PrimEq, a, b) }

// Neq builds the 1-bit comparison neq(a, b).
func Neq(a, b Expr) *PrimExpr { return compare(PrimNeq, a, b) }

// Lt builds the 1-bit comparison lt(a, b).
func Lt(a, b Expr) *PrimExpr { return compare(PrimLt, a, b) }

// Leq builds the 1-bit comparison leq(a, b).
func Leq(a, b Expr) *PrimExpr { return compare(PrimLeq, a, b) }

// Gt builds the 1-bit comparison gt(a, b).
func Gt(a, b Expr) *PrimExpr { return compare(PrimGt, a, b) }

// Geq builds the 1-bit comparison geq(a, b).
func Geq(a, b Expr) *PrimExpr { return compare(PrimGeq, a, b) }

// Not builds not(a) typed after a.
func Not(a Expr) *PrimExpr {
	return &PrimExpr{Kind: PrimNot, Args: []Expr{a}, Type: a.ExprType()}
}

// Dshl builds the dynamic left shift dshl(a, b).
func Dshl(a, b Expr) *PrimExpr { return binary(PrimDshl, a, b) }

// Dshr builds the dynamic right shift dshr(a, b).
func Dshr(a, b Expr) *PrimExpr { return binary(PrimDshr, a, b) }

// Stmt is a statement in a module body.
type Stmt interface {
	isStmt()
}

// ConnectStmt drives Dest from Src.
type ConnectStmt struct {
	Dest Expr
	Src  Expr
}

// WhenStmt conditionally applies its Then statements, with an optional Else
// region.
type WhenStmt struct {
	Cond    Expr
	Then    []Stmt
	Else    []Stmt
	HasElse bool
}

// WireDecl declares a named wire. The declaration doubles as the expression
// referencing it.
type WireDecl struct {
	Name string
	Type Type
}

// RegDecl declares a register without reset.
type RegDecl struct {
	Name  string
	Type  Type
	Clock Expr
}

// RegInitDecl declares a register with a reset value.
type RegInitDecl struct {
	Name  string
	Type  Type
	Clock Expr
	Reset Expr
	Init  Expr
}

// InstanceDecl instantiates a module. Type mirrors the instantiated module's
// ports with all directions flipped.
type InstanceDecl struct {
	Name   string
	Module *Module
	Type   BundleType
}

func (*ConnectStmt) isStmt()  {}
func (*WhenStmt) isStmt()     {}
func (*WireDecl) isStmt()     {}
func (*RegDecl) isStmt()      {}
func (*RegInitDecl) isStmt()  {}
func (*InstanceDecl) isStmt() {}

func (*WireDecl) isExpr()     {}
func (*RegDecl) isExpr()      {}
func (*RegInitDecl) isExpr()  {}
func (*InstanceDecl) isExpr() {}

func (d *WireDecl) ExprType() Type     { return d.Type }
func (d *RegDecl) ExprType() Type      { return d.Type }
func (d *RegInitDecl) ExprType() Type  { return d.Type }
func (d *InstanceDecl) ExprType() Type { return d.Type }
