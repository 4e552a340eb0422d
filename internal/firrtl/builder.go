package firrtl

// Builder emits statements into a module body. When regions push a scoped
// insertion target; the closure style guarantees restoration on exit.
type Builder struct {
	module  *Module
	targets []*[]Stmt
}

// NewBuilder returns a builder inserting at the end of m's body.
func NewBuilder(m *Module) *Builder {
	b := &Builder{module: m}
	b.targets = append(b.targets, &m.Body)
	return b
}

// Module returns the module under construction.
func (b *Builder) Module() *Module {
	return b.module
}

func (b *Builder) emit(s Stmt) {
	target := b.targets[len(b.targets)-1]
	*target = append(*target, s)
}

func (b *Builder) push(target *[]Stmt) {
	b.targets = append(b.targets, target)
}

func (b *Builder) pop() {
	b.targets = b.targets[:len(b.targets)-1]
}

// Connect emits dest <= src.
func (b *Builder) Connect(dest, src Expr) {
	b.emit(&ConnectStmt{Dest: dest, Src: src})
}

// Wire declares a named wire and returns it.
func (b *Builder) Wire(name string, t Type) *WireDecl {
	d := &WireDecl{Name: name, Type: t}
	b.emit(d)
	return d
}

// Reg declares a register without reset and returns it.
func (b *Builder) Reg(name string, t Type, clock Expr) *RegDecl {
	d := &RegDecl{Name: name, Type: t, Clock: clock}
	b.emit(d)
	return d
}

// RegInit declares a register with reset and returns it.
func (b *Builder) RegInit(name string, t Type, clock, reset, init Expr) *RegInitDecl {
	d := &RegInitDecl{Name: name, Type: t, Clock: clock, Reset: reset, Init: init}
	b.emit(d)
	return d
}

// Instance declares an instance of mod and returns it.
func (b *Builder) Instance(name string, mod *Module, t BundleType) *InstanceDecl {
	d := &InstanceDecl{Name: name, Module: mod, Type: t}
	b.emit(d)
	return d
}

// When emits a when statement without else and runs then with the insertion
// point scoped to its body.
func (b *Builder) When(cond Expr, then func()) {
	w := &WhenStmt{Cond: cond}
	b.emit(w)
	b.push(&w.Then)
	defer b.pop()
	then()
}

// WhenElse emits a when statement with an else region, running each closure
// with the insertion point scoped to the matching body.
func (b *Builder) WhenElse(cond Expr, then, els func()) {
	w := &WhenStmt{Cond: cond, HasElse: true}
	b.emit(w)
	b.push(&w.Then)
	then()
	b.pop()
	b.push(&w.Else)
	defer b.pop()
	els()
}
