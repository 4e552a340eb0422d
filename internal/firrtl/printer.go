package firrtl

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Emit writes the FIRRTL representation of the circuit to outputPath. When
// outputPath is empty or "-", the result is written to stdout.
func Emit(circuit *Circuit, outputPath string) error {
	var w io.Writer
	if outputPath == "" || outputPath == "-" {
		w = os.Stdout
	} else {
		f, err := os.Create(outputPath)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	Write(circuit, w)
	return nil
}

// Write renders the circuit as FIRRTL text.
func Write(circuit *Circuit, w io.Writer) {
	pr := &printer{w: w}
	fmt.Fprintf(w, "circuit %s :\n", sanitize(circuit.Name))
	pr.indent++
	for _, module := range circuit.Modules {
		pr.emitModule(module)
	}
}

type printer struct {
	w      io.Writer
	indent int
}

func (p *printer) printIndent() {
	for i := 0; i < p.indent; i++ {
		fmt.Fprint(p.w, "  ")
	}
}

func (p *printer) emitModule(module *Module) {
	p.printIndent()
	fmt.Fprintf(p.w, "module %s :\n", sanitize(module.Name))
	p.indent++
	for _, port := range module.Ports {
		p.printIndent()
		fmt.Fprintf(p.w, "%s %s : %s\n", portDirection(port.Direction), sanitize(port.Name), port.Type)
	}
	if len(module.Body) > 0 {
		fmt.Fprintln(p.w)
		p.emitStmts(module.Body)
	}
	p.indent--
	fmt.Fprintln(p.w)
}

func (p *printer) emitStmts(stmts []Stmt) {
	for _, s := range stmts {
		p.emitStmt(s)
	}
}

func (p *printer) emitStmt(s Stmt) {
	switch st := s.(type) {
	case *ConnectStmt:
		p.printIndent()
		fmt.Fprintf(p.w, "%s <= %s\n", exprString(st.Dest), exprString(st.Src))
	case *WhenStmt:
		p.printIndent()
		fmt.Fprintf(p.w, "when %s :\n", exprString(st.Cond))
		p.indent++
		p.emitStmts(st.Then)
		p.indent--
		if st.HasElse {
			p.printIndent()
			fmt.Fprintln(p.w, "else :")
			p.indent++
			p.emitStmts(st.Else)
			p.indent--
		}
	case *WireDecl:
		p.printIndent()
		fmt.Fprintf(p.w, "wire %s : %s\n", sanitize(st.Name), st.Type)
	case *RegDecl:
		p.printIndent()
		fmt.Fprintf(p.w, "reg %s : %s, %s\n", sanitize(st.Name), st.Type, exprString(st.Clock))
	case *RegInitDecl:
		p.printIndent()
		fmt.Fprintf(p.w, "reg %s : %s, %s with : (reset => (%s, %s))\n",
			sanitize(st.Name), st.Type, exprString(st.Clock), exprString(st.Reset), exprString(st.Init))
	case *InstanceDecl:
		p.printIndent()
		fmt.Fprintf(p.w, "inst %s of %s\n", sanitize(st.Name), sanitize(st.Module.Name))
	default:
		p.printIndent()
		fmt.Fprintf(p.w, "; unknown statement %T\n", s)
	}
}

// ExprString renders an expression the way the printer does.
func ExprString(e Expr) string {
	return exprString(e)
}

func exprString(e Expr) string {
	switch ex := e.(type) {
	case *PortRef:
		return sanitize(ex.Name())
	case *Subfield:
		return exprString(ex.Of) + "." + sanitize(ex.Name)
	case *ConstExpr:
		if t, ok := ex.Type.(SIntType); ok {
			return fmt.Sprintf("SInt<%d>(%d)", t.Width, int64(ex.Value))
		}
		return fmt.Sprintf("%s(%d)", ex.Type, ex.Value)
	case *PrimExpr:
		args := make([]string, len(ex.Args))
		for i, arg := range ex.Args {
			args[i] = exprString(arg)
		}
		return fmt.Sprintf("%s(%s)", ex.Kind, strings.Join(args, ", "))
	case *WireDecl:
		return sanitize(ex.Name)
	case *RegDecl:
		return sanitize(ex.Name)
	case *RegInitDecl:
		return sanitize(ex.Name)
	case *InstanceDecl:
		return sanitize(ex.Name)
	default:
		return "<unknown>"
	}
}

func portDirection(dir PortDirection) string {
	if dir == Output {
		return "output"
	}
	return "input"
}

func sanitize(name string) string {
	if name == "" {
		return "unnamed"
	}
	var b strings.Builder
	for i, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '_' || (r >= '0' && r <= '9' && i > 0) {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}
