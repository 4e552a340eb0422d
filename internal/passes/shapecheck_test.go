package passes

import (
	"io"
	"strings"
	"testing"

	"github.com/ericleaf/circt/internal/diag"
	"github.com/ericleaf/circt/internal/handshake"
	"github.com/ericleaf/circt/internal/lower"
)

func runShapeCheck(fn *handshake.Func) *diag.Reporter {
	reporter := diag.NewReporter(io.Discard, "text")
	check := NewShapeCheck(reporter)
	check.Run(&handshake.Design{Funcs: []*handshake.Func{fn}})
	return reporter
}

func TestShapeCheckAcceptsWellFormedGraph(t *testing.T) {
	i32 := handshake.SignlessType{Width: 32}
	none := handshake.NoneType{}
	b := handshake.NewBuilder("ok", []handshake.Type{i32, i32, none}, []handshake.Type{i32})

	sum := b.Arith(handshake.Add, b.Arg(0), b.Arg(1))
	k := b.ConstantOp(b.Arg(2), i32, 7)
	prod := b.Arith(handshake.Mul, sum, k)
	b.ReturnOp(prod)

	if reporter := runShapeCheck(b.Func()); reporter.HasErrors() {
		t.Fatalf("unexpected diagnostics: %+v", reporter.Diagnostics())
	}
}

func TestShapeCheckRejectsMixedOperands(t *testing.T) {
	i32 := handshake.SignlessType{Width: 32}
	i16 := handshake.SignlessType{Width: 16}
	b := handshake.NewBuilder("bad", []handshake.Type{i32, i16}, []handshake.Type{i32})
	sum := b.Arith(handshake.Add, b.Arg(0), b.Arg(1))
	b.ReturnOp(sum)

	reporter := runShapeCheck(b.Func())
	if !reporter.HasErrors() {
		t.Fatalf("expected mixed operand diagnostic")
	}
	if !containsMessage(reporter, "mixed operand types") {
		t.Fatalf("diagnostics: %+v", reporter.Diagnostics())
	}
}

func TestShapeCheckRejectsOversizedConstant(t *testing.T) {
	none := handshake.NoneType{}
	i4 := handshake.SignlessType{Width: 4}
	b := handshake.NewBuilder("bad", []handshake.Type{none}, []handshake.Type{i4})
	k := b.ConstantOp(b.Arg(0), i4, 300)
	b.ReturnOp(k)

	reporter := runShapeCheck(b.Func())
	if !containsMessage(reporter, "does not fit") {
		t.Fatalf("diagnostics: %+v", reporter.Diagnostics())
	}
}

func TestShapeCheckRejectsNarrowSelect(t *testing.T) {
	i1 := handshake.SignlessType{Width: 1}
	i8 := handshake.SignlessType{Width: 8}
	b := handshake.NewBuilder("bad", []handshake.Type{i1, i8, i8, i8}, []handshake.Type{i8})
	r := b.Mux(b.Arg(0), b.Arg(1), b.Arg(2), b.Arg(3))
	b.ReturnOp(r)

	reporter := runShapeCheck(b.Func())
	if !containsMessage(reporter, "cannot address") {
		t.Fatalf("diagnostics: %+v", reporter.Diagnostics())
	}
}

func TestShapeCheckRejectsDataJoin(t *testing.T) {
	i8 := handshake.SignlessType{Width: 8}
	none := handshake.NoneType{}
	b := handshake.NewBuilder("bad", []handshake.Type{i8, none}, []handshake.Type{none})
	r := b.Join(b.Arg(0), b.Arg(1))
	b.ReturnOp(r)

	reporter := runShapeCheck(b.Func())
	if !containsMessage(reporter, "control-only") {
		t.Fatalf("diagnostics: %+v", reporter.Diagnostics())
	}
}

func TestShapeCheckRejectsMissingReturn(t *testing.T) {
	i8 := handshake.SignlessType{Width: 8}
	b := handshake.NewBuilder("bad", []handshake.Type{i8}, nil)
	b.Sink(b.Arg(0))

	reporter := runShapeCheck(b.Func())
	if !containsMessage(reporter, "no return terminator") {
		t.Fatalf("diagnostics: %+v", reporter.Diagnostics())
	}
}

func TestShapeCheckRejectsZeroSlotBuffer(t *testing.T) {
	i8 := handshake.SignlessType{Width: 8}
	b := handshake.NewBuilder("bad", []handshake.Type{i8}, []handshake.Type{i8})
	out := b.BufferOp(b.Arg(0), 0, false, false)
	b.ReturnOp(out)

	reporter := runShapeCheck(b.Func())
	if !containsMessage(reporter, "at least one slot") {
		t.Fatalf("diagnostics: %+v", reporter.Diagnostics())
	}
}

func TestShapeCheckPipelineRegion(t *testing.T) {
	i32 := handshake.SignlessType{Width: 32}
	b := handshake.NewBuilder("pipe", []handshake.Type{i32, i32}, []handshake.Type{i32})

	pb := b.Pipeline([]handshake.ValueID{b.Arg(0), b.Arg(1)}, []handshake.Type{i32})
	stage := pb.Stage(i32, i32)
	sum := stage.Arith(handshake.Add, stage.Arg(0), stage.Arg(1))
	pb.Return(sum)
	b.ReturnOp(pb.Results()[0])

	if reporter := runShapeCheck(b.Func()); reporter.HasErrors() {
		t.Fatalf("unexpected diagnostics: %+v", reporter.Diagnostics())
	}
}

func TestShapeCheckRejectsPipelineWithoutStages(t *testing.T) {
	i32 := handshake.SignlessType{Width: 32}
	b := handshake.NewBuilder("pipe", []handshake.Type{i32}, []handshake.Type{i32})
	pb := b.Pipeline([]handshake.ValueID{b.Arg(0)}, []handshake.Type{i32})
	b.ReturnOp(pb.Results()[0])

	reporter := runShapeCheck(b.Func())
	if !containsMessage(reporter, "pipeline requires") {
		t.Fatalf("diagnostics: %+v", reporter.Diagnostics())
	}
}

func TestRegistryListsLoweringPass(t *testing.T) {
	found := false
	for _, info := range Registry() {
		if info.Tag == lower.PassTag {
			found = true
			if info.Description != lower.PassDescription {
				t.Fatalf("lowering pass description = %q", info.Description)
			}
		}
	}
	if !found {
		t.Fatalf("registry does not list %s", lower.PassTag)
	}
}

func containsMessage(reporter *diag.Reporter, substr string) bool {
	for _, d := range reporter.Diagnostics() {
		if strings.Contains(d.Message, substr) {
			return true
		}
	}
	return false
}
