package lower

import (
	"io"
	"testing"

	"github.com/ericleaf/circt/internal/diag"
	"github.com/ericleaf/circt/internal/firrtl"
	"github.com/ericleaf/circt/internal/handshake"
)

func buildAddPipeline(t *testing.T) *handshake.Func {
	t.Helper()
	i32 := handshake.SignlessType{Width: 32}
	b := handshake.NewBuilder("pipe", []handshake.Type{i32, i32}, []handshake.Type{i32})

	pb := b.Pipeline([]handshake.ValueID{b.Arg(0), b.Arg(1)}, []handshake.Type{i32})
	stage := pb.Stage(i32, i32)
	sum := stage.Arith(handshake.Add, stage.Arg(0), stage.Arg(1))
	pb.Return(sum)
	b.ReturnOp(pb.Results()[0])
	return b.Func()
}

// S6: one add stage produces one valid register, one ready wire, one data
// register, and the flushable control structure.
func TestLowerPipelineSingleStage(t *testing.T) {
	circuit := lowerFunc(t, buildAddPipeline(t))
	sub := findModule(t, circuit, "pipeline_0")

	// Stateful sub-module: bundles plus clock and reset.
	if len(sub.Ports) != 5 {
		t.Fatalf("pipeline has %d ports, want 5", len(sub.Ports))
	}
	if sub.Ports[3].Name != "clock" || sub.Ports[4].Name != "reset" {
		t.Fatalf("pipeline trailing ports are %q, %q", sub.Ports[3].Name, sub.Ports[4].Name)
	}

	var validRegs []*firrtl.RegInitDecl
	var dataRegs []*firrtl.RegDecl
	var wires []string
	for _, s := range sub.Body {
		switch d := s.(type) {
		case *firrtl.RegInitDecl:
			validRegs = append(validRegs, d)
		case *firrtl.RegDecl:
			dataRegs = append(dataRegs, d)
		case *firrtl.WireDecl:
			wires = append(wires, d.Name)
		}
	}

	if len(validRegs) != 1 || validRegs[0].Name != "valid0" {
		t.Fatalf("expected exactly one valid0 register, got %+v", validRegs)
	}
	if firrtl.ExprString(validRegs[0].Init) != "UInt<1>(0)" {
		t.Fatalf("valid register must reset to zero, inits to %s", firrtl.ExprString(validRegs[0].Init))
	}
	if len(dataRegs) != 1 || dataRegs[0].Name != "data0.0" {
		t.Fatalf("expected exactly one data0.0 register, got %+v", dataRegs)
	}
	if dataRegs[0].Type != (firrtl.UIntType{Width: 32}) {
		t.Fatalf("data register type = %v, want UInt<32>", dataRegs[0].Type)
	}
	wantWires := map[string]bool{"ready0": true, "valid_in": true, "ready_in": true}
	if len(wires) != len(wantWires) {
		t.Fatalf("wires = %v, want ready0, valid_in, ready_in", wires)
	}
	for _, name := range wires {
		if !wantWires[name] {
			t.Fatalf("unexpected wire %q", name)
		}
	}
}

// Flushable control: under a high valid register data advances only on
// demand and backpressure propagates; a bubbled stage accepts
// unconditionally and asserts ready.
func TestLowerPipelineFlushableControl(t *testing.T) {
	circuit := lowerFunc(t, buildAddPipeline(t))
	sub := findModule(t, circuit, "pipeline_0")

	var guard *firrtl.WhenStmt
	for _, s := range sub.Body {
		if w, ok := s.(*firrtl.WhenStmt); ok {
			guard = w
		}
	}
	if guard == nil || firrtl.ExprString(guard.Cond) != "valid0" {
		t.Fatalf("missing flushable-control guard on valid0")
	}
	if !guard.HasElse {
		t.Fatalf("guard must carry both the occupied and the bubble branch")
	}

	// Occupied branch: data registers update iff ready_next and valid_prev;
	// the valid register clears iff ready_next and not valid_prev.
	dataWhen, ok := guard.Then[0].(*firrtl.WhenStmt)
	if !ok || firrtl.ExprString(dataWhen.Cond) != "and(ready_in, valid_in)" {
		t.Fatalf("data update gate malformed: %+v", guard.Then[0])
	}
	dataConnects := connects(dataWhen.Then)
	if dataConnects["data0.0"] != "add(arg0.data, arg1.data)" {
		t.Fatalf("data register source: %v", dataConnects)
	}
	validWhen, ok := guard.Then[1].(*firrtl.WhenStmt)
	if !ok || firrtl.ExprString(validWhen.Cond) != "and(ready_in, not(valid_in))" {
		t.Fatalf("bubble formation gate malformed: %+v", guard.Then[1])
	}
	if connects(validWhen.Then)["valid0"] != "UInt<1>(0)" {
		t.Fatalf("valid register must clear when upstream is idle")
	}
	occupied := connects(guard.Then)
	if occupied["ready0"] != "ready_in" {
		t.Fatalf("backpressure must propagate: %v", occupied)
	}

	// Bubble branch: unconditional acceptance.
	bubble := connects(guard.Else)
	if bubble["data0.0"] != "add(arg0.data, arg1.data)" {
		t.Fatalf("bubbled stage must accept data: %v", bubble)
	}
	if bubble["valid0"] != "valid_in" || bubble["ready0"] != "UInt<1>(1)" {
		t.Fatalf("bubbled stage control: %v", bubble)
	}
}

// Property: the pipeline return drives the output data subfield from the
// cross-stage register, and the instance is wired to the clock domain.
func TestLowerPipelineReturnAndInstance(t *testing.T) {
	circuit := lowerFunc(t, buildAddPipeline(t))
	sub := findModule(t, circuit, "pipeline_0")
	top := findModule(t, circuit, "pipe")

	subConnects := connects(sub.Body)
	if subConnects["arg2.data"] != "data0.0" {
		t.Fatalf("pipeline return wiring: %v", subConnects)
	}

	topConnects := connects(top.Body)
	if topConnects["pipeline_0_0.arg0"] != "arg0" || topConnects["pipeline_0_0.arg1"] != "arg1" {
		t.Fatalf("pipeline operand wiring: %v", topConnects)
	}
	if topConnects["pipeline_0_0.clock"] != "clock" || topConnects["pipeline_0_0.reset"] != "reset" {
		t.Fatalf("pipeline clock wiring: %v", topConnects)
	}
	if topConnects["arg2"] != "pipeline_0_0.arg2" {
		t.Fatalf("pipeline result wiring: %v", topConnects)
	}
}

// Pipelines bypass the sub-module cache: each occurrence gets its own
// sub-module with a unique index.
func TestLowerPipelinesAreNotDeduplicated(t *testing.T) {
	i32 := handshake.SignlessType{Width: 32}
	b := handshake.NewBuilder("twice", []handshake.Type{i32, i32}, []handshake.Type{i32, i32})

	makePipe := func() handshake.ValueID {
		pb := b.Pipeline([]handshake.ValueID{b.Arg(0), b.Arg(1)}, []handshake.Type{i32})
		stage := pb.Stage(i32, i32)
		sum := stage.Arith(handshake.Add, stage.Arg(0), stage.Arg(1))
		pb.Return(sum)
		return pb.Results()[0]
	}
	r0 := makePipe()
	r1 := makePipe()
	b.ReturnOp(r0, r1)

	circuit := lowerFunc(t, b.Func())
	findModule(t, circuit, "pipeline_0")
	findModule(t, circuit, "pipeline_1")
	if len(circuit.Modules) != 3 {
		t.Fatalf("circuit holds %d modules, want two pipelines plus top", len(circuit.Modules))
	}
}

// A two-stage pipeline chains valid registers and ready wires between
// stages.
func TestLowerPipelineTwoStages(t *testing.T) {
	i32 := handshake.SignlessType{Width: 32}
	b := handshake.NewBuilder("deep", []handshake.Type{i32, i32}, []handshake.Type{i32})

	pb := b.Pipeline([]handshake.ValueID{b.Arg(0), b.Arg(1)}, []handshake.Type{i32})
	stage0 := pb.Stage(i32, i32)
	sum := stage0.Arith(handshake.Add, stage0.Arg(0), stage0.Arg(1))
	stage1 := pb.Stage()
	doubled := stage1.Arith(handshake.Add, sum, sum)
	pb.Return(doubled)
	b.ReturnOp(pb.Results()[0])

	reporter := diag.NewReporter(io.Discard, "text")
	circuit, err := Lower(b.Func(), reporter, Options{})
	if err != nil {
		t.Fatalf("Lower failed: %v", err)
	}
	sub := findModule(t, circuit, "pipeline_0")

	var guards []*firrtl.WhenStmt
	regNames := map[string]bool{}
	for _, s := range sub.Body {
		switch d := s.(type) {
		case *firrtl.WhenStmt:
			guards = append(guards, d)
		case *firrtl.RegInitDecl:
			regNames[d.Name] = true
		case *firrtl.RegDecl:
			regNames[d.Name] = true
		}
	}
	if len(guards) != 2 {
		t.Fatalf("expected one control guard per stage, got %d", len(guards))
	}
	for _, want := range []string{"valid0", "valid1", "data0.0", "data1.0"} {
		if !regNames[want] {
			t.Fatalf("missing register %q, have %v", want, regNames)
		}
	}

	// Stage 0 sees stage 1's ready wire; stage 1 sees stage 0's valid
	// register.
	stage0Connects := connects(guards[0].Then)
	if stage0Connects["ready0"] != "ready1" {
		t.Fatalf("stage 0 backpressure: %v", stage0Connects)
	}
	bubble1 := connects(guards[1].Else)
	if bubble1["valid1"] != "valid0" {
		t.Fatalf("stage 1 bubble fill: %v", bubble1)
	}

	// The second stage reads the first stage's data register.
	data1 := connects(guards[1].Then[0].(*firrtl.WhenStmt).Then)
	if data1["data1.0"] != "add(data0.0, data0.0)" {
		t.Fatalf("cross-stage operand must read the stage register: %v", data1)
	}
}
