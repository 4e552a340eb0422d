package lower

import (
	"testing"

	"github.com/ericleaf/circt/internal/handshake"
)

func TestSubModuleNames(t *testing.T) {
	i32 := handshake.SignlessType{Width: 32}
	none := handshake.NoneType{}

	b := handshake.NewBuilder("sig", []handshake.Type{i32, i32, none}, nil)
	fn := b.Func()

	b.Arith(handshake.Add, b.Arg(0), b.Arg(1))
	b.Cmp(handshake.CmpSLT, b.Arg(0), b.Arg(1))
	b.Fork(true, b.Arg(2), 3)
	b.BufferOp(b.Arg(0), 2, true, false)
	b.BufferOp(b.Arg(0), 4, false, false)
	b.Join(b.Arg(2), b.Arg(2))

	want := []string{
		"addi_2ins_1outs",
		"cmpi_2ins_1outs_slt",
		"fork_1ins_3outs_ctrl",
		"buffer_1ins_1outs_2slots_seq",
		"buffer_1ins_1outs_4slots",
		"join_2ins_1outs",
	}
	for i, n := range fn.Body {
		if got := SubModuleName(n); got != want[i] {
			t.Errorf("signature %d = %q, want %q", i, got, want[i])
		}
	}
}

func TestSignatureIgnoresFalseControlAttr(t *testing.T) {
	i32 := handshake.SignlessType{Width: 32}
	b := handshake.NewBuilder("sig", []handshake.Type{i32}, nil)
	b.Branch(false, b.Arg(0))

	if got := SubModuleName(b.Func().Body[0]); got != "branch_1ins_1outs" {
		t.Fatalf("signature = %q, want branch_1ins_1outs", got)
	}
}
