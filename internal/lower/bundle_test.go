package lower

import (
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ericleaf/circt/internal/diag"
	"github.com/ericleaf/circt/internal/firrtl"
	"github.com/ericleaf/circt/internal/handshake"
)

func newTestLowering() *lowering {
	return &lowering{
		opts:     Options{}.withDefaults(),
		reporter: diag.NewReporter(io.Discard, "text"),
	}
}

func TestBundleOfFlipTable(t *testing.T) {
	l := newTestLowering()

	forward, ok := l.bundleOf(handshake.SignlessType{Width: 32}, Forward, diag.Pos{})
	if !ok {
		t.Fatalf("forward bundle failed")
	}
	want := firrtl.BundleType{Fields: []firrtl.BundleField{
		{Name: "valid", Flip: true, Type: firrtl.UIntType{Width: 1}},
		{Name: "ready", Flip: false, Type: firrtl.UIntType{Width: 1}},
		{Name: "data", Flip: true, Type: firrtl.UIntType{Width: 32}},
	}}
	if diff := cmp.Diff(want, forward); diff != "" {
		t.Fatalf("forward bundle mismatch (-want +got):\n%s", diff)
	}

	reverse, ok := l.bundleOf(handshake.SignlessType{Width: 32}, Reverse, diag.Pos{})
	if !ok {
		t.Fatalf("reverse bundle failed")
	}
	if diff := cmp.Diff(want.FlipAll(), reverse); diff != "" {
		t.Fatalf("reverse bundle is not the dual of forward (-want +got):\n%s", diff)
	}
}

func TestBundleOfDataTypes(t *testing.T) {
	l := newTestLowering()

	cases := []struct {
		in   handshake.Type
		want firrtl.Type
	}{
		{handshake.SignedType{Width: 16}, firrtl.SIntType{Width: 16}},
		{handshake.UnsignedType{Width: 5}, firrtl.UIntType{Width: 5}},
		{handshake.SignlessType{Width: 8}, firrtl.UIntType{Width: 8}},
		{handshake.IndexType{}, firrtl.UIntType{Width: 64}},
	}
	for _, tc := range cases {
		bundle, ok := l.bundleOf(tc.in, Reverse, diag.Pos{})
		if !ok {
			t.Fatalf("bundleOf(%s) failed", tc.in)
		}
		field, ok := bundle.(firrtl.BundleType).Field("data")
		if !ok {
			t.Fatalf("bundleOf(%s) lacks a data subfield", tc.in)
		}
		if field.Type != tc.want {
			t.Errorf("bundleOf(%s) data = %v, want %v", tc.in, field.Type, tc.want)
		}
	}
}

func TestBundleOfControlOmitsData(t *testing.T) {
	l := newTestLowering()
	bundle, ok := l.bundleOf(handshake.NoneType{}, Forward, diag.Pos{})
	if !ok {
		t.Fatalf("none bundle failed")
	}
	fields := bundle.(firrtl.BundleType).Fields
	if len(fields) != 2 {
		t.Fatalf("control bundle has %d fields, want valid and ready only", len(fields))
	}
}

func TestBundleOfConfigurableIndexWidth(t *testing.T) {
	l := newTestLowering()
	l.opts.IndexWidth = 32

	bundle, _ := l.bundleOf(handshake.IndexType{}, Forward, diag.Pos{})
	field, _ := bundle.(firrtl.BundleType).Field("data")
	if field.Type != (firrtl.UIntType{Width: 32}) {
		t.Fatalf("index data = %v, want UInt<32>", field.Type)
	}
}
