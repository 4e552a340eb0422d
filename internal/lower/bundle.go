package lower

import (
	"github.com/ericleaf/circt/internal/diag"
	"github.com/ericleaf/circt/internal/firrtl"
	"github.com/ericleaf/circt/internal/handshake"
)

// Direction selects the flip pattern of a handshake bundle. Forward is the
// caller-facing shape of an operand (input) port; Reverse the shape of a
// result (output) port.
type Direction int

const (
	Forward Direction = iota
	Reverse
)

const unsupportedTypeMsg = "Unsupported data type. Supported data types: integer (signed, unsigned, signless), index, none."

// bundleOf maps a dataflow edge type to its handshake wire bundle. An
// unsupported edge type produces a diagnostic and a nil bundle; callers must
// abort construction for the offending operator.
func (l *lowering) bundleOf(t handshake.Type, dir Direction, pos diag.Pos) (firrtl.Type, bool) {
	data, ok := dataTypeOf(t, l.opts.IndexWidth)
	if !ok {
		l.reporter.Error(pos, unsupportedTypeMsg)
		return nil, false
	}

	flipValid := dir == Forward
	fields := []firrtl.BundleField{
		{Name: "valid", Flip: flipValid, Type: firrtl.UIntType{Width: 1}},
		{Name: "ready", Flip: !flipValid, Type: firrtl.UIntType{Width: 1}},
	}
	if data != nil {
		fields = append(fields, firrtl.BundleField{Name: "data", Flip: flipValid, Type: data})
	}
	return firrtl.BundleType{Fields: fields}, true
}

// dataTypeOf returns the hardware type of the data subfield for a dataflow
// edge type, or nil for control-only edges. The second result reports
// whether the edge type is supported at all.
func dataTypeOf(t handshake.Type, indexWidth int) (firrtl.Type, bool) {
	switch tt := t.(type) {
	case handshake.SignedType:
		return firrtl.SIntType{Width: tt.Width}, true
	case handshake.UnsignedType:
		return firrtl.UIntType{Width: tt.Width}, true
	case handshake.SignlessType:
		// Signless integers are treated as unsigned.
		return firrtl.UIntType{Width: tt.Width}, true
	case handshake.IndexType:
		return firrtl.UIntType{Width: indexWidth}, true
	case handshake.NoneType:
		return nil, true
	default:
		return nil, false
	}
}
