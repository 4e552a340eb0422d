package handshake

import "fmt"

// Type describes the payload carried by a dataflow edge.
type Type interface {
	isType()
	String() string
}

// SignedType is a signed integer payload of the given width.
type SignedType struct {
	Width int
}

// UnsignedType is an unsigned integer payload of the given width.
type UnsignedType struct {
	Width int
}

// SignlessType is an integer payload without sign interpretation. It is
// treated as unsigned when lowered.
type SignlessType struct {
	Width int
}

// IndexType is a platform index payload. Its lowered width is configurable
// and defaults to 64 bits.
type IndexType struct{}

// NoneType marks a control-only edge carrying no payload.
type NoneType struct{}

func (SignedType) isType()   {}
func (UnsignedType) isType() {}
func (SignlessType) isType() {}
func (IndexType) isType()    {}
func (NoneType) isType()     {}

func (t SignedType) String() string   { return fmt.Sprintf("si%d", t.Width) }
func (t UnsignedType) String() string { return fmt.Sprintf("ui%d", t.Width) }
func (t SignlessType) String() string { return fmt.Sprintf("i%d", t.Width) }
func (IndexType) String() string      { return "index" }
func (NoneType) String() string       { return "none" }

// IsControl reports whether t carries no data payload.
func IsControl(t Type) bool {
	_, ok := t.(NoneType)
	return ok
}

// Width returns the payload width of t and whether it has one. Index types
// report the placeholder width 0; the lowering substitutes the configured
// index width.
func Width(t Type) (int, bool) {
	switch tt := t.(type) {
	case SignedType:
		return tt.Width, true
	case UnsignedType:
		return tt.Width, true
	case SignlessType:
		return tt.Width, true
	case IndexType:
		return 0, true
	default:
		return 0, false
	}
}
