package firrtl

import (
	"fmt"
	"strings"
)

// Type is a hardware type.
type Type interface {
	isType()
	String() string
}

// UIntType is an unsigned integer of the given width.
type UIntType struct {
	Width int
}

// SIntType is a signed integer of the given width.
type SIntType struct {
	Width int
}

// ClockType is the clock signal type.
type ClockType struct{}

// BundleField is one subfield of a bundle. Flip reverses the field's flow
// relative to the bundle's nominal direction.
type BundleField struct {
	Name string
	Flip bool
	Type Type
}

// BundleType is an ordered record of named, optionally flipped subfields.
type BundleType struct {
	Fields []BundleField
}

func (UIntType) isType()   {}
func (SIntType) isType()   {}
func (ClockType) isType()  {}
func (BundleType) isType() {}

func (t UIntType) String() string { return fmt.Sprintf("UInt<%d>", t.Width) }
func (t SIntType) String() string { return fmt.Sprintf("SInt<%d>", t.Width) }
func (ClockType) String() string  { return "Clock" }

func (t BundleType) String() string {
	parts := make([]string, len(t.Fields))
	for i, f := range t.Fields {
		flip := ""
		if f.Flip {
			flip = "flip "
		}
		parts[i] = fmt.Sprintf("%s%s : %s", flip, f.Name, f.Type)
	}
	return "{ " + strings.Join(parts, ", ") + " }"
}

// Field looks up a subfield by name.
func (t BundleType) Field(name string) (BundleField, bool) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return BundleField{}, false
}

// FlipAll returns the bundle with every field's direction reversed. Callers
// use it to derive an instance's view of a module port list.
func (t BundleType) FlipAll() BundleType {
	fields := make([]BundleField, len(t.Fields))
	for i, f := range t.Fields {
		f.Flip = !f.Flip
		fields[i] = f
	}
	return BundleType{Fields: fields}
}
