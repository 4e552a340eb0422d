package passes

import (
	"github.com/ericleaf/circt/internal/handshake"
	"github.com/ericleaf/circt/internal/lower"
)

// Pass is an analysis or transformation over a dataflow design.
type Pass interface {
	Name() string
	Run(design *handshake.Design) error
}

// Info describes a registered pass for CLI listing.
type Info struct {
	Tag         string
	Description string
}

// Registry lists the passes the driver can run, in execution order.
func Registry() []Info {
	return []Info{
		{Tag: "shape-check", Description: "Check operand and result shapes of the dataflow graph"},
		{Tag: lower.PassTag, Description: lower.PassDescription},
	}
}
