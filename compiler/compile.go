package compiler

import (
	"github.com/curtisbucher/curvy/vm"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("curvy.compiler")

// Options controls compilation.
type Options struct {
	// Optimize runs the constant-folding pass before lowering.
	Optimize bool
}

// DefaultOptions returns the options used when no configuration is given.
func DefaultOptions() Options {
	return Options{Optimize: true}
}

// Compile lowers mod into a Code, folding constants first when
// opts.Optimize is set.
func Compile(mod *Module, opts Options) *vm.Code {
	if opts.Optimize {
		mod = Optimize(mod)
	}
	c := NewCompiler()
	c.Visit(mod)
	return c.Build()
}
