package compiler

import (
	"github.com/curtisbucher/curvy/vm"
)

// Session compiles modules and runs them one after another on a single VM,
// so names bound by one module are visible to the next.
type Session struct {
	opts    Options
	machine *vm.VM
}

// NewSession creates a session that runs code on machine.
func NewSession(opts Options, machine *vm.VM) *Session {
	return &Session{opts: opts, machine: machine}
}

// VM returns the machine the session runs on.
func (s *Session) VM() *vm.VM {
	return s.machine
}

// Exec compiles mod and runs it. Runtime errors are returned as
// *vm.RuntimeError; the session stays usable afterwards.
func (s *Session) Exec(mod *Module) error {
	return s.machine.Run(Compile(mod, s.opts))
}
