// Package vm implements the curvy virtual machine.
//
// This package contains:
//   - The tagged value model and its operator semantics
//   - The opcode set and the label-resolving bytecode builder
//   - The immutable Code artifact and its content fingerprint
//   - The stack interpreter and the default builtin table
package vm
