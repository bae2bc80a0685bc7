// Package compiler lowers curvy syntax trees to vm.Code.
//
// A front-end hands over a *Module. Compile runs the constant-folding
// Optimizer and then the Compiler, which interns names and constants and
// emits bytecode through vm.BytecodeBuilder. Session chains compilation
// and execution against one VM so that globals persist between modules.
package compiler
