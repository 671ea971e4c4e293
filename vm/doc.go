// Package vm implements the tinyvm virtual machine.
//
// This package contains:
//   - The runtime stack with its frame-pointer stack
//   - The return-address stack and call protocol
//   - The fetch/execute loop (Run) and single stepping (Step)
//   - Breakpoint debugging over Step
//
// A VM owns all of its state. Independent VMs may run side by side on the
// same Program, which is never mutated during execution.
package vm
