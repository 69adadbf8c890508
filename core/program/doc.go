// Package program turns a compiled network and the constraints layered on top
// of it into a linear program, and defines the contract solvers implement.
//
// One continuous variable exists per (non-fixed flow, step) and per
// (storage, step) level. Fixed flows are parameters and only contribute
// constants. The objective minimises the sum over steps of cost times energy.
package program
