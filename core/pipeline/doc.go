// Package pipeline runs the compile, constrain, solve and aggregate chain for
// every district of a run on a bounded worker pool.
package pipeline
