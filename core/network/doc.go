// Package network compiles a district technology configuration into a
// directed energy-flow graph. Junctions enforce conservation, flows carry
// capacity, availability, fixed profiles and costs, converters relate their
// input to their outputs through conversion factors and storages carry state
// between steps. Every node and flow created for an optional technology is
// tagged with its key so that absent technologies leave no trace in the graph.
package network
