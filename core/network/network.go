package network

import (
	"fmt"
	"math"

	"github.com/kilianp07/districtopt/core/model"
)

// Unbounded is the capacity of a flow without upper bound.
var Unbounded = math.Inf(1)

// NodeKind distinguishes the roles a node can play in the graph.
type NodeKind int

const (
	KindJunction NodeKind = iota
	KindSource
	KindSink
	KindConverter
	KindStorage
)

func (k NodeKind) String() string {
	switch k {
	case KindJunction:
		return "junction"
	case KindSource:
		return "source"
	case KindSink:
		return "sink"
	case KindConverter:
		return "converter"
	case KindStorage:
		return "storage"
	default:
		return "unknown"
	}
}

// NodeID is a handle to a node of a compiled network.
type NodeID int

// FlowID is a handle to a flow of a compiled network.
type FlowID int

// NoFlow is the sentinel handle for technologies that are absent. FlowID(0)
// is a valid flow.
const NoFlow FlowID = -1

// Node is a junction, source, sink, converter or storage.
type Node struct {
	ID    NodeID
	Kind  NodeKind
	Name  string
	Label string
	// Tech is the technology that created the node, empty for the fixed topology.
	Tech model.Key
}

// Flow is a directed edge between two nodes.
type Flow struct {
	ID       FlowID
	From, To NodeID
	Label    string
	Tech     model.Key
	// Capacity is a constant upper bound, Unbounded when absent.
	Capacity float64
	// Max is an optional per-step upper bound (curtailable availability).
	Max model.Series
	// Fix pins the flow at every step; the flow is then a parameter.
	Fix model.Series
	// Cost is the cost per kWh at every step; a single value is constant.
	Cost model.Series
}

// Fixed reports whether the flow is pinned to a profile.
func (f Flow) Fixed() bool { return f.Fix != nil }

// Bounded reports whether the flow has a constant upper bound.
func (f Flow) Bounded() bool { return !math.IsInf(f.Capacity, 1) }

// Upper returns the upper bound at step t.
func (f Flow) Upper(t int) float64 {
	ub := f.Capacity
	if f.Max != nil && f.Max.At(t) < ub {
		ub = f.Max.At(t)
	}
	return ub
}

// CostAt returns the cost per kWh at step t.
func (f Flow) CostAt(t int) float64 { return f.Cost.At(t) }

// Conversion links a converter output to its factor series.
type Conversion struct {
	Flow   FlowID
	Factor model.Series
}

// Converter relates one input flow to its outputs:
// output_j[t] == factor_j[t] * input[t].
type Converter struct {
	Node    NodeID
	Tech    model.Key
	Input   FlowID
	Outputs []Conversion
}

// StorageID is a handle to a storage of a compiled network.
type StorageID int

// Storage is a stateful store attached to a junction through a charge flow
// (junction to store) and a discharge flow (store to junction).
type Storage struct {
	ID        StorageID
	Node      NodeID
	Tech      model.Key
	Charge    FlowID
	Discharge FlowID
	Params    model.Storage
}

// Network is the compiled flow graph of one district over one horizon.
type Network struct {
	District   string
	Horizon    model.Horizon
	Tariffs    model.Tariffs
	Nodes      []Node
	Flows      []Flow
	Converters []Converter
	Storages   []Storage

	// Markets holds the flow into each market product sink.
	Markets map[model.Product]FlowID
	// MarketFeed is the flow from distribution into the market junction.
	MarketFeed FlowID
	// GridImport is the slack import flow.
	GridImport FlowID
	// Primary holds the characteristic output flow of each present technology
	// (the source output for supplies and renewables, the main output of
	// converters). Storages are listed in Storages.
	Primary map[model.Key]FlowID

	in  map[NodeID][]FlowID
	out map[NodeID][]FlowID
}

// Node returns the node with the given handle.
func (n *Network) Node(id NodeID) Node { return n.Nodes[id] }

// Flow returns the flow with the given handle.
func (n *Network) Flow(id FlowID) Flow { return n.Flows[id] }

// Junctions returns every conservation node.
func (n *Network) Junctions() []Node {
	var res []Node
	for _, nd := range n.Nodes {
		if nd.Kind == KindJunction {
			res = append(res, nd)
		}
	}
	return res
}

// Inflows returns the flows entering node id.
func (n *Network) Inflows(id NodeID) []FlowID { return n.in[id] }

// Outflows returns the flows leaving node id.
func (n *Network) Outflows(id NodeID) []FlowID { return n.out[id] }

// Lookup returns the node with the given name.
func (n *Network) Lookup(name string) (Node, bool) {
	for _, nd := range n.Nodes {
		if nd.Name == name {
			return nd, true
		}
	}
	return Node{}, false
}

// References reports whether any node, flow, converter or storage was created
// for technology k.
func (n *Network) References(k model.Key) bool {
	for _, nd := range n.Nodes {
		if nd.Tech == k {
			return true
		}
	}
	for _, f := range n.Flows {
		if f.Tech == k {
			return true
		}
	}
	for _, c := range n.Converters {
		if c.Tech == k {
			return true
		}
	}
	for _, s := range n.Storages {
		if s.Tech == k {
			return true
		}
	}
	return false
}

// Summary returns a short human readable description of the network size.
func (n *Network) Summary() string {
	return fmt.Sprintf("%d nodes, %d flows, %d converters, %d storages over %d steps",
		len(n.Nodes), len(n.Flows), len(n.Converters), len(n.Storages), n.Horizon.Len)
}
