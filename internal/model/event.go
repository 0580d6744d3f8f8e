package model

// EventKind identifies the variant carried by a ProgressEvent.
type EventKind int

// Progress event kinds.
const (
	// EventNodeUpdated indicates a node was created or one of its
	// observable fields changed.
	EventNodeUpdated EventKind = iota + 1

	// EventEdgeAdded indicates a new edge was recorded in the graph.
	EventEdgeAdded
)

// ProgressEvent is an incremental notification emitted by the crawl
// engine while a run is in progress. It is a tagged union with two
// cases: a node update or an edge addition.
//
// Events are a side-channel projection for observers (progress display,
// live logging). They may be dropped under backpressure and must never
// be used to reconstruct the final graph; the terminal CrawlResult is
// the single source of truth.
type ProgressEvent struct {
	// Kind selects which variant fields are populated.
	Kind EventKind

	// Node is a snapshot of the updated node.
	// Set only when Kind is EventNodeUpdated.
	Node *Node

	// From and To are the canonical endpoints of the new edge.
	// Set only when Kind is EventEdgeAdded.
	From string
	To   string
}

// NodeUpdated creates a node-update event carrying a snapshot of n.
func NodeUpdated(n *Node) ProgressEvent {
	return ProgressEvent{Kind: EventNodeUpdated, Node: n.Clone()}
}

// EdgeAdded creates an edge-added event for the pair (from, to).
func EdgeAdded(from, to string) ProgressEvent {
	return ProgressEvent{Kind: EventEdgeAdded, From: from, To: to}
}
