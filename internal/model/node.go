package model

// Node represents a single endpoint in the crawl graph.
// Node identity is the canonical URL: scheme, authority, and normalized
// path with query and fragment removed. A node is created either when a
// page is fetched or when it is first discovered as an edge target,
// whichever happens first.
//
// Design decision: Node is a mutable record owned exclusively by the
// crawl engine for the duration of a run. Observers receive snapshots
// via Clone, never the live pointer, so in-place mutation (growing
// param-example lists, status updates) stays race-free.
type Node struct {
	// URL is the canonical URL identifying this node.
	URL string `json:"url"`

	// Status is the HTTP status code observed when the node was fetched.
	// Nil if the node was never fetched or the fetch failed at the
	// transport level.
	Status *int `json:"status"`

	// AcceptsParams is true if any observed reference to this URL
	// carried a query string, or if an HTML form action pointed here.
	AcceptsParams bool `json:"accepts_params"`

	// ParamExamples holds concrete examples of how this endpoint accepts
	// input: either a full URL with a query string, or a descriptor like
	// "POST form -> /login params: user,pass" for non-GET forms.
	// Insertion order is preserved and duplicates are kept.
	ParamExamples []string `json:"param_examples"`

	// OutDegree is the number of distinct canonical targets this node
	// links to. It is recomputed whenever the node's adjacency changes.
	OutDegree int `json:"out_degree"`
}

// NewNode creates a node for the given canonical URL.
// Status is left absent until the page is actually fetched.
func NewNode(canonical string) *Node {
	return &Node{
		URL:           canonical,
		ParamExamples: []string{},
	}
}

// SetStatus records the HTTP status code observed for this node.
func (n *Node) SetStatus(code int) {
	n.Status = &code
}

// AddParamExample marks the node as accepting parameters and appends
// the example. Examples are never deduplicated; each discovery event
// is recorded in order.
func (n *Node) AddParamExample(example string) {
	n.AcceptsParams = true
	n.ParamExamples = append(n.ParamExamples, example)
}

// Fetched reports whether the node was actually fetched, meaning a
// status code was observed.
func (n *Node) Fetched() bool {
	return n.Status != nil
}

// Clone returns a deep copy of the node. The engine emits clones to
// observers so that later in-place mutation cannot race with readers.
func (n *Node) Clone() *Node {
	c := &Node{
		URL:           n.URL,
		AcceptsParams: n.AcceptsParams,
		ParamExamples: make([]string, len(n.ParamExamples)),
		OutDegree:     n.OutDegree,
	}
	copy(c.ParamExamples, n.ParamExamples)
	if n.Status != nil {
		status := *n.Status
		c.Status = &status
	}
	return c
}
