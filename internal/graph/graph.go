// Package graph provides the in-memory node and edge accumulator backing
// a crawl run. It has no crawl policy of its own: the crawler decides
// what to record, the store only keeps the node table and adjacency sets
// consistent.
package graph

import (
	"sort"

	"github.com/nao1215/webmap/internal/model"
)

// Store accumulates nodes and edges during a single crawl run.
// It is owned exclusively by one crawl run for that run's lifetime;
// the sequential engine never mutates it from more than one goroutine.
//
// The store maintains one invariant at all times: for every node with a
// non-empty adjacency set, OutDegree equals the size of that set. The
// recomputation happens inside AddEdge rather than in a deferred pass so
// the invariant holds after every mutation.
type Store struct {
	// nodes maps canonical URL to node data.
	nodes map[string]*model.Node

	// adjacency maps canonical source URL to the set of canonical
	// targets. Duplicate edges collapse; self-edges are allowed.
	adjacency map[string]map[string]struct{}
}

// New creates an empty store.
func New() *Store {
	return &Store{
		nodes:     make(map[string]*model.Node),
		adjacency: make(map[string]map[string]struct{}),
	}
}

// UpsertNode returns the node for the canonical URL, creating it with
// absent status if it does not exist yet. This is how placeholder nodes
// come into being when a target is discovered before it is fetched.
func (s *Store) UpsertNode(canonical string) *model.Node {
	if n, ok := s.nodes[canonical]; ok {
		return n
	}
	n := model.NewNode(canonical)
	s.nodes[canonical] = n
	return n
}

// Node returns the node for the canonical URL if it exists.
func (s *Store) Node(canonical string) (*model.Node, bool) {
	n, ok := s.nodes[canonical]
	return n, ok
}

// AddEdge records a directed edge from one canonical URL to another.
// It returns true if the edge is new, false if it already existed.
// The source node's out-degree is recomputed immediately.
func (s *Store) AddEdge(from, to string) bool {
	targets, ok := s.adjacency[from]
	if !ok {
		targets = make(map[string]struct{})
		s.adjacency[from] = targets
	}
	if _, exists := targets[to]; exists {
		return false
	}
	targets[to] = struct{}{}
	s.RecomputeOutDegree(from)
	return true
}

// RecomputeOutDegree sets the node's out-degree to the size of its
// adjacency set. It is a no-op if the node does not exist yet; the
// finalize pass creates missing nodes and recomputes once more.
func (s *Store) RecomputeOutDegree(canonical string) {
	n, ok := s.nodes[canonical]
	if !ok {
		return
	}
	n.OutDegree = len(s.adjacency[canonical])
}

// NodeCount returns the number of nodes recorded so far.
func (s *Store) NodeCount() int {
	return len(s.nodes)
}

// EdgeCount returns the total number of distinct edges recorded so far.
func (s *Store) EdgeCount() int {
	total := 0
	for _, targets := range s.adjacency {
		total += len(targets)
	}
	return total
}

// Finalize freezes the graph and returns the node table and adjacency
// mapping. Every canonical URL appearing as an edge endpoint receives a
// placeholder node if it was never fetched, and all out-degrees are
// recomputed one final time. Adjacency sets are returned as sorted
// slices for deterministic iteration by report writers.
func (s *Store) Finalize() (map[string]*model.Node, map[string][]string) {
	for from, targets := range s.adjacency {
		s.UpsertNode(from)
		for to := range targets {
			s.UpsertNode(to)
		}
		s.RecomputeOutDegree(from)
	}

	adjacency := make(map[string][]string, len(s.adjacency))
	for from, targets := range s.adjacency {
		sorted := make([]string, 0, len(targets))
		for to := range targets {
			sorted = append(sorted, to)
		}
		sort.Strings(sorted)
		adjacency[from] = sorted
	}

	return s.nodes, adjacency
}
