package serverset

import (
	"sync"
	"time"

	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("serverset")

// nodeStatus is the mutable part of a Status
type nodeStatus struct {
	reachable   bool
	lastFailure time.Time
	retryAfter  time.Time
}

type serverSet struct {
	mu            sync.Mutex
	nodes         []Node
	status        []nodeStatus
	next          int // round-robin position (index after the last reachable node)
	retryInterval time.Duration
	now           func() time.Time
}

// NewServerSet creates a server set for the given nodes. All nodes start as reachable.
// Unreachable nodes become eligible again after retryInterval.
func NewServerSet(nodes []Node, retryInterval time.Duration) IServerSet {
	return newServerSet(nodes, retryInterval, time.Now)
}

// newServerSet allows injecting the clock (used by tests)
func newServerSet(nodes []Node, retryInterval time.Duration, now func() time.Time) *serverSet {
	s := &serverSet{
		nodes:         append([]Node(nil), nodes...),
		status:        make([]nodeStatus, len(nodes)),
		retryInterval: retryInterval,
		now:           now,
	}
	for i := range s.status {
		s.status[i].reachable = true
	}
	return s
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serverset.IServerSet)
// --------------------------------------------------------------------------

func (s *serverSet) Nodes() []Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Node(nil), s.nodes...)
}

func (s *serverSet) MarkUnreachable(node Node, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(node)
	if idx < 0 {
		return
	}

	if s.status[idx].reachable {
		Logger.Warningf("removed server %s from active pool", node)
	}
	s.status[idx] = nodeStatus{
		reachable:   false,
		lastFailure: at,
		retryAfter:  at.Add(s.retryInterval),
	}
}

func (s *serverSet) MarkReachable(node Node) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(node)
	if idx < 0 {
		return
	}

	if !s.status[idx].reachable {
		Logger.Infof("restored server %s into active pool", node)
	}
	s.status[idx] = nodeStatus{reachable: true}
	s.next = (idx + 1) % len(s.nodes)
}

func (s *serverSet) NextCandidate(exclude NodeSet) (Node, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.nodes)
	if n == 0 {
		return Node{}, false
	}

	now := s.now()
	fallback := -1

	for i := 0; i < n; i++ {
		idx := (s.next + i) % n
		if exclude.Has(s.nodes[idx]) {
			continue
		}

		status := s.status[idx]
		if status.reachable || !now.Before(status.retryAfter) {
			return s.nodes[idx], true
		}

		// remember the node that failed the longest time ago
		// (strictly older wins, so ties keep the earlier round-robin position)
		if fallback < 0 || status.lastFailure.Before(s.status[fallback].lastFailure) {
			fallback = idx
		}
	}

	if fallback < 0 {
		// every node is excluded
		return Node{}, false
	}

	Logger.Debugf("no eligible server, falling back to least recently failed server %s", s.nodes[fallback])
	return s.nodes[fallback], true
}

func (s *serverSet) Statuses() []Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	statuses := make([]Status, len(s.nodes))
	for i, node := range s.nodes {
		statuses[i] = Status{
			Node:        node,
			Reachable:   s.status[i].reachable,
			LastFailure: s.status[i].lastFailure,
			RetryAfter:  s.status[i].retryAfter,
		}
	}
	return statuses
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// indexOf returns the position of the node or -1 (caller must hold the lock)
func (s *serverSet) indexOf(node Node) int {
	for i, n := range s.nodes {
		if n.Address == node.Address {
			return i
		}
	}
	return -1
}
