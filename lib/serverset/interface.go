package serverset

import "time"

// IServerSet defines the interface for the node status table of a client.
type IServerSet interface {
	// Nodes returns all configured nodes in their configured order.
	Nodes() []Node

	// MarkUnreachable flags the node as unreachable. The node is not handed
	// out again before at + retry interval, unless no other node is eligible.
	MarkUnreachable(node Node, at time.Time)

	// MarkReachable flags the node as reachable and moves the round-robin
	// position behind it.
	MarkReachable(node Node)

	// NextCandidate returns the next node to try, skipping all nodes in exclude.
	// It returns false only if the set is empty or every node is excluded.
	NextCandidate(exclude NodeSet) (Node, bool)

	// Statuses returns a snapshot of the status of every node.
	Statuses() []Status
}

// Status is the reachability record of a single node
type Status struct {
	Node        Node
	Reachable   bool
	LastFailure time.Time // zero if the node never failed (or recovered)
	RetryAfter  time.Time // zero if the node is reachable
}
