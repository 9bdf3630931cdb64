// Package serverset keeps track of the CrateDB nodes a client may talk to and
// of their reachability. It is the only mutable state shared by concurrent
// requests of a client, so every operation is guarded by a single mutex.
//
// Core Functionality:
//   - Parsing of node addresses (host, host:port, http(s)://host:port)
//   - Deterministic round-robin selection of the next candidate node
//   - Temporary exclusion of unreachable nodes for a constant retry interval
//
// Selection Policy:
//
//	NextCandidate walks the node list starting at the position after the node
//	that was last reported reachable. Nodes that failed less than RetryInterval
//	ago are skipped, as are nodes in the exclude set. If no node is eligible,
//	the node that failed the longest time ago is returned anyway, so a cluster
//	that had a short blip on every node is never locked out permanently.
//
// Usage Example:
//
//	nodes, _ := serverset.ParseNodes([]string{"host1:4200", "host2:4200"})
//	set := serverset.NewServerSet(nodes, 30*time.Second)
//
//	tried := serverset.NodeSet{}
//	node, ok := set.NextCandidate(tried)
//	if ok {
//	  // talk to node ...
//	  set.MarkUnreachable(node, time.Now())
//	  tried.Add(node)
//	}
//
// Thread Safety:
//
//	All ServerSet methods are safe for concurrent use. NodeSet is a plain map
//	and owned by a single request.
package serverset
