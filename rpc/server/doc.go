// Package server implements an in-memory emulator of a CrateDB node's HTTP
// endpoint. It is used by the test suites of the client and by `dcrate serve`
// to try the client without a cluster.
//
// The package focuses on:
//   - Answering POST /_sql for blob table DDL and registered statements
//   - Storing blobs under /_blobs/{container}/{digest} with the status codes
//     of a real node (201 created, 409 exists or digest mismatch, 404 unknown)
//   - Simulating failures (unavailable node, disabled blobs) for failover tests
//
// Key Components:
//
//   - Node: The emulator. Handler returns the http.Handler that can be mounted
//     on an httptest.Server, Serve listens via the configured transport.
//
//   - StatementHandler: Function answering one statement. Handlers are
//     registered with Node.HandleStatement, statements without a handler are
//     answered with a SQLParseException (400, code 4000). Bulk requests call
//     the handler once per parameter set, failed sets report row count -2.
//
// Built-in statements:
//
//	select 1
//	create blob table NAME [...]
//	drop blob table [if exists] NAME
//
// Usage Example:
//
//	node := server.NewNode(common.ServerConfig{}, http.NewHttpServerTransport(), serializer.NewJSONSerializer())
//	node.HandleStatement("select name from sys.cluster", func(string, []any) (*common.SQLResponse, error) {
//	  return server.ResultOf([]string{"name"}, []any{4}, []any{"crate"}), nil
//	})
//	ts := httptest.NewServer(node.Handler())
//
// Thread Safety:
//
//	The node is thread-safe, blob tables, blobs and handlers are kept in
//	xsync maps. Serve must be called only once.
package server
