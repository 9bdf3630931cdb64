// Package client implements the CrateDB client: SQL execution, blob storage
// and the connection/cursor API on top of them. Every operation is sent to one
// node at a time and fails over to the other nodes of the cluster.
//
// The package focuses on:
//   - Failover over all configured nodes within a retry budget
//   - Typed decoding of SQL results (see lib/types)
//   - Streaming blob up- and downloads addressed by SHA-1 digest
//   - Mapping HTTP outcomes to the error taxonomy of rpc/common
//
// Key Components:
//
//   - Client: Owns the server set, the transport and the coordinator. Execute
//     and ExecuteMany run statements, BlobContainer gives access to a blob table.
//
//   - coordinator: Runs an operation on candidate nodes chosen by the server
//     set. A failed attempt is classified by retryablehttp's default policy:
//     connection errors, timeouts, 429 and every 5xx mark the node
//     unreachable and the next node is tried; after every node failed the
//     coordinator pauses briefly and starts a new rotation. Once the retry
//     budget (ClientConfig.Timeout) is spent a *common.ConnectionError is
//     returned. Request defects (4xx) are returned at once as
//     *common.ProgrammingError.
//
//   - BlobContainer: Exists (HEAD), Put/PutDigest (PUT), Get (GET) and Delete
//     (DELETE) on /_blobs/{container}/{digest}. Uploads are hashed in a single
//     pass and re-verified while streaming.
//
//   - Connection / Cursor: DB-API like facade. Closing the connection closes
//     the client, afterwards every call fails with common.ErrConnectionClosed.
//
// Metrics:
//
//	The coordinator records counters and a duration histogram per operation
//	and attempt counters per node with VictoriaMetrics (dcrate_* metrics).
//
// Usage Example:
//
//	conn, err := client.Connect(common.ClientConfig{
//	  Servers: []string{"host1:4200", "host2:4200"},
//	  Timeout: 10 * time.Second,
//	})
//	if err != nil {
//	  return err
//	}
//	defer conn.Close()
//
//	cursor, _ := conn.Cursor()
//	if err := cursor.Execute(ctx, "select name from locations where id = ?", 1); err != nil {
//	  return err
//	}
//	row, _ := cursor.FetchOne()
//
//	blobs, _ := conn.BlobContainer("myfiles")
//	digest, err := blobs.Put(ctx, strings.NewReader("hello"))
//
// Thread Safety:
//
//	Client, Connection and BlobContainer are safe for concurrent use. A Cursor
//	keeps iteration state and must not be shared between goroutines.
package client
