// Package rpc provides the HTTP communication layer between dCrate clients and
// CrateDB nodes.
//
// The package is organized into several subpackages:
//
//   - common: Wire structures of the /_sql endpoint, the client and emulator
//     configuration, the error taxonomy and logging.
//
//   - transport: Network communication abstractions with an HTTP implementation
//     (pooled client, middleware logged server).
//
//   - serializer: JSON encoding of SQL requests and responses.
//
//   - client: The failover-aware client with SQL execution, blob storage and
//     the connection/cursor API.
//
//   - server: An in-memory emulator of a CrateDB node used by tests and
//     `dcrate serve`.
package rpc
