// Package common provides the data structures shared by the client, the
// transport and the emulator node: configuration, logging, the error taxonomy
// and the JSON messages of CrateDB's HTTP endpoint.
//
// Key Components:
//
//   - SQLRequest / SQLResponse: bodies of POST /_sql, including bulk requests
//     (bulk_args) and their per parameter set results. ErrorResponse is the
//     {"error": {"code", "message"}} document sent with error statuses.
//
//   - ClientConfig: servers, retry budget, per call timeouts, retry interval
//     of unreachable nodes and connection pool sizes. WithDefaults fills in
//     every unset value.
//
//   - ServerConfig: configuration of the emulator node started by dcrate serve.
//
//   - Errors: ConnectionError (retry budget exhausted), ProgrammingError
//     (request defects, closed connections), the blob errors and the
//     StatusError / TransportError types the retry policy classifies.
//
//   - Logger: custom logging implementation that integrates with Dragonboat's
//     logger facade, so every package logs in the same format.
package common
