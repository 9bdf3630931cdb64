// Package transport defines the interfaces and abstractions for the HTTP
// communication with CrateDB nodes. It provides a common contract that all
// transport implementations must fulfill, so the client can be tested against
// fakes and the emulator node can be served the same way as a real endpoint.
//
// The package focuses on:
//   - Defining clear interfaces for client and server transport layers
//   - Addressing a single node per call, the choice of node is left to the
//     failover logic of the client
//   - Separating the per call timeout from the retry budget of an operation
//
// Key Components:
//
//   - IRPCClientTransport: Interface for client-side transport implementations that
//     handles connection pooling and sending requests to a node.
//
//   - IRPCServerTransport: Interface for server-side transport implementations that
//     receives requests and routes them to a handler.
//
//   - Request / Response: a single HTTP exchange. Response bodies are streamed,
//     closing them releases the resources of the call.
package transport
