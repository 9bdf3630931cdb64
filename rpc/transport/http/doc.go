// Package http implements the transport layer on top of net/http. It provides
// concrete implementations of the transport interfaces defined in the parent
// package.
//
// The package focuses on:
//   - Client-side HTTP transport sending requests to a single CrateDB node
//   - Server-side HTTP transport serving the emulator node
//   - A debug logging middleware for served requests
//
// Key Components:
//
//   - httpClientTransport: Implements IRPCClientTransport. Connect builds one
//     pooled http.Client (connect timeout on the dialer, idle pool limits per
//     host and in total, optional TLS verification skip) shared by all calls.
//     Every Send derives a context bounded by the request timeout from the
//     caller's context, the context lives until the response body is closed
//     so slow bodies are covered as well. Failed calls are reported as
//     *common.TransportError holding the *url.Error of net/http.
//
//   - httpServerTransport: Implements IRPCServerTransport, setting up an HTTP
//     server for the registered handler. At debug level every request is
//     logged with status and duration.
//
// Thread Safety:
//
//	The client transport is thread-safe and can be used concurrently. The
//	http.Client is swapped atomically on Connect and Close.
package http
