// Package cmd implements the dcrate command-line interface. It provides a
// hierarchical command structure for talking to a CrateDB cluster and for
// running a local emulator node.
//
// The package is organized into several subpackages:
//
//   - sql: Execute statements (exec, bulk) and measure latency (perf)
//   - blob: Blob operations (put, get, has, del)
//   - serve: Start the in-memory emulator node
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// Client flags can also be given as environment variables with the DCRATE_
// prefix (e.g. DCRATE_SERVERS=host1:4200,host2:4200), .env and .env.local are
// loaded on start. See dcrate -help for a list of all commands.
package cmd
