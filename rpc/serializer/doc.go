// Package serializer provides the encoding of the messages exchanged with
// CrateDB's /_sql endpoint. It defines a common interface so the client and
// the emulator node do not depend on a concrete format.
//
// Key Components:
//
//   - IRPCSerializer: Core interface that all serializer implementations must satisfy.
//
//   - jsonSerializerImpl: Implementation using JSON encoding, the only format
//     the HTTP endpoint speaks. Responses are decoded with UseNumber, so 64 bit
//     integers survive until the column types are applied, and are checked for
//     structural consistency (one value per column in every row). A response
//     that fails these checks is reported as common.ErrMalformedResponse.
//
// Thread Safety:
//
//	All serializer implementations are stateless and safe for concurrent use
//	across multiple goroutines without additional synchronization.
//
// Usage:
//
//	serializer := serializer.NewJSONSerializer()
//	data, err := serializer.Serialize(common.NewSQLRequest("select ?", 1))
//	// ... send data ...
//	var resp common.SQLResponse
//	err = serializer.Deserialize(receivedData, &resp)
package serializer
