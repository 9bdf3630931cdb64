package serializer

import "github.com/ValentinKolb/dCrate/rpc/common"

// IRPCSerializer is the interface for the /_sql wire format
type IRPCSerializer interface {
	// Serialize serializes a SQLRequest into a byte array
	// It returns the serialized byte array and an error if any
	Serialize(req *common.SQLRequest) ([]byte, error)
	// Deserialize deserializes a response body into a SQLResponse.
	// Numbers are kept as json.Number so no precision is lost before the
	// column types are applied. Bodies that cannot be decoded are reported
	// as common.ErrMalformedResponse.
	Deserialize(b []byte, resp *common.SQLResponse) error
	// SerializeResponse serializes a SQLResponse (server side)
	SerializeResponse(resp *common.SQLResponse) ([]byte, error)
	// DeserializeRequest deserializes a request body (server side), args are
	// kept as json.Number
	DeserializeRequest(b []byte, req *common.SQLRequest) error
	// ContentType is the media type of serialized requests
	ContentType() string
}
