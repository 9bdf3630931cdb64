package serializer

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/ValentinKolb/dCrate/rpc/common"
	"github.com/pkg/errors"
)

// NewJSONSerializer creates a new serializer using json encoding
func NewJSONSerializer() IRPCSerializer {
	return &jsonSerializerImpl{}
}

// jsonSerializerImpl implements the IRPCSerializer interface using json encoding
type jsonSerializerImpl struct {
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (j jsonSerializerImpl) Serialize(req *common.SQLRequest) ([]byte, error) {
	if req == nil {
		return nil, errors.New("nil request")
	}
	return json.Marshal(req)
}

func (j jsonSerializerImpl) Deserialize(b []byte, resp *common.SQLResponse) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()

	if err := dec.Decode(resp); err != nil {
		return errors.Wrapf(common.ErrMalformedResponse, "decoding response: %v", err)
	}
	// exactly one document
	if _, err := dec.Token(); err != io.EOF {
		return errors.Wrap(common.ErrMalformedResponse, "trailing data after response")
	}

	for i, row := range resp.Rows {
		if len(row) != len(resp.Cols) {
			return errors.Wrapf(common.ErrMalformedResponse, "row %d has %d values for %d columns", i, len(row), len(resp.Cols))
		}
	}
	if len(resp.ColTypes) > 0 && len(resp.ColTypes) != len(resp.Cols) {
		return errors.Wrapf(common.ErrMalformedResponse, "%d column types for %d columns", len(resp.ColTypes), len(resp.Cols))
	}
	return nil
}

func (j jsonSerializerImpl) SerializeResponse(resp *common.SQLResponse) ([]byte, error) {
	if resp == nil {
		return nil, errors.New("nil response")
	}
	return json.Marshal(resp)
}

func (j jsonSerializerImpl) DeserializeRequest(b []byte, req *common.SQLRequest) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(req); err != nil {
		return errors.Wrap(err, "decoding request")
	}
	return nil
}

func (j jsonSerializerImpl) ContentType() string {
	return "application/json"
}
