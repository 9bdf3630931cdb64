package serializer

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/ValentinKolb/dCrate/rpc/common"
)

// testSerializers is a map of serializer name to factory function
var testSerializers = map[string]func() IRPCSerializer{
	"JSON": NewJSONSerializer,
}

func TestSerializeRequest(t *testing.T) {
	tests := []struct {
		name string
		req  *common.SQLRequest
		want string
	}{
		{
			name: "statement only",
			req:  common.NewSQLRequest("select 1"),
			want: `{"stmt":"select 1"}`,
		},
		{
			name: "with args",
			req:  common.NewSQLRequest("select ?, ?", 1, "a"),
			want: `{"stmt":"select ?, ?","args":[1,"a"]}`,
		},
		{
			name: "bulk",
			req:  common.NewBulkSQLRequest("insert into t (x) values (?)", [][]any{{1}, {2}}),
			want: `{"stmt":"insert into t (x) values (?)","bulk_args":[[1],[2]]}`,
		},
		{
			name: "empty bulk",
			req:  common.NewBulkSQLRequest("insert into t (x) values (?)", nil),
			want: `{"stmt":"insert into t (x) values (?)","bulk_args":[]}`,
		},
	}

	for name, factory := range testSerializers {
		serializer := factory()
		for _, tt := range tests {
			t.Run(name+"_"+tt.name, func(t *testing.T) {
				data, err := serializer.Serialize(tt.req)
				if err != nil {
					t.Fatalf("Failed to serialize: %v", err)
				}
				if string(data) != tt.want {
					t.Errorf("Serialize() = %s, want %s", data, tt.want)
				}
			})
		}
	}
}

func TestDeserializeResponse(t *testing.T) {
	body := []byte(`{"cols":["id","name"],"col_types":[10,4],"rows":[[9007199254740993,"a"],[2,null]],"rowcount":2,"duration":1.25}`)

	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			var resp common.SQLResponse
			if err := factory().Deserialize(body, &resp); err != nil {
				t.Fatalf("Failed to deserialize: %v", err)
			}

			if !reflect.DeepEqual(resp.Cols, []string{"id", "name"}) {
				t.Errorf("Cols = %v", resp.Cols)
			}
			if len(resp.ColTypes) != 2 || string(resp.ColTypes[1]) != "4" {
				t.Errorf("ColTypes = %v", resp.ColTypes)
			}
			// large integers are kept exactly
			if resp.Rows[0][0] != json.Number("9007199254740993") {
				t.Errorf("Rows[0][0] = %#v", resp.Rows[0][0])
			}
			if resp.Rows[1][1] != nil {
				t.Errorf("Rows[1][1] = %#v, want nil", resp.Rows[1][1])
			}
			if resp.RowCount == nil || *resp.RowCount != 2 {
				t.Errorf("RowCount = %v", resp.RowCount)
			}
			if resp.Duration != 1.25 {
				t.Errorf("Duration = %v", resp.Duration)
			}
		})
	}
}

func TestDeserializeMissingFields(t *testing.T) {
	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			var resp common.SQLResponse
			if err := factory().Deserialize([]byte(`{"cols":[],"duration":0.5}`), &resp); err != nil {
				t.Fatalf("Failed to deserialize: %v", err)
			}
			if resp.RowCount != nil {
				t.Errorf("RowCount = %v, want nil", *resp.RowCount)
			}
			if resp.Rows != nil {
				t.Errorf("Rows = %v, want nil", resp.Rows)
			}
		})
	}
}

func TestDeserializeBulkResponse(t *testing.T) {
	body := []byte(`{"cols":[],"duration":3,"results":[{"rowcount":1},{"rowcount":-2}]}`)

	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			var resp common.SQLResponse
			if err := factory().Deserialize(body, &resp); err != nil {
				t.Fatalf("Failed to deserialize: %v", err)
			}
			want := []common.BulkResponse{{RowCount: 1}, {RowCount: common.BulkFailed}}
			if !reflect.DeepEqual(resp.Results, want) {
				t.Errorf("Results = %v, want %v", resp.Results, want)
			}
		})
	}
}

func TestDeserializeMalformed(t *testing.T) {
	bodies := map[string]string{
		"not json":       `<html>bad gateway</html>`,
		"truncated":      `{"cols":["a"],"rows":[[1`,
		"trailing data":  `{"cols":[]} {"cols":[]}`,
		"short row":      `{"cols":["a","b"],"rows":[[1]]}`,
		"col types":      `{"cols":["a","b"],"col_types":[4],"rows":[]}`,
		"wrong rowcount": `{"cols":[],"rowcount":"two"}`,
	}

	for name, factory := range testSerializers {
		for bodyName, body := range bodies {
			t.Run(name+"_"+bodyName, func(t *testing.T) {
				var resp common.SQLResponse
				err := factory().Deserialize([]byte(body), &resp)
				if !errors.Is(err, common.ErrMalformedResponse) {
					t.Errorf("Deserialize() error = %v, want ErrMalformedResponse", err)
				}
			})
		}
	}
}

func TestServerSideRoundTrip(t *testing.T) {
	rowCount := int64(1)
	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			// request: client -> server
			data, err := serializer.Serialize(common.NewBulkSQLRequest("insert into t (x) values (?)", [][]any{{1}, {2.5}}))
			if err != nil {
				t.Fatalf("Failed to serialize request: %v", err)
			}
			var req common.SQLRequest
			if err := serializer.DeserializeRequest(data, &req); err != nil {
				t.Fatalf("Failed to deserialize request: %v", err)
			}
			if !req.IsBulk() || len(req.BulkArgs) != 2 || req.BulkArgs[1][0] != json.Number("2.5") {
				t.Errorf("BulkArgs = %v", req.BulkArgs)
			}

			// response: server -> client
			data, err = serializer.SerializeResponse(&common.SQLResponse{
				Cols:     []string{"x"},
				ColTypes: []json.RawMessage{json.RawMessage("9")},
				Rows:     [][]any{{1}},
				RowCount: &rowCount,
			})
			if err != nil {
				t.Fatalf("Failed to serialize response: %v", err)
			}
			var resp common.SQLResponse
			if err := serializer.Deserialize(data, &resp); err != nil {
				t.Fatalf("Failed to deserialize response: %v", err)
			}
			if resp.Rows[0][0] != json.Number("1") || *resp.RowCount != 1 {
				t.Errorf("Deserialize() = %+v", resp)
			}
		})
	}
}
