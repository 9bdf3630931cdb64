package common

import (
	"encoding/json"
	"strings"

	"github.com/ValentinKolb/dCrate/lib/types"
)

// HTTP paths of the CrateDB endpoint
const (
	SQLPath   = "/_sql"
	BlobsPath = "/_blobs"

	// SQLQuery asks the server to include col_types in the response
	SQLQuery = "types"
)

// BulkFailed is the row count reported for a failed parameter set of a bulk request
const BulkFailed int64 = -2

// UnknownRowCount is used if the server did not report a row count
const UnknownRowCount int64 = -1

// --------------------------------------------------------------------------
// SQL Request
// --------------------------------------------------------------------------

// SQLRequest is the body of a POST /_sql request. Args and BulkArgs are
// mutually exclusive.
type SQLRequest struct {
	Stmt     string  `json:"stmt"`
	Args     []any   `json:"args,omitempty"`
	BulkArgs [][]any `json:"bulk_args,omitempty"`
}

// NewSQLRequest creates a request for a single statement execution
func NewSQLRequest(stmt string, args ...any) *SQLRequest {
	return &SQLRequest{Stmt: stmt, Args: args}
}

// NewBulkSQLRequest creates a request executing stmt once per parameter set
func NewBulkSQLRequest(stmt string, bulkArgs [][]any) *SQLRequest {
	if bulkArgs == nil {
		bulkArgs = [][]any{}
	}
	return &SQLRequest{Stmt: stmt, BulkArgs: bulkArgs}
}

// IsBulk reports whether the request carries bulk_args
func (r *SQLRequest) IsBulk() bool {
	return r.BulkArgs != nil
}

// MarshalJSON keeps an empty bulk_args array, which omitempty would drop
func (r SQLRequest) MarshalJSON() ([]byte, error) {
	if r.BulkArgs != nil {
		return json.Marshal(struct {
			Stmt     string  `json:"stmt"`
			BulkArgs [][]any `json:"bulk_args"`
		}{r.Stmt, r.BulkArgs})
	}
	return json.Marshal(struct {
		Stmt string `json:"stmt"`
		Args []any  `json:"args,omitempty"`
	}{r.Stmt, r.Args})
}

// Validate rejects requests the server would reject anyway
func (r *SQLRequest) Validate() error {
	if strings.TrimSpace(r.Stmt) == "" {
		return NewProgrammingError("empty statement")
	}
	if len(r.Args) > 0 && r.BulkArgs != nil {
		return NewProgrammingError("args and bulk_args are mutually exclusive")
	}
	return nil
}

// --------------------------------------------------------------------------
// SQL Response
// --------------------------------------------------------------------------

// SQLResponse is the body of a successful POST /_sql response. RowCount is
// nil if the server did not report one, Results is only set for bulk requests.
type SQLResponse struct {
	Cols     []string          `json:"cols,omitempty"`
	ColTypes []json.RawMessage `json:"col_types,omitempty"`
	Rows     [][]any           `json:"rows,omitempty"`
	RowCount *int64            `json:"rowcount,omitempty"`
	Duration float64           `json:"duration"`
	Results  []BulkResponse    `json:"results,omitempty"`
}

// BulkResponse is the result of one parameter set of a bulk request
type BulkResponse struct {
	RowCount int64 `json:"rowcount"`
}

// Column describes one column of a result set
type Column struct {
	Name string
	Type types.ColumnType
}

// --------------------------------------------------------------------------
// Error Response
// --------------------------------------------------------------------------

// ErrorResponse is the body CrateDB sends with 4xx and 5xx responses
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
	Trace string    `json:"error_trace,omitempty"`
}

// ErrorBody holds the CrateDB error code and message
type ErrorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// NewErrorResponse creates an error body
func NewErrorResponse(code int, message string) *ErrorResponse {
	return &ErrorResponse{Error: ErrorBody{Code: code, Message: message}}
}

// ParseStatusError builds a StatusError from a response status and body.
// Bodies that are not CrateDB error documents are used as message verbatim.
func ParseStatusError(statusCode int, body []byte) *StatusError {
	e := &StatusError{StatusCode: statusCode}
	var resp ErrorResponse
	if err := json.Unmarshal(body, &resp); err == nil && (resp.Error.Code != 0 || resp.Error.Message != "") {
		e.Code = resp.Error.Code
		e.Message = resp.Error.Message
		return e
	}
	e.Message = strings.TrimSpace(string(body))
	return e
}
