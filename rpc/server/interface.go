package server

import "github.com/ValentinKolb/dCrate/rpc/common"

// StatementHandler answers a statement registered with Node.HandleStatement.
// It is called once per parameter set for bulk requests.
// Returning a *common.StatusError sends that status and error body, any
// other error is answered with 400 and code 4000.
type StatementHandler func(stmt string, args []any) (*common.SQLResponse, error)

// ResultOf builds a response with the given columns and rows. colTypes are
// the numeric type tags (see lib/types), collection types can be passed as
// []int{100, 4}.
func ResultOf(cols []string, colTypes []any, rows ...[]any) *common.SQLResponse {
	rowCount := int64(len(rows))
	resp := &common.SQLResponse{
		Cols:     cols,
		Rows:     rows,
		RowCount: &rowCount,
	}
	for _, t := range colTypes {
		resp.ColTypes = append(resp.ColTypes, mustMarshal(t))
	}
	if resp.Rows == nil {
		resp.Rows = [][]any{}
	}
	return resp
}

// RowCountOf builds a response without result set (DML/DDL statements)
func RowCountOf(rowCount int64) *common.SQLResponse {
	return &common.SQLResponse{Cols: []string{}, RowCount: &rowCount}
}
