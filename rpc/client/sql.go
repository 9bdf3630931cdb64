package client

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/ValentinKolb/dCrate/lib/serverset"
	"github.com/ValentinKolb/dCrate/lib/types"
	"github.com/ValentinKolb/dCrate/rpc/common"
	"github.com/ValentinKolb/dCrate/rpc/transport"
	"github.com/pkg/errors"
)

// SQLResult is the result of a single statement. RowCount is
// common.UnknownRowCount if the server did not report it, Duration is the
// server side execution time in milliseconds.
type SQLResult struct {
	Columns  []common.Column
	Rows     [][]any
	RowCount int64
	Duration float64
}

// ColumnNames returns the names of the result columns
func (r *SQLResult) ColumnNames() []string {
	names := make([]string, len(r.Columns))
	for i, col := range r.Columns {
		names[i] = col.Name
	}
	return names
}

// BulkResult is the outcome of one parameter set of a bulk statement
type BulkResult struct {
	RowCount int64
}

// Failed reports whether the parameter set failed
func (r BulkResult) Failed() bool {
	return r.RowCount == common.BulkFailed
}

// --------------------------------------------------------------------------
// Statements
// --------------------------------------------------------------------------

// Execute runs a single statement with optional positional args (?
// placeholders). Values are decoded according to the column types reported
// by the server.
func (c *Client) Execute(ctx context.Context, stmt string, args ...any) (*SQLResult, error) {
	var result *SQLResult
	err := c.runSQL(ctx, "sql", common.NewSQLRequest(stmt, args...), func(resp *common.SQLResponse) error {
		r, err := newSQLResult(resp)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ExecuteMany runs stmt once per parameter set in a single request. The
// returned slice holds one result per parameter set, failed sets have a
// row count of common.BulkFailed.
func (c *Client) ExecuteMany(ctx context.Context, stmt string, bulkArgs [][]any) ([]BulkResult, error) {
	var results []BulkResult
	err := c.runSQL(ctx, "sql_bulk", common.NewBulkSQLRequest(stmt, bulkArgs), func(resp *common.SQLResponse) error {
		results = make([]BulkResult, len(resp.Results))
		for i, r := range resp.Results {
			results[i] = BulkResult{RowCount: r.RowCount}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// runSQL validates and serializes the request once and sends it through the
// coordinator. decode runs inside the attempt, so undecodable responses are
// retried on another node.
func (c *Client) runSQL(ctx context.Context, op string, req *common.SQLRequest, decode func(*common.SQLResponse) error) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	if err := req.Validate(); err != nil {
		return err
	}

	body, err := c.serializer.Serialize(req)
	if err != nil {
		return &common.ProgrammingError{Message: "cannot serialize statement arguments: " + err.Error(), Err: err}
	}

	header := http.Header{}
	header.Set("Content-Type", c.serializer.ContentType())
	header.Set("Accept", "application/json")

	return c.coordinator.Run(ctx, op, func(ctx context.Context, node serverset.Node) error {
		resp, err := c.transport.Send(ctx, node, &transport.Request{
			Method: http.MethodPost,
			Path:   common.SQLPath,
			Query:  common.SQLQuery,
			Header: header,
			Body:   bytes.NewReader(body),
		})
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return statusFailure(resp)
		}

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return &common.TransportError{Node: node.Address, Method: http.MethodPost, Path: common.SQLPath, Err: err}
		}

		var sqlResp common.SQLResponse
		if err := c.serializer.Deserialize(data, &sqlResp); err != nil {
			return err
		}
		return decode(&sqlResp)
	})
}

// newSQLResult applies the column types to the raw rows
func newSQLResult(resp *common.SQLResponse) (*SQLResult, error) {
	colTypes, err := types.ParseColumnTypes(resp.ColTypes, len(resp.Cols))
	if err != nil {
		return nil, errors.Wrapf(common.ErrMalformedResponse, "%v", err)
	}

	columns := make([]common.Column, len(resp.Cols))
	for i, name := range resp.Cols {
		columns[i] = common.Column{Name: name, Type: colTypes[i]}
	}

	rows := make([][]any, len(resp.Rows))
	for i, raw := range resp.Rows {
		row := make([]any, len(raw))
		for j, v := range raw {
			decoded, err := colTypes[j].Decode(v)
			if err != nil {
				return nil, errors.Wrapf(common.ErrMalformedResponse, "row %d, column %s: %v", i, columns[j].Name, err)
			}
			row[j] = decoded
		}
		rows[i] = row
	}

	rowCount := common.UnknownRowCount
	if resp.RowCount != nil {
		rowCount = *resp.RowCount
	}

	return &SQLResult{
		Columns:  columns,
		Rows:     rows,
		RowCount: rowCount,
		Duration: resp.Duration,
	}, nil
}
