package client

import (
	"context"

	"github.com/ValentinKolb/dCrate/rpc/common"
)

// DefaultArraySize is the number of rows FetchMany returns by default
const DefaultArraySize = 1

var errNoResults = common.NewProgrammingError("no results to fetch")

var errCursorClosed = common.NewProgrammingError("Cursor closed")

// Cursor executes statements and iterates over their results. A cursor is
// not safe for concurrent use, create one cursor per goroutine.
type Cursor struct {
	conn *Connection

	// ArraySize is used by FetchMany if no size is given
	ArraySize int

	result   *SQLResult
	rowCount int64
	duration float64
	pos      int
	closed   bool
}

func newCursor(conn *Connection) *Cursor {
	return &Cursor{
		conn:      conn,
		ArraySize: DefaultArraySize,
		rowCount:  common.UnknownRowCount,
		duration:  -1,
	}
}

// Execute runs a statement, its rows can be fetched afterwards
func (c *Cursor) Execute(ctx context.Context, stmt string, args ...any) error {
	if err := c.check(); err != nil {
		return err
	}

	result, err := c.conn.client.Execute(ctx, stmt, args...)
	if err != nil {
		return err
	}

	c.result = result
	c.rowCount = result.RowCount
	c.duration = result.Duration
	c.pos = 0
	return nil
}

// ExecuteMany runs a bulk statement. RowCount is the sum of the row counts of
// all parameter sets afterwards, there are no rows to fetch.
func (c *Cursor) ExecuteMany(ctx context.Context, stmt string, bulkArgs [][]any) ([]BulkResult, error) {
	if err := c.check(); err != nil {
		return nil, err
	}

	results, err := c.conn.client.ExecuteMany(ctx, stmt, bulkArgs)
	if err != nil {
		return nil, err
	}

	c.result = nil
	c.pos = 0
	c.duration = -1
	c.rowCount = common.UnknownRowCount
	if len(results) > 0 {
		c.rowCount = 0
		for _, r := range results {
			c.rowCount += r.RowCount
		}
	}
	return results, nil
}

// FetchOne returns the next row or nil if all rows were fetched
func (c *Cursor) FetchOne() ([]any, error) {
	rows, err := c.fetch(1)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

// FetchMany returns up to n rows, ArraySize rows if n <= 0
func (c *Cursor) FetchMany(n int) ([][]any, error) {
	if n <= 0 {
		n = max(c.ArraySize, 1)
	}
	return c.fetch(n)
}

// FetchAll returns all remaining rows
func (c *Cursor) FetchAll() ([][]any, error) {
	if err := c.checkResult(); err != nil {
		return nil, err
	}
	return c.fetch(len(c.result.Rows) - c.pos)
}

// Description returns the columns of the last result, nil before the first
// Execute
func (c *Cursor) Description() []common.Column {
	if c.result == nil {
		return nil
	}
	return c.result.Columns
}

// RowCount returns the row count of the last execution (-1 if unknown)
func (c *Cursor) RowCount() int64 {
	return c.rowCount
}

// Duration returns the server side duration of the last execution in
// milliseconds (-1 if unknown)
func (c *Cursor) Duration() float64 {
	return c.duration
}

// Close closes the cursor, the connection stays open
func (c *Cursor) Close() error {
	c.closed = true
	c.result = nil
	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func (c *Cursor) fetch(n int) ([][]any, error) {
	if err := c.checkResult(); err != nil {
		return nil, err
	}
	end := min(c.pos+n, len(c.result.Rows))
	rows := c.result.Rows[c.pos:end]
	c.pos = end
	return rows, nil
}

func (c *Cursor) checkResult() error {
	if err := c.check(); err != nil {
		return err
	}
	if c.result == nil {
		return errNoResults
	}
	return nil
}

func (c *Cursor) check() error {
	if err := c.conn.client.checkOpen(); err != nil {
		return err
	}
	if c.closed {
		return errCursorClosed
	}
	return nil
}
