package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ValentinKolb/dCrate/lib/types"
	"github.com/ValentinKolb/dCrate/rpc/common"
	"github.com/ValentinKolb/dCrate/rpc/server"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecuteSelectOne(t *testing.T) {
	_, addr := newTestNode(t, common.ServerConfig{})
	conn := newTestConnection(t, testConfig(addr))

	result, err := conn.Client().Execute(context.Background(), "select 1")
	require.NoError(t, err)

	assert.Equal(t, []string{"1"}, result.ColumnNames())
	assert.Equal(t, types.KindInteger, result.Columns[0].Type.Kind)
	assert.Equal(t, [][]any{{int64(1)}}, result.Rows)
	assert.EqualValues(t, 1, result.RowCount)
	assert.GreaterOrEqual(t, result.Duration, 0.0)
}

func TestExecuteDecodesColumnTypes(t *testing.T) {
	node, addr := newTestNode(t, common.ServerConfig{})
	node.HandleStatement("select * from locations", func(string, []any) (*common.SQLResponse, error) {
		return server.ResultOf(
			[]string{"name", "position", "date", "flag", "details", "tags", "id"},
			[]any{4, 6, 11, 3, 12, []int{100, 4}, 10},
			[]any{"Alpha Centauri", 3.5, 1373932800000, true, map[string]any{"size": 5}, []string{"a", "b"}, 9007199254740993},
			[]any{"Bartledan", nil, nil, false, nil, []string{}, 2},
		), nil
	})
	conn := newTestConnection(t, testConfig(addr))

	result, err := conn.Client().Execute(context.Background(), "select * from locations")
	require.NoError(t, err)
	require.Len(t, result.Rows, 2)

	assert.Equal(t, []any{
		"Alpha Centauri", 3.5, int64(1373932800000), true,
		map[string]any{"size": int64(5)}, []any{"a", "b"}, int64(9007199254740993),
	}, result.Rows[0])
	assert.Equal(t, []any{"Bartledan", nil, nil, false, nil, []any{}, int64(2)}, result.Rows[1])
	assert.Equal(t, "array(string)", result.Columns[5].Type.String())
}

func TestExecutePassesArgs(t *testing.T) {
	node, addr := newTestNode(t, common.ServerConfig{})
	node.HandleStatement("select name from locations where id = ?", func(_ string, args []any) (*common.SQLResponse, error) {
		assert.Equal(t, []any{json.Number("42")}, args)
		return server.ResultOf([]string{"name"}, []any{4}, []any{"Arkintoofle Minor"}), nil
	})
	conn := newTestConnection(t, testConfig(addr))

	result, err := conn.Client().Execute(context.Background(), "select name from locations where id = ?", 42)
	require.NoError(t, err)
	assert.Equal(t, "Arkintoofle Minor", result.Rows[0][0])
}

func TestExecuteMissingRowsAndRowCount(t *testing.T) {
	node, addr := newTestNode(t, common.ServerConfig{})
	node.HandleStatement("refresh table locations", func(string, []any) (*common.SQLResponse, error) {
		return &common.SQLResponse{Cols: []string{}}, nil
	})
	node.HandleStatement("update locations set flag = true", func(string, []any) (*common.SQLResponse, error) {
		return server.RowCountOf(13), nil
	})
	conn := newTestConnection(t, testConfig(addr))

	result, err := conn.Client().Execute(context.Background(), "refresh table locations")
	require.NoError(t, err)
	assert.Empty(t, result.Rows)
	assert.EqualValues(t, -1, result.RowCount)

	result, err = conn.Client().Execute(context.Background(), "update locations set flag = true")
	require.NoError(t, err)
	assert.Empty(t, result.Rows)
	assert.EqualValues(t, 13, result.RowCount)
}

func TestExecuteMany(t *testing.T) {
	node, addr := newTestNode(t, common.ServerConfig{})
	node.HandleStatement("insert into locations (name) values (?)", func(_ string, args []any) (*common.SQLResponse, error) {
		if args[0] == nil {
			return nil, &common.StatusError{StatusCode: http.StatusBadRequest, Code: 4000, Message: "name must not be null"}
		}
		return server.RowCountOf(1), nil
	})
	conn := newTestConnection(t, testConfig(addr))

	results, err := conn.Client().ExecuteMany(context.Background(), "insert into locations (name) values (?)",
		[][]any{{"Earth"}, {nil}, {"Mars"}})
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.EqualValues(t, 1, results[0].RowCount)
	assert.True(t, results[1].Failed())
	assert.False(t, results[2].Failed())
}

func TestProgrammingErrorIsNotRetried(t *testing.T) {
	first, addr1 := newTestNode(t, common.ServerConfig{})
	second, addr2 := newTestNode(t, common.ServerConfig{})
	conn := newTestConnection(t, testConfig(addr1, addr2))

	_, err := conn.Client().Execute(context.Background(), "selec 1")

	var pe *common.ProgrammingError
	require.True(t, errors.As(err, &pe), "got %v", err)
	assert.Contains(t, pe.Message, "SQLParseException")

	var se *common.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, 4000, se.Code)
	assert.Equal(t, http.StatusBadRequest, se.StatusCode)

	assert.EqualValues(t, 1, first.Requests())
	assert.EqualValues(t, 0, second.Requests())
}

func TestInvalidRequestWithoutNetwork(t *testing.T) {
	node, addr := newTestNode(t, common.ServerConfig{})
	conn := newTestConnection(t, testConfig(addr))

	var pe *common.ProgrammingError
	_, err := conn.Client().Execute(context.Background(), "   ")
	assert.True(t, errors.As(err, &pe))

	_, err = conn.Client().Execute(context.Background(), "select ?", make(chan int))
	assert.True(t, errors.As(err, &pe))

	assert.EqualValues(t, 0, node.Requests())
}

func TestFailoverToReachableNode(t *testing.T) {
	down, addr1 := newTestNode(t, common.ServerConfig{})
	up, addr2 := newTestNode(t, common.ServerConfig{})
	down.SetUnavailable(true)
	conn := newTestConnection(t, testConfig(addr1, addr2))

	for i := 0; i < 5; i++ {
		_, err := conn.Client().Execute(context.Background(), "select 1")
		require.NoError(t, err)
	}

	// the unavailable node is skipped for the retry interval
	assert.EqualValues(t, 1, down.Requests())
	assert.EqualValues(t, 5, up.Requests())

	statuses := conn.Client().Servers().Statuses()
	assert.False(t, statuses[0].Reachable)
	assert.True(t, statuses[1].Reachable)
}

func TestFailoverFromDeadServer(t *testing.T) {
	node, addr := newTestNode(t, common.ServerConfig{})
	conn := newTestConnection(t, testConfig(deadServer(t), addr))

	result, err := conn.Client().Execute(context.Background(), "select 1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, result.RowCount)
	assert.EqualValues(t, 1, node.Requests())
}

func TestAllServersDownReturnsConnectionError(t *testing.T) {
	config := testConfig(deadServer(t), deadServer(t))
	config.Timeout = 300 * time.Millisecond
	conn := newTestConnection(t, config)

	start := time.Now()
	_, err := conn.Client().Execute(context.Background(), "select 1")
	elapsed := time.Since(start)

	var ce *common.ConnectionError
	require.True(t, errors.As(err, &ce), "got %v", err)
	var te *common.TransportError
	assert.True(t, errors.As(ce.Last, &te))

	assert.GreaterOrEqual(t, elapsed, config.Timeout)
	assert.Less(t, elapsed, config.Timeout+config.RequestTimeout+500*time.Millisecond)
}

func TestServerErrorsExhaustBudget(t *testing.T) {
	node, addr := newTestNode(t, common.ServerConfig{})
	node.SetUnavailable(true)
	config := testConfig(addr)
	config.Timeout = 250 * time.Millisecond
	conn := newTestConnection(t, config)

	_, err := conn.Client().Execute(context.Background(), "select 1")

	var ce *common.ConnectionError
	require.True(t, errors.As(err, &ce))
	var se *common.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusServiceUnavailable, se.StatusCode)
	// the single node is retried after each pause
	assert.Greater(t, node.Requests(), int64(1))
}

func TestNotImplementedFailsOver(t *testing.T) {
	var calls atomic.Int64
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotImplemented)
	}))
	defer failing.Close()
	addr := strings.TrimPrefix(failing.URL, "http://")

	config := testConfig(addr)
	config.Timeout = 250 * time.Millisecond
	conn := newTestConnection(t, config)

	_, err := conn.Client().Execute(context.Background(), "select 1")

	var ce *common.ConnectionError
	require.True(t, errors.As(err, &ce), "got %T %v", err, err)
	var pe *common.ProgrammingError
	assert.False(t, errors.As(err, &pe))
	var se *common.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotImplemented, se.StatusCode)
	assert.Greater(t, calls.Load(), int64(1))

	// a healthy node behind it answers
	_, healthy := newTestNode(t, common.ServerConfig{})
	conn = newTestConnection(t, testConfig(addr, healthy))
	result, err := conn.Client().Execute(context.Background(), "select 1")
	require.NoError(t, err)
	assert.Equal(t, [][]any{{int64(1)}}, result.Rows)
}

func TestMalformedResponseIsRetried(t *testing.T) {
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"cols":["a"],"rows":[[1,2]]}`))
	}))
	defer broken.Close()
	node, addr := newTestNode(t, common.ServerConfig{})
	conn := newTestConnection(t, testConfig(strings.TrimPrefix(broken.URL, "http://"), addr))

	result, err := conn.Client().Execute(context.Background(), "select 1")
	require.NoError(t, err)
	assert.Equal(t, [][]any{{int64(1)}}, result.Rows)
	assert.EqualValues(t, 1, node.Requests())
}

func TestEmptyServerSet(t *testing.T) {
	conn := newTestConnection(t, common.ClientConfig{})

	_, err := conn.Client().Execute(context.Background(), "select 1")
	assert.ErrorIs(t, err, common.ErrNoAvailableServer)
}

func TestInvalidServer(t *testing.T) {
	_, err := Connect(common.ClientConfig{Servers: []string{"ftp://localhost:21"}})
	assert.Error(t, err)
}

func TestCancelledContext(t *testing.T) {
	config := testConfig(deadServer(t))
	config.Timeout = 10 * time.Second
	conn := newTestConnection(t, config)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := conn.Client().Execute(ctx, "select 1")

	var ce *common.ConnectionError
	assert.True(t, errors.As(err, &ce))
	assert.Less(t, time.Since(start), 2*time.Second)
}
