package client

import (
	"context"
	"crypto/x509"
	"net/http"
	"net/url"
	"syscall"
	"testing"
	"time"

	"github.com/ValentinKolb/dCrate/lib/serverset"
	"github.com/ValentinKolb/dCrate/rpc/common"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func refused(node serverset.Node) error {
	return &common.TransportError{
		Node:   node.Address,
		Method: http.MethodPost,
		Path:   common.SQLPath,
		Err:    &url.Error{Op: "Post", URL: node.URL() + common.SQLPath, Err: syscall.ECONNREFUSED},
	}
}

func newTestCoordinator(t *testing.T, timeout time.Duration, servers ...string) (*coordinator, []serverset.Node) {
	t.Helper()
	nodes, err := serverset.ParseNodes(servers)
	require.NoError(t, err)
	c := newCoordinator(serverset.NewServerSet(nodes, time.Minute), timeout)
	c.pause = 10 * time.Millisecond
	return c, nodes
}

func TestIsRetryable(t *testing.T) {
	node := serverset.Node{Scheme: "http", Address: "a:4200"}
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "connection refused", err: refused(node), want: true},
		{name: "timeout", err: &common.TransportError{Err: &url.Error{Op: "Post", URL: "http://a", Err: context.DeadlineExceeded}}, want: true},
		{name: "unknown authority", err: &common.TransportError{Err: &url.Error{Op: "Get", URL: "https://a", Err: x509.UnknownAuthorityError{}}}, want: false},
		{name: "service unavailable", err: &common.StatusError{StatusCode: 503}, want: true},
		{name: "bad gateway", err: &common.StatusError{StatusCode: 502}, want: true},
		{name: "not implemented", err: &common.StatusError{StatusCode: 501}, want: true},
		{name: "too many requests", err: &common.StatusError{StatusCode: 429}, want: true},
		{name: "bad request", err: &common.ProgrammingError{Message: "x", Err: &common.StatusError{StatusCode: 400}}, want: false},
		{name: "malformed", err: errors.Wrap(common.ErrMalformedResponse, "row 1"), want: true},
		{name: "digest mismatch", err: common.ErrDigestMismatch, want: false},
		{name: "other", err: errors.New("boom"), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isRetryable(context.Background(), tt.err))
		})
	}
}

func TestIsRetryableCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, isRetryable(ctx, &common.StatusError{StatusCode: 503}))
}

func TestRunSucceedsOnFirstNode(t *testing.T) {
	c, nodes := newTestCoordinator(t, time.Second, "a:4200", "b:4200")

	var calls []string
	err := c.Run(context.Background(), "test", func(_ context.Context, node serverset.Node) error {
		calls = append(calls, node.Address)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{nodes[0].Address}, calls)
}

func TestRunRoundRobin(t *testing.T) {
	c, _ := newTestCoordinator(t, time.Second, "a:4200", "b:4200", "c:4200")

	var calls []string
	for i := 0; i < 4; i++ {
		require.NoError(t, c.Run(context.Background(), "test", func(_ context.Context, node serverset.Node) error {
			calls = append(calls, node.Address)
			return nil
		}))
	}
	assert.Equal(t, []string{"a:4200", "b:4200", "c:4200", "a:4200"}, calls)
}

func TestRunFailsOver(t *testing.T) {
	c, nodes := newTestCoordinator(t, time.Second, "a:4200", "b:4200", "c:4200")

	var calls []string
	err := c.Run(context.Background(), "test", func(_ context.Context, node serverset.Node) error {
		calls = append(calls, node.Address)
		if node.Address != "c:4200" {
			return refused(node)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a:4200", "b:4200", "c:4200"}, calls)

	statuses := c.servers.Statuses()
	assert.False(t, statuses[0].Reachable)
	assert.False(t, statuses[1].Reachable)
	assert.True(t, statuses[2].Reachable)

	// only the reachable node is used afterwards
	calls = nil
	for i := 0; i < 3; i++ {
		require.NoError(t, c.Run(context.Background(), "test", func(_ context.Context, node serverset.Node) error {
			calls = append(calls, node.Address)
			return nil
		}))
	}
	assert.Equal(t, []string{nodes[2].Address, nodes[2].Address, nodes[2].Address}, calls)
}

func TestRunFatalErrorStopsImmediately(t *testing.T) {
	c, _ := newTestCoordinator(t, time.Second, "a:4200", "b:4200")

	calls := 0
	fatal := &common.ProgrammingError{Message: "SQLParseException", Err: &common.StatusError{StatusCode: 400, Code: 4000}}
	err := c.Run(context.Background(), "test", func(_ context.Context, node serverset.Node) error {
		calls++
		return fatal
	})
	assert.Equal(t, fatal, err)
	assert.Equal(t, 1, calls)
	assert.True(t, c.servers.Statuses()[0].Reachable)
}

func TestRunExhaustsBudget(t *testing.T) {
	timeout := 100 * time.Millisecond
	c, _ := newTestCoordinator(t, timeout, "a:4200", "b:4200")

	start := time.Now()
	calls := 0
	err := c.Run(context.Background(), "test", func(_ context.Context, node serverset.Node) error {
		calls++
		return refused(node)
	})
	elapsed := time.Since(start)

	var ce *common.ConnectionError
	require.True(t, errors.As(err, &ce))
	var te *common.TransportError
	assert.True(t, errors.As(ce.Last, &te))
	assert.GreaterOrEqual(t, elapsed, timeout)
	assert.Less(t, elapsed, timeout+time.Second)
	// several rotations, both nodes retried
	assert.Greater(t, calls, 2)
}

func TestRunSlowAttemptEndsAfterBudget(t *testing.T) {
	c, _ := newTestCoordinator(t, 50*time.Millisecond, "a:4200", "b:4200")

	calls := 0
	err := c.Run(context.Background(), "test", func(_ context.Context, node serverset.Node) error {
		calls++
		time.Sleep(80 * time.Millisecond)
		return refused(node)
	})

	var ce *common.ConnectionError
	require.True(t, errors.As(err, &ce))
	// the budget was exhausted by the first attempt
	assert.Equal(t, 1, calls)
}

func TestRunEmptyServerSet(t *testing.T) {
	c := newCoordinator(serverset.NewServerSet(nil, time.Minute), time.Second)
	err := c.Run(context.Background(), "test", func(context.Context, serverset.Node) error {
		t.Fatal("attempt must not be called")
		return nil
	})
	assert.ErrorIs(t, err, common.ErrNoAvailableServer)
}

func TestRunCancelledContext(t *testing.T) {
	c, _ := newTestCoordinator(t, time.Minute, "a:4200")

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := c.Run(ctx, "test", func(ctx context.Context, node serverset.Node) error {
		calls++
		cancel()
		return ctx.Err()
	})

	var ce *common.ConnectionError
	require.True(t, errors.As(err, &ce))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
