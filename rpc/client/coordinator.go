package client

import (
	"context"
	"fmt"
	"time"

	"github.com/ValentinKolb/dCrate/lib/serverset"
	"github.com/ValentinKolb/dCrate/rpc/common"
	"github.com/VictoriaMetrics/metrics"
	"github.com/pkg/errors"
)

// retryPause is the pause between two rotations over all nodes
const retryPause = 100 * time.Millisecond

var failoversTotal = metrics.GetOrCreateCounter("dcrate_failovers_total")

// attemptFunc performs one attempt of an operation on the given node
type attemptFunc func(ctx context.Context, node serverset.Node) error

// coordinator runs operations with failover over the nodes of a server set,
// bounded by a retry budget
type coordinator struct {
	servers serverset.IServerSet
	timeout time.Duration
	pause   time.Duration
	now     func() time.Time
}

func newCoordinator(servers serverset.IServerSet, timeout time.Duration) *coordinator {
	return &coordinator{
		servers: servers,
		timeout: timeout,
		pause:   retryPause,
		now:     time.Now,
	}
}

// Run calls attempt on candidate nodes until it succeeds, fails with an error
// that is not retryable or the retry budget is exhausted. In the last case a
// *common.ConnectionError holding the last attempt error is returned.
func (c *coordinator) Run(ctx context.Context, op string, attempt attemptFunc) error {
	if len(c.servers.Nodes()) == 0 {
		return common.ErrNoAvailableServer
	}

	start := c.now()
	deadline := start.Add(c.timeout)
	metrics.GetOrCreateCounter(fmt.Sprintf(`dcrate_requests_total{op=%q}`, op)).Inc()
	defer metrics.GetOrCreateHistogram(fmt.Sprintf(`dcrate_request_duration_seconds{op=%q}`, op)).UpdateDuration(start)

	tried := serverset.NodeSet{}
	var last error

	for {
		if err := ctx.Err(); err != nil {
			return c.fail(op, lastOr(last, err))
		}

		node, ok := c.servers.NextCandidate(tried)
		if !ok {
			// every node failed in this rotation
			now := c.now()
			if !now.Before(deadline) {
				return c.fail(op, last)
			}
			wait := min(c.pause, deadline.Sub(now))
			Logger.Debugf("%s: all %d servers failed, retrying in %s", op, len(tried), wait)

			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return c.fail(op, lastOr(last, ctx.Err()))
			case <-timer.C:
			}
			tried = serverset.NodeSet{}
			continue
		}

		metrics.GetOrCreateCounter(fmt.Sprintf(`dcrate_request_attempts_total{node=%q}`, node.Address)).Inc()
		Logger.Debugf("%s: attempt on %s", op, node)

		err := attempt(ctx, node)
		if err == nil {
			c.servers.MarkReachable(node)
			return nil
		}

		if ctx.Err() != nil {
			return c.fail(op, err)
		}

		if !isRetryable(ctx, err) {
			// the node answered, the request itself is at fault
			var se *common.StatusError
			if errors.As(err, &se) {
				c.servers.MarkReachable(node)
			}
			metrics.GetOrCreateCounter(fmt.Sprintf(`dcrate_request_errors_total{op=%q}`, op)).Inc()
			return err
		}

		last = err
		now := c.now()
		c.servers.MarkUnreachable(node, now)
		tried.Add(node)
		metrics.GetOrCreateCounter(fmt.Sprintf(`dcrate_request_failures_total{node=%q}`, node.Address)).Inc()
		failoversTotal.Inc()
		Logger.Warningf("%s failed on %s: %v", op, node, err)

		if !now.Before(deadline) {
			return c.fail(op, err)
		}
	}
}

func (c *coordinator) fail(op string, last error) error {
	metrics.GetOrCreateCounter(fmt.Sprintf(`dcrate_request_errors_total{op=%q}`, op)).Inc()
	Logger.Errorf("%s: no server reachable within %s: %v", op, c.timeout, last)
	return &common.ConnectionError{Last: last}
}

func lastOr(last, err error) error {
	if last != nil {
		return last
	}
	return err
}
