package client

import (
	"io"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/ValentinKolb/dCrate/lib/serverset"
	"github.com/ValentinKolb/dCrate/rpc/common"
	"github.com/ValentinKolb/dCrate/rpc/serializer"
	"github.com/ValentinKolb/dCrate/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/pkg/errors"
)

var (
	Logger = logger.GetLogger("rpc")
)

// maxErrorBody limits how much of an error response is read
const maxErrorBody = 64 * 1024

// Client executes SQL statements and blob operations against a CrateDB
// cluster. Every operation runs through the failover coordinator. A Client is
// safe for concurrent use.
type Client struct {
	config      common.ClientConfig
	servers     serverset.IServerSet
	transport   transport.IRPCClientTransport
	serializer  serializer.IRPCSerializer
	coordinator *coordinator
	closed      atomic.Bool
}

// NewClient creates a new client
// The function takes a config, a transport and a serializer as parameters
// Unset config values are defaulted, the transport is connected here.
func NewClient(
	config common.ClientConfig,
	transport transport.IRPCClientTransport,
	serializer serializer.IRPCSerializer,
) (*Client, error) {
	config = config.WithDefaults()

	nodes, err := serverset.ParseNodes(config.Servers)
	if err != nil {
		return nil, err
	}

	if err := transport.Connect(config); err != nil {
		return nil, errors.Wrap(err, "connecting transport")
	}

	servers := serverset.NewServerSet(nodes, config.RetryInterval)
	Logger.Debugf("created client for %d servers", len(nodes))

	return &Client{
		config:      config,
		servers:     servers,
		transport:   transport,
		serializer:  serializer,
		coordinator: newCoordinator(servers, config.Timeout),
	}, nil
}

// Config returns the effective (defaulted) configuration
func (c *Client) Config() common.ClientConfig {
	return c.config
}

// Servers returns the server set, e.g. to inspect node reachability
func (c *Client) Servers() serverset.IServerSet {
	return c.servers
}

// Close closes the transport. Every later operation fails with
// common.ErrConnectionClosed. Closing twice is a no-op.
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	return c.transport.Close()
}

// IsClosed reports whether Close was called
func (c *Client) IsClosed() bool {
	return c.closed.Load()
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func (c *Client) checkOpen() error {
	if c.closed.Load() {
		return common.ErrConnectionClosed
	}
	return nil
}

// statusFailure turns an error response into an error. Request defects (4xx
// except 429) become a *ProgrammingError wrapping the *StatusError, all other
// statuses are returned as *StatusError for the retry policy to classify.
func statusFailure(resp *transport.Response) error {
	se := readStatusError(resp)
	if se.StatusCode >= 400 && se.StatusCode < 500 && se.StatusCode != http.StatusTooManyRequests {
		msg := se.Message
		if msg == "" {
			msg = se.Error()
		}
		return &common.ProgrammingError{Message: msg, Err: se}
	}
	return se
}

func readStatusError(resp *transport.Response) *common.StatusError {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		Logger.Debugf("failed to read error body: %v", err)
	}
	return common.ParseStatusError(resp.StatusCode, body)
}

func isDigestMismatch(se *common.StatusError) bool {
	return strings.Contains(se.Message, "DigestMismatchException")
}

func isBlobsDisabled(se *common.StatusError) bool {
	msg := strings.ToLower(se.Message)
	return strings.Contains(msg, "blobsdisabledexception") ||
		(strings.Contains(msg, "blobs") && strings.Contains(msg, "disabled"))
}
