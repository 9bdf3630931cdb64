package transport

import (
	"context"
	"io"
	"net/http"

	"github.com/ValentinKolb/dCrate/lib/serverset"
	"github.com/ValentinKolb/dCrate/rpc/common"
)

// --------------------------------------------------------------------------
// Messages
// --------------------------------------------------------------------------

// Request is a single HTTP call to one node. Body is consumed by Send, so a
// request must not be reused for another attempt.
type Request struct {
	Method string
	// Path is the absolute path on the node, e.g. /_sql
	Path  string
	Query string

	Header http.Header
	Body   io.Reader
	// ContentLength is sent if > 0, otherwise it is derived from Body
	ContentLength int64

	// Streaming requests carry large bodies. The request timeout then limits
	// the time without progress instead of the whole call.
	Streaming bool
}

// Response is the answer of a node. The caller must close Body, closing it
// also releases the per call timeout.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       io.ReadCloser
}

// --------------------------------------------------------------------------
// Server Transport
// --------------------------------------------------------------------------

// IRPCServerTransport is the interface for the server side of the transport
// layer, used by the emulator node.
type IRPCServerTransport interface {
	// RegisterHandler registers the handler all requests are routed to
	RegisterHandler(handler http.Handler)
	// Listen starts the transport layer and blocks while serving requests
	Listen(config common.ServerConfig) error
}

// --------------------------------------------------------------------------
// Client Transport
// --------------------------------------------------------------------------

// IRPCClientTransport is the interface for the client side of the transport layer
type IRPCClientTransport interface {
	// Connect initializes the transport with the given configuration
	Connect(config common.ClientConfig) error
	// Send sends a request to the given node. Any response, including error
	// statuses, is returned without error. Failures to get a response are
	// returned as *common.TransportError.
	Send(ctx context.Context, node serverset.Node, req *Request) (*Response, error)
	// Close closes idle connections, Send fails afterwards
	Close() error
}
