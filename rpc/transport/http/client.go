package http

import (
	"context"
	"crypto/tls"
	"io"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/dCrate/lib/serverset"
	"github.com/ValentinKolb/dCrate/rpc/common"
	"github.com/ValentinKolb/dCrate/rpc/transport"
	"github.com/pkg/errors"
)

// ErrNotConnected is returned by Send before Connect or after Close
var ErrNotConnected = errors.New("http transport not initialized")

func NewHttpClientTransport() transport.IRPCClientTransport {
	return &httpClientTransport{}
}

type httpClientTransport struct {
	client         atomic.Pointer[http.Client]
	requestTimeout time.Duration
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCClientTransport)
// --------------------------------------------------------------------------

func (t *httpClientTransport) Connect(config common.ClientConfig) error {
	config = config.WithDefaults()

	dialer := &net.Dialer{
		Timeout:   config.ConnectTimeout,
		KeepAlive: 30 * time.Second,
	}

	client := &http.Client{
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			DialContext:         dialer.DialContext,
			MaxIdleConns:        config.TotalPoolSize,
			MaxIdleConnsPerHost: config.PoolSizePerHost,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: config.ConnectTimeout,
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: config.InsecureSkipVerify,
			},
		},
	}

	t.requestTimeout = config.RequestTimeout
	if old := t.client.Swap(client); old != nil {
		old.CloseIdleConnections()
	}
	return nil
}

func (t *httpClientTransport) Send(ctx context.Context, node serverset.Node, req *transport.Request) (*transport.Response, error) {
	client := t.client.Load()
	if client == nil {
		return nil, ErrNotConnected
	}

	requestURL := node.URL() + req.Path
	if req.Query != "" {
		requestURL += "?" + req.Query
	}

	// the timeout covers reading the body, it is released by closing the body
	var (
		callCtx context.Context
		cancel  context.CancelFunc
		idle    *idleTimer
		body    = req.Body
	)
	if req.Streaming {
		callCtx, cancel = context.WithCancel(ctx)
		idle = newIdleTimer(t.requestTimeout, cancel)
		if body != nil && body != http.NoBody {
			body = &progressReader{Reader: body, idle: idle}
		}
	} else {
		callCtx, cancel = context.WithTimeout(ctx, t.requestTimeout)
	}
	release := func() {
		if idle != nil {
			idle.stop()
		}
		cancel()
	}

	httpRequest, err := http.NewRequestWithContext(callCtx, req.Method, requestURL, body)
	if err != nil {
		release()
		return nil, errors.Wrapf(err, "creating request %s %s", req.Method, req.Path)
	}
	if req.ContentLength > 0 {
		httpRequest.ContentLength = req.ContentLength
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpRequest.Header.Add(k, v)
		}
	}

	httpResponse, err := client.Do(httpRequest)
	if err != nil {
		release()
		return nil, &common.TransportError{
			Node:   node.Address,
			Method: req.Method,
			Path:   req.Path,
			Err:    err,
		}
	}

	var respBody io.ReadCloser = httpResponse.Body
	if idle != nil {
		idle.touch()
		respBody = &progressReadCloser{ReadCloser: respBody, idle: idle}
	}

	return &transport.Response{
		StatusCode: httpResponse.StatusCode,
		Header:     httpResponse.Header,
		Body:       &cancelOnClose{ReadCloser: respBody, cancel: release},
	}, nil
}

func (t *httpClientTransport) Close() error {
	if client := t.client.Swap(nil); client != nil {
		client.CloseIdleConnections()
	}
	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// idleTimer cancels a streaming call once no data moved for timeout
type idleTimer struct {
	timeout time.Duration
	timer   *time.Timer
}

func newIdleTimer(timeout time.Duration, cancel context.CancelFunc) *idleTimer {
	return &idleTimer{timeout: timeout, timer: time.AfterFunc(timeout, cancel)}
}

func (i *idleTimer) touch() {
	i.timer.Reset(i.timeout)
}

func (i *idleTimer) stop() {
	i.timer.Stop()
}

// progressReader resets the idle timer whenever the request body is read
type progressReader struct {
	io.Reader
	idle *idleTimer
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.Reader.Read(b)
	if n > 0 {
		p.idle.touch()
	}
	return n, err
}

// progressReadCloser resets the idle timer whenever the response body is read
type progressReadCloser struct {
	io.ReadCloser
	idle *idleTimer
}

func (p *progressReadCloser) Read(b []byte) (int, error) {
	n, err := p.ReadCloser.Read(b)
	if n > 0 {
		p.idle.touch()
	}
	return n, err
}

// cancelOnClose releases the call context once the body is closed
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
