package client

import (
	"net"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ValentinKolb/dCrate/rpc/common"
	"github.com/ValentinKolb/dCrate/rpc/serializer"
	"github.com/ValentinKolb/dCrate/rpc/server"
	httptransport "github.com/ValentinKolb/dCrate/rpc/transport/http"
	"github.com/stretchr/testify/require"
)

// newTestNode starts an emulator node and returns it with its address
func newTestNode(t *testing.T, config common.ServerConfig) (*server.Node, string) {
	t.Helper()
	node := server.NewNode(config, httptransport.NewHttpServerTransport(), serializer.NewJSONSerializer())
	ts := httptest.NewServer(node.Handler())
	t.Cleanup(ts.Close)
	return node, strings.TrimPrefix(ts.URL, "http://")
}

// deadServer returns an address nothing listens on
func deadServer(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

// testConfig returns a config with short timeouts for the given servers
func testConfig(servers ...string) common.ClientConfig {
	return common.ClientConfig{
		Servers:        servers,
		Timeout:        2 * time.Second,
		RequestTimeout: time.Second,
		ConnectTimeout: 500 * time.Millisecond,
	}
}

func newTestConnection(t *testing.T, config common.ClientConfig) *Connection {
	t.Helper()
	conn, err := Connect(config)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}
