package client

import (
	"github.com/ValentinKolb/dCrate/rpc/common"
	"github.com/ValentinKolb/dCrate/rpc/serializer"
	httptransport "github.com/ValentinKolb/dCrate/rpc/transport/http"
)

// Connection is the entry point of the cursor based API. It owns a Client,
// closing the connection closes the client.
type Connection struct {
	client *Client
}

// Connect creates a connection using the HTTP transport and the JSON
// serializer
func Connect(config common.ClientConfig) (*Connection, error) {
	c, err := NewClient(config, httptransport.NewHttpClientTransport(), serializer.NewJSONSerializer())
	if err != nil {
		return nil, err
	}
	return NewConnection(c), nil
}

// NewConnection wraps an existing client, mainly for tests
func NewConnection(client *Client) *Connection {
	return &Connection{client: client}
}

// Client returns the underlying client
func (c *Connection) Client() *Client {
	return c.client
}

// Cursor returns a new cursor
func (c *Connection) Cursor() (*Cursor, error) {
	if err := c.client.checkOpen(); err != nil {
		return nil, err
	}
	return newCursor(c), nil
}

// Commit only checks that the connection is open, there are no transactions
func (c *Connection) Commit() error {
	return c.client.checkOpen()
}

// BlobContainer returns the container for the blob table name
func (c *Connection) BlobContainer(name string) (*BlobContainer, error) {
	return c.client.BlobContainer(name)
}

// Close closes the connection. Every later call on the connection, its
// cursors or blob containers fails with common.ErrConnectionClosed.
func (c *Connection) Close() error {
	return c.client.Close()
}
