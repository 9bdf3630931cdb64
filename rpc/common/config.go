package common

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Default values applied by ClientConfig.WithDefaults
const (
	DefaultTimeout         = 10 * time.Second
	DefaultRequestTimeout  = 5 * time.Second
	DefaultConnectTimeout  = 2 * time.Second
	DefaultRetryInterval   = 30 * time.Second
	DefaultPoolSizePerHost = 25
	DefaultTotalPoolSize   = 100
)

// --------------------------------------------------------------------------
// Client configuration struct
// --------------------------------------------------------------------------

// ClientConfig holds all parameters of a client. Zero values are replaced by
// the defaults in WithDefaults.
type ClientConfig struct {
	// Servers are the CrateDB nodes (host, host:port or http(s)://host:port)
	Servers []string

	// Timeout is the retry budget of a single operation over all nodes
	Timeout time.Duration
	// RequestTimeout bounds a single HTTP call including reading the body.
	// For blob transfers it bounds the time without progress instead.
	RequestTimeout time.Duration
	// ConnectTimeout bounds establishing a TCP connection
	ConnectTimeout time.Duration
	// RetryInterval is how long an unreachable node is skipped
	RetryInterval time.Duration

	// connection pool
	PoolSizePerHost int
	TotalPoolSize   int

	InsecureSkipVerify bool

	// SpoolDir is where non seekable blob uploads are buffered (os.TempDir() if empty)
	SpoolDir string
}

// WithDefaults returns a copy of the config with all unset values defaulted
func (c ClientConfig) WithDefaults() ClientConfig {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.RetryInterval <= 0 {
		c.RetryInterval = DefaultRetryInterval
	}
	if c.PoolSizePerHost <= 0 {
		c.PoolSizePerHost = DefaultPoolSizePerHost
	}
	if c.TotalPoolSize <= 0 {
		c.TotalPoolSize = DefaultTotalPoolSize
	}
	return c
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Client Configuration")
	addField("Timeout", c.Timeout.String())
	addField("Request Timeout", c.RequestTimeout.String())
	addField("Connect Timeout", c.ConnectTimeout.String())
	addField("Retry Interval", c.RetryInterval.String())
	addField("Pool Size Per Host", strconv.Itoa(c.PoolSizePerHost))
	addField("Total Pool Size", strconv.Itoa(c.TotalPoolSize))
	addField("Skip TLS Verify", strconv.FormatBool(c.InsecureSkipVerify))
	if c.SpoolDir != "" {
		addField("Spool Directory", c.SpoolDir)
	}

	addSection("Servers")
	for i, server := range c.Servers {
		addField(strconv.Itoa(i), server)
	}

	return sb.String()
}

// SplitServers accepts servers given as one string with comma or whitespace
// separated entries, or as several such strings.
func SplitServers(servers ...string) []string {
	var out []string
	for _, s := range servers {
		for _, f := range strings.FieldsFunc(s, func(r rune) bool {
			return r == ',' || r == ' ' || r == '\t' || r == '\n'
		}) {
			out = append(out, f)
		}
	}
	return out
}

// --------------------------------------------------------------------------
// Emulator node configuration struct
// --------------------------------------------------------------------------

// ServerConfig configures the in-memory emulator node (rpc/server)
type ServerConfig struct {
	// HTTP api settings
	Endpoint string

	// Logging configuration
	LogLevel string

	// BlobsDisabled makes every /_blobs request fail like a node started
	// without blob support
	BlobsDisabled bool
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Emulator Node")
	addField("Endpoint", c.Endpoint)
	addField("Blobs Enabled", strconv.FormatBool(!c.BlobsDisabled))

	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}
