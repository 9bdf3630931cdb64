package serverset

import (
	"net"
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

const (
	// DefaultPort is the HTTP port of CrateDB
	DefaultPort = "4200"

	SchemeHTTP  = "http"
	SchemeHTTPS = "https"
)

// Node is a single addressable cluster endpoint. Its identity is the address.
type Node struct {
	Scheme  string
	Address string // host:port
}

// ParseNode parses a server string of the form host, host:port or
// scheme://host:port.
func ParseNode(server string) (Node, error) {
	server = strings.TrimSpace(server)
	if server == "" {
		return Node{}, errors.New("empty server address")
	}

	scheme := SchemeHTTP
	if strings.Contains(server, "://") {
		u, err := url.Parse(server)
		if err != nil {
			return Node{}, errors.Wrapf(err, "invalid server address %q", server)
		}
		if u.Scheme != SchemeHTTP && u.Scheme != SchemeHTTPS {
			return Node{}, errors.Errorf("unsupported scheme %q in server address %q", u.Scheme, server)
		}
		if u.Path != "" && u.Path != "/" {
			return Node{}, errors.Errorf("server address %q must not contain a path", server)
		}
		scheme = u.Scheme
		server = u.Host
	}

	host, port, err := net.SplitHostPort(server)
	if err != nil {
		// no port given
		host, port = server, DefaultPort
	}
	if host == "" {
		return Node{}, errors.Errorf("missing host in server address %q", server)
	}

	return Node{Scheme: scheme, Address: net.JoinHostPort(host, port)}, nil
}

// ParseNodes parses every server string, keeping the order and dropping duplicates.
func ParseNodes(servers []string) ([]Node, error) {
	nodes := make([]Node, 0, len(servers))
	seen := make(NodeSet, len(servers))
	for _, server := range servers {
		node, err := ParseNode(server)
		if err != nil {
			return nil, err
		}
		if seen.Has(node) {
			continue
		}
		seen.Add(node)
		nodes = append(nodes, node)
	}
	return nodes, nil
}

// URL returns the base url of the node, e.g. http://localhost:4200
func (n Node) URL() string {
	return n.Scheme + "://" + n.Address
}

func (n Node) String() string {
	return n.URL()
}

// NodeSet is a set of nodes keyed by address
type NodeSet map[string]struct{}

// Add adds the node to the set
func (s NodeSet) Add(node Node) {
	s[node.Address] = struct{}{}
}

// Has reports whether the node is in the set
func (s NodeSet) Has(node Node) bool {
	_, ok := s[node.Address]
	return ok
}
