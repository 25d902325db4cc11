// Package esclient provides typed operations against a remote,
// Elasticsearch-compatible document store: count, windowed search, bulk
// indexing, and delete-by-query.
package esclient

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/ChristianF88/logarchivist/certutil"
)

// Endpoint describes one remote store: scheme, optional credentials, host,
// port, index name, and an optional pinned trust anchor. It is an
// immutable value, cheap to copy — every clone shares the same
// certutil.Certificate (itself immutable after construction), matching
// the "cloneable descriptor" design note: no HTTP client is reconstructed
// per clone, only esclient.NewClient(ep) creates one.
type Endpoint struct {
	Scheme      string
	User        string
	Password    string
	Host        string
	Port        int
	Index       string
	TrustAnchor *certutil.Certificate
}

// defaultPort is used when the URL carries no explicit port.
const defaultPort = 9200

// ParseEndpoint parses "scheme://[user[:pass]@]host[:port][/index]".
// An empty path is a configuration error: the caller must name an index.
func ParseEndpoint(raw string) (*Endpoint, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing endpoint url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("endpoint url %q missing scheme or host", raw)
	}

	index := strings.Trim(u.Path, "/")
	if index == "" {
		return nil, fmt.Errorf("no index specified in endpoint url %q", raw)
	}

	host := u.Hostname()
	port := defaultPort
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid port in endpoint url %q: %w", raw, err)
		}
	}

	ep := &Endpoint{
		Scheme: u.Scheme,
		Host:   host,
		Port:   port,
		Index:  index,
	}
	if u.User != nil {
		ep.User = u.User.Username()
		ep.Password, _ = u.User.Password()
	}
	return ep, nil
}

// BaseURL returns "scheme://host:port" with no path or credentials.
func (e Endpoint) BaseURL() string {
	return fmt.Sprintf("%s://%s:%d", e.Scheme, e.Host, e.Port)
}

// IndexURL returns BaseURL + "/" + Index.
func (e Endpoint) IndexURL() string {
	return e.BaseURL() + "/" + e.Index
}

// HasAuth reports whether basic-auth credentials were supplied.
func (e Endpoint) HasAuth() bool {
	return e.User != ""
}

// Clone returns an independent copy; since every field is either a value
// type or a shared-immutable pointer (TrustAnchor), this is a cheap value
// copy rather than a deep clone.
func (e Endpoint) Clone() Endpoint {
	return e
}
