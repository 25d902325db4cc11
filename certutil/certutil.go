// Package certutil loads a PEM trust anchor once and shares it by reference,
// matching the original program's certificate-lifetime design: the raw PEM
// bytes are the ownership anchor, the parsed *x509.CertPool is a view
// derived lazily and cached.
package certutil

import (
	"bytes"
	"crypto/x509"
	"fmt"
	"os"
	"sync"
)

const (
	beginMarker = "-----BEGIN CERTIFICATE-----"
	endMarker   = "-----END CERTIFICATE-----"
)

// Certificate holds a validated PEM trust anchor. It is safe for concurrent
// use and cheap to share by pointer across cloned endpoint descriptors.
type Certificate struct {
	pem []byte

	once sync.Once
	pool *x509.CertPool
	err  error
}

// LoadPEM reads path, verifies it contains PEM certificate begin and end
// markers, and returns a Certificate wrapping the raw bytes. The *x509.CertPool is
// not built here — it is built lazily on first use via Pool().
func LoadPEM(path string) (*Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading cert file %s: %w", path, err)
	}
	if !bytes.Contains(data, []byte(beginMarker)) || !bytes.Contains(data, []byte(endMarker)) {
		return nil, fmt.Errorf("%s does not contain a PEM certificate", path)
	}
	return &Certificate{pem: data}, nil
}

// Pool returns the parsed certificate pool, building it on first call.
func (c *Certificate) Pool() (*x509.CertPool, error) {
	c.once.Do(func() {
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(c.pem) {
			c.err = fmt.Errorf("no valid certificates found in PEM data")
			return
		}
		c.pool = pool
	})
	return c.pool, c.err
}
