// Package http builds the HTTP clients used for API calls and for
// direct presigned-URL transfers to object storage.
package http

import (
	"crypto/tls"
	nethttp "net/http"
	"os"

	"golang.org/x/net/http2"

	"github.com/sekolahdrive/drive-int/internal/constants"
)

// NewAPIClient returns the HTTP client used for REST API calls.
// No overall client timeout: per-call deadlines come from contexts.
func NewAPIClient() *nethttp.Client {
	return &nethttp.Client{
		Transport: newTransport(),
	}
}

// NewTransferClient returns the HTTP client used for presigned PUT/GET
// transfers. Compression is disabled since transfer payloads gain
// nothing from it and progress accounting needs raw byte counts.
func NewTransferClient() *nethttp.Client {
	tr := newTransport()
	tr.DisableCompression = true
	return &nethttp.Client{Transport: tr}
}

func newTransport() *nethttp.Transport {
	tr := &nethttp.Transport{
		Proxy:                 nethttp.ProxyFromEnvironment,
		MaxIdleConns:          constants.HTTPMaxIdleConns,
		MaxIdleConnsPerHost:   constants.HTTPMaxIdleConnsPerHost,
		IdleConnTimeout:       constants.HTTPIdleConnTimeout,
		TLSHandshakeTimeout:   constants.HTTPTLSHandshakeTimeout,
		ExpectContinueTimeout: constants.HTTPExpectContinueTimeout,
		ForceAttemptHTTP2:     true,
	}

	_ = http2.ConfigureTransport(tr)

	// Runtime toggle for HTTP/2, useful when a proxy mishandles
	// multiplexed streams mid-transfer.
	if os.Getenv("DISABLE_HTTP2") == "true" {
		tr.ForceAttemptHTTP2 = false
		tr.TLSNextProto = make(map[string]func(string, *tls.Conn) nethttp.RoundTripper)
	}

	return tr
}
