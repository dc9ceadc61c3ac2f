// Package smhttp creates the [net/http.Client] used to talk to the Bitwarden
// API and identity services.
package smhttp

import (
	"crypto/tls"
	"net/http"
	"time"

	"golang.org/x/net/http2"
)

// NewClient creates a HTTP client. The default timeout is 60 seconds.
func NewClient(opts ...ClientOption) *http.Client {
	conf := clientConfig{
		AllowHTTP2: true,
		Timeout:    60 * time.Second,
	}
	for _, opt := range opts {
		opt(&conf)
	}

	return &http.Client{
		Timeout:   conf.Timeout,
		Transport: newTransport(&conf),
	}
}

func WithAllowHTTP2(a bool) ClientOption       { return func(c *clientConfig) { c.AllowHTTP2 = a } }
func WithTimeout(d time.Duration) ClientOption { return func(c *clientConfig) { c.Timeout = d } }
func WithTLSConfig(t *tls.Config) ClientOption { return func(c *clientConfig) { c.TLSConfig = t } }

type ClientOption = func(*clientConfig)

type clientConfig struct {
	// If false, HTTP2 is disabled
	AllowHTTP2 bool

	Timeout time.Duration

	// optional TLS configuration primarily used for testing
	TLSConfig *tls.Config
}

func newTransport(conf *clientConfig) *http.Transport {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	// Must be set before http2.ConfigureTransports.
	if conf.TLSConfig != nil {
		transport.TLSClientConfig = conf.TLSConfig
	}

	if !conf.AllowHTTP2 {
		transport.TLSNextProto = make(map[string]func(string, *tls.Conn) http.RoundTripper)
		if transport.TLSClientConfig == nil {
			transport.TLSClientConfig = &tls.Config{}
		}
		transport.TLSClientConfig.NextProtos = []string{"http/1.1"}
		return transport
	}

	// ConfigureTransports mutates transport; tr2 is only used to enable the
	// idle connection health check. See https://github.com/golang/go/issues/59690
	tr2, err := http2.ConfigureTransports(transport)
	if err != nil {
		// Only possible if transport was already HTTP2-enabled.
		panic("http2.ConfigureTransports: " + err.Error())
	}
	if tr2 != nil {
		tr2.ReadIdleTimeout = 30 * time.Second
	}
	return transport
}
