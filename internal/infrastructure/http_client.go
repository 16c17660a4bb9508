package infrastructure

import (
	"net/http"
	"time"
)

// ClientConfig holds configuration for HTTP clients
type ClientConfig struct {
	Timeout               time.Duration
	MaxIdleConns          int
	MaxIdleConnsPerHost   int
	IdleConnTimeout       time.Duration
	TLSHandshakeTimeout   time.Duration
	ResponseHeaderTimeout time.Duration
}

// DefaultClientConfig returns the configuration used for API requests
func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		Timeout:               30 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   20,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
	}
}

// NewHTTPClient creates an HTTP client with connection pooling
func NewHTTPClient(config *ClientConfig) *http.Client {
	if config == nil {
		config = DefaultClientConfig()
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          config.MaxIdleConns,
		MaxIdleConnsPerHost:   config.MaxIdleConnsPerHost,
		IdleConnTimeout:       config.IdleConnTimeout,
		TLSHandshakeTimeout:   config.TLSHandshakeTimeout,
		ResponseHeaderTimeout: config.ResponseHeaderTimeout,
	}

	return &http.Client{
		Timeout:   config.Timeout,
		Transport: transport,
	}
}

// NewDownloadClient returns a client for long-running transfers.
// A zero timeout leaves the body read unbounded; cancellation goes through the request context.
func NewDownloadClient(timeout time.Duration) *http.Client {
	config := DefaultClientConfig()
	config.Timeout = timeout
	config.MaxIdleConns = 200
	config.MaxIdleConnsPerHost = 50
	config.IdleConnTimeout = 120 * time.Second
	config.ResponseHeaderTimeout = 60 * time.Second
	return NewHTTPClient(config)
}
