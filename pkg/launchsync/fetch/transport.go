package fetch

import (
	"net/http"
	"time"

	"github.com/jamesainslie/launchsync/pkg/launchsync/logging"
)

// LoggingTransport logs every request and its outcome at debug level, and
// failures at warn level.
type LoggingTransport struct {
	// Base performs the request. Nil means http.DefaultTransport.
	Base http.RoundTripper

	// Component is the logger name. Empty means "http".
	Component string
}

// RoundTrip implements http.RoundTripper.
func (t *LoggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	component := t.Component
	if component == "" {
		component = "http"
	}
	log := logging.Get(component)

	start := time.Now()
	log.Debug("request", "method", req.Method, "url", req.URL.Redacted())

	resp, err := base.RoundTrip(req)
	if err != nil {
		log.Warn("request failed", "method", req.Method, "url", req.URL.Redacted(),
			"elapsed", time.Since(start), "error", err)
		return nil, err
	}

	log.Debug("response", "method", req.Method, "url", req.URL.Redacted(),
		"status", resp.StatusCode, "content_type", resp.Header.Get("Content-Type"),
		"length", resp.ContentLength, "elapsed", time.Since(start))
	return resp, nil
}

// NewHTTPClient returns a client whose transport logs through
// LoggingTransport. A zero timeout means no overall limit, which suits
// large file downloads.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: &LoggingTransport{Base: http.DefaultTransport.(*http.Transport).Clone()},
	}
}
