// Package fetch retrieves and decodes the manifest documents a game server
// publishes below its base URL.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jamesainslie/launchsync/pkg/launchsync/logging"
	"github.com/jamesainslie/launchsync/pkg/launchsync/manifest"
	"github.com/jamesainslie/launchsync/pkg/launchsync/types"
)

const (
	// DefaultTimeout bounds a single manifest request.
	DefaultTimeout = 30 * time.Second

	// DefaultUserAgent is sent when Options.UserAgent is empty.
	DefaultUserAgent = "launchsync"

	// MaxDocumentSize caps the size of a manifest body.
	MaxDocumentSize = 64 << 20
)

// ErrInvalidURL is returned by ValidateServerURL.
var ErrInvalidURL = errors.New("invalid server url")

// Options configures a Client.
type Options struct {
	// HTTPClient performs the requests. Nil builds one with NewHTTPClient(Timeout).
	HTTPClient *http.Client

	// UserAgent is sent with every request.
	UserAgent string

	// Timeout is used only when HTTPClient is nil.
	Timeout time.Duration
}

// Validate fills in defaults.
func (o *Options) Validate() error {
	if o.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %s", o.Timeout)
	}
	if o.Timeout == 0 {
		o.Timeout = DefaultTimeout
	}
	if o.UserAgent == "" {
		o.UserAgent = DefaultUserAgent
	}
	if o.HTTPClient == nil {
		o.HTTPClient = NewHTTPClient(o.Timeout)
	}
	return nil
}

// Client fetches server and client manifests. It is safe for concurrent use.
type Client struct {
	http      *http.Client
	userAgent string
}

// New creates a Client.
func New(opts Options) (*Client, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	return &Client{http: opts.HTTPClient, userAgent: opts.UserAgent}, nil
}

// FetchServerManifest downloads and decodes {baseURL}/servermanifest.xml.
func (c *Client) FetchServerManifest(ctx context.Context, baseURL string) (*manifest.ServerManifest, error) {
	target := DocumentURL(baseURL, manifest.DocServerManifest.FileName())
	const op = "fetch server manifest"

	data, err := c.get(ctx, op, target)
	if err != nil {
		return nil, err
	}
	m, err := manifest.DecodeServerManifest(data)
	if err != nil {
		return nil, decodeError(op, target, err)
	}
	return m, nil
}

// FetchClientManifest downloads and decodes {baseURL}/clientmanifest.xml.
func (c *Client) FetchClientManifest(ctx context.Context, baseURL string) (*manifest.ClientManifest, error) {
	target := DocumentURL(baseURL, manifest.DocClientManifest.FileName())
	const op = "fetch client manifest"

	data, err := c.get(ctx, op, target)
	if err != nil {
		return nil, err
	}
	m, err := manifest.DecodeClientManifest(data)
	if err != nil {
		return nil, decodeError(op, target, err)
	}

	logging.Get("fetch").Debug("client manifest decoded",
		"url", target, "files", m.FileCount(), "size", types.FormatSize(m.TotalSize()))
	return m, nil
}

// get performs the GET and checks status and media type. The returned
// error is always a *types.Error.
func (c *Client) get(ctx context.Context, op, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, types.NewError(types.KindNetwork, op, target, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/xml, application/xml")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, types.NewError(types.KindUnknown, op, target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, types.NewError(types.KindNetwork, op, target,
			fmt.Errorf("%w: %s", types.ErrHTTPStatus, resp.Status))
	}

	if ct := resp.Header.Get("Content-Type"); !IsXMLMediaType(ct) {
		return nil, types.NewError(types.KindProtocol, op, target,
			fmt.Errorf("%w: %q", types.ErrContentType, ct))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxDocumentSize+1))
	if err != nil {
		return nil, types.NewError(types.KindUnknown, op, target, fmt.Errorf("reading body: %w", err))
	}
	if len(data) > MaxDocumentSize {
		return nil, types.NewError(types.KindProtocol, op, target,
			fmt.Errorf("%w: body exceeds %s", types.ErrMalformed, types.FormatSize(MaxDocumentSize)))
	}
	return data, nil
}

func decodeError(op, target string, err error) error {
	if errors.Is(err, types.ErrVersionMismatch) {
		logging.Get("fetch").Warn("manifest version not supported", "url", target, "error", err)
	}
	return types.NewError(types.KindProtocol, op, target, err)
}

// IsXMLMediaType reports whether a Content-Type header names text/xml or
// application/xml. Parameters such as charset are ignored.
func IsXMLMediaType(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mt == "text/xml" || mt == "application/xml"
}

// DocumentURL joins a server base URL and a document file name with exactly
// one slash. The file name is lower-cased.
func DocumentURL(baseURL, fileName string) string {
	return strings.TrimRight(baseURL, "/") + "/" + strings.ToLower(strings.TrimLeft(fileName, "/"))
}

// ValidateServerURL trims raw and checks that it is an absolute http or
// https URL with a host. It returns the trimmed URL.
func ValidateServerURL(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidURL)
	}
	u, err := url.Parse(s)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") {
		return "", fmt.Errorf("%w: %q is not an absolute http or https url", ErrInvalidURL, s)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: %q has no host", ErrInvalidURL, s)
	}
	return s, nil
}
