package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
)

const (
	// DefaultUserAgent identifies sitewatch to the watched servers.
	DefaultUserAgent = "sitewatch/1.0 (+https://github.com/nao1215/sitewatch)"

	// DefaultMaxBodySize is the response size limit in bytes.
	DefaultMaxBodySize int64 = 10 << 20
)

// Fetcher performs HTTP GETs for watched sources.
// It is safe for concurrent use.
type Fetcher struct {
	client        *http.Client
	userAgent     string
	maxBodySize   int64
	sourceHeaders map[string]map[string]string
	logger        *slog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithClient sets the HTTP client, typically one built by NewClient.
func WithClient(c *http.Client) Option {
	return func(f *Fetcher) {
		if c != nil {
			f.client = c
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithMaxBodySize sets the response size limit. Non-positive values keep the
// default.
func WithMaxBodySize(n int64) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxBodySize = n
		}
	}
}

// WithSourceHeaders sets extra request headers for one source.
func WithSourceHeaders(source string, headers map[string]string) Option {
	return func(f *Fetcher) {
		if len(headers) > 0 {
			f.sourceHeaders[source] = headers
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(f *Fetcher) {
		if l != nil {
			f.logger = l
		}
	}
}

// New creates a Fetcher with sensible defaults.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:        &http.Client{Timeout: DefaultTimeout},
		userAgent:     DefaultUserAgent,
		maxBodySize:   DefaultMaxBodySize,
		sourceHeaders: make(map[string]map[string]string),
		logger:        slog.Default(),
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Fetch GETs source and returns the body decoded to UTF-8.
//
// The character set is taken from the Content-Type header or sniffed from the
// document. Non-2xx responses yield a *StatusError.
func (f *Fetcher) Fetch(ctx context.Context, source string) (string, error) {
	u, err := url.Parse(source)
	if err != nil {
		return "", fmt.Errorf("invalid source URL %q: %w", source, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedScheme, source)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.8")
	for key, value := range f.sourceHeaders[source] {
		req.Header.Set(key, value)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little so the connection can be reused.
		_, _ = io.CopyN(io.Discard, resp.Body, 4096) //nolint:errcheck // best effort
		return "", &StatusError{URL: source, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize+1))
	if err != nil {
		return "", fmt.Errorf("failed to read body: %w", err)
	}
	if int64(len(raw)) > f.maxBodySize {
		return "", fmt.Errorf("%w: more than %d bytes", ErrBodyTooLarge, f.maxBodySize)
	}

	body, err := decode(raw, resp.Header.Get("Content-Type"))
	if err != nil {
		return "", err
	}

	f.logger.Debug("fetched",
		"url", source,
		"status", resp.StatusCode,
		"size", len(raw),
	)
	return body, nil
}

var utf8BOM = []byte("\xef\xbb\xbf")

// decode converts raw to UTF-8. The charset comes from a byte order mark or
// the Content-Type header; failing that, a body that is valid UTF-8 is kept
// as is and anything else is decoded with the encoding sniffed from the
// first bytes of the document.
func decode(raw []byte, contentType string) (string, error) {
	if len(raw) == 0 {
		return "", nil
	}

	enc, name, certain := charset.DetermineEncoding(raw, contentType)
	if (!certain && utf8.Valid(raw)) || name == "utf-8" {
		// Invalid sequences are replaced by the normalizer.
		return string(bytes.TrimPrefix(raw, utf8BOM)), nil
	}

	decoded, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("failed to decode %s body: %w", name, err)
	}
	return string(decoded), nil
}
