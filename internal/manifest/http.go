package manifest

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/MrSnakeDoc/onboard/internal/domain"
	"github.com/MrSnakeDoc/onboard/internal/logger"
	"github.com/MrSnakeDoc/onboard/internal/utils"
)

const (
	// DefaultManifestPath is where deployments publish the console config.
	DefaultManifestPath = "/api/master/apps/consoleConfig"
	// DefaultFetchTimeout bounds a single manifest request.
	DefaultFetchTimeout = 10 * time.Second

	maxManifestBytes = 1 << 20
)

// ErrNotFound is returned when the deployment does not publish a manifest.
var ErrNotFound = errors.New("manifest not found")

// StatusError is returned for non-success responses other than 404.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("manifest request to %s returned %d", e.URL, e.StatusCode)
}

// HTTPOptions configures an HTTPFetcher.
type HTTPOptions struct {
	Path      string        // path appended to the base URL
	Timeout   time.Duration // per-request timeout
	UserAgent string
	Client    *http.Client // optional, overrides the built-in client
}

// HTTPFetcher fetches manifests over HTTPS.
type HTTPFetcher struct {
	client    *http.Client
	path      string
	timeout   time.Duration
	userAgent string
	logger    logger.Logger
}

// NewHTTPFetcher creates a fetcher with a dedicated client and short timeouts.
func NewHTTPFetcher(opts HTTPOptions, log logger.Logger) *HTTPFetcher {
	if opts.Path == "" {
		opts.Path = DefaultManifestPath
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultFetchTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "onboard"
	}

	client := opts.Client
	if client == nil {
		client = &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   opts.Timeout,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: opts.Timeout,
				TLSClientConfig: &tls.Config{
					MinVersion: tls.VersionTLS12,
				},
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     60 * time.Second,
			},
		}
	}

	return &HTTPFetcher{
		client:    client,
		path:      "/" + strings.TrimPrefix(opts.Path, "/"),
		timeout:   opts.Timeout,
		userAgent: opts.UserAgent,
		logger:    log,
	}
}

// FetchManifest implements domain.ManifestFetcher.
func (f *HTTPFetcher) FetchManifest(ctx context.Context, baseURL string) (*domain.Manifest, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	url := strings.TrimRight(baseURL, "/") + f.path

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", f.userAgent)

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		f.logger.Debug("manifest request failed",
			logger.String("url", url),
			logger.Error(err))
		return nil, fmt.Errorf("failed to fetch manifest: %w", err)
	}
	defer utils.Close(resp.Body)

	f.logger.Debug("manifest response",
		logger.String("url", url),
		logger.Int("status", resp.StatusCode),
		logger.Duration("duration", time.Since(start)))

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxManifestBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	if len(data) > maxManifestBytes {
		return nil, fmt.Errorf("%w: larger than %d bytes", ErrMalformed, maxManifestBytes)
	}

	return Parse(data)
}
