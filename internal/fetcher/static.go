// Package fetcher retrieves source content over HTTP, either with a plain
// client or through a headless browser for script-dependent pages.
package fetcher

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/sitevigil/sitevigil/internal/config"
	"github.com/sitevigil/sitevigil/internal/errorx"
	"github.com/sitevigil/sitevigil/internal/models"
)

// StaticFetcher retrieves content with a plain HTTP client. It never
// executes scripts and ignores the source's page actions.
type StaticFetcher struct {
	client *http.Client
	cfg    config.FetcherConfig
	log    zerolog.Logger
}

// NewStaticFetcher builds a fetcher from configuration. The underlying
// client is shared across all checks and safe for concurrent use.
func NewStaticFetcher(cfg config.FetcherConfig, log zerolog.Logger) *StaticFetcher {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.InsecureSkipVerify,
		},
	}

	client := &http.Client{
		Transport: transport,
		Timeout:   time.Duration(cfg.TimeoutSeconds) * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= cfg.MaxRedirects {
				return errors.New("too many redirects")
			}
			return nil
		},
	}

	return &StaticFetcher{
		client: client,
		cfg:    cfg,
		log:    log.With().Str("component", "static_fetcher").Logger(),
	}
}

// Fetch retrieves the source URL and returns the response body, bounded by
// the configured maximum content size.
func (f *StaticFetcher) Fetch(ctx context.Context, source *models.Source) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source.URL, nil)
	if err != nil {
		return nil, errorx.NewFetchError(source.URL, "invalid request", err)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, classifyTransportError(source.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, errorx.NewHTTPError(resp.StatusCode, source.URL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, int64(f.cfg.MaxContentSize)))
	if err != nil {
		return nil, classifyTransportError(source.URL, err)
	}
	if len(body) == 0 {
		return nil, errorx.Wrapf(errorx.ErrEmptyContent, "fetch of '%s'", source.URL)
	}

	f.log.Debug().Int64("source_id", source.ID).
		Int("status", resp.StatusCode).
		Int("bytes", len(body)).
		Dur("elapsed", time.Since(start)).
		Msg("Static fetch completed")

	return body, nil
}

// classifyTransportError maps transport failures onto the fetch error
// taxonomy so the orchestrator can distinguish timeouts from hard failures.
func classifyTransportError(url string, err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return errorx.NewFetchError(url, "request timed out", errorx.ErrTimeout)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return errorx.NewFetchError(url, "request timed out", errorx.ErrTimeout)
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return errorx.NewFetchError(url, "DNS resolution failed", err)
	}

	return errorx.NewFetchError(url, "request failed", err)
}
