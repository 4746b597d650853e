package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/pfrederiksen/typhoon/internal/config"
	"github.com/pfrederiksen/typhoon/internal/logger"
	"github.com/pfrederiksen/typhoon/internal/metrics"
	"github.com/pfrederiksen/typhoon/internal/status"
)

// Errors returned by FetchRaw. Fetch maps them to failure labels.
var (
	ErrInvalidURL = errors.New("invalid url")
	ErrTransport  = errors.New("transport error")
	ErrEmptyBody  = errors.New("empty response body")
	ErrDecode     = errors.New("no encoding accepted the page")
)

// Scraper fetches the announcement page. It holds no per-fetch state, so
// one Scraper may serve concurrent calls.
type Scraper struct {
	client         *http.Client
	url            string
	userAgent      string
	acceptCharset  string
	acceptLanguage string
	maxBodySize    int64
	markers        Markers
	logger         *slog.Logger
	metrics        *metrics.Metrics
}

// New creates a Scraper from cfg. A nil cfg uses the defaults, a nil
// logger uses slog.Default(), and a nil metrics records nothing.
func New(cfg *config.Config, log *slog.Logger, m *metrics.Metrics) *Scraper {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	return &Scraper{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		url:            cfg.URL,
		userAgent:      cfg.UserAgent,
		acceptCharset:  cfg.AcceptCharset,
		acceptLanguage: cfg.AcceptLanguage,
		maxBodySize:    cfg.EffectiveMaxBodySize(),
		markers:        DefaultMarkers,
		logger:         logger.OrDefault(log),
		metrics:        m,
	}
}

// WithMarkers replaces the marker literals, for pages whose markup drifted.
func (s *Scraper) WithMarkers(m Markers) *Scraper {
	if m.complete() {
		s.markers = m
	}
	return s
}

// WithHTTPClient replaces the HTTP client.
func (s *Scraper) WithHTTPClient(c *http.Client) *Scraper {
	if c != nil {
		s.client = c
	}
	return s
}

// URL returns the page being fetched.
func (s *Scraper) URL() string {
	return s.url
}

// Fetch performs one request and returns exactly one result. Failures are
// reported through the result's label, never as an error.
func (s *Scraper) Fetch(ctx context.Context) status.FetchResult {
	start := time.Now()
	result, err := s.fetch(ctx)
	s.observe(result, err, time.Since(start))
	return result
}

// FetchAsync runs Fetch on its own goroutine. The returned channel delivers
// one result and is then closed.
func (s *Scraper) FetchAsync(ctx context.Context) <-chan status.FetchResult {
	ch := make(chan status.FetchResult, 1)
	go func() {
		defer close(ch)
		ch <- s.Fetch(ctx)
	}()
	return ch
}

// FetchWithCallback runs Fetch on its own goroutine and calls fn once with
// the result. The caller is responsible for moving the result to whatever
// goroutine needs it.
func (s *Scraper) FetchWithCallback(ctx context.Context, fn func(status.FetchResult)) {
	if fn == nil {
		return
	}
	go func() {
		fn(s.Fetch(ctx))
	}()
}

func (s *Scraper) fetch(ctx context.Context) (status.FetchResult, error) {
	data, err := s.FetchRaw(ctx)
	switch {
	case errors.Is(err, ErrInvalidURL):
		return status.Failed(status.LabelURLError, 0), err
	case errors.Is(err, ErrEmptyBody):
		return status.Failed(status.LabelNoData, 0), err
	case err != nil:
		return status.Failed(status.LabelNetworkError, 0), err
	}

	text, encoding, ok := Decode(data)
	if !ok {
		return status.Failed(status.LabelDecodeError, len(data)), ErrDecode
	}

	return status.FetchResult{
		CityStatuses: s.markers.Extract(text),
		UsedEncoding: encoding,
		DataSize:     len(data),
	}, nil
}

// FetchRaw downloads the page body without decoding it. Non-200 responses
// are logged and their body is still returned.
func (s *Scraper) FetchRaw(ctx context.Context) ([]byte, error) {
	u, err := url.Parse(s.url)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, s.url)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %w", ErrInvalidURL, err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept-Charset", s.acceptCharset)
	req.Header.Set("Accept-Language", s.acceptLanguage)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetching page: %w", ErrTransport, err)
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	if resp.StatusCode != http.StatusOK {
		s.logger.Warn("unexpected status code", "url", s.url, "status", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %w", ErrTransport, err)
	}
	if int64(len(data)) > s.maxBodySize {
		// DataSize reports the decoded prefix; the log carries the real size.
		rest, _ := io.Copy(io.Discard, resp.Body)
		s.logger.Warn("response body truncated", "url", s.url,
			"max_bytes", s.maxBodySize, "total_bytes", int64(len(data))+rest)
		data = data[:s.maxBodySize]
	}
	if len(data) == 0 {
		return nil, ErrEmptyBody
	}

	return data, nil
}

func (s *Scraper) observe(result status.FetchResult, err error, elapsed time.Duration) {
	outcome := result.Outcome()
	s.metrics.ObserveFetch(string(outcome), result.Failed(), elapsed, len(result.CityStatuses), result.DataSize, time.Now())

	attrs := []any{
		"url", s.url,
		"outcome", outcome,
		"encoding", result.UsedEncoding,
		"cities", len(result.CityStatuses),
		"bytes", result.DataSize,
		"duration", elapsed,
	}
	if err != nil {
		s.logger.Warn("fetch failed", append(attrs, "error", err)...)
		return
	}
	s.logger.Info("fetch finished", attrs...)
}
