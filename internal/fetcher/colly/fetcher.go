// Package collyfetcher retrieves upstream calendar pages using gocolly.
package collyfetcher

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/panchang-io/festivals-api/internal/festival"
)

// Config controls collector behavior.
type Config struct {
	// BaseURL is the calendar endpoint without query parameters.
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}

// Fetcher implements festival.Fetcher using the Colly collector.
type Fetcher struct {
	cfg           Config
	baseCollector *colly.Collector
}

// New builds a Fetcher with a pooled HTTP transport.
func New(cfg Config) *Fetcher {
	// The same calendar URL is requested again once the cached result
	// expires, so URL revisit tracking must stay off. Clones share the
	// base collector's visit store.
	c := colly.NewCollector(
		colly.Async(false),
		colly.AllowURLRevisit(),
	)
	c.WithTransport(newHTTPTransport())

	return &Fetcher{
		cfg:           cfg,
		baseCollector: c,
	}
}

// Fetch executes a single HTTP GET for the year's calendar page and
// returns the raw response body.
func (f *Fetcher) Fetch(ctx context.Context, year int) ([]byte, error) {
	visitURL, err := f.calendarURL(year)
	if err != nil {
		return nil, err
	}

	var (
		body     []byte
		fetchErr error
	)
	collector := f.buildCollector(year, visitURL, &body, &fetchErr)

	if err := f.runCollector(ctx, collector, visitURL, &fetchErr); err != nil {
		return nil, err
	}
	return body, nil
}

func (f *Fetcher) calendarURL(year int) (string, error) {
	u, err := url.Parse(f.cfg.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parse calendar base URL: %w", err)
	}
	q := u.Query()
	q.Set("language", "en")
	q.Set("date", strconv.Itoa(year))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (f *Fetcher) buildCollector(year int, visitURL string, body *[]byte, fetchErr *error) *colly.Collector {
	collector := f.baseCollector.Clone()
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	timeout := f.cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	collector.SetRequestTimeout(timeout)

	collector.OnResponse(func(r *colly.Response) {
		*body = append([]byte(nil), r.Body...)
	})

	collector.OnError(func(r *colly.Response, err error) {
		fe := &festival.FetchError{Year: year, URL: visitURL, Err: err}
		if r != nil {
			fe.StatusCode = r.StatusCode
		}
		*fetchErr = fe
	})

	return collector
}

func (f *Fetcher) runCollector(ctx context.Context, collector *colly.Collector, visitURL string, fetchErr *error) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(visitURL)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("calendar fetch canceled: %w", ctx.Err())
	case err := <-done:
		// The OnError callback carries the upstream status code, so it
		// takes precedence over the bare visit error.
		if *fetchErr != nil {
			return *fetchErr
		}
		if err != nil {
			return fmt.Errorf("visit calendar page: %w", err)
		}
		return nil
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
