// Package scraper fetches college web pages for knowledge-base ingestion.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/corpix/uarand"
	"golang.org/x/text/encoding/htmlindex"

	apperrors "github.com/campussathi/campussathi-go/internal/errors"
	"github.com/campussathi/campussathi-go/internal/ratelimit"
)

// Options configures a Client. Zero values pick conservative defaults.
type Options struct {
	Timeout           time.Duration
	MaxRetries        int
	InitialDelay      time.Duration
	RequestsPerMinute float64
	// MaxBodyBytes caps how much of a page is read.
	MaxBodyBytes int64
}

// Client is a polite HTTP fetcher: it rate-limits itself, rotates the
// User-Agent, retries transient failures and decodes legacy charsets.
type Client struct {
	httpClient   *http.Client
	limiter      *ratelimit.Limiter
	maxRetries   int
	initialDelay time.Duration
	maxBody      int64
	fetches      FetchGroup
}

// NewClient creates a client.
func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.InitialDelay <= 0 {
		opts.InitialDelay = 2 * time.Second
	}
	if opts.RequestsPerMinute <= 0 {
		opts.RequestsPerMinute = 30
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 5 << 20
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter:      ratelimit.NewPerMinute(opts.RequestsPerMinute),
		maxRetries:   opts.MaxRetries,
		initialDelay: opts.InitialDelay,
		maxBody:      opts.MaxBodyBytes,
	}
}

// Get performs a GET with rate limiting and retries.
// The caller must close the response body.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	var resp *http.Response
	err := RetryWithBackoff(ctx, c.maxRetries, c.initialDelay, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return &permanentError{err: err}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return &permanentError{err: fmt.Errorf("build request: %w", err)}
		}
		req.Header.Set("User-Agent", uarand.GetRandom())
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		req.Header.Set("Accept-Language", "en-IN,en;q=0.9,hi;q=0.8")

		r, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		if r.StatusCode >= 200 && r.StatusCode < 300 {
			resp = r
			return nil
		}
		_ = r.Body.Close()

		switch {
		case r.StatusCode == http.StatusTooManyRequests:
			return apperrors.NewFetchError(url, r.StatusCode, errors.New("rate limited"))
		case r.StatusCode >= 500:
			return apperrors.NewFetchError(url, r.StatusCode, errors.New("server error"))
		default:
			return &permanentError{err: apperrors.NewFetchError(url, r.StatusCode, errors.New("client error"))}
		}
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// GetDocument fetches url and parses it as HTML, decoding the charset
// declared in Content-Type.
func (c *Client) GetDocument(ctx context.Context, url string) (*goquery.Document, error) {
	resp, err := c.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	reader, err := decodeBody(io.LimitReader(resp.Body, c.maxBody), resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		return nil, fmt.Errorf("parse HTML: %w", err)
	}
	return doc, nil
}

// decodeBody wraps r with a UTF-8 decoder for the charset named in contentType.
// Unknown or missing charsets are read as UTF-8.
func decodeBody(r io.Reader, contentType string) (io.Reader, error) {
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return r, nil
	}
	name := strings.ToLower(strings.TrimSpace(params["charset"]))
	if name == "" || name == "utf-8" || name == "utf8" {
		return r, nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return r, nil
	}
	return enc.NewDecoder().Reader(r), nil
}
