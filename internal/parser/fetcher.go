package parser

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/gocolly/colly/v2/extensions"
)

const (
	// DefaultUserAgent mimics a desktop Chrome browser
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
	// DefaultAcceptLanguage asks for the Russian version of the site
	DefaultAcceptLanguage = "ru-RU,ru;q=0.9,en-US;q=0.8,en;q=0.7"
	// DefaultTimeout bounds a single page request
	DefaultTimeout = 15 * time.Second

	bodyKey  = "body"
	errorKey = "error"
)

// FetcherOptions configures a Fetcher. Zero values fall back to the defaults above.
type FetcherOptions struct {
	UserAgent      string
	AcceptLanguage string
	Timeout        time.Duration
}

// Fetcher downloads search result pages with a colly collector.
// It is not safe for concurrent use.
type Fetcher struct {
	collector *colly.Collector
	headers   http.Header
	// shared between requests so the referer survives from page to page
	session *colly.Context
}

// NewFetcher creates a page fetcher
func NewFetcher(opts FetcherOptions) *Fetcher {
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.AcceptLanguage == "" {
		opts.AcceptLanguage = DefaultAcceptLanguage
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	c := colly.NewCollector(
		colly.UserAgent(opts.UserAgent),
		colly.MaxDepth(1),
		// The same search pages are polled every cycle
		colly.AllowURLRevisit(),
	)
	c.SetRequestTimeout(opts.Timeout)

	// Each page after the first one is requested with the previous page as referer
	extensions.Referer(c)

	c.OnRequest(func(r *colly.Request) {
		log.Println("Visiting", r.URL)
	})

	c.OnError(func(r *colly.Response, err error) {
		log.Printf("Error fetching %s: %v", r.Request.URL, err)
		r.Ctx.Put(errorKey, fmt.Errorf("status %d: %w", r.StatusCode, err))
	})

	c.OnResponse(func(r *colly.Response) {
		log.Printf("Received response from %s, size: %d bytes\n", r.Request.URL, len(r.Body))
		r.Ctx.Put(bodyKey, string(r.Body))
	})

	headers := http.Header{}
	headers.Set("Accept-Language", opts.AcceptLanguage)

	return &Fetcher{
		collector: c,
		headers:   headers,
		session:   colly.NewContext(),
	}
}

// FetchPage downloads a single page and returns its HTML.
// Transport errors and non-2xx responses are returned as errors.
func (f *Fetcher) FetchPage(ctx context.Context, pageURL string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	reqCtx := f.session
	reqCtx.Put(bodyKey, nil)
	reqCtx.Put(errorKey, nil)

	err := f.collector.Request(http.MethodGet, pageURL, nil, reqCtx, f.headers.Clone())
	f.collector.Wait()

	if cbErr, ok := reqCtx.GetAny(errorKey).(error); ok {
		return "", fmt.Errorf("error fetching page %s: %w", pageURL, cbErr)
	}
	if err != nil {
		return "", fmt.Errorf("error fetching page %s: %w", pageURL, err)
	}

	body, ok := reqCtx.GetAny(bodyKey).(string)
	if !ok {
		return "", fmt.Errorf("error fetching page %s: %w", pageURL, errEmptyResponse)
	}

	return body, nil
}

var errEmptyResponse = errors.New("no response body")
