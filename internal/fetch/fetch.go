// Package fetch implements the HttpFetcher contract: chapter pages, comic
// profile pages, search pages, and raw image bytes, each retried with
// exponential backoff: a shared *http.Client with sane timeouts, a small
// retry wrapper that respects context cancellation between attempts, and
// a single place that stamps every outgoing request with the configured
// credentials.
package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/lanyeeee/manhuagui-downloader/internal/logging"
)

const (
	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	baseURL   = "https://www.manhuagui.com"
)

// HttpFetcher is the contract the download core depends on, letting
// tests substitute a fake transport without touching the network.
type HttpFetcher interface {
	GetChapterPage(ctx context.Context, comicID, chapterID int64) (string, error)
	GetComicPage(ctx context.Context, comicID int64) (string, error)
	GetSearchPage(ctx context.Context, query string, page int) (string, error)
	GetImageBytes(ctx context.Context, imageURL string, referer string) ([]byte, error)
}

var _ HttpFetcher = (*Fetcher)(nil)

// Fetcher is the concrete HttpFetcher implementation.
type Fetcher struct {
	client     *http.Client
	token      string
	retryCount int
	backoff    time.Duration
}

// New builds a Fetcher. token is sent as the site's auth cookie when
// non-empty; retryCount/backoff drive the exponential-backoff retry loop
// shared by every method; timeout bounds each individual request attempt.
//
// Redirects are never followed: the site redirects to a login page
// instead of returning an error status when the session token is missing
// or rejected, so a redirect must surface as a fetch failure rather than
// silently return the login page's HTML in place of the requested page.
func New(token string, retryCount int, backoff, timeout time.Duration) *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		token:      token,
		retryCount: retryCount,
		backoff:    backoff,
	}
}

func (f *Fetcher) addAuth(req *http.Request) {
	req.Header.Set("User-Agent", userAgent)
	if f.token != "" {
		req.AddCookie(&http.Cookie{Name: "token", Value: f.token})
	}
}

// sleepCtx waits for d or ctx cancellation, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// doWithRetry performs req, retrying transient failures (network errors
// and 5xx responses) with exponential backoff up to f.retryCount times.
func (f *Fetcher) doWithRetry(ctx context.Context, req *http.Request) (*http.Response, error) {
	var lastErr error
	delay := f.backoff
	for attempt := 0; attempt <= f.retryCount; attempt++ {
		if attempt > 0 {
			logging.Logger().Warnf("retrying %s (attempt %d/%d): %v", req.URL, attempt, f.retryCount, lastErr)
			if err := sleepCtx(ctx, delay); err != nil {
				return nil, err
			}
			delay *= 2
		}
		resp, err := f.client.Do(req.Clone(ctx))
		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("server returned %s", resp.Status)
			resp.Body.Close()
			continue
		}
		return resp, nil
	}
	return nil, fmt.Errorf("giving up after %d attempts: %w", f.retryCount+1, lastErr)
}

func (f *Fetcher) getBody(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", url, err)
	}
	f.addAuth(req)

	resp, err := f.doWithRetry(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s: unexpected status %s", url, resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading body of %s: %w", url, err)
	}
	return body, nil
}

// GetChapterPage fetches the HTML of a chapter reading page, the source
// of the obfuscated packer payload the decrypt package parses.
func (f *Fetcher) GetChapterPage(ctx context.Context, comicID, chapterID int64) (string, error) {
	url := fmt.Sprintf("%s/comic/%d/%d.html", baseURL, comicID, chapterID)
	body, err := f.getBody(ctx, url)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// GetComicPage fetches a comic's profile page, listing its chapters
// grouped by volume/single-chapter group.
func (f *Fetcher) GetComicPage(ctx context.Context, comicID int64) (string, error) {
	url := fmt.Sprintf("%s/comic/%d/", baseURL, comicID)
	body, err := f.getBody(ctx, url)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// GetSearchPage fetches a page of search results for query at the given
// 1-based page number.
func (f *Fetcher) GetSearchPage(ctx context.Context, query string, page int) (string, error) {
	url := fmt.Sprintf("%s/s/%s_p%d.html", baseURL, query, page)
	body, err := f.getBody(ctx, url)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// GetImageBytes downloads a single image, returning its raw bytes. The
// manhuagui CDN rejects requests lacking a matching Referer, so every
// image request is stamped with the referer the caller passes (the
// download core passes the site root).
func (f *Fetcher) GetImageBytes(ctx context.Context, imageURL string, referer string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", imageURL, err)
	}
	f.addAuth(req)
	req.Header.Set("Referer", referer)

	resp, err := f.doWithRetry(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("fetching image %s: %w", imageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching image %s: unexpected status %s", imageURL, resp.Status)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, resp.Body); err != nil {
		return nil, fmt.Errorf("reading image %s: %w", imageURL, err)
	}
	return buf.Bytes(), nil
}
