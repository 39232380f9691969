package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"goodlist/internal/logger"

	"github.com/PuerkitoBio/goquery"
	"github.com/codeGROOVE-dev/retry"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
)

// OGPData is the metadata scraped from a content page.
type OGPData struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Image       string `json:"image"`
	URL         string `json:"url"`
}

// MetadataFetcher retrieves OGP metadata for a URL. Any error means the
// content cannot be registered.
type MetadataFetcher interface {
	Fetch(ctx context.Context, rawURL string) (*OGPData, error)
}

var ErrHostNotAllowed = errors.New("host not allowed")

// HTTPStatusError is a non-200 response from the content site.
type HTTPStatusError struct {
	URL    string
	Status int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.URL)
}

const maxTitleLen = 200

// OGPFetcher scrapes og:title, og:description and og:image from pages on an
// allow-listed set of hosts.
type OGPFetcher struct {
	client       *http.Client
	allowedHosts map[string]struct{}
	timeout      time.Duration
	attempts     uint
	sanitizer    *bluemonday.Policy
}

func NewOGPFetcher(client *http.Client, allowedHosts []string, timeout time.Duration, attempts uint) *OGPFetcher {
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	if attempts == 0 {
		attempts = 1
	}
	hosts := make(map[string]struct{}, len(allowedHosts))
	for _, h := range allowedHosts {
		hosts[strings.ToLower(h)] = struct{}{}
	}
	return &OGPFetcher{
		client:       client,
		allowedHosts: hosts,
		timeout:      timeout,
		attempts:     attempts,
		sanitizer:    bluemonday.StrictPolicy(),
	}
}

// Fetch is bounded by the fetcher timeout across all attempts.
func (f *OGPFetcher) Fetch(ctx context.Context, rawURL string) (*OGPData, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: scheme %q", ErrHostNotAllowed, u.Scheme)
	}
	if _, ok := f.allowedHosts[strings.ToLower(u.Hostname())]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrHostNotAllowed, u.Hostname())
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	var (
		data       *OGPData
		lastStatus *HTTPStatusError
	)
	err = retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
			if err != nil {
				return retry.Unrecoverable(fmt.Errorf("create request: %w", err))
			}
			req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36")
			req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
			req.Header.Set("Accept-Language", "ja,en-US;q=0.9,en;q=0.8")

			startTime := time.Now()
			resp, err := f.client.Do(req)
			if err != nil {
				logger.Warn("OGP request failed",
					zap.String("url", rawURL),
					zap.Duration("duration", time.Since(startTime)),
					zap.Error(err))
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				logger.Warn("OGP request returned non-OK status", zap.String("url", rawURL), zap.Int("status_code", resp.StatusCode))
				lastStatus = &HTTPStatusError{URL: rawURL, Status: resp.StatusCode}
				return lastStatus
			}

			parsed, err := f.parse(resp.Body, rawURL)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			data = parsed
			return nil
		},
		retry.Attempts(f.attempts),
		retry.Delay(200*time.Millisecond),
		retry.MaxDelay(time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			logger.Info("Retrying OGP fetch", zap.Uint("attempt", n), zap.String("url", rawURL), zap.Error(err))
		}),
		retry.RetryIf(func(err error) bool {
			// Client errors will not change on retry
			return !isClientError(err)
		}),
	)
	if err != nil {
		if lastStatus != nil && isClientError(lastStatus) {
			return nil, fmt.Errorf("fetch %s: %w", rawURL, lastStatus)
		}
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	return data, nil
}

func (f *OGPFetcher) parse(body io.Reader, rawURL string) (*OGPData, error) {
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	data := &OGPData{URL: rawURL}
	doc.Find("meta[property]").Each(func(i int, s *goquery.Selection) {
		prop, _ := s.Attr("property")
		content, _ := s.Attr("content")
		content = strings.TrimSpace(f.sanitizer.Sanitize(content))
		switch prop {
		case "og:title":
			data.Title = truncate(content, maxTitleLen)
		case "og:description":
			data.Description = content
		case "og:image":
			data.Image = content
		}
	})
	return data, nil
}

func isClientError(err error) bool {
	var statusErr *HTTPStatusError
	return errors.As(err, &statusErr) && statusErr.Status < http.StatusInternalServerError
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
