package titles

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// maxBodyBytes bounds how much of a page is read while looking for its title
const maxBodyBytes = 512 * 1024

// Resolver looks up the title of a web page
type Resolver struct {
	httpClient *http.Client
	logger     *zap.Logger
}

// NewResolver creates a resolver whose requests time out after timeout
func NewResolver(timeout time.Duration, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.Named("titles"),
	}
}

// Resolve fetches rawURL and returns its <title>, falling back to og:title
func (r *Resolver) Resolve(ctx context.Context, rawURL string) (string, error) {
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		rawURL = "https://" + rawURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("invalid url: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; LinkLander/1.0)")
	req.Header.Set("Accept", "text/html")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetching %s: HTTP %d", rawURL, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("parsing %s: %w", rawURL, err)
	}

	title := strings.TrimSpace(doc.Find("head title").First().Text())
	if title == "" {
		title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	if title == "" {
		if og, ok := doc.Find(`meta[property="og:title"]`).First().Attr("content"); ok {
			title = strings.TrimSpace(og)
		}
	}
	return strings.Join(strings.Fields(title), " "), nil
}

// ResolveOrEmpty is Resolve for callers that treat the title as optional: failures are logged and yield ""
func (r *Resolver) ResolveOrEmpty(ctx context.Context, rawURL string) string {
	title, err := r.Resolve(ctx, rawURL)
	if err != nil {
		r.logger.Debug("Title lookup failed", zap.String("url", rawURL), zap.Error(err))
		return ""
	}
	return title
}
