package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/postpulse/postpulse/internal/domain"
	"github.com/postpulse/postpulse/internal/metrics"
)

const (
	defaultPageSize = 30
	maxRateRetries  = 3
)

// Client talks to the scrape API that does the actual social-media access.
// Authentication uses a cookie jar exported from a logged-in browser session,
// the same file the upstream scraping tooling produces.
type Client struct {
	baseURL string
	http    *http.Client
	cookies []*http.Cookie
	limiter *rate.Limiter
}

// NewClient builds a source client. cookiesFile may be empty for
// unauthenticated endpoints. requestsPerMinute throttles all outgoing calls;
// the scrape API bans aggressive clients.
func NewClient(baseURL, cookiesFile string, requestsPerMinute int, timeout time.Duration) (*Client, error) {
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), 1),
	}

	if cookiesFile != "" {
		cookies, err := loadCookies(cookiesFile)
		if err != nil {
			return nil, err
		}
		c.cookies = cookies
	}

	return c, nil
}

func loadCookies(path string) ([]*http.Cookie, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read cookies file: %w", err)
	}

	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse cookies file: %w", err)
	}

	cookies := make([]*http.Cookie, 0, len(raw))
	for name, value := range raw {
		cookies = append(cookies, &http.Cookie{Name: name, Value: value})
	}
	return cookies, nil
}

type wireItem struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

type wirePage struct {
	Items      []wireItem `json:"items"`
	NextCursor string     `json:"next_cursor"`
}

// FetchPosts returns up to limit of the subject's most recent posts.
func (c *Client) FetchPosts(ctx context.Context, handle string, limit int) ([]domain.RawItem, error) {
	endpoint := fmt.Sprintf("%s/users/%s/posts", c.baseURL, url.PathEscape(handle))
	return c.fetchPaged(ctx, endpoint, domain.KindPost, limit)
}

// FetchReplies returns up to limit direct replies to the given post, following
// cursor pagination.
func (c *Client) FetchReplies(ctx context.Context, postID string, limit int) ([]domain.RawItem, error) {
	endpoint := fmt.Sprintf("%s/posts/%s/replies", c.baseURL, url.PathEscape(postID))
	return c.fetchPaged(ctx, endpoint, domain.KindReply, limit)
}

func (c *Client) fetchPaged(ctx context.Context, endpoint string, kind domain.Kind, limit int) ([]domain.RawItem, error) {
	start := time.Now()
	var items []domain.RawItem
	cursor := ""

	for len(items) < limit {
		page, err := c.fetchPage(ctx, endpoint, cursor, min(defaultPageSize, limit-len(items)))
		if err != nil {
			metrics.SourceFetchDuration.WithLabelValues(string(kind), "error").Observe(time.Since(start).Seconds())
			return nil, err
		}

		for _, w := range page.Items {
			items = append(items, domain.RawItem{
				ID:        w.ID,
				Author:    w.Author,
				Kind:      kind,
				Text:      w.Text,
				CreatedAt: w.CreatedAt,
			})
		}

		if page.NextCursor == "" || len(page.Items) == 0 {
			break
		}
		cursor = page.NextCursor
	}

	if len(items) > limit {
		items = items[:limit]
	}

	metrics.SourceFetchDuration.WithLabelValues(string(kind), "ok").Observe(time.Since(start).Seconds())
	return items, nil
}

func (c *Client) fetchPage(ctx context.Context, endpoint, cursor string, pageSize int) (*wirePage, error) {
	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to build source request: %w", err)
		}
		q := req.URL.Query()
		q.Set("limit", strconv.Itoa(pageSize))
		if cursor != "" {
			q.Set("cursor", cursor)
		}
		req.URL.RawQuery = q.Encode()
		for _, cookie := range c.cookies {
			req.AddCookie(cookie)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("source request failed: %w", err)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			_ = resp.Body.Close()
			if attempt >= maxRateRetries {
				return nil, fmt.Errorf("source rate limit exceeded after %d retries", attempt)
			}
			if err := waitRetryAfter(ctx, resp); err != nil {
				return nil, err
			}
			continue
		}

		if resp.StatusCode == http.StatusNotFound {
			_ = resp.Body.Close()
			return nil, fmt.Errorf("%w: source returned 404", domain.ErrSubjectNotFound)
		}
		if resp.StatusCode != http.StatusOK {
			_ = resp.Body.Close()
			return nil, fmt.Errorf("source returned status %d", resp.StatusCode)
		}

		var page wirePage
		err = json.NewDecoder(resp.Body).Decode(&page)
		_ = resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to decode source response: %w", err)
		}
		return &page, nil
	}
}

// waitRetryAfter sleeps for the server-indicated interval, defaulting to ten
// seconds when the header is absent or unparseable.
func waitRetryAfter(ctx context.Context, resp *http.Response) error {
	wait := 10 * time.Second
	if header := resp.Header.Get("Retry-After"); header != "" {
		if secs, err := strconv.Atoi(header); err == nil && secs > 0 {
			wait = time.Duration(secs) * time.Second
		}
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
		return nil
	}
}
