package recall

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const maxResponseSizeBytes = 2 << 20

var ErrUnavailable = errors.New("recall backend unavailable")

// Config addresses the recall service, the HTTP facade over the vector and
// conversation stores.
type Config struct {
	URL     string        `envconfig:"URL" split_words:"true" required:"true"`
	Token   string        `envconfig:"TOKEN" split_words:"true"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"10s"`
}

// Option customizes Client.
type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// Client calls the recall service's /recall and /memory endpoints. A request
// with an empty query asks for recency order; a query triggers semantic
// ranking.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewClient(cfg Config, opts ...Option) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if baseURL == "" {
		return nil, errors.New("recall url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid recall url: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := &Client{
		baseURL: baseURL,
		token:   strings.TrimSpace(cfg.Token),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

func MustNew(cfg Config, opts ...Option) *Client {
	client, err := NewClient(cfg, opts...)
	if err != nil {
		panic(err)
	}
	return client
}

// SearchRequest scopes one retrieval. Tags narrow the search; ExcludeTags
// filter at the service, not client-side.
type SearchRequest struct {
	Query       string
	TopK        int
	Tags        []string
	ExcludeTags []string
}

// Item is one retrieved record.
type Item struct {
	ID       string         `json:"id"`
	Content  string         `json:"content"`
	Tags     []string       `json:"tags,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Score    float64        `json:"score,omitempty"`
}

type searchResponse struct {
	Results []wireItem `json:"results"`
	Error   string     `json:"error,omitempty"`
}

// wireItem tolerates both flat records and records nesting the payload under
// "memory".
type wireItem struct {
	ID       string         `json:"id"`
	Content  string         `json:"content"`
	Tags     []string       `json:"tags"`
	Metadata map[string]any `json:"metadata"`
	Score    float64        `json:"score"`
	Memory   *struct {
		Content  string         `json:"content"`
		Tags     []string       `json:"tags"`
		Metadata map[string]any `json:"metadata"`
	} `json:"memory"`
}

func (w wireItem) toItem() Item {
	item := Item{
		ID:       w.ID,
		Content:  w.Content,
		Tags:     w.Tags,
		Metadata: w.Metadata,
		Score:    w.Score,
	}
	if w.Memory != nil {
		if item.Content == "" {
			item.Content = w.Memory.Content
		}
		if len(item.Tags) == 0 {
			item.Tags = w.Memory.Tags
		}
		if len(item.Metadata) == 0 {
			item.Metadata = w.Memory.Metadata
		}
	}
	return item
}

func (c *Client) Search(ctx context.Context, req SearchRequest) ([]Item, error) {
	params := url.Values{}
	if q := strings.TrimSpace(req.Query); q != "" {
		params.Set("query", q)
	}
	if req.TopK > 0 {
		params.Set("limit", strconv.Itoa(req.TopK))
	}
	if len(req.Tags) > 0 {
		params.Set("tags", strings.Join(req.Tags, ","))
	}
	if len(req.ExcludeTags) > 0 {
		params.Set("exclude_tags", strings.Join(req.ExcludeTags, ","))
	}

	endpoint := c.baseURL + "/recall?" + params.Encode()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build recall request: %w", err)
	}
	c.setHeaders(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return nil, fmt.Errorf("read recall response: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("%w: status=%d body=%s", ErrUnavailable, resp.StatusCode, string(raw))
	}

	var parsed searchResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode recall response: %w", err)
	}
	if parsed.Error != "" {
		return nil, errors.New(parsed.Error)
	}

	items := make([]Item, 0, len(parsed.Results))
	for _, w := range parsed.Results {
		items = append(items, w.toItem())
	}
	return items, nil
}

// StoreRequest stores one record via POST /memory.
type StoreRequest struct {
	Content    string         `json:"content"`
	Type       string         `json:"type,omitempty"`
	Importance float64        `json:"importance,omitempty"`
	Tags       []string       `json:"tags,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

func (c *Client) Store(ctx context.Context, req StoreRequest) error {
	if strings.TrimSpace(req.Content) == "" {
		return errors.New("recall store: content is required")
	}

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal store request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/memory", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build store request: %w", err)
	}
	c.setHeaders(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return fmt.Errorf("read store response: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("%w: status=%d body=%s", ErrUnavailable, resp.StatusCode, string(raw))
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}
