// Package nlu is a client for the wit.ai message endpoint, which classifies
// free text into intents and entities.
package nlu

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// DefaultEndpoint is the wit.ai message API.
const DefaultEndpoint = "https://api.wit.ai/message"

// ErrNoToken is returned by New when the access token is empty.
var ErrNoToken = errors.New("prometheus/nlu: empty access token")

// Message is a classification result.
type Message struct {
	Text     string              `json:"text"`
	Intents  []Intent            `json:"intents"`
	Entities map[string][]Entity `json:"entities"`
}

// Intent is one candidate intent, ordered by descending confidence.
type Intent struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// Entity is an extracted span of the input.
type Entity struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Role       string     `json:"role"`
	Start      int        `json:"start"`
	End        int        `json:"end"`
	Body       string     `json:"body"`
	Confidence float64    `json:"confidence"`
	Type       string     `json:"type"`
	Value      any        `json:"value,omitempty"`
	Values     []Interval `json:"values,omitempty"`
}

// Interval is a resolved time range.
type Interval struct {
	Type string        `json:"type"`
	From *GrainedValue `json:"from,omitempty"`
	To   *GrainedValue `json:"to,omitempty"`
}

// GrainedValue is a time value with its precision.
type GrainedValue struct {
	Grain string `json:"grain"`
	Value string `json:"value"`
}

// DynamicEntities extends the app's keyword entities for a single request.
type DynamicEntities struct {
	Entities map[string][]DynamicEntity `json:"entities"`
}

// DynamicEntity is a keyword and its synonyms.
type DynamicEntity struct {
	Keyword  string   `json:"keyword"`
	Synonyms []string `json:"synonyms"`
}

// APIError is the error body wit.ai returns with non-2xx responses.
type APIError struct {
	Status  int    `json:"-"`
	Message string `json:"error"`
	Code    string `json:"code"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("prometheus/nlu: wit.ai returned %d (%s): %s", e.Status, e.Code, e.Message)
}

// Client calls the wit.ai API.
type Client struct {
	token      string
	endpoint   string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithEndpoint overrides DefaultEndpoint.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) { c.endpoint = endpoint }
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New creates a client authenticated with token.
func New(token string, opts ...Option) (*Client, error) {
	if token == "" {
		return nil, ErrNoToken
	}
	c := &Client{
		token:      token,
		endpoint:   DefaultEndpoint,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Classify sends text to wit.ai without dynamic entities.
func (c *Client) Classify(ctx context.Context, text string) (*Message, error) {
	return c.Message(ctx, text, nil)
}

// Message sends text to wit.ai, optionally with dynamic entities.
func (c *Client) Message(ctx context.Context, text string, dynamic *DynamicEntities) (*Message, error) {
	q := url.Values{}
	q.Set("q", text)
	if dynamic != nil {
		raw, err := json.Marshal(dynamic)
		if err != nil {
			return nil, fmt.Errorf("prometheus/nlu: encode dynamic entities: %w", err)
		}
		q.Set("entities", string(raw))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("prometheus/nlu: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("prometheus/nlu: request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("prometheus/nlu: read response: %w", err)
	}
	c.logger.Debug("wit.ai message", "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		if json.Unmarshal(body, apiErr) != nil || apiErr.Message == "" {
			apiErr.Message = string(body)
		}
		return nil, apiErr
	}

	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, fmt.Errorf("prometheus/nlu: decode response: %w", err)
	}
	return &msg, nil
}

// TopIntent returns the first intent, which wit.ai ranks highest.
func (m *Message) TopIntent() (Intent, bool) {
	if m == nil || len(m.Intents) == 0 {
		return Intent{}, false
	}
	return m.Intents[0], true
}
