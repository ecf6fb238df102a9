// Package safety checks links against the Google Safe Browsing v4 Lookup API.
package safety

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"mvdan.cc/xurls/v2"
)

// DefaultEndpoint is the threatMatches:find method of the Lookup API.
const DefaultEndpoint = "https://safebrowsing.googleapis.com/v4/threatMatches:find"

// ClientID identifies the bot to Safe Browsing.
const ClientID = "prometheus"

// Threat and platform types the bot asks about.
var (
	ThreatTypes = []string{
		"MALWARE",
		"SOCIAL_ENGINEERING",
		"UNWANTED_SOFTWARE",
		"POTENTIALLY_HARMFUL_APPLICATION",
	}
	PlatformTypes    = []string{"ANY_PLATFORM"}
	ThreatEntryTypes = []string{"URL"}
)

// ErrNoKey is returned by New when the API key is empty.
var ErrNoKey = errors.New("prometheus/safety: empty api key")

// Request is the threatMatches:find request body.
type Request struct {
	Client     ClientInfo `json:"client"`
	ThreatInfo ThreatInfo `json:"threatInfo"`
}

type ClientInfo struct {
	ClientID      string `json:"clientId"`
	ClientVersion string `json:"clientVersion"`
}

type ThreatInfo struct {
	ThreatTypes      []string      `json:"threatTypes"`
	PlatformTypes    []string      `json:"platformTypes"`
	ThreatEntryTypes []string      `json:"threatEntryTypes"`
	ThreatEntries    []ThreatEntry `json:"threatEntries"`
}

type ThreatEntry struct {
	URL string `json:"url"`
}

// Response lists matches. An empty object means no link matched.
type Response struct {
	Matches []Match `json:"matches,omitempty"`
}

// IsMalicious reports whether any link matched a threat list.
func (r *Response) IsMalicious() bool {
	return r != nil && len(r.Matches) > 0
}

type Match struct {
	ThreatType          string               `json:"threatType"`
	PlatformType        string               `json:"platformType"`
	ThreatEntryType     string               `json:"threatEntryType"`
	Threat              ThreatEntry          `json:"threat"`
	ThreatEntryMetadata *ThreatEntryMetadata `json:"threatEntryMetadata,omitempty"`
	CacheDuration       string               `json:"cacheDuration"`
}

type ThreatEntryMetadata struct {
	Entries []MetadataEntry `json:"entries"`
}

type MetadataEntry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// FindLinks returns every URL with a scheme found in text, in order.
func FindLinks(text string) []string {
	return xurls.Strict().FindAllString(text, -1)
}

// Client calls the Safe Browsing API.
type Client struct {
	key           string
	clientVersion string
	endpoint      string
	httpClient    *http.Client
	logger        *slog.Logger
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

// WithClientVersion sets the clientVersion reported to the API.
func WithClientVersion(v string) Option {
	return func(c *Client) { c.clientVersion = v }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New creates a client authenticated with an API key.
func New(key string, opts ...Option) (*Client, error) {
	if key == "" {
		return nil, ErrNoKey
	}
	c := &Client{
		key:           key,
		clientVersion: "dev",
		endpoint:      DefaultEndpoint,
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// NewRequest builds the request body for urls.
func (c *Client) NewRequest(urls []string) *Request {
	entries := make([]ThreatEntry, len(urls))
	for i, u := range urls {
		entries[i] = ThreatEntry{URL: u}
	}
	return &Request{
		Client: ClientInfo{ClientID: ClientID, ClientVersion: c.clientVersion},
		ThreatInfo: ThreatInfo{
			ThreatTypes:      ThreatTypes,
			PlatformTypes:    PlatformTypes,
			ThreatEntryTypes: ThreatEntryTypes,
			ThreatEntries:    entries,
		},
	}
}

// Check looks up urls. With no urls it returns an empty response without
// calling the API.
func (c *Client) Check(ctx context.Context, urls []string) (*Response, error) {
	if len(urls) == 0 {
		return &Response{}, nil
	}

	body, err := json.Marshal(c.NewRequest(urls))
	if err != nil {
		return nil, fmt.Errorf("prometheus/safety: encode request: %w", err)
	}

	target := c.endpoint + "?key=" + url.QueryEscape(c.key)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("prometheus/safety: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("prometheus/safety: request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("prometheus/safety: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("prometheus/safety: api returned %d: %s", resp.StatusCode, bytes.TrimSpace(raw))
	}

	var out Response
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("prometheus/safety: decode response: %w", err)
	}
	c.logger.Debug("safe browsing lookup", "links", len(urls), "matches", len(out.Matches))
	return &out, nil
}
