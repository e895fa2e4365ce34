package museumrag

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

const defaultTimeout = 75 * time.Second

// Client talks to a museumrag server over HTTP.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	apiKey  string
	obs     *observer
}

// New creates a Client for the server at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	cfg := &clientConfig{timeout: defaultTimeout}
	for _, o := range opts {
		o.apply(cfg)
	}

	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("museumrag: server address required")
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("museumrag: parse server address: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("museumrag: unsupported scheme %q", u.Scheme)
	}

	hc := cfg.httpClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.timeout}
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	return &Client{baseURL: u, http: hc, apiKey: cfg.apiKey, obs: obs}, nil
}

// Ask runs one question/answer cycle on the server. k = 0 uses the server default.
func (c *Client) Ask(ctx context.Context, question string, k int) (ans Answer, err error) {
	start := time.Now()
	defer func() { c.obs.request(routeAsk, start, err) }()

	body, err := json.Marshal(askRequest{Question: question, K: k})
	if err != nil {
		return Answer{}, fmt.Errorf("museumrag: encode request: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, "/api/v1/ask", body)
	if err != nil {
		return Answer{}, err
	}
	defer resp.Body.Close()

	if err = json.NewDecoder(resp.Body).Decode(&ans); err != nil {
		return Answer{}, fmt.Errorf("museumrag: decode answer: %w", err)
	}
	ans.EmbeddingTokens = headerInt(resp.Header, "X-Embedding-Tokens")
	ans.GenerationTokens = headerInt(resp.Header, "X-Generation-Tokens")
	c.obs.answered(ans)
	return ans, nil
}

// Documents lists the corpus loaded by the server.
func (c *Client) Documents(ctx context.Context) (docs []Document, err error) {
	start := time.Now()
	defer func() { c.obs.request(routeDocuments, start, err) }()

	resp, err := c.do(ctx, http.MethodGet, "/api/v1/documents", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var list documentList
	if err = json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("museumrag: decode documents: %w", err)
	}
	return list.Items, nil
}

// do sends the request and turns non-2xx responses into *APIError.
func (c *Client) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, rd)
	if err != nil {
		return nil, fmt.Errorf("museumrag: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("museumrag: %s %s: %w", method, path, err)
	}
	if resp.StatusCode/100 == 2 {
		return resp, nil
	}
	defer resp.Body.Close()
	return nil, decodeAPIError(resp)
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var eb errorBody
	if json.Unmarshal(raw, &eb) == nil && eb.Code != "" {
		apiErr.Code = eb.Code
		apiErr.Message = eb.Message
	} else {
		apiErr.Message = strings.TrimSpace(string(raw))
	}
	return apiErr
}

func headerInt(h http.Header, key string) int {
	n, _ := strconv.Atoi(h.Get(key))
	return n
}
