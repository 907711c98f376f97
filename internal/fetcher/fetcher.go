package fetcher

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/t77yq/bdmon/internal/model"
)

// DefaultTimeout bounds a single metrics GET
const DefaultTimeout = time.Second

// DefaultMaxBodySize bounds the response body read from one servlet
const DefaultMaxBodySize int64 = 64 << 20

// Request describes one metrics GET
type Request struct {
	Scheme   string
	Endpoint string
	Path     string
	Query    url.Values
	Timeout  time.Duration
}

// URL returns scheme://endpoint+path[?query]
func (r Request) URL() string {
	scheme := r.Scheme
	if scheme == "" {
		scheme = "http"
	}
	u := scheme + "://" + r.Endpoint + r.Path
	if len(r.Query) > 0 {
		u += "?" + r.Query.Encode()
	}
	return u
}

// Options configures a Client
type Options struct {
	Timeout   time.Duration
	TLSVerify bool
	// MaxBodySize defaults to DefaultMaxBodySize
	MaxBodySize int64
}

// Client fetches metric documents over HTTP. It never retries.
type Client struct {
	logger     *zap.Logger
	httpClient  *http.Client
	timeout     time.Duration
	maxBodySize int64
}

// NewClient creates a new metrics client
func NewClient(opts Options, logger *zap.Logger) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxBodySize <= 0 {
		opts.MaxBodySize = DefaultMaxBodySize
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: !opts.TLSVerify}

	return &Client{
		logger:     logger.Named("fetcher"),
		httpClient:  &http.Client{Transport: transport},
		timeout:     opts.Timeout,
		maxBodySize: opts.MaxBodySize,
	}
}

// FetchBeans GETs a JMX servlet and returns its "beans" documents
func (c *Client) FetchBeans(ctx context.Context, req Request) ([]model.Document, error) {
	body, err := c.get(ctx, req)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Beans []map[string]interface{} `json:"beans"`
	}
	if err := decode(body, &payload); err != nil {
		return nil, model.NewError(model.ErrProtocol, req.Endpoint, fmt.Errorf("failed to parse beans: %w", err))
	}

	docs := make([]model.Document, 0, len(payload.Beans))
	for _, bean := range payload.Beans {
		docs = append(docs, model.NewDocument(bean))
	}
	return docs, nil
}

// FetchJSON GETs a REST resource and decodes it into out.
// Numbers are decoded as json.Number when out holds interface{} values.
func (c *Client) FetchJSON(ctx context.Context, req Request, out interface{}) error {
	body, err := c.get(ctx, req)
	if err != nil {
		return err
	}
	if err := decode(body, out); err != nil {
		return model.NewError(model.ErrProtocol, req.Endpoint, fmt.Errorf("failed to parse response: %w", err))
	}
	return nil
}

func (c *Client) get(ctx context.Context, req Request) ([]byte, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = c.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	target := req.URL()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, model.NewError(model.ErrConnection, req.Endpoint, fmt.Errorf("failed to create request: %w", err))
	}
	httpReq.Header.Set("Accept", "application/json")

	c.logger.Debug("Fetching metrics", zap.String("url", target))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, model.NewError(model.ErrConnection, req.Endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &model.HarvestError{
			Kind:       model.ErrProtocol,
			Endpoint:   req.Endpoint,
			StatusCode: resp.StatusCode,
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodySize+1))
	if err != nil {
		return nil, model.NewError(model.ErrConnection, req.Endpoint, fmt.Errorf("failed to read response: %w", err))
	}
	if int64(len(body)) > c.maxBodySize {
		return nil, model.NewError(model.ErrProtocol, req.Endpoint,
			fmt.Errorf("response body exceeds %d bytes", c.maxBodySize))
	}
	return body, nil
}

func decode(body []byte, out interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(sanitize(body)))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return err
	}
	if dec.More() {
		return fmt.Errorf("unexpected data after JSON value")
	}
	return nil
}
