package proxmox

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/proxmox-nli/internal/config"
	"github.com/proxmox-nli/internal/domain"
	"github.com/proxmox-nli/internal/logging"
)

const apiBasePath = "/api2/json"

// Client talks to the Proxmox VE REST API using an API token.
// It implements domain.Client and is safe for concurrent use.
type Client struct {
	baseURL     string
	tokenID     string
	tokenSecret string
	defaultNode string
	httpClient  *http.Client
	cache       *CacheManager
	cacheTTL    time.Duration
	useCache    bool
}

func init() {
	Register("api", func() (domain.Client, error) {
		return NewClient(config.Get()), nil
	})
}

// NewClient creates an API client from configuration. Proxmox installs
// ship with a self-signed certificate, so TLS verification is opt-in.
func NewClient(cfg *config.Config) *Client {
	timeout := cfg.Proxmox.HTTPTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	transport := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: !cfg.Proxmox.VerifyTLS},
	}

	c := &Client{
		baseURL:     strings.TrimRight(cfg.Proxmox.APIURL, "/"),
		tokenID:     cfg.Proxmox.TokenID,
		tokenSecret: cfg.Proxmox.TokenSecret,
		defaultNode: cfg.Proxmox.DefaultNode,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		cacheTTL: cfg.Cache.TTL,
		useCache: cfg.Cache.Enabled,
	}

	if c.useCache {
		c.cache = GetCacheManager()
	}

	return c
}

// authHeader builds the PVEAPIToken authorization value
func (c *Client) authHeader() string {
	return fmt.Sprintf("PVEAPIToken=%s=%s", c.tokenID, c.tokenSecret)
}

// envelope is the {"data": ...} wrapper Proxmox puts around every response
type envelope struct {
	Data json.RawMessage `json:"data"`
}

// get performs a GET request and decodes the data envelope into out
func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	body, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(body, out)
}

// postForm performs a form-encoded POST and returns the task UPID, if any
func (c *Client) postForm(ctx context.Context, path string, form url.Values) (string, error) {
	body, err := c.do(ctx, http.MethodPost, path, form)
	if err != nil {
		return "", err
	}
	return decodeTask(body), nil
}

// del performs a DELETE request and returns the task UPID, if any
func (c *Client) del(ctx context.Context, path string) (string, error) {
	body, err := c.do(ctx, http.MethodDelete, path, nil)
	if err != nil {
		return "", err
	}
	return decodeTask(body), nil
}

// do runs one API request and returns the raw data payload
func (c *Client) do(ctx context.Context, method, path string, form url.Values) ([]byte, error) {
	var reqBody io.Reader
	if form != nil {
		reqBody = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+apiBasePath+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", c.authHeader())
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	logging.Debug("Proxmox API %s %s", method, path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrNetworkError, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logging.Error("Proxmox API %s %s returned %d", method, path, resp.StatusCode)
		return nil, domain.NewAPIError(method, path, resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return env.Data, nil
}

// decodeTask extracts a UPID string from a task response payload
func decodeTask(data []byte) string {
	var task string
	if err := json.Unmarshal(data, &task); err == nil {
		return task
	}
	return ""
}

// cacheGet looks up a typed value in the shared cache
func (c *Client) cacheGet(key string) (interface{}, bool) {
	if !c.useCache || c.cache == nil {
		return nil, false
	}
	return c.cache.Get(key)
}

// cacheSet stores a value under the client's TTL
func (c *Client) cacheSet(key string, value interface{}) {
	if !c.useCache || c.cache == nil {
		return
	}
	c.cache.Set(key, value, c.cacheTTL)
}

// invalidate drops every cached response after a mutation
func (c *Client) invalidate() {
	if !c.useCache || c.cache == nil {
		return
	}
	c.cache.Invalidate()
}
