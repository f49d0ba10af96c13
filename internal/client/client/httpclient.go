package client

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
	"sync"
	"time"

	"github.com/dmitrijs2005/gatherer/internal/client/models"
	"github.com/dmitrijs2005/gatherer/internal/common"
	"golang.org/x/sync/singleflight"
)

const apiPrefix = "/api/v1"

// refreshTimeout bounds a shared token refresh.
const refreshTimeout = 30 * time.Second

// HTTPClient is the REST implementation of Client. It injects the bearer
// access token, refreshes it once when the server reports it expired, and
// retries the original request.
type HTTPClient struct {
	baseURL *url.URL
	hc      *http.Client

	mu        sync.RWMutex
	tokens    Tokens
	onRefresh func(Tokens)

	refreshing singleflight.Group
}

var _ Client = (*HTTPClient)(nil)

type Option func(*HTTPClient)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) { c.hc = hc }
}

// WithTokenListener registers fn to be called whenever tokens are renewed,
// so callers can persist them.
func WithTokenListener(fn func(Tokens)) Option {
	return func(c *HTTPClient) { c.onRefresh = fn }
}

func NewHTTPClient(baseURL string, timeout time.Duration, opts ...Option) (*HTTPClient, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url %q must be http or https", baseURL)
	}

	c := &HTTPClient{baseURL: u, hc: &http.Client{Timeout: timeout}}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

func (c *HTTPClient) Close() error {
	c.hc.CloseIdleConnections()
	return nil
}

func (c *HTTPClient) Tokens() Tokens {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tokens
}

func (c *HTTPClient) SetTokens(t Tokens) {
	c.mu.Lock()
	c.tokens = t
	c.mu.Unlock()
}

func (c *HTTPClient) endpoint(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = c.baseURL.Path + apiPrefix + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

type call struct {
	method string
	path   string
	query  url.Values
	body   any
	auth   bool
}

// send performs one attempt and returns the response body of a 2xx reply.
func (c *HTTPClient) send(ctx context.Context, cl call, payload []byte, accessToken string) ([]byte, error) {
	var rdr io.Reader
	if payload != nil {
		rdr = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, c.endpoint(cl.path, cl.query), rdr)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cl.auth && accessToken != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+accessToken)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{StatusCode: resp.StatusCode, Payload: DecodeErrorPayload(body)}
	}
	return body, nil
}

// do runs cl, refreshing tokens and retrying once on an expired access
// token, then decodes the JSON reply into out (if non-nil).
func (c *HTTPClient) do(ctx context.Context, cl call, out any) error {
	var payload []byte
	if cl.body != nil {
		b, err := json.Marshal(cl.body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		payload = b
	}

	access := c.Tokens().AccessToken
	body, err := c.send(ctx, cl, payload, access)

	var apiErr *APIError
	if cl.auth && errors.As(err, &apiErr) && apiErr.tokenExpired() {
		if rerr := c.refresh(ctx, access); rerr != nil {
			return rerr
		}
		body, err = c.send(ctx, cl, payload, c.Tokens().AccessToken)
	}
	if err != nil {
		return err
	}

	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// refresh renews the tokens unless another request already did so after
// staleAccess was sent. Concurrent callers share one refresh request, which
// keeps running when the caller that started it gives up.
func (c *HTTPClient) refresh(ctx context.Context, staleAccess string) error {
	ch := c.refreshing.DoChan("refresh", func() (any, error) {
		current := c.Tokens()
		if current.AccessToken != staleAccess {
			return nil, nil
		}
		if current.RefreshToken == "" {
			return nil, ErrUnauthorized
		}

		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()

		var renewed Tokens
		err := c.do(rctx, call{
			method: http.MethodPost,
			path:   "/auth/refresh",
			body:   map[string]string{"refresh_token": current.RefreshToken},
		}, &renewed)
		if err != nil {
			return nil, fmt.Errorf("refresh token: %w", err)
		}

		c.SetTokens(renewed)
		if c.onRefresh != nil {
			c.onRefresh(renewed)
		}
		return nil, nil
	})

	select {
	case <-ctx.Done():
		return ctx.Err()
	case r := <-ch:
		return r.Err
	}
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.do(ctx, call{method: http.MethodGet, path: "/ping"}, &resp); err != nil {
		return err
	}
	if resp.Status != "OK" {
		return ErrUnavailable
	}
	return nil
}

func (c *HTTPClient) Login(ctx context.Context, username string, password []byte) (Tokens, error) {
	var t Tokens
	err := c.do(ctx, call{
		method: http.MethodPost,
		path:   "/auth/login",
		body:   map[string]string{"username": username, "password": string(password)},
	}, &t)
	if err != nil {
		return Tokens{}, err
	}
	c.SetTokens(t)
	return t, nil
}

// Logout revokes the refresh token server-side and forgets both tokens.
func (c *HTTPClient) Logout(ctx context.Context) error {
	t := c.Tokens()
	c.SetTokens(Tokens{})
	if t.RefreshToken == "" {
		return nil
	}
	return c.do(ctx, call{
		method: http.MethodPost,
		path:   "/auth/logout",
		body:   map[string]string{"refresh_token": t.RefreshToken},
	}, nil)
}

func (c *HTTPClient) SignUpload(ctx context.Context, req UploadRequest) (*SignedUpload, error) {
	var su SignedUpload
	err := c.do(ctx, call{method: http.MethodPost, path: "/storage/upload-url", body: req, auth: true}, &su)
	if err != nil {
		return nil, err
	}
	if su.URL == "" {
		return nil, fmt.Errorf("%w: empty upload url", common.ErrorInternal)
	}
	return &su, nil
}

func (c *HTTPClient) SignDownload(ctx context.Context, locator string) (string, error) {
	var resp struct {
		URL string `json:"url"`
	}
	err := c.do(ctx, call{
		method: http.MethodPost,
		path:   "/storage/download-url",
		body:   map[string]string{"url": locator},
		auth:   true,
	}, &resp)
	if err != nil {
		return "", err
	}
	if resp.URL == "" {
		return "", fmt.Errorf("%w: empty download url", common.ErrorInternal)
	}
	return resp.URL, nil
}

func (c *HTTPClient) locations(ctx context.Context, path, param string, parent int64) ([]models.LocationCode, error) {
	var q url.Values
	if param != "" {
		q = url.Values{param: []string{strconv.FormatInt(parent, 10)}}
	}

	var out []models.LocationCode
	if err := c.do(ctx, call{method: http.MethodGet, path: path, query: q, auth: true}, &out); err != nil {
		return nil, err
	}
	for i := range out {
		if out[i].Parent == 0 {
			out[i].Parent = parent
		}
	}
	return out, nil
}

func (c *HTTPClient) States(ctx context.Context) ([]models.LocationCode, error) {
	return c.locations(ctx, "/locations/states", "", 0)
}

func (c *HTTPClient) Districts(ctx context.Context, stateCode int64) ([]models.LocationCode, error) {
	return c.locations(ctx, "/locations/districts", "state", stateCode)
}

func (c *HTTPClient) Blocks(ctx context.Context, districtCode int64) ([]models.LocationCode, error) {
	return c.locations(ctx, "/locations/blocks", "district", districtCode)
}

func (c *HTTPClient) Villages(ctx context.Context, blockCode int64) ([]models.LocationCode, error) {
	return c.locations(ctx, "/locations/villages", "block", blockCode)
}
