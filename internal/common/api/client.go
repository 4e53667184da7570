// internal/common/api/client.go
package api

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/cds-snc/notification-admin-sub002/internal/common/database"
	apperrors "github.com/cds-snc/notification-admin-sub002/internal/common/errors"
	commonhttp "github.com/cds-snc/notification-admin-sub002/internal/common/http"
	"github.com/cds-snc/notification-admin-sub002/internal/common/logger"
	"github.com/cds-snc/notification-admin-sub002/internal/common/metrics"
	"github.com/cds-snc/notification-admin-sub002/internal/common/validation"

	"github.com/golang-jwt/jwt/v5"
)

const serviceName = "notification-api"

// Client talks to the backend notification API. Service and template
// metadata is read through the redis cache; everything else goes straight to
// the backend.
type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	http         *commonhttp.Client
	cache        *database.RedisClient
	cacheTTL     time.Duration
	logger       logger.Logger
	now          func() time.Time
}

type Options struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	CacheTTL     time.Duration
}

// NewClient builds a backend client. cache may be nil.
func NewClient(opts Options, httpClient *commonhttp.Client, cache *database.RedisClient, log logger.Logger) *Client {
	return &Client{
		baseURL:      strings.TrimRight(opts.BaseURL, "/"),
		clientID:     opts.ClientID,
		clientSecret: opts.ClientSecret,
		http:         httpClient,
		cache:        cache,
		cacheTTL:     opts.CacheTTL,
		logger:       log.WithFields(map[string]interface{}{"component": "api-client"}),
		now:          time.Now,
	}
}

// token signs a short-lived HS256 bearer token the backend checks against
// the admin client secret.
func (c *Client) token() (string, error) {
	claims := jwt.MapClaims{
		"iss": c.clientID,
		"iat": c.now().Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(c.clientSecret))
}

// dataEnvelope is the {"data": ...} wrapper most backend replies use.
type dataEnvelope struct {
	Data json.RawMessage `json:"data"`
}

type errorBody struct {
	Result  string          `json:"result"`
	Message json.RawMessage `json:"message"`
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body interface{}) ([]byte, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	tok, err := c.token()
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, apperrors.NewUpstreamTimeoutError(serviceName, err)
		}
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		if isTimeout(err) {
			return nil, apperrors.NewUpstreamTimeoutError(serviceName, err)
		}
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := errorMessage(raw)
		c.logger.Warn("Backend returned error", map[string]interface{}{
			"method":  method,
			"path":    path,
			"status":  resp.StatusCode,
			"message": msg,
		})
		return nil, apperrors.NewUpstreamBackendError(resp.StatusCode, msg)
	}
	return raw, nil
}

// errorMessage flattens the backend's message, which is either a string or
// a map of field to list of strings.
func errorMessage(raw []byte) string {
	var body errorBody
	if err := json.Unmarshal(raw, &body); err != nil || len(body.Message) == 0 {
		return strings.TrimSpace(string(raw))
	}
	var s string
	if err := json.Unmarshal(body.Message, &s); err == nil {
		return s
	}
	var fields map[string][]string
	if err := json.Unmarshal(body.Message, &fields); err == nil {
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var parts []string
		for _, k := range keys {
			parts = append(parts, strings.Join(fields[k], ", "))
		}
		return strings.Join(parts, "; ")
	}
	return string(body.Message)
}

func isTimeout(err error) bool {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return stderrors.As(err, &netErr) && netErr.Timeout()
}

// getData fetches path and decodes the "data" member into dest.
func (c *Client) getData(ctx context.Context, path string, query url.Values, dest interface{}) ([]byte, error) {
	raw, err := c.do(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return nil, err
	}
	var env dataEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if err := json.Unmarshal(env.Data, dest); err != nil {
		return nil, fmt.Errorf("decode %s data: %w", path, err)
	}
	return env.Data, nil
}

func decode(raw []byte, dest interface{}) error {
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, dest interface{}) error {
	raw, err := c.do(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// checkSchema rejects payloads that do not carry the fields the pipeline
// depends on.
func checkSchema(resource string, raw []byte) error {
	result, err := validation.ValidateDocument(resource, raw)
	if err != nil {
		return err
	}
	if !result.Valid {
		return apperrors.NewResponseValidationFailedError(resource, strings.Join(result.GetErrorMessages(), "; "))
	}
	return nil
}

// cached reads key from the cache into dest, falling back to fetch and
// populating the cache. Cache errors are logged and otherwise ignored.
func (c *Client) cached(ctx context.Context, resource, key string, dest interface{}, fetch func() error) error {
	if c.cache != nil {
		err := c.cache.GetJSON(ctx, key, dest)
		switch {
		case err == nil:
			metrics.BackendCacheLookups.WithLabelValues(resource, "hit").Inc()
			return nil
		case stderrors.Is(err, database.ErrCacheMiss):
			metrics.BackendCacheLookups.WithLabelValues(resource, "miss").Inc()
		default:
			metrics.BackendCacheLookups.WithLabelValues(resource, "error").Inc()
			c.logger.Warn("Cache read failed", map[string]interface{}{"key": key, "error": err.Error()})
		}
	}

	if err := fetch(); err != nil {
		return err
	}

	if c.cache != nil {
		if err := c.cache.SetJSON(ctx, key, dest, c.cacheTTL); err != nil {
			c.logger.Warn("Cache write failed", map[string]interface{}{"key": key, "error": err.Error()})
		}
	}
	return nil
}
