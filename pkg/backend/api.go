package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"resty.dev/v3"

	"github.com/harnesskit/harnesskit/pkg/logging"
)

// Transient status codes worth retrying. Anything else is either a client
// error or a genuine server answer and must surface to the test.
var transientStatus = map[int]bool{
	429: true,
	500: true,
	502: true,
	503: true,
	504: true,
}

// Methods that are safe to replay against a flaky server.
var retryableMethod = map[string]bool{
	"GET":     true,
	"HEAD":    true,
	"PUT":     true,
	"DELETE":  true,
	"OPTIONS": true,
}

// APISession is an HTTP client session with a bounded retry policy.
type APISession struct {
	client    *resty.Client
	baseURL   string
	createdAt time.Time
	log       *logging.Logger
}

func (f *Factory) createAPI(params Params) (Session, error) {
	baseURL := params.BaseURL
	if baseURL == "" {
		baseURL = f.cfg.GetString("api_base_url", "")
	}

	retries := f.cfg.GetInt("api_retries", 3)

	client := resty.New().
		SetTimeout(f.cfg.GetDuration("api_timeout", 30*time.Second)).
		SetRetryCount(retries).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(8 * time.Second).
		AddRetryConditions(retryTransient).
		SetHeader("Accept", "application/json")

	if baseURL != "" {
		client.SetBaseURL(baseURL)
	}
	for k, v := range params.Headers {
		client.SetHeader(k, v)
	}

	f.log.Infof("api session created (base_url=%s retries=%d)", baseURL, retries)

	return &APISession{
		client:    client,
		baseURL:   baseURL,
		createdAt: time.Now(),
		log:       f.log,
	}, nil
}

// retryTransient replays idempotent-ish requests that hit a transient
// server-side status. Transport errors are left to resty's default handling.
func retryTransient(res *resty.Response, err error) bool {
	if err != nil || res == nil || res.Request == nil {
		return false
	}
	if !retryableMethod[strings.ToUpper(res.Request.Method)] {
		return false
	}
	return transientStatus[res.StatusCode()]
}

// Kind reports KindAPI.
func (s *APISession) Kind() Kind { return KindAPI }

// BaseURL returns the session's base URL, if any.
func (s *APISession) BaseURL() string { return s.baseURL }

// CreatedAt returns the session creation time.
func (s *APISession) CreatedAt() time.Time { return s.createdAt }

// Client exposes the underlying resty client for requests this wrapper does
// not cover.
func (s *APISession) Client() *resty.Client { return s.client }

// Get sends a GET request to path (resolved against the base URL).
func (s *APISession) Get(ctx context.Context, path string) (*resty.Response, error) {
	return s.do(ctx, "GET", path, nil)
}

// Post sends a POST request with a JSON body.
func (s *APISession) Post(ctx context.Context, path string, body interface{}) (*resty.Response, error) {
	return s.do(ctx, "POST", path, body)
}

// Put sends a PUT request with a JSON body.
func (s *APISession) Put(ctx context.Context, path string, body interface{}) (*resty.Response, error) {
	return s.do(ctx, "PUT", path, body)
}

// Delete sends a DELETE request to path.
func (s *APISession) Delete(ctx context.Context, path string) (*resty.Response, error) {
	return s.do(ctx, "DELETE", path, nil)
}

func (s *APISession) do(ctx context.Context, method, path string, body interface{}) (*resty.Response, error) {
	req := s.client.R().SetContext(ctx)
	if body != nil {
		req.SetHeader("Content-Type", "application/json")
		req.SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		s.log.Errorf("%s %s failed: %v", method, path, err)
		return nil, err
	}
	s.log.Infof("%s %s - status %d", method, path, resp.StatusCode())
	return resp, nil
}

// DecodeJSON unmarshals the response body into out.
func DecodeJSON(resp *resty.Response, out interface{}) error {
	if err := json.Unmarshal(resp.Bytes(), out); err != nil {
		return fmt.Errorf("failed to decode JSON response: %w", err)
	}
	return nil
}

// ExpectStatus fails when the response status differs from want, including a
// body prefix in the error to keep test failures diagnosable.
func ExpectStatus(resp *resty.Response, want int) error {
	if resp.StatusCode() == want {
		return nil
	}
	body := resp.String()
	if len(body) > 500 {
		body = body[:500]
	}
	return fmt.Errorf("expected status %d, got %d: %s", want, resp.StatusCode(), body)
}

// JSONValue walks a dotted path through decoded JSON, returning def when any
// segment is missing or a non-object value is hit mid-path.
func JSONValue(data map[string]interface{}, path string, def interface{}) interface{} {
	var current interface{} = data
	for _, segment := range strings.Split(path, ".") {
		m, ok := current.(map[string]interface{})
		if !ok {
			return def
		}
		current, ok = m[segment]
		if !ok {
			return def
		}
	}
	return current
}

// Close releases the session's transport resources.
func (s *APISession) Close() error {
	return s.client.Close()
}
