// Package api is the HTTP client for the quiz generation backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"quizgen-client/internal/logging"
)

const (
	DefaultBaseURL    = "http://localhost:8080/api"
	RequestIDHeader   = "X-Request-ID"
	defaultCookieName = "session"
)

var (
	ErrServiceUnavailable = errors.New("quiz service unavailable")
	ErrUnauthorized       = errors.New("not signed in")
)

type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if strings.TrimSpace(e.Message) == "" {
		return fmt.Sprintf("request failed with status %d", e.StatusCode)
	}
	return e.Message
}

// Is lets callers match a 401 with errors.Is(err, ErrUnauthorized).
func (e *APIError) Is(target error) bool {
	return target == ErrUnauthorized && e.StatusCode == http.StatusUnauthorized
}

func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	log        logrus.FieldLogger
	requestID  func() string
}

type Option func(*HTTPClient)

func WithLogger(log logrus.FieldLogger) Option {
	return func(c *HTTPClient) {
		if log != nil {
			c.log = log
		}
	}
}

// WithRequestID replaces the uuid generator used for the X-Request-ID header.
func WithRequestID(fn func() string) Option {
	return func(c *HTTPClient) {
		if fn != nil {
			c.requestID = fn
		}
	}
}

// WithSession seeds the cookie jar with an existing session cookie.
func WithSession(cookieName, value string) Option {
	return func(c *HTTPClient) {
		c.SetSession(cookieName, value)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewHTTPClient copies httpClient and gives the copy a cookie jar when it has
// none, so the caller's client is never mutated.
func NewHTTPClient(baseURL string, httpClient *http.Client, opts ...Option) *HTTPClient {
	baseURL = strings.TrimSpace(baseURL)
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	var client http.Client
	if httpClient != nil {
		client = *httpClient
	}
	if client.Jar == nil {
		jar, _ := cookiejar.New(nil)
		client.Jar = jar
	}

	c := &HTTPClient{
		baseURL:    baseURL,
		httpClient: &client,
		log:        logging.Discard(),
		requestID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *HTTPClient) BaseURL() string {
	return c.baseURL
}

// SetSession stores the session cookie for the backend host. An empty value
// expires it.
func (c *HTTPClient) SetSession(cookieName, value string) {
	if strings.TrimSpace(cookieName) == "" {
		cookieName = defaultCookieName
	}
	target, err := url.Parse(c.baseURL)
	if err != nil || c.httpClient.Jar == nil {
		return
	}
	cookie := &http.Cookie{Name: cookieName, Value: value, Path: "/"}
	if value == "" {
		cookie.MaxAge = -1
	}
	c.httpClient.Jar.SetCookies(&url.URL{Scheme: target.Scheme, Host: target.Host, Path: "/"}, []*http.Cookie{cookie})
}

func (c *HTTPClient) doJSON(ctx context.Context, method, path string, requestBody any, responseBody any) error {
	var body io.Reader
	contentType := ""
	if requestBody != nil {
		encoded, err := json.Marshal(requestBody)
		if err != nil {
			return err
		}
		body = bytes.NewReader(encoded)
		contentType = "application/json"
	}
	return c.do(ctx, method, path, body, contentType, responseBody)
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body io.Reader, contentType string, responseBody any) error {
	fullURL := c.baseURL + path

	request, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		request.Header.Set("Content-Type", contentType)
	}
	request.Header.Set("Accept", "application/json")
	requestID := c.requestID()
	request.Header.Set(RequestIDHeader, requestID)

	entry := c.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"method":     method,
		"path":       path,
	})
	started := time.Now()

	response, err := c.httpClient.Do(request)
	if err != nil {
		entry.WithError(err).Debug("request failed")
		return fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	defer response.Body.Close()

	entry.WithFields(logrus.Fields{
		"status":   response.StatusCode,
		"duration": time.Since(started).String(),
	}).Debug("request completed")

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		apiErr := APIError{StatusCode: response.StatusCode}
		var payload errorResponse
		if err := json.NewDecoder(response.Body).Decode(&payload); err == nil && strings.TrimSpace(payload.Error) != "" {
			apiErr.Message = payload.Error
		}
		if apiErr.Message == "" {
			apiErr.Message = response.Status
		}
		return &apiErr
	}

	if responseBody == nil {
		return nil
	}
	if err := json.NewDecoder(response.Body).Decode(responseBody); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

// UserMessage turns any client error into a line fit for the terminal.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var apiErr *APIError
	switch {
	case IsUnauthorized(err):
		return "you are not signed in"
	case errors.Is(err, context.DeadlineExceeded):
		return "the request timed out, please try again"
	case errors.Is(err, ErrServiceUnavailable):
		return "quiz service unavailable, please try again"
	case errors.As(err, &apiErr):
		return apiErr.Error()
	default:
		return err.Error()
	}
}
