package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// OpenAIName is the provider type and default registry name for OpenAI.
const OpenAIName = "openai"

// openAIConn is the SDK client plus the settings both OpenAI adapters share.
type openAIConn struct {
	apiKey     string
	rateLimit  float64
	maxRetries int
	client     openai.Client
}

func newOpenAIConn(apiKey, baseURL string, httpClient *http.Client, timeout time.Duration, maxRetries int, rateLimit float64) openAIConn {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(httpClient),
		// Guard owns retries.
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return openAIConn{
		apiKey:     apiKey,
		rateLimit:  rateLimit,
		maxRetries: maxRetries,
		client:     openai.NewClient(opts...),
	}
}

// RequestsPerSecond returns the configured rate limit.
func (c *openAIConn) RequestsPerSecond() float64 {
	return c.rateLimit
}

// MaxRetries returns the maximum retry attempts.
func (c *openAIConn) MaxRetries() int {
	return c.maxRetries
}

// HealthCheck verifies the OpenAI API is reachable and the API key is valid.
func (c *openAIConn) HealthCheck(ctx context.Context) error {
	page, err := c.client.Models.List(ctx)
	if err != nil {
		return fmt.Errorf("openai models list failed: %w", mapOpenAIError("OpenAI", err))
	}
	if page == nil {
		return fmt.Errorf("openai models list returned nil response")
	}
	return nil
}

func mapOpenAIError(label string, err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusTooManyRequests {
			retryAfter := time.Duration(0)
			if apiErr.Response != nil {
				retryAfter = parseRetryAfter(apiErr.Response.Header.Get("Retry-After"))
			}
			return &RateLimitError{
				Message:    fmt.Sprintf("%s rate limited: %s", label, apiErr.Message),
				RetryAfter: retryAfter,
				StatusCode: apiErr.StatusCode,
			}
		}
		return &StatusError{Provider: label, StatusCode: apiErr.StatusCode, Message: apiErr.Message}
	}
	return err
}
