package requester

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/brizzai/agency-chat/internal/config"
	"github.com/brizzai/agency-chat/internal/logger"
	"go.uber.org/zap"
)

// maxResponseBody caps how much of a reply is read into memory.
const maxResponseBody = 4 << 20

// HTTPRequester handles both request building and execution
type HTTPRequester struct {
	client  *http.Client
	builder *HTTPRequestBuilder
	apiKey  HeaderAuth
}

// NewHTTPRequester creates a new HTTPRequester using the API timeout
func NewHTTPRequester(cfg *config.APIConfig) *HTTPRequester {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPRequester{
		client: &http.Client{
			Timeout: timeout,
		},
		builder: NewHTTPRequestBuilder(cfg),
		apiKey:  HeaderAuth{Header: cfg.APIKeyHeader, Value: cfg.APIKey},
	}
}

// Auth returns the credentials for one call: the configured API key, then
// the session token when there is one. It returns nil for an anonymous call.
func (r *HTTPRequester) Auth(token string) AuthManager {
	var chain ChainAuth
	if r.apiKey.Value != "" {
		chain = append(chain, r.apiKey)
	}
	if token != "" {
		chain = append(chain, BearerAuth(token))
	}
	switch len(chain) {
	case 0:
		return nil
	case 1:
		return chain[0]
	default:
		return chain
	}
}

// Do builds and executes req. Any HTTP status is returned as a Response;
// the error is reserved for build and transport failures.
func (r *HTTPRequester) Do(ctx context.Context, req *Request) (*Response, error) {
	httpReq, err := r.builder.BuildRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	logger.Debug("request route", zap.String("method", httpReq.Method), zap.String("url", httpReq.URL.Redacted()))

	start := time.Now()
	resp, err := r.execute(httpReq)
	if err != nil {
		logger.Error("failed to execute request",
			zap.String("method", httpReq.Method),
			zap.String("path", req.Path),
			zap.Error(err),
		)
		return nil, err
	}
	logger.Debug("request done",
		zap.String("path", req.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)
	return resp, nil
}

// execute performs the actual HTTP request execution
func (r *HTTPRequester) execute(httpReq *http.Request) (*Response, error) {
	resp, err := r.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		// drain so the connection can be reused
		_, _ = io.Copy(io.Discard, resp.Body)
		if closeErr := resp.Body.Close(); closeErr != nil {
			logger.Warn("failed to close response body", zap.Error(closeErr))
		}
	}()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       bodyBytes,
		Headers:    resp.Header,
	}, nil
}
