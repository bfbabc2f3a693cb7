package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/flowforge/engine/internal/telemetry"
)

// HTTPAdapter is the generic outbound HTTP client the search/pubmed
// built-ins call through. It speaks typed requests, not the completion
// contract — LLM backends implement Adapter, this doesn't.
type HTTPAdapter struct {
	httpClient *http.Client
}

// HTTPRequest is one outbound call.
type HTTPRequest struct {
	URL     string
	Method  string // defaults to GET
	Headers map[string]string
	Query   map[string]string
	Body    []byte // sent as-is; Content-Type defaults to application/json when set
	Timeout time.Duration
}

// HTTPResponse carries the raw and, when the payload parses, decoded
// JSON body.
type HTTPResponse struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
	JSON       interface{} // nil when the body is not valid JSON
}

// NewHTTPAdapter builds an HTTPAdapter with a 30-second default timeout
// and outbound request tracing.
func NewHTTPAdapter() *HTTPAdapter {
	return &HTTPAdapter{httpClient: telemetry.WrapHTTPClient(&http.Client{Timeout: 30 * time.Second})}
}

// Do executes req. Responses with status >= 400 return the response
// alongside a non-nil error, so callers can still inspect the body.
func (a *HTTPAdapter) Do(ctx context.Context, req HTTPRequest) (HTTPResponse, error) {
	if req.URL == "" {
		return HTTPResponse{}, fmt.Errorf("http: URL is required")
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	target := req.URL
	if len(req.Query) > 0 {
		q := url.Values{}
		for key, value := range req.Query {
			q.Set(key, value)
		}
		sep := "?"
		if u, err := url.Parse(target); err == nil && u.RawQuery != "" {
			sep = "&"
		}
		target += sep + q.Encode()
	}

	var bodyReader io.Reader
	if len(req.Body) > 0 {
		bodyReader = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return HTTPResponse{}, fmt.Errorf("http: build request: %w", err)
	}
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}
	if bodyReader != nil && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	client := a.httpClient
	if req.Timeout > 0 {
		client = telemetry.WrapHTTPClient(&http.Client{Timeout: req.Timeout})
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return HTTPResponse{}, fmt.Errorf("http: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return HTTPResponse{}, fmt.Errorf("http: read response body: %w", err)
	}

	headers := make(map[string]string, len(resp.Header))
	for key := range resp.Header {
		headers[key] = resp.Header.Get(key)
	}

	out := HTTPResponse{
		StatusCode: resp.StatusCode,
		Headers:    headers,
		Body:       respBody,
	}
	if len(respBody) > 0 {
		var parsed interface{}
		if json.Unmarshal(respBody, &parsed) == nil {
			out.JSON = parsed
		}
	}

	if resp.StatusCode >= 400 {
		return out, fmt.Errorf("http: %s %s returned status %d", method, req.URL, resp.StatusCode)
	}
	return out, nil
}
