package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	apperrors "yogaportal/pkg/errors"
)

const (
	headerAuthorization = "Authorization"
	headerAPIKey        = "apikey"
	headerContentType   = "Content-Type"
	contentTypeJSON     = "application/json"
)

type HttpClient struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

func NewHttpClient(baseURL string) *HttpClient {
	return &HttpClient{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// WithTimeout replaces the transport timeout. Zero keeps the current one.
func (c *HttpClient) WithTimeout(d time.Duration) *HttpClient {
	if d > 0 {
		c.HTTPClient.Timeout = d
	}
	return c
}

type Response struct {
	*http.Response
	Body []byte
}

func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// DecodeJSON accepts either the bare payload or a {"data": ...} envelope.
func (r *Response) DecodeJSON(target any) error {
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(r.Body, &envelope); err == nil && len(envelope.Data) > 0 && string(envelope.Data) != "null" {
		return json.Unmarshal(envelope.Data, target)
	}
	return json.Unmarshal(r.Body, target)
}

// Err converts a non-2xx response into an AppError, nil otherwise.
func (r *Response) Err() error {
	if r.OK() {
		return nil
	}
	return apperrors.FromStatus(r.StatusCode, GetErrorMessage(r))
}

// Call carries per-request auth. An empty Token falls back to the public key.
type Call struct {
	Token   string
	Headers map[string]string
}

func (c *HttpClient) GET(ctx context.Context, path string, call Call) (*Response, error) {
	return c.request(ctx, http.MethodGet, path, nil, call)
}

func (c *HttpClient) POST(ctx context.Context, path string, body any, call Call) (*Response, error) {
	return c.request(ctx, http.MethodPost, path, body, call)
}

func (c *HttpClient) PATCH(ctx context.Context, path string, body any, call Call) (*Response, error) {
	return c.request(ctx, http.MethodPatch, path, body, call)
}

func (c *HttpClient) DELETE(ctx context.Context, path string, call Call) (*Response, error) {
	return c.request(ctx, http.MethodDelete, path, nil, call)
}

// Fetch performs the request and decodes a successful body into target.
func (c *HttpClient) Fetch(ctx context.Context, method, path string, body any, call Call, target any) error {
	resp, err := c.request(ctx, method, path, body, call)
	if err != nil {
		return err
	}
	if err := resp.Err(); err != nil {
		return err
	}
	if target == nil || len(bytes.TrimSpace(resp.Body)) == 0 {
		return nil
	}
	if err := resp.DecodeJSON(target); err != nil {
		return apperrors.Wrap(err, apperrors.CodeUpstream, "malformed backend response", http.StatusBadGateway)
	}
	return nil
}

func (c *HttpClient) request(ctx context.Context, method, path string, body any, call Call) (*Response, error) {
	var reqBody io.Reader

	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	return c.do(ctx, method, path, reqBody, body != nil, call)
}

func (c *HttpClient) do(ctx context.Context, method, path string, reqBody io.Reader, hasBody bool, call Call) (*Response, error) {
	url := c.BaseURL + path

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if hasBody {
		req.Header.Set(headerContentType, contentTypeJSON)
	}
	req.Header.Set("Accept", contentTypeJSON)

	if c.APIKey != "" {
		req.Header.Set(headerAPIKey, c.APIKey)
	}
	token := call.Token
	if token == "" {
		token = c.APIKey
	}
	if token != "" {
		req.Header.Set(headerAuthorization, "Bearer "+token)
	}

	for key, value := range call.Headers {
		req.Header.Set(key, value)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeTimeout, "request cancelled", http.StatusGatewayTimeout)
		}
		return nil, apperrors.Wrap(err, apperrors.CodeUnavailable, "request failed", http.StatusServiceUnavailable)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &Response{
		Response: resp,
		Body:     respBody,
	}, nil
}

func (c *HttpClient) WaitForHealthy(ctx context.Context, path string, maxWait time.Duration) error {
	deadline := time.Now().Add(maxWait)
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for time.Now().Before(deadline) {
		resp, err := c.GET(ctx, path, Call{})
		if err == nil && resp.OK() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}

	return fmt.Errorf("service did not become healthy within %v", maxWait)
}

func GetErrorMessage(resp *Response) string {
	var errResp struct {
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
		Message          string `json:"message"`
		Msg              string `json:"msg"`
		Code             any    `json:"code"`
	}
	if err := json.Unmarshal(resp.Body, &errResp); err != nil {
		return ""
	}

	switch {
	case errResp.Message != "":
		return errResp.Message
	case errResp.ErrorDescription != "":
		return errResp.ErrorDescription
	case errResp.Msg != "":
		return errResp.Msg
	case errResp.Error != "":
		return errResp.Error
	}
	if s, ok := errResp.Code.(string); ok {
		return s
	}
	return ""
}
