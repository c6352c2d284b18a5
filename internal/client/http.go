package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/alfredjeanlab/geotify/internal/coordinator"
	"github.com/alfredjeanlab/geotify/internal/model"
)

// HTTPClient implements GeotifyClient using the geotify HTTP/JSON REST API.
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

var _ GeotifyClient = (*HTTPClient)(nil)

// NewHTTPClient creates a new HTTP client targeting the given base URL
// (e.g. "http://localhost:8080"). When token is non-empty, an Authorization
// header is set on every request.
func NewHTTPClient(baseURL, token string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Close is a no-op for the HTTP client.
func (c *HTTPClient) Close() error { return nil }

// --- Geotifications ---

func (c *HTTPClient) AddGeotification(ctx context.Context, req *AddGeotificationRequest) (*model.Geotification, error) {
	var g model.Geotification
	if err := c.doJSON(ctx, http.MethodPost, "/v1/geotifications", req, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

func (c *HTTPClient) GetGeotification(ctx context.Context, identifier string) (*model.Geotification, error) {
	var g model.Geotification
	if err := c.doJSON(ctx, http.MethodGet, "/v1/geotifications/"+url.PathEscape(identifier), nil, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

func (c *HTTPClient) ListGeotifications(ctx context.Context) (*coordinator.Snapshot, error) {
	var snap coordinator.Snapshot
	if err := c.doJSON(ctx, http.MethodGet, "/v1/geotifications", nil, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (c *HTTPClient) RemoveGeotification(ctx context.Context, identifier string) error {
	return c.doJSON(ctx, http.MethodDelete, "/v1/geotifications/"+url.PathEscape(identifier), nil, nil)
}

func (c *HTTPClient) Count(ctx context.Context) (*CountResponse, error) {
	var resp CountResponse
	if err := c.doJSON(ctx, http.MethodGet, "/v1/count", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// --- Platform ---

type authorizationBody struct {
	Authorization model.AuthorizationLevel `json:"authorization"`
}

func (c *HTTPClient) Authorization(ctx context.Context) (model.AuthorizationLevel, error) {
	var resp authorizationBody
	if err := c.doJSON(ctx, http.MethodGet, "/v1/authorization", nil, &resp); err != nil {
		return "", err
	}
	return resp.Authorization, nil
}

// SetAuthorization delivers an authorization callback to the server.
func (c *HTTPClient) SetAuthorization(ctx context.Context, level model.AuthorizationLevel) error {
	return c.doJSON(ctx, http.MethodPost, "/v1/authorization", authorizationBody{Authorization: level}, nil)
}

// RequestAuthorization asks the server to check its authorization level and
// request Always authorization if needed. It returns the level known after
// the check.
func (c *HTTPClient) RequestAuthorization(ctx context.Context) (model.AuthorizationLevel, error) {
	var resp authorizationBody
	if err := c.doJSON(ctx, http.MethodPost, "/v1/authorization/request", nil, &resp); err != nil {
		return "", err
	}
	return resp.Authorization, nil
}

// ReportMonitoringFailure delivers a monitoring failure callback for identifier.
func (c *HTTPClient) ReportMonitoringFailure(ctx context.Context, identifier, message string) error {
	body := map[string]string{"identifier": identifier}
	if message != "" {
		body["error"] = message
	}
	return c.doJSON(ctx, http.MethodPost, "/v1/monitoring/failures", body, nil)
}

func (c *HTTPClient) Regions(ctx context.Context) (*RegionsResponse, error) {
	var resp RegionsResponse
	if err := c.doJSON(ctx, http.MethodGet, "/v1/regions", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// --- Health ---

func (c *HTTPClient) Health(ctx context.Context) (string, error) {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/health", nil, &resp); err != nil {
		return "", err
	}
	return resp.Status, nil
}

// --- Events ---

// StreamEvents reads the server's event stream until ctx is done or the
// server closes it, calling fn for every event. topics are glob patterns
// such as "geotify.monitoring.*"; none means all topics.
func (c *HTTPClient) StreamEvents(ctx context.Context, topics []string, fn func(topic string, data []byte)) error {
	path := "/v1/events/stream"
	if len(topics) > 0 {
		path += "?topics=" + url.QueryEscape(strings.Join(topics, ","))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	// Streams outlive the request timeout.
	hc := *c.httpClient
	hc.Timeout = 0
	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}

	var topic string
	var data []byte
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if topic != "" {
				fn(topic, data)
			}
			topic, data = "", nil
		case strings.HasPrefix(line, "event:"):
			topic = strings.TrimPrefix(line, "event:")
		case strings.HasPrefix(line, "data:"):
			data = []byte(strings.TrimPrefix(line, "data:"))
		}
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("reading event stream: %w", err)
	}
	return nil
}

// --- internal helpers ---

// APIError represents an error response from the server.
type APIError struct {
	StatusCode int
	Message    string
	Fields     []model.FieldError // set for validation failures
}

func (e *APIError) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
	}
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + " " + f.Message
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, strings.Join(parts, "; "))
}

// doJSON performs an HTTP request with optional JSON body and decodes the JSON response.
// If result is nil, the response body is discarded.
func (c *HTTPClient) doJSON(ctx context.Context, method, path string, body any, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error  string             `json:"error"`
			Fields []model.FieldError `json:"fields"`
		}
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			return &APIError{StatusCode: resp.StatusCode, Message: errResp.Error, Fields: errResp.Fields}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}

	return nil
}
