// Package teamcity provides a client for interacting with the TeamCity REST API.
package teamcity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	restPath     = "/app/rest"
	downloadPath = "/repository/download"
)

// Client is an authenticated TeamCity API client.
// Every request carries the bearer token and asks for JSON.
type Client struct {
	baseURL    string
	apiToken   string
	httpClient *http.Client
}

// Response is a fully read 2xx response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Decode unmarshals the response body as JSON.
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// NewClient creates a new TeamCity API client for the server at baseURL.
func NewClient(baseURL, apiToken string) *Client {
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiToken: apiToken,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// BaseURL returns the server root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// BuildsURL returns the builds collection endpoint.
func (c *Client) BuildsURL() string {
	return c.baseURL + restPath + "/builds"
}

// BuildURL returns the endpoint of a single build.
func (c *Client) BuildURL(id int64) string {
	return fmt.Sprintf("%s/id:%d", c.BuildsURL(), id)
}

// QueueURL returns the build queue endpoint.
func (c *Client) QueueURL() string {
	return c.baseURL + restPath + "/buildQueue"
}

// BuildTypeURL returns the endpoint of a build configuration.
func (c *Client) BuildTypeURL(configID string) string {
	return fmt.Sprintf("%s%s/buildTypes/id:%s", c.baseURL, restPath, configID)
}

// DownloadsURL returns the artifact repository root.
func (c *Client) DownloadsURL() string {
	return c.baseURL + downloadPath
}

// Get sends a GET request.
func (c *Client) Get(ctx context.Context, url string, headers map[string]string) (*Response, error) {
	return c.Do(ctx, http.MethodGet, url, headers, nil)
}

// Put sends a PUT request. A nil body sends no content.
func (c *Client) Put(ctx context.Context, url string, headers map[string]string, body any) (*Response, error) {
	return c.Do(ctx, http.MethodPut, url, headers, body)
}

// Delete sends a DELETE request.
func (c *Client) Delete(ctx context.Context, url string, headers map[string]string) (*Response, error) {
	return c.Do(ctx, http.MethodDelete, url, headers, nil)
}

// Post sends a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, url string, body any) (*Response, error) {
	return c.Do(ctx, http.MethodPost, url, nil, body)
}

// Do executes a request and reads the whole response body.
// Bodies of type []byte or string are sent as-is and the caller is expected
// to set Content-Type; any other non-nil body is encoded as JSON.
func (c *Client) Do(ctx context.Context, method, url string, headers map[string]string, body any) (*Response, error) {
	resp, err := c.send(ctx, method, url, headers, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Method: method, URL: url, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: data}, nil
}

// Stream executes a GET request and copies the response body into w.
// Returns the number of bytes written.
func (c *Client) Stream(ctx context.Context, url string, w io.Writer) (int64, error) {
	resp, err := c.send(ctx, http.MethodGet, url, nil, nil)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, &TransportError{Method: http.MethodGet, URL: url, Err: fmt.Errorf("failed to read content: %w", err)}
	}
	return n, nil
}

// send performs the round trip and checks the status.
// On success the caller owns resp.Body.
func (c *Client) send(ctx context.Context, method, url string, headers map[string]string, body any) (*http.Response, error) {
	reader, contentType, err := encodeBody(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiToken))
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Method: method, URL: url, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &HTTPError{
			Method:     method,
			URL:        url,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(data)),
		}
	}

	return resp, nil
}

func encodeBody(body any) (io.Reader, string, error) {
	switch b := body.(type) {
	case nil:
		return nil, "", nil
	case []byte:
		return bytes.NewReader(b), "", nil
	case string:
		return strings.NewReader(b), "", nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, "", fmt.Errorf("failed to encode request body: %w", err)
		}
		return bytes.NewReader(data), "application/json", nil
	}
}
