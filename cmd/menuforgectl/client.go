package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const apiPrefix = "/api/v1"

type menuforgeClient struct {
	baseURL string
	http    *http.Client
	user    string
	groups  []string
	token   string
}

func newClient(g *globals) *menuforgeClient {
	return &menuforgeClient{
		baseURL: strings.TrimRight(g.serverURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		user:    g.user,
		groups:  g.groups,
		token:   g.token,
	}
}

// apiError is a non-2xx response decoded from the server error body.
type apiError struct {
	Status    int
	Code      string
	Message   string
	Retryable bool
}

func (e *apiError) Error() string {
	msg := fmt.Sprintf("server returned %d", e.Status)
	if e.Code != "" {
		msg += " " + e.Code
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Retryable {
		msg += " (retryable)"
	}
	return msg
}

// do sends a request and returns the response body of a 2xx reply.
func (c *menuforgeClient) do(method, path string, body io.Reader, contentType string) ([]byte, http.Header, error) {
	req, err := http.NewRequest(method, c.baseURL+path, body)
	if err != nil {
		return nil, nil, fmt.Errorf("request creation failed: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if c.user != "" {
		req.Header.Set("X-Remote-User", c.user)
	}
	if len(c.groups) > 0 {
		req.Header.Set("X-Remote-Group", strings.Join(c.groups, ","))
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &apiError{Status: resp.StatusCode}
		var eb errorBody
		if json.Unmarshal(data, &eb) == nil && eb.Error != "" {
			apiErr.Code, apiErr.Message, apiErr.Retryable = eb.Error, eb.Message, eb.Retryable
		} else {
			apiErr.Message = strings.TrimSpace(string(data))
		}
		return nil, nil, apiErr
	}
	return data, resp.Header, nil
}

// getJSON performs a GET request and decodes the response.
func (c *menuforgeClient) getJSON(path string, v any) error {
	data, _, err := c.do(http.MethodGet, path, nil, "")
	if err != nil {
		return err
	}
	return decodeInto(data, v)
}

// sendJSON performs a request with a JSON body and decodes the response.
func (c *menuforgeClient) sendJSON(method, path string, body any, v any) error {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal error: %w", err)
		}
		r = bytes.NewReader(data)
	}
	data, _, err := c.do(method, path, r, "application/json")
	if err != nil {
		return err
	}
	return decodeInto(data, v)
}

func decodeInto(data []byte, v any) error {
	if v == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode error: %w", err)
	}
	return nil
}
