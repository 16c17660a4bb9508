package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// apiError is a non-2xx answer from the server
type apiError struct {
	Status  int
	Message string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// apiClient talks to the halftunes HTTP API
type apiClient struct {
	baseURL    string
	httpClient *http.Client
}

func newAPIClient(baseURL string) *apiClient {
	return &apiClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *apiClient) get(path string, query url.Values, out interface{}) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	resp, err := c.httpClient.Get(u)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeResponse(resp, out, http.StatusOK)
}

// post sends body as JSON. Statuses listed in accept are decoded into out.
func (c *apiClient) post(path string, body, out interface{}, accept ...int) (int, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return 0, err
	}
	resp, err := c.httpClient.Post(c.baseURL+path, "application/json", bytes.NewReader(data))
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return resp.StatusCode, decodeResponse(resp, out, accept...)
}

func decodeResponse(resp *http.Response, out interface{}, accept ...int) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	for _, status := range accept {
		if resp.StatusCode == status {
			if out == nil {
				return nil
			}
			return json.Unmarshal(body, out)
		}
	}

	var payload struct {
		Error string `json:"error"`
	}
	message := strings.TrimSpace(string(body))
	if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
		message = payload.Error
	}
	return &apiError{Status: resp.StatusCode, Message: message}
}
