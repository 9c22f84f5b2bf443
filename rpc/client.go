// Copyright (c) 2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
)

const (
	libraryVersion = "v1"
	userAgent      = "polichain/" + libraryVersion
	mediaType      = "application/json"
)

// Client manages communication with a governance API server or a remote
// token ledger service. Both speak the same JSON envelope.
type Client struct {
	// HTTP client used to communicate with the service.
	client *http.Client
	// Base URL for API requests.
	BaseURL *url.URL
	// User agent name for client.
	UserAgent string
	// Optional API key for protected endpoints
	ApiKey string
}

// NewClient returns a new API client.
func NewClient(baseURL string, httpClient *http.Client) (*Client, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if !strings.HasPrefix(baseURL, "http") {
		baseURL = "http://" + baseURL
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	c := &Client{
		client:    httpClient,
		BaseURL:   u,
		UserAgent: userAgent,
		ApiKey:    u.Query().Get("X-Api-Key"),
	}
	return c, nil
}

func (c *Client) Get(ctx context.Context, urlpath string, result interface{}) error {
	req, err := c.NewRequest(ctx, http.MethodGet, urlpath, nil)
	if err != nil {
		return err
	}
	return c.Do(req, result)
}

func (c *Client) Post(ctx context.Context, urlpath string, body, result interface{}) error {
	req, err := c.NewRequest(ctx, http.MethodPost, urlpath, body)
	if err != nil {
		return err
	}
	return c.Do(req, result)
}

func (c *Client) Put(ctx context.Context, urlpath string, body, result interface{}) error {
	req, err := c.NewRequest(ctx, http.MethodPut, urlpath, body)
	if err != nil {
		return err
	}
	return c.Do(req, result)
}

func (c *Client) Delete(ctx context.Context, urlpath string) error {
	req, err := c.NewRequest(ctx, http.MethodDelete, urlpath, nil)
	if err != nil {
		return err
	}
	return c.Do(req, nil)
}

// NewRequest creates an API request.
func (c *Client) NewRequest(ctx context.Context, method, urlStr string, body interface{}) (*http.Request, error) {
	rel, err := url.Parse(urlStr)
	if err != nil {
		return nil, err
	}

	u := c.BaseURL.ResolveReference(rel)

	buf := new(bytes.Buffer)
	if body != nil {
		err = json.NewEncoder(buf).Encode(body)
		if err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequest(method, u.String(), buf)
	if err != nil {
		return nil, err
	}
	req = req.WithContext(ctx)

	req.Header.Add("Content-Type", mediaType)
	req.Header.Add("Accept", mediaType)
	req.Header.Add("User-Agent", c.UserAgent)
	if c.ApiKey != "" {
		req.Header.Add("X-Api-Key", c.ApiKey)
	}

	log.Debug(newLogClosure(func() string {
		d, _ := httputil.DumpRequest(req, true)
		return string(d)
	}))

	return req, nil
}

// Do retrieves values from the API and marshals them into the provided interface.
func (c *Client) Do(req *http.Request, v interface{}) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}

	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	log.Trace(newLogClosure(func() string {
		d, _ := httputil.DumpResponse(resp, true)
		return string(d)
	}))

	statusClass := resp.StatusCode / 100
	if statusClass == 2 {
		if v == nil {
			return nil
		}
		return json.NewDecoder(resp.Body).Decode(v)
	}

	return handleError(resp)
}

func handleError(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	httpErr := httpError{
		request:    resp.Request.Method + " " + resp.Request.URL.RequestURI(),
		status:     resp.Status,
		statusCode: resp.StatusCode,
		body:       bytes.ReplaceAll(body, []byte("\n"), []byte{}),
	}

	if !strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		// errors with unknown body format (usually human readable string)
		return &httpErr
	}

	var errs Errors
	if err := json.Unmarshal(body, &errs); err != nil {
		return &plainError{&httpErr, fmt.Sprintf("rpc: error decoding API error: %v", err)}
	}

	if len(errs) == 0 {
		return &httpErr
	}

	return &apiError{
		httpError: &httpErr,
		errors:    errs,
	}
}
