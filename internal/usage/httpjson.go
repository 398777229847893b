package usage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// requestTimeout bounds each poll so a stalled endpoint cannot wedge the
// provider goroutine.
const requestTimeout = 10 * time.Second

// HTTPJSON polls a JSON endpoint and extracts used/limit via JSON pointers.
type HTTPJSON struct {
	name         string
	url          string
	method       string
	headers      map[string]string
	body         string
	usedPointer  string
	limitPointer string
	client       *http.Client
}

// NewHTTPJSON creates a provider polling the given endpoint. method defaults
// to GET; limitPointer may be empty when the endpoint reports no limit.
func NewHTTPJSON(name, url, method string, headers map[string]string, body, usedPointer, limitPointer string) *HTTPJSON {
	if method == "" {
		method = http.MethodGet
	}
	return &HTTPJSON{
		name:         name,
		url:          url,
		method:       method,
		headers:      headers,
		body:         body,
		usedPointer:  usedPointer,
		limitPointer: limitPointer,
		client:       &http.Client{Timeout: requestTimeout},
	}
}

// Name returns the provider's display name.
func (h *HTTPJSON) Name() string { return h.name }

// Poll fetches the endpoint and extracts the configured values.
func (h *HTTPJSON) Poll(ctx context.Context) (Sample, error) {
	var bodyReader io.Reader
	if h.body != "" {
		bodyReader = strings.NewReader(h.body)
	}
	req, err := http.NewRequestWithContext(ctx, h.method, h.url, bodyReader)
	if err != nil {
		return Sample{}, fmt.Errorf("building request: %w", err)
	}
	for k, v := range h.headers {
		req.Header.Set(k, v)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return Sample{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Sample{}, fmt.Errorf("endpoint returned %s", resp.Status)
	}

	var doc any
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&doc); err != nil {
		return Sample{}, fmt.Errorf("decoding response: %w", err)
	}

	used, err := evalPointer(doc, h.usedPointer)
	if err != nil {
		return Sample{}, fmt.Errorf("extracting used: %w", err)
	}
	var limit uint64
	if h.limitPointer != "" {
		limit, err = evalPointer(doc, h.limitPointer)
		if err != nil {
			return Sample{}, fmt.Errorf("extracting limit: %w", err)
		}
	}

	return Sample{
		Provider: h.name,
		Used:     used,
		Limit:    limit,
		OK:       true,
		Time:     time.Now(),
	}, nil
}
