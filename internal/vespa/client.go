// Package vespa is a hand-built HTTP client for the Vespa search engine's
// document feed API and query HTTP interface. No Go SDK for Vespa exists in
// the reference corpus, so this client is built directly on net/http and
// encoding/json (documented as a stdlib exception in DESIGN.md).
package vespa

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rtyshyk/telegram-rag/internal/errors"
)

const (
	namespace  = "ragchat"
	documentType = "chunk"
)

// Client talks to one Vespa endpoint over a connection-pooled *http.Client.
type Client struct {
	endpoint string
	http     *http.Client
}

// NewClient builds a Client with the timeouts named in the specification:
// 20s socket timeout at the transport level.
func NewClient(endpoint string) *Client {
	return &Client{
		endpoint: endpoint,
		http: &http.Client{
			Timeout: 20 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// FeedResult reports the outcome of one document upsert.
type FeedResult struct {
	ID      string
	Success bool
	Status  int
}

// Feed upserts one document via PUT /document/v1/{namespace}/{doctype}/docid/{id}.
// Success statuses are {OK, Created}; the caller is responsible for retry.
func (c *Client) Feed(ctx context.Context, docID string, fields map[string]interface{}) (FeedResult, error) {
	body, err := json.Marshal(map[string]interface{}{"fields": fields})
	if err != nil {
		return FeedResult{}, errors.Permanent("vespa_marshal_failed", "failed to marshal feed body", err)
	}

	url := fmt.Sprintf("%s/document/v1/%s/%s/docid/%s", c.endpoint, namespace, documentType, docID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return FeedResult{}, errors.Permanent("vespa_request_failed", "failed to build feed request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return FeedResult{}, errors.Transient("vespa_feed_unreachable", "vespa feed request failed", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		return FeedResult{ID: docID, Success: true, Status: resp.StatusCode}, nil
	case http.StatusTooManyRequests:
		return FeedResult{}, errors.RateLimited("vespa feed rate limited", 0)
	default:
		if resp.StatusCode >= 500 {
			return FeedResult{}, errors.Transient("vespa_feed_failed", fmt.Sprintf("vespa feed returned %d", resp.StatusCode), nil)
		}
		return FeedResult{}, errors.Permanent("vespa_feed_rejected", fmt.Sprintf("vespa feed returned %d", resp.StatusCode), nil)
	}
}

// Delete removes one document by id. A 404 is treated as success, since the
// document is already gone.
func (c *Client) Delete(ctx context.Context, docID string) (FeedResult, error) {
	url := fmt.Sprintf("%s/document/v1/%s/%s/docid/%s", c.endpoint, namespace, documentType, docID)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return FeedResult{}, errors.Permanent("vespa_request_failed", "failed to build delete request", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return FeedResult{}, errors.Transient("vespa_delete_unreachable", "vespa delete request failed", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusNotFound:
		return FeedResult{ID: docID, Success: true, Status: resp.StatusCode}, nil
	case resp.StatusCode >= 500:
		return FeedResult{}, errors.Transient("vespa_delete_failed", fmt.Sprintf("vespa delete returned %d", resp.StatusCode), nil)
	default:
		return FeedResult{}, errors.Permanent("vespa_delete_rejected", fmt.Sprintf("vespa delete returned %d", resp.StatusCode), nil)
	}
}

// SearchResponse is the subset of Vespa's query response this system consumes.
type SearchResponse struct {
	Root struct {
		Children []struct {
			ID     string                 `json:"id"`
			Fields map[string]interface{} `json:"fields"`
			Relevance float64             `json:"relevance"`
		} `json:"children"`
	} `json:"root"`
}

// Query executes a YQL query body against Vespa's search endpoint.
func (c *Client) Query(ctx context.Context, body map[string]interface{}) (*SearchResponse, error) {
	body["timeout"] = "5s"
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, errors.Permanent("vespa_marshal_failed", "failed to marshal query body", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/search/", bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Permanent("vespa_request_failed", "failed to build query request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Transient("vespa_query_unreachable", "vespa query request failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Transient("vespa_query_read_failed", "failed to read vespa response", err)
	}
	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode >= 500 {
			return nil, errors.Transient("vespa_query_failed", fmt.Sprintf("vespa query returned %d", resp.StatusCode), nil)
		}
		return nil, errors.Permanent("vespa_query_rejected", fmt.Sprintf("vespa query returned %d: %s", resp.StatusCode, string(raw)), nil)
	}

	var out SearchResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, errors.Permanent("vespa_query_unmarshal_failed", "failed to parse vespa response", err)
	}
	return &out, nil
}
