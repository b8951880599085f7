// Package graphql talks to external paginated GraphQL APIs: a thin client,
// a cursor-walking fetcher, and a structural id extractor for heterogeneous
// connection shapes.
package graphql

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/quarrydata/quarry/dataset"
	"github.com/quarrydata/quarry/errors"
	"github.com/quarrydata/quarry/internal/httpclient"
	"github.com/quarrydata/quarry/logger"
)

// Executor issues one GraphQL query against a source and returns the
// response's data object. The fetcher and the dependent-query orchestrator
// depend on this interface so tests can substitute synthetic pages.
type Executor interface {
	Execute(ctx context.Context, creds dataset.Credentials, query string) (map[string]interface{}, error)
}

// Client is an Executor over HTTP with SSRF protection.
type Client struct {
	httpClient *httpclient.SaferClient
	log        *zap.SugaredLogger
}

// NewClient creates a GraphQL client with the given per-request timeout.
func NewClient(timeout time.Duration, log *zap.SugaredLogger) *Client {
	return &Client{
		httpClient: httpclient.NewSaferClient(timeout),
		log:        logger.Or(log),
	}
}

// NewClientWithHTTP creates a client over a pre-built SaferClient.
// Tests use this with httpclient.WrapClient to reach httptest servers.
func NewClientWithHTTP(hc *httpclient.SaferClient, log *zap.SugaredLogger) *Client {
	return &Client{httpClient: hc, log: logger.Or(log)}
}

// graphQLRequest is the wire shape of an outbound query
type graphQLRequest struct {
	Query string `json:"query"`
}

// graphQLResponse is the wire shape of a response envelope
type graphQLResponse struct {
	Data   map[string]interface{} `json:"data"`
	Errors []graphQLError         `json:"errors"`
}

type graphQLError struct {
	Message string `json:"message"`
}

// Execute issues a single query. A non-2xx status or a non-empty GraphQL
// error list returns a wrapped ErrExternalAPI carrying every message; there
// is no partial-success continuation at this layer.
func (c *Client) Execute(ctx context.Context, creds dataset.Credentials, query string) (map[string]interface{}, error) {
	reqBody, err := json.Marshal(graphQLRequest{Query: query})
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal query")
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", creds.APIURL, bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+creds.APIKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(errors.Wrap(errors.ErrExternalAPI, err.Error()), "failed to send request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response")
	}

	if resp.StatusCode != http.StatusOK {
		c.log.Warnw("External API returned non-success status",
			logger.FieldStatus, resp.StatusCode,
		)
		return nil, errors.Wrapf(errors.ErrExternalAPI, "status %d: %s", resp.StatusCode, truncate(string(respBody), 512))
	}

	var envelope graphQLResponse
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal response")
	}

	if len(envelope.Errors) > 0 {
		msgs := make([]string, len(envelope.Errors))
		for i, e := range envelope.Errors {
			msgs[i] = e.Message
		}
		err := errors.Wrapf(errors.ErrExternalAPI, "API returned %d error(s)", len(msgs))
		for _, m := range msgs {
			err = errors.WithDetail(err, m)
		}
		return nil, err
	}

	return envelope.Data, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
