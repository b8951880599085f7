package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/quarrydata/quarry/dataset"
	"github.com/quarrydata/quarry/errors"
	"github.com/quarrydata/quarry/internal/httpclient"
	"github.com/quarrydata/quarry/logger"
)

// RemoteInvoker executes a direct_api dataset by calling a named remote
// function on the source instead of running a GraphQL query.
type RemoteInvoker interface {
	Invoke(ctx context.Context, creds dataset.Credentials, function string) ([]map[string]interface{}, int, error)
}

// HTTPRemoteInvoker calls remote functions over HTTP at
// <api_url>/functions/v1/<name>.
type HTTPRemoteInvoker struct {
	httpClient *httpclient.SaferClient
	log        *zap.SugaredLogger
}

// NewHTTPRemoteInvoker creates an invoker with the given request timeout.
func NewHTTPRemoteInvoker(timeout time.Duration, log *zap.SugaredLogger) *HTTPRemoteInvoker {
	return &HTTPRemoteInvoker{
		httpClient: httpclient.NewSaferClient(timeout),
		log:        logger.Or(log),
	}
}

// NewHTTPRemoteInvokerWithClient creates an invoker over a pre-built client.
func NewHTTPRemoteInvokerWithClient(hc *httpclient.SaferClient, log *zap.SugaredLogger) *HTTPRemoteInvoker {
	return &HTTPRemoteInvoker{httpClient: hc, log: logger.Or(log)}
}

// Invoke posts to the function endpoint and decodes the records. The call
// count is always 1; direct functions do their own pagination server-side.
func (inv *HTTPRemoteInvoker) Invoke(ctx context.Context, creds dataset.Credentials, function string) ([]map[string]interface{}, int, error) {
	if function == "" {
		return nil, 0, errors.Wrap(errors.ErrConfigInvalid, "remote function name is empty")
	}

	url := strings.TrimRight(creds.APIURL, "/") + "/functions/v1/" + function
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBufferString("{}"))
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+creds.APIKey)

	resp, err := inv.httpClient.Do(req)
	if err != nil {
		return nil, 1, errors.Wrap(errors.ErrExternalAPI, err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 1, errors.Wrap(err, "failed to read response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, 1, errors.Wrapf(errors.ErrExternalAPI, "function %s returned status %d", function, resp.StatusCode)
	}

	records, err := decodeRemoteRecords(body)
	if err != nil {
		return nil, 1, errors.Wrapf(err, "function %s returned unexpected payload", function)
	}

	inv.log.Debugw("Remote function invoked",
		"function", function,
		logger.FieldRowCount, len(records),
	)
	return records, 1, nil
}

// decodeRemoteRecords accepts either a bare record array or an object
// wrapping one under "data".
func decodeRemoteRecords(body []byte) ([]map[string]interface{}, error) {
	var records []map[string]interface{}
	if err := json.Unmarshal(body, &records); err == nil {
		return records, nil
	}

	var wrapper struct {
		Data []map[string]interface{} `json:"data"`
	}
	if err := json.Unmarshal(body, &wrapper); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal records")
	}
	return wrapper.Data, nil
}
