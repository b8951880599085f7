package graphql

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/quarrydata/quarry/dataset"
	"github.com/quarrydata/quarry/errors"
	"github.com/quarrydata/quarry/logger"
)

// cursorPlaceholder is the template marker replaced per page. The first page
// substitutes a literal null so the template stays valid GraphQL either way.
const cursorPlaceholder = "{cursor}"

// Page is one decoded page of a cursor-paginated result. A bare-array
// response decodes to a page with HasNextPage false and no cursor.
type Page struct {
	Records     []map[string]interface{}
	Raw         map[string]interface{}
	HasNextPage bool
	EndCursor   string
}

// FetchResult is the accumulated output of a full pagination walk.
type FetchResult struct {
	Records   []map[string]interface{}
	CallCount int
}

// FetchError reports a failed walk along with how far it got. CallCount
// covers every request issued before the failure, so billing and audit
// numbers stay accurate even on error paths.
type FetchError struct {
	Errs      []string
	CallCount int
	cause     error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch failed after %d call(s): %s", e.CallCount, strings.Join(e.Errs, "; "))
}

func (e *FetchError) Unwrap() error { return e.cause }

// Fetcher walks a cursor-paginated query to completion.
type Fetcher struct {
	exec     Executor
	limiter  *rate.Limiter
	maxPages int
	log      *zap.SugaredLogger
}

// NewFetcher creates a fetcher that paces page requests at the given
// interval. pageDelay of zero disables pacing; maxPages bounds runaway
// cursors that never report an end.
func NewFetcher(exec Executor, pageDelayMS int, maxPages int, log *zap.SugaredLogger) *Fetcher {
	var limiter *rate.Limiter
	if pageDelayMS > 0 {
		limiter = rate.NewLimiter(rate.Limit(1000.0/float64(pageDelayMS)), 1)
	}
	return &Fetcher{
		exec:     exec,
		limiter:  limiter,
		maxPages: maxPages,
		log:      logger.Or(log),
	}
}

// FetchPage issues one page request with the given cursor (empty means the
// first page) and decodes the connection-shaped result field. hint names
// the response field holding the result when the caller knows it; an empty
// hint auto-detects.
func (f *Fetcher) FetchPage(ctx context.Context, creds dataset.Credentials, queryTemplate, cursor, hint string) (*Page, error) {
	query := substituteCursor(queryTemplate, cursor)

	data, err := f.exec.Execute(ctx, creds, query)
	if err != nil {
		return nil, err
	}
	return parsePage(data, hint)
}

// Pace blocks until the inter-page delay has elapsed. Callers driving
// FetchPage directly use this between requests.
func (f *Fetcher) Pace(ctx context.Context) error {
	if f.limiter == nil {
		return nil
	}
	return f.limiter.Wait(ctx)
}

// FetchAll substitutes the cursor placeholder page by page and accumulates
// records until the connection reports no next page, a bare-array page
// terminates the walk, or the page bound is hit. Errors surface as a
// *FetchError that still carries the call count so far.
func (f *Fetcher) FetchAll(ctx context.Context, creds dataset.Credentials, queryTemplate, hint string) (*FetchResult, error) {
	result := &FetchResult{}
	cursor := ""

	for page := 0; f.maxPages <= 0 || page < f.maxPages; page++ {
		if page > 0 {
			if err := f.Pace(ctx); err != nil {
				return nil, &FetchError{Errs: []string{err.Error()}, CallCount: result.CallCount, cause: err}
			}
		}

		result.CallCount++
		pg, err := f.FetchPage(ctx, creds, queryTemplate, cursor, hint)
		if err != nil {
			return nil, &FetchError{Errs: collectDetails(err), CallCount: result.CallCount, cause: err}
		}

		result.Records = append(result.Records, pg.Records...)

		f.log.Debugw("Fetched page",
			"page", page,
			logger.FieldRowCount, len(pg.Records),
			"has_next", pg.HasNextPage,
		)

		if !pg.HasNextPage || pg.EndCursor == "" {
			return result, nil
		}
		cursor = pg.EndCursor
	}

	f.log.Warnw("Pagination stopped at page bound",
		"max_pages", f.maxPages,
		logger.FieldRowCount, len(result.Records),
	)
	return result, nil
}

// substituteCursor fills the placeholder with null on the first page and a
// quoted cursor string afterwards.
func substituteCursor(template, cursor string) string {
	if cursor == "" {
		return strings.ReplaceAll(template, cursorPlaceholder, "null")
	}
	return strings.ReplaceAll(template, cursorPlaceholder, fmt.Sprintf("%q", cursor))
}

// parsePage locates the connection-shaped result field in the response data
// and flattens it. A non-empty hint names the field to read; otherwise the
// first connection-shaped field in key order wins. Both edges/node
// connections and bare arrays are accepted; a bare array is a complete
// result with no pagination.
func parsePage(data map[string]interface{}, hint string) (*Page, error) {
	if len(data) == 0 {
		return &Page{Raw: data}, nil
	}

	if hint != "" {
		if p, ok := parseResultField(data, hint); ok {
			return p, nil
		}
	}

	for _, key := range sortedKeys(data) {
		if p, ok := parseResultField(data, key); ok {
			return p, nil
		}
	}

	return nil, errors.Wrap(errors.ErrExternalAPI, "response contains no recognizable result field")
}

// parseResultField decodes one named response field when it carries a
// recognizable result shape.
func parseResultField(data map[string]interface{}, key string) (*Page, bool) {
	value, present := data[key]
	if !present {
		return nil, false
	}

	if conn, ok := value.(map[string]interface{}); ok {
		if edges, ok := conn["edges"].([]interface{}); ok {
			p := &Page{Raw: data}
			for _, e := range edges {
				edge, ok := e.(map[string]interface{})
				if !ok {
					continue
				}
				if node, ok := edge["node"].(map[string]interface{}); ok {
					p.Records = append(p.Records, node)
				}
			}
			applyPageInfo(p, conn)
			return p, true
		}
		if nodes, ok := conn["nodes"].([]interface{}); ok {
			p := &Page{Raw: data}
			for _, n := range nodes {
				if node, ok := n.(map[string]interface{}); ok {
					p.Records = append(p.Records, node)
				}
			}
			applyPageInfo(p, conn)
			return p, true
		}
	}

	if arr, ok := value.([]interface{}); ok {
		p := &Page{Raw: data}
		for _, item := range arr {
			if rec, ok := item.(map[string]interface{}); ok {
				p.Records = append(p.Records, rec)
			}
		}
		return p, true
	}

	return nil, false
}

func applyPageInfo(p *Page, conn map[string]interface{}) {
	if info, ok := conn["pageInfo"].(map[string]interface{}); ok {
		p.HasNextPage, _ = info["hasNextPage"].(bool)
		p.EndCursor, _ = info["endCursor"].(string)
	}
}

// collectDetails flattens an error chain into displayable messages,
// preferring per-error details attached by the client.
func collectDetails(err error) []string {
	details := errors.GetAllDetails(err)
	if len(details) > 0 {
		return details
	}
	return []string{err.Error()}
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
