package esclient

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/ChristianF88/logarchivist/record"
)

const (
	requestTimeout = 25 * time.Second
	connectTimeout = 16 * time.Second
	searchPageSize = 500
)

// Client is a single shared HTTP client bound to one Endpoint. All
// operations reuse the same underlying connection pool; callers should
// construct one Client per Endpoint and keep it for the program's
// lifetime rather than dialing per request.
type Client struct {
	rc    *resty.Client
	index string
}

// NewClient builds a Client configured per ep: basic auth if credentials
// are present, a pinned root CA if a trust anchor was loaded, otherwise
// the system root pool.
func NewClient(ep *Endpoint) (*Client, error) {
	transport := &http.Transport{
		DialContext: (&net.Dialer{Timeout: connectTimeout}).DialContext,
	}
	rc := resty.New().
		SetBaseURL(ep.BaseURL()).
		SetTimeout(requestTimeout).
		SetTransport(transport).
		SetRetryCount(0)

	if ep.HasAuth() {
		rc.SetBasicAuth(ep.User, ep.Password)
	}

	if ep.TrustAnchor != nil {
		pool, err := ep.TrustAnchor.Pool()
		if err != nil {
			return nil, fmt.Errorf("building trust pool: %w", err)
		}
		rc.SetTLSClientConfig(&tls.Config{RootCAs: pool})
	}

	return &Client{rc: rc, index: ep.Index}, nil
}

// Document is one search hit: the stored document's _id paired with its
// _source decoded back into a Record.
type Document struct {
	ID     string
	Record *record.Record
}

// BulkReport summarizes the outcome of one _bulk call.
type BulkReport struct {
	Indexed int
	Failed  int
	Errors  []string
}

type bulkAction struct {
	Index bulkActionMeta `json:"index"`
}

type bulkActionMeta struct {
	ID string `json:"_id"`
}

type bulkResponse struct {
	Errors bool `json:"errors"`
	Items  []struct {
		Index struct {
			Status int    `json:"status"`
			Result string `json:"result"`
			Error  *struct {
				Type   string `json:"type"`
				Reason string `json:"reason"`
			} `json:"error"`
		} `json:"index"`
	} `json:"items"`
}

type recordSource struct {
	IP         string  `json:"ip,omitempty"`
	AltIP      string  `json:"alt_ip,omitempty"`
	Host       *string `json:"host"`
	Request    string  `json:"request"`
	Refer      *string `json:"refer"`
	StatusCode uint16  `json:"status_code"`
	Size       uint64  `json:"size"`
	UserAgent  *string `json:"user_agent"`
	Time       int64   `json:"time"`
}

func toSource(r *record.Record) recordSource {
	src := recordSource{
		Host:       r.Host,
		Request:    r.Request,
		Refer:      r.Refer,
		StatusCode: r.StatusCode,
		Size:       r.Size,
		UserAgent:  r.UserAgent,
		Time:       r.Time,
	}
	if r.IP != nil {
		src.IP = r.IP.String()
	}
	if r.AltIP != nil {
		src.AltIP = r.AltIP.String()
	}
	return src
}

// BulkIndex submits records as one NDJSON _bulk request, one index action
// per record, id set to record.ID(). The caller owns retry policy; this
// method makes exactly one attempt.
func (c *Client) BulkIndex(ctx context.Context, records []*record.Record) (BulkReport, error) {
	if len(records) == 0 {
		return BulkReport{}, nil
	}

	body, err := encodeBulkBody(records)
	if err != nil {
		return BulkReport{}, fmt.Errorf("encoding bulk body: %w", err)
	}

	var result bulkResponse
	resp, err := c.rc.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/x-ndjson").
		SetBody(body).
		SetResult(&result).
		Post("/" + c.index + "/_bulk")
	if err != nil {
		return BulkReport{}, fmt.Errorf("bulk request: %w", err)
	}
	if resp.IsError() {
		return BulkReport{}, fmt.Errorf("bulk request returned status %d: %s", resp.StatusCode(), resp.String())
	}

	report := BulkReport{}
	for _, item := range result.Items {
		if item.Index.Status >= 200 && item.Index.Status < 300 {
			if item.Index.Result == "created" {
				report.Indexed++
			}
			continue
		}
		report.Failed++
		if item.Index.Error != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %s", item.Index.Error.Type, item.Index.Error.Reason))
		}
	}
	return report, nil
}

// CountBefore returns the number of documents with time < epoch.
func (c *Client) CountBefore(ctx context.Context, epoch int64) (uint64, error) {
	query := map[string]any{
		"query": map[string]any{
			"range": map[string]any{
				"time": map[string]any{"lt": epoch},
			},
		},
	}

	var result struct {
		Count uint64 `json:"count"`
	}
	resp, err := c.rc.R().
		SetContext(ctx).
		SetBody(query).
		SetResult(&result).
		Post("/" + c.index + "/_count")
	if err != nil {
		return 0, fmt.Errorf("count request: %w", err)
	}
	if resp.IsError() {
		return 0, fmt.Errorf("count request returned status %d: %s", resp.StatusCode(), resp.String())
	}
	return result.Count, nil
}

// SearchWindow returns up to searchPageSize documents with
// lowerBound <= time < epoch, sorted ascending by time, for the archiver's
// forward-progressing pagination.
func (c *Client) SearchWindow(ctx context.Context, epoch, lowerBound int64) ([]Document, error) {
	timeRange := map[string]any{"lt": epoch}
	if lowerBound > 0 {
		timeRange["gte"] = lowerBound
	}
	query := map[string]any{
		"query": map[string]any{
			"range": map[string]any{"time": timeRange},
		},
		"sort": []map[string]any{
			{"time": map[string]any{"order": "asc"}},
		},
		"size": searchPageSize,
	}

	var result struct {
		Hits struct {
			Hits []struct {
				ID     string       `json:"_id"`
				Source recordSource `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	resp, err := c.rc.R().
		SetContext(ctx).
		SetBody(query).
		SetResult(&result).
		Post("/" + c.index + "/_search")
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("search request returned status %d: %s", resp.StatusCode(), resp.String())
	}

	docs := make([]Document, 0, len(result.Hits.Hits))
	for _, hit := range result.Hits.Hits {
		docs = append(docs, Document{
			ID:     hit.ID,
			Record: fromSource(hit.Source),
		})
	}
	return docs, nil
}

func fromSource(src recordSource) *record.Record {
	r := &record.Record{
		Host:       src.Host,
		Request:    src.Request,
		Refer:      src.Refer,
		StatusCode: src.StatusCode,
		Size:       src.Size,
		UserAgent:  src.UserAgent,
		Time:       src.Time,
	}
	if src.IP != "" {
		r.IP = net.ParseIP(src.IP)
	}
	if src.AltIP != "" {
		r.AltIP = net.ParseIP(src.AltIP)
	}
	return r
}

// DeleteByQueryBefore deletes every document with time < epoch.
func (c *Client) DeleteByQueryBefore(ctx context.Context, epoch int64) error {
	query := map[string]any{
		"query": map[string]any{
			"range": map[string]any{
				"time": map[string]any{"lt": epoch},
			},
		},
	}

	resp, err := c.rc.R().
		SetContext(ctx).
		SetBody(query).
		Post("/" + c.index + "/_delete_by_query")
	if err != nil {
		return fmt.Errorf("delete_by_query request: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("delete_by_query returned status %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}

// Health performs the cluster health-check GET / used at startup.
func (c *Client) Health(ctx context.Context) (map[string]any, error) {
	var result map[string]any
	resp, err := c.rc.R().SetContext(ctx).SetResult(&result).Get("/")
	if err != nil {
		return nil, fmt.Errorf("health request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("health request returned status %d", resp.StatusCode())
	}
	return result, nil
}

// GetMapping fetches the current mapping for the bound index. ok is false
// when the index does not exist (404).
func (c *Client) GetMapping(ctx context.Context) (Schema, bool, error) {
	resp, err := c.rc.R().SetContext(ctx).Get("/" + c.index)
	if err != nil {
		return Schema{}, false, fmt.Errorf("get index request: %w", err)
	}
	if resp.StatusCode() == 404 {
		return Schema{}, false, nil
	}
	if resp.IsError() {
		return Schema{}, false, fmt.Errorf("get index returned status %d: %s", resp.StatusCode(), resp.String())
	}

	var wrapped map[string]struct {
		Mappings SchemaMappings `json:"mappings"`
	}
	if err := decodeJSON(resp.Body(), &wrapped); err != nil {
		return Schema{}, false, fmt.Errorf("decoding mapping response: %w", err)
	}
	entry, ok := wrapped[c.index]
	if !ok {
		return Schema{}, false, fmt.Errorf("mapping response missing index %q", c.index)
	}
	return Schema{Mappings: entry.Mappings}, true, nil
}

// CreateIndex PUTs the fixed schema and reports whether the cluster
// acknowledged creation.
func (c *Client) CreateIndex(ctx context.Context) (bool, error) {
	var result struct {
		Acknowledged bool `json:"acknowledged"`
	}
	resp, err := c.rc.R().
		SetContext(ctx).
		SetBody(ExpectedSchema()).
		SetResult(&result).
		Put("/" + c.index)
	if err != nil {
		return false, fmt.Errorf("create index request: %w", err)
	}
	if resp.IsError() {
		return false, fmt.Errorf("create index returned status %d: %s", resp.StatusCode(), resp.String())
	}
	return result.Acknowledged, nil
}

func encodeBulkBody(records []*record.Record) ([]byte, error) {
	var buf []byte
	for _, r := range records {
		action, err := encodeJSON(bulkAction{Index: bulkActionMeta{ID: r.ID()}})
		if err != nil {
			return nil, err
		}
		source, err := encodeJSON(toSource(r))
		if err != nil {
			return nil, err
		}
		buf = append(buf, action...)
		buf = append(buf, '\n')
		buf = append(buf, source...)
		buf = append(buf, '\n')
	}
	return buf, nil
}

func encodeJSON(v any) ([]byte, error) {
	return json.Marshal(v)
}

func decodeJSON(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
