// Package remote talks to the sync server over HTTP JSON and classifies its
// failures into the transport/rejected taxonomy the engine retries on.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"arcana/internal/common"
	"arcana/internal/models"
	"arcana/internal/shared"
)

// TokenProvider supplies the current bearer token. It is called per request
// so a refreshed token is picked up without rebuilding the client.
type TokenProvider func() string

// Gateway is the remote side of the sync protocol as the engine sees it.
type Gateway interface {
	// Delta performs one combined push/pull exchange.
	Delta(ctx context.Context, req common.DeltaRequest) (*common.DeltaResponse, error)

	// FetchUpdatedSince pulls one table's records changed after since. A nil
	// since fetches everything.
	FetchUpdatedSince(ctx context.Context, table models.Table, since *time.Time) ([]json.RawMessage, error)

	// Upsert pushes a single record to the remote table.
	Upsert(ctx context.Context, table models.Table, data json.RawMessage) error

	// Delete soft-deletes a single remote record.
	Delete(ctx context.Context, table models.Table, id string) error
}

// HTTPGateway implements Gateway against the server's /api/v1 surface.
type HTTPGateway struct {
	httpClient *http.Client
	baseURL    string
	token      TokenProvider
}

// NewHTTPGateway returns a gateway for the given base URL. A nil httpClient
// falls back to a client with a 30 second timeout.
func NewHTTPGateway(httpClient *http.Client, baseURL string, token TokenProvider) *HTTPGateway {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPGateway{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		token:      token,
	}
}

func (g *HTTPGateway) Delta(ctx context.Context, req common.DeltaRequest) (*common.DeltaResponse, error) {
	var out common.DeltaResponse
	if err := g.do(ctx, http.MethodPost, "/sync/delta", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (g *HTTPGateway) FetchUpdatedSince(ctx context.Context, table models.Table, since *time.Time) ([]json.RawMessage, error) {
	if !models.Syncable(table) {
		return nil, shared.ErrTableNotSyncable
	}
	path := "/sync/" + string(table)
	if since != nil {
		path += "?since=" + url.QueryEscape(since.UTC().Format(time.RFC3339Nano))
	}
	var out struct {
		Records []json.RawMessage `json:"records"`
	}
	if err := g.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Records, nil
}

func (g *HTTPGateway) Upsert(ctx context.Context, table models.Table, data json.RawMessage) error {
	if !models.Syncable(table) {
		return shared.ErrTableNotSyncable
	}
	return g.do(ctx, http.MethodPut, "/sync/"+string(table), data, nil)
}

func (g *HTTPGateway) Delete(ctx context.Context, table models.Table, id string) error {
	if !models.Syncable(table) {
		return shared.ErrTableNotSyncable
	}
	return g.do(ctx, http.MethodDelete, "/sync/"+string(table)+"/"+url.PathEscape(id), nil, nil)
}

type errorBody struct {
	Error string `json:"error"`
}

// do runs one JSON round trip. Network failures and 5xx responses come back
// as *shared.TransportError (retryable); 4xx responses as *shared.RejectedError.
func (g *HTTPGateway) do(ctx context.Context, method, path string, body any, out any) error {
	var r io.Reader
	if body != nil {
		switch b := body.(type) {
		case json.RawMessage:
			r = bytes.NewReader(b)
		default:
			buf, err := json.Marshal(body)
			if err != nil {
				return fmt.Errorf("failed to encode request body: %w", err)
			}
			r = bytes.NewReader(buf)
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+"/api/v1"+path, r)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.token != nil {
		if t := strings.TrimSpace(g.token()); t != "" {
			if !strings.HasPrefix(strings.ToLower(t), "bearer ") {
				t = "Bearer " + t
			}
			req.Header.Set(common.AuthHeaderName, t)
		}
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return &shared.TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &shared.TransportError{Err: fmt.Errorf("failed to decode response: %w", err)}
		}
		return nil
	}

	var eb errorBody
	_ = json.NewDecoder(resp.Body).Decode(&eb)
	reason := strings.TrimSpace(eb.Error)
	if reason == "" {
		reason = http.StatusText(resp.StatusCode)
	}
	if resp.StatusCode >= 500 {
		return &shared.TransportError{Err: fmt.Errorf("server status %d: %s", resp.StatusCode, reason)}
	}
	return &shared.RejectedError{StatusCode: resp.StatusCode, Reason: reason}
}
