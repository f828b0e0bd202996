// Package glpi is a hand-rolled client for the GLPI REST API. A Client
// exchanges its user token for a session token once, sends the session token
// on every call, and kills the session on Close.
package glpi

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// rangeStep is the page size for ranged listing. GLPI caps responses, so
// every listing walks ?range=N-M windows until the server reports the range
// is past the end.
const rangeStep = 50

// Sentinels GLPI returns in the error body once a ranged listing runs off the
// end of the table.
var rangeEndMarkers = []string{
	"ERROR_RANGE_EXCEED_TOTAL",
	"ERROR_RESOURCE_NOT_FOUND_NOR_COMMONDBTM",
}

// Client talks to one GLPI instance.
type Client struct {
	endpoint     string
	userToken    string
	sessionToken string
	httpClient   *http.Client
}

// NewClient creates a Client for the API root at endpoint (for example
// "https://glpi.example.com/apirest.php"). When insecure is true, TLS
// certificate verification is disabled for lab instances with self-signed
// certificates.
func NewClient(endpoint, userToken string, insecure bool) *Client {
	httpClient := &http.Client{}
	if insecure {
		httpClient.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}
	return &Client{
		endpoint:   strings.TrimRight(endpoint, "/"),
		userToken:  userToken,
		httpClient: httpClient,
	}
}

// APIError is a non-2xx response from GLPI, kept verbatim so callers can log
// it and move on to the next item.
type APIError struct {
	Status int
	Method string
	Path   string
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("glpi: %s %s: status %d: %s", e.Method, e.Path, e.Status, e.Body)
}

func (c *Client) doRequest(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, &buf)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.sessionToken != "" {
		req.Header.Set("Session-Token", c.sessionToken)
	} else {
		req.Header.Set("Authorization", "user_token "+c.userToken)
	}
	return c.httpClient.Do(req)
}

// Open exchanges the user token for a session token. Every other call
// requires an open session.
func (c *Client) Open(ctx context.Context) error {
	resp, err := c.doRequest(ctx, http.MethodGet, "/initSession", nil)
	if err != nil {
		return fmt.Errorf("init session: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &APIError{Status: resp.StatusCode, Method: http.MethodGet, Path: "/initSession", Body: string(body)}
	}
	var out struct {
		SessionToken string `json:"session_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("init session: decode: %w", err)
	}
	if out.SessionToken == "" {
		return fmt.Errorf("init session: empty session token")
	}
	c.sessionToken = out.SessionToken
	return nil
}

// Close kills the session. The client is unusable afterwards.
func (c *Client) Close(ctx context.Context) error {
	if c.sessionToken == "" {
		return nil
	}
	resp, err := c.doRequest(ctx, http.MethodGet, "/killSession", nil)
	if err != nil {
		return fmt.Errorf("kill session: %w", err)
	}
	defer resp.Body.Close()
	c.sessionToken = ""
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &APIError{Status: resp.StatusCode, Method: http.MethodGet, Path: "/killSession", Body: string(body)}
	}
	return nil
}

// ListAll fetches every item of the given type, walking the ranged pages
// until GLPI reports the range is exhausted.
func (c *Client) ListAll(ctx context.Context, itemType string) ([]json.RawMessage, error) {
	var items []json.RawMessage
	for start := 0; ; start += rangeStep {
		path := fmt.Sprintf("/%s/?range=%d-%d", itemType, start, start+rangeStep-1)
		resp, err := c.doRequest(ctx, http.MethodGet, path, nil)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", itemType, err)
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("list %s: read page: %w", itemType, err)
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			if rangeExhausted(body) {
				return items, nil
			}
			return nil, &APIError{Status: resp.StatusCode, Method: http.MethodGet, Path: path, Body: string(body)}
		}
		var page []json.RawMessage
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("list %s: decode page: %w", itemType, err)
		}
		if len(page) == 0 {
			return items, nil
		}
		items = append(items, page...)
		if len(page) < rangeStep {
			return items, nil
		}
	}
}

func rangeExhausted(body []byte) bool {
	for _, marker := range rangeEndMarkers {
		if bytes.Contains(body, []byte(marker)) {
			return true
		}
	}
	return false
}

// SearchID scans all items of the given type for the first one whose fields
// contain criteria as a subset, and returns its id. The second return is
// false when nothing matches.
func (c *Client) SearchID(ctx context.Context, itemType string, criteria map[string]any) (int, bool, error) {
	raw, err := c.ListAll(ctx, itemType)
	if err != nil {
		return 0, false, err
	}
	for _, item := range raw {
		var fields map[string]any
		if err := json.Unmarshal(item, &fields); err != nil {
			return 0, false, fmt.Errorf("search %s: decode item: %w", itemType, err)
		}
		if !subsetMatch(fields, criteria) {
			continue
		}
		id, ok := fields["id"]
		if !ok {
			return 0, false, fmt.Errorf("search %s: matching item has no id", itemType)
		}
		n, ok := id.(float64)
		if !ok {
			return 0, false, fmt.Errorf("search %s: item id %v is not numeric", itemType, id)
		}
		return int(n), true, nil
	}
	return 0, false, nil
}

// subsetMatch compares loosely typed JSON values by their printed form so a
// criteria int matches a decoded float64.
func subsetMatch(fields, criteria map[string]any) bool {
	for k, want := range criteria {
		got, ok := fields[k]
		if !ok || fmt.Sprint(got) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}

// Create POSTs a new item wrapped in the {"input": ...} envelope GLPI
// expects, and returns the server-assigned id.
func (c *Client) Create(ctx context.Context, itemType string, input any) (int, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/"+itemType+"/", map[string]any{"input": input})
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", itemType, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("create %s: read response: %w", itemType, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, &APIError{Status: resp.StatusCode, Method: http.MethodPost, Path: "/" + itemType + "/", Body: string(body)}
	}
	var out struct {
		ID int `json:"id"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return 0, fmt.Errorf("create %s: decode response: %w", itemType, err)
	}
	return out.ID, nil
}

// Update PUTs a partial update for one item, using the same input envelope
// as Create.
func (c *Client) Update(ctx context.Context, itemType string, id int, input any) error {
	path := fmt.Sprintf("/%s/%d", itemType, id)
	resp, err := c.doRequest(ctx, http.MethodPut, path, map[string]any{"input": input})
	if err != nil {
		return fmt.Errorf("update %s %d: %w", itemType, id, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return &APIError{Status: resp.StatusCode, Method: http.MethodPut, Path: path, Body: string(body)}
	}
	return nil
}

// Delete removes one item.
func (c *Client) Delete(ctx context.Context, itemType string, id int) error {
	path := fmt.Sprintf("/%s/%d", itemType, id)
	resp, err := c.doRequest(ctx, http.MethodDelete, path, nil)
	if err != nil {
		return fmt.Errorf("delete %s %d: %w", itemType, id, err)
	}
	defer resp.Body.Close()
	// A missing item is already deleted.
	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return &APIError{Status: resp.StatusCode, Method: http.MethodDelete, Path: path, Body: string(body)}
	}
	return nil
}

// EnsureItem returns the id of the item matching criteria, creating it from
// input when no match exists. The second return reports whether a create
// happened.
func (c *Client) EnsureItem(ctx context.Context, itemType string, criteria map[string]any, input any) (int, bool, error) {
	id, found, err := c.SearchID(ctx, itemType, criteria)
	if err != nil {
		return 0, false, err
	}
	if found {
		return id, false, nil
	}
	id, err = c.Create(ctx, itemType, input)
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}
