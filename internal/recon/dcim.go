package recon

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

// DCIMClient fetches asset serial numbers from a dcTrack instance so they
// can be diffed against the asset database.
type DCIMClient struct {
	endpoint   string
	username   string
	password   string
	httpClient *http.Client
}

// NewDCIMClient creates a client for the dcTrack API root at endpoint.
func NewDCIMClient(endpoint, username, password string, insecure bool) *DCIMClient {
	httpClient := &http.Client{}
	if insecure {
		httpClient.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}
	return &DCIMClient{
		endpoint:   strings.TrimRight(endpoint, "/"),
		username:   username,
		password:   password,
		httpClient: httpClient,
	}
}

// Serials returns every non-empty asset serial number known to the DCIM,
// verbatim. Callers normalize case when comparing.
func (c *DCIMClient) Serials(ctx context.Context) ([]string, error) {
	body := map[string]any{
		"columns": []map[string]any{
			{"name": "tiSerialNumber", "filter": map[string]any{"contains": []string{}}},
		},
		"selectedColumns": []map[string]any{
			{"name": "tiSerialNumber"},
		},
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, fmt.Errorf("encode dcim query: %w", err)
	}

	url := c.endpoint + "/api/v2/quicksearch/items?pageNumber=0&pageSize=0"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return nil, fmt.Errorf("build dcim request: %w", err)
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query dcim: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("query dcim: status %d: %s", resp.StatusCode, msg)
	}

	var out struct {
		SearchResults struct {
			Items []struct {
				SerialNumber string `json:"tiSerialNumber"`
			} `json:"items"`
		} `json:"searchResults"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode dcim response: %w", err)
	}

	var serials []string
	for _, item := range out.SearchResults.Items {
		if item.SerialNumber == "" {
			continue
		}
		serials = append(serials, item.SerialNumber)
	}
	return serials, nil
}
