package api

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

	"github.com/goodtune/sitetime/internal/storage"
	"github.com/goodtune/sitetime/internal/usage"
)

// StatusError is returned by Client when the server answers with an error body.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: %d %s", e.Code, http.StatusText(e.Code))
	}
	return fmt.Sprintf("api: %d %s: %s", e.Code, http.StatusText(e.Code), e.Message)
}

// Client talks to a running tracker over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// SiteData fetches aggregated records for a period.
func (c *Client) SiteData(ctx context.Context, period usage.Period) (storage.DaySet, error) {
	var resp SiteDataResponse
	msg := Message{Action: ActionGetSiteData, Period: string(period)}
	if err := c.do(ctx, http.MethodPost, "/api/message", msg, &resp); err != nil {
		return nil, err
	}
	return nonNil(resp.Data), nil
}

// Day fetches the records of one date.
func (c *Client) Day(ctx context.Context, date string) (storage.DaySet, error) {
	var resp DayResponse
	if err := c.do(ctx, http.MethodGet, "/api/sites/"+url.PathEscape(date), nil, &resp); err != nil {
		return nil, err
	}
	return nonNil(resp.Data), nil
}

// ActiveDomain fetches the focused domain. ok is false when nothing tracked
// is focused.
func (c *Client) ActiveDomain(ctx context.Context) (domain string, ok bool, err error) {
	var resp ActiveDomainResponse
	msg := Message{Action: ActionGetActiveTabDomain}
	if err := c.do(ctx, http.MethodPost, "/api/message", msg, &resp); err != nil {
		return "", false, err
	}
	if resp.Domain == nil {
		return "", false, nil
	}
	return *resp.Domain, true, nil
}

// TabActivated reports a focus change.
func (c *Client) TabActivated(ctx context.Context, tabID int, rawURL string) error {
	req := TabActivatedRequest{TabID: tabID, URL: rawURL}
	return c.do(ctx, http.MethodPost, "/api/events/activated", req, nil)
}

// TabUpdated reports a navigation update.
func (c *Client) TabUpdated(ctx context.Context, update usage.TabUpdate) error {
	req := TabUpdatedRequest{
		TabID:  update.TabID,
		Status: update.Status,
		Active: update.Active,
		URL:    update.URL,
	}
	return c.do(ctx, http.MethodPost, "/api/events/updated", req, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return &StatusError{Code: resp.StatusCode, Message: apiErr.Message}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func nonNil(set storage.DaySet) storage.DaySet {
	if set == nil {
		return storage.DaySet{}
	}
	return set
}
