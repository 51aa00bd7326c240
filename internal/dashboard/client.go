package dashboard

import (
	"context"
	"fmt"
	"strings"
	"time"

	"call-desk/internal/calls"
	"call-desk/internal/staff"

	"github.com/go-resty/resty/v2"
)

// Filter mirrors the list query parameters.
type Filter struct {
	Status     string // "" means all
	Time       string // "" means all
	From       string // custom range bounds, each optional
	To         string
	AssignedTo string
	Limit      int
}

// APIError is a non-2xx answer from the call API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("call api: status %d", e.StatusCode)
	}
	return fmt.Sprintf("call api: status %d: %s", e.StatusCode, e.Message)
}

// Change is one staff edit. Unassign clears the assignment explicitly.
type Change struct {
	ID         string
	Status     calls.TriageStatus
	AssignedTo string
	Unassign   bool
	UserID     string
}

// Client talks to the Query/Command API.
type Client struct {
	http *resty.Client
}

func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	if token != "" {
		c.SetAuthToken(token)
	}
	return &Client{http: c}
}

type errorBody struct {
	Error string `json:"error"`
}

func (c *Client) ListCalls(ctx context.Context, f Filter) ([]calls.CallWithDetails, error) {
	params := map[string]string{}
	if f.Status != "" {
		params["status"] = f.Status
	}
	if f.Time != "" {
		params["time"] = f.Time
	}
	if f.Time == calls.RangeCustom {
		if f.From != "" {
			params["from"] = f.From
		}
		if f.To != "" {
			params["to"] = f.To
		}
	}
	if f.AssignedTo != "" {
		params["assigned_to"] = f.AssignedTo
	}
	if f.Limit > 0 {
		params["limit"] = fmt.Sprint(f.Limit)
	}

	var out struct {
		Calls []calls.CallWithDetails `json:"calls"`
	}
	var apiErr errorBody
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(&out).
		SetError(&apiErr).
		Get("/calls")
	if err != nil {
		return nil, fmt.Errorf("list calls: %w", err)
	}
	if resp.IsError() {
		return nil, &APIError{StatusCode: resp.StatusCode(), Message: apiErr.Error}
	}
	return out.Calls, nil
}

// CountOpen fetches the badge count.
func (c *Client) CountOpen(ctx context.Context) (int, error) {
	var out struct {
		Count int `json:"count"`
	}
	var apiErr errorBody
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("count_only", "true").
		SetResult(&out).
		SetError(&apiErr).
		Get("/calls")
	if err != nil {
		return 0, fmt.Errorf("count calls: %w", err)
	}
	if resp.IsError() {
		return 0, &APIError{StatusCode: resp.StatusCode(), Message: apiErr.Error}
	}
	return out.Count, nil
}

func (c *Client) Staff(ctx context.Context) ([]staff.Profile, error) {
	var out struct {
		Profiles []staff.Profile `json:"profiles"`
	}
	var apiErr errorBody
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		SetError(&apiErr).
		Get("/staff")
	if err != nil {
		return nil, fmt.Errorf("list staff: %w", err)
	}
	if resp.IsError() {
		return nil, &APIError{StatusCode: resp.StatusCode(), Message: apiErr.Error}
	}
	return out.Profiles, nil
}

// UpdateCall sends a PATCH and returns the server's view of the call.
func (c *Client) UpdateCall(ctx context.Context, ch Change) (calls.CallWithDetails, error) {
	body := map[string]any{"id": ch.ID}
	if ch.Status != "" {
		body["status"] = ch.Status
	}
	switch {
	case ch.Unassign:
		body["assigned_to"] = nil
	case ch.AssignedTo != "":
		body["assigned_to"] = ch.AssignedTo
	}
	if ch.UserID != "" {
		body["user_id"] = ch.UserID
	}

	var out calls.CallWithDetails
	var apiErr errorBody
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		SetResult(&out).
		SetError(&apiErr).
		Patch("/calls")
	if err != nil {
		return calls.CallWithDetails{}, fmt.Errorf("update call: %w", err)
	}
	if resp.IsError() {
		return calls.CallWithDetails{}, &APIError{StatusCode: resp.StatusCode(), Message: apiErr.Error}
	}
	return out, nil
}
