// Package snow is a minimal ServiceNow Table API client covering the two
// operations the assistant needs: resolving a user by email and opening an
// incident.
package snow

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"
)

// Client talks to one ServiceNow instance with basic auth.
type Client struct {
	client   *http.Client
	baseURL  string
	user     string
	password string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Client) { s.client = c }
}

// WithBaseURL overrides the API base URL derived from the instance name.
func WithBaseURL(u string) Option {
	return func(s *Client) { s.baseURL = u }
}

// NewClient creates a client for the given instance, e.g.
// "dev12345.service-now.com".
func NewClient(user, password, instance string, opts ...Option) *Client {
	c := &Client{
		client:   &http.Client{Timeout: 10 * time.Second},
		baseURL:  fmt.Sprintf("https://%s/api/now", instance),
		user:     user,
		password: password,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// UserRecord is one sys_user row as returned by the Table API.
type UserRecord struct {
	SysID string `json:"sys_id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// LookupResult is the outcome of a user lookup. Status is the HTTP status
// on a completed exchange and zero when the instance could not be reached;
// Message carries user-facing error text for anything but a clean 200.
// Zero or multiple Records on a 200 is the caller's validation problem,
// not a protocol failure.
type LookupResult struct {
	Status  int
	Records []UserRecord
	Message string
}

// IncidentRequest is the payload for opening an incident. Description is
// written into both the description and comments fields, matching what the
// Table API expects from this integration.
type IncidentRequest struct {
	CallerID         string
	ShortDescription string
	Description      string
	Urgency          string
}

// IncidentResult is the created incident's identifying fields.
type IncidentResult struct {
	Number string `json:"number"`
	SysID  string `json:"sys_id"`
}

// LookupUser resolves an email address to sys_user records. Timeouts are
// converted to a structured result so callers can surface them as chat
// messages; any other transport failure is returned as an error.
func (c *Client) LookupUser(ctx context.Context, email string) (LookupResult, error) {
	lookupURL := fmt.Sprintf("%s/table/sys_user?sysparm_limit=1&email=%s", c.baseURL, url.QueryEscape(email))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, lookupURL, nil)
	if err != nil {
		return LookupResult{}, fmt.Errorf("snow: lookup request: %w", err)
	}
	c.prepare(req)

	resp, err := c.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return LookupResult{Message: "Could not connect to ServiceNow (Timeout)"}, nil
		}
		return LookupResult{}, fmt.Errorf("snow: lookup: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return LookupResult{}, fmt.Errorf("snow: lookup read: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return LookupResult{
			Status:  resp.StatusCode,
			Message: "ServiceNow error: " + extractError(body),
		}, nil
	}

	var parsed struct {
		Result []UserRecord `json:"result"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return LookupResult{}, fmt.Errorf("snow: lookup decode: %w", err)
	}
	return LookupResult{Status: http.StatusOK, Records: parsed.Result}, nil
}

// CreateIncident opens an incident for the given caller. No retry; a
// failure here propagates to the host framework's generic error path.
func (c *Client) CreateIncident(ctx context.Context, inc IncidentRequest) (IncidentResult, error) {
	payload, err := json.Marshal(map[string]string{
		"opened_by":         inc.CallerID,
		"short_description": inc.ShortDescription,
		"description":       inc.Description,
		"urgency":           inc.Urgency,
		"caller_id":         inc.CallerID,
		"comments":          inc.Description,
	})
	if err != nil {
		return IncidentResult{}, fmt.Errorf("snow: create marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/table/incident", bytes.NewReader(payload))
	if err != nil {
		return IncidentResult{}, fmt.Errorf("snow: create request: %w", err)
	}
	c.prepare(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return IncidentResult{}, fmt.Errorf("snow: create: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return IncidentResult{}, fmt.Errorf("snow: create read: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return IncidentResult{}, fmt.Errorf("snow: create (status %d): %s", resp.StatusCode, extractError(body))
	}

	var parsed struct {
		Result IncidentResult `json:"result"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return IncidentResult{}, fmt.Errorf("snow: create decode: %w", err)
	}
	return parsed.Result, nil
}

func (c *Client) prepare(req *http.Request) {
	req.SetBasicAuth(c.user, c.password)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
}

// extractError pulls the error message out of a ServiceNow error body,
// falling back to the raw body.
func extractError(body []byte) string {
	var parsed struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Message != "" {
		return parsed.Error.Message
	}
	return string(body)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
