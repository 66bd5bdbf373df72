// Package workdeck is the REST client for the Workdeck event store. One
// Client is created per signed-in user; it authenticates every request with
// that user's API token.
package workdeck

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"

	"github.com/workdeck/planner/internal/plugins/calendar"
)

// userAgent is sent with every request.
const userAgent = "workdeck-planner/1.0"

// maxErrorBody caps how much of a failed response is kept for logging.
const maxErrorBody = 4 << 10

// APIError is returned for any non-2xx response.
type APIError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("workdeck %s %s: status %d: %s", e.Method, e.Path, e.Status, e.Body)
}

// Client talks to the Workdeck events endpoints. It implements
// calendar.EventAPI.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

var _ calendar.EventAPI = (*Client)(nil)

// uaTransport adds the planner user agent to each request.
type uaTransport struct {
	base http.RoundTripper
}

// RoundTrip sets the User-Agent header and delegates.
func (t *uaTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", userAgent)
	return t.base.RoundTrip(req)
}

// NewClient creates a client for baseURL authenticating with token. timeout
// bounds every request including reading the body.
func NewClient(baseURL, token string, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	transport := &oauth2.Transport{
		Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}),
		Base:   &uaTransport{base: http.DefaultTransport},
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Transport: transport, Timeout: timeout},
		logger:  logger.With(slog.String("component", "workdeck")),
	}
}

// listResponse is the envelope of list endpoints.
type listResponse struct {
	Data  []calendar.RemoteEvent `json:"data"`
	Total int                    `json:"total"`
}

// taskEventRequest is the body of a create-from-task call.
type taskEventRequest struct {
	Title           string `json:"title"`
	StartAt         string `json:"startAt"`
	DurationMinutes int    `json:"durationMinutes"`
}

// ListEvents returns the events overlapping [from, to).
func (c *Client) ListEvents(ctx context.Context, from, to time.Time) ([]calendar.RemoteEvent, error) {
	q := url.Values{}
	q.Set("from", from.Format(time.RFC3339))
	q.Set("to", to.Format(time.RFC3339))

	var out listResponse
	if err := c.do(ctx, http.MethodGet, "/events?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	c.logger.Debug("listed events", slog.Int("count", len(out.Data)))
	return out.Data, nil
}

// CreateEvent creates an event and returns it with its assigned id.
func (c *Client) CreateEvent(ctx context.Context, payload calendar.EventPayload) (*calendar.RemoteEvent, error) {
	var out calendar.RemoteEvent
	if err := c.do(ctx, http.MethodPost, "/events", payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateEvent applies patch to the event with id.
func (c *Client) UpdateEvent(ctx context.Context, id string, patch calendar.EventPatch) error {
	return c.do(ctx, http.MethodPatch, "/events/"+url.PathEscape(id), patch, nil)
}

// DeleteEvent deletes the event with id.
func (c *Client) DeleteEvent(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/events/"+url.PathEscape(id), nil, nil)
}

// CreateEventFromTask schedules a task as an event starting at startAt.
func (c *Client) CreateEventFromTask(ctx context.Context, taskID, title string, startAt time.Time, durationMinutes int) (*calendar.RemoteEvent, error) {
	body := taskEventRequest{
		Title:           title,
		StartAt:         startAt.Format(time.RFC3339),
		DurationMinutes: durationMinutes,
	}
	var out calendar.RemoteEvent
	if err := c.do(ctx, http.MethodPost, "/tasks/"+url.PathEscape(taskID)+"/events", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// do sends a JSON request and decodes a JSON response into out when out is
// non-nil.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding %s %s body: %w", method, path, err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("workdeck %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("workdeck request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("latency", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{Method: method, Path: path, Status: resp.StatusCode, Body: string(bytes.TrimSpace(msg))}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s %s response: %w", method, path, err)
	}
	return nil
}
