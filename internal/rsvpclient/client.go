package rsvpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dukerupert/soiree/internal/model"
	"github.com/dukerupert/soiree/internal/rsvp"
)

// Error is a failed RSVP write as seen by the client.
type Error struct {
	Kind    rsvp.Kind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("rsvp update: %s (status %d)", e.Message, e.Status)
	}
	return "rsvp update: " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func kindForStatus(status int) rsvp.Kind {
	switch {
	case status == http.StatusUnauthorized:
		return rsvp.KindUnauthenticated
	case status == http.StatusForbidden:
		return rsvp.KindForbidden
	case status == http.StatusNotFound:
		return rsvp.KindNotFound
	case status == http.StatusBadRequest:
		return rsvp.KindInvalid
	case status >= 500:
		return rsvp.KindServerFault
	default:
		return rsvp.KindGeneric
	}
}

// Client sends RSVP writes to the server on behalf of one session. At most
// one write per RSVP id is outstanding at a time, however many controls
// share the client.
type Client struct {
	baseURL    string
	session    *http.Cookie
	httpClient *http.Client

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewClient creates a client that authenticates with the given session
// cookie.
func NewClient(baseURL string, session *http.Cookie) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		session: session,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		inFlight: make(map[string]struct{}),
	}
}

func (c *Client) acquire(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.inFlight[id]; busy {
		return false
	}
	c.inFlight[id] = struct{}{}
	return true
}

func (c *Client) release(id string) {
	c.mu.Lock()
	delete(c.inFlight, id)
	c.mu.Unlock()
}

type updateRequest struct {
	Status model.RsvpStatus `json:"status"`
}

// UpdateStatus asks the server to set RSVP id to status and returns the
// record the server stored. It returns ErrInFlight without contacting the
// server while another write for id is outstanding.
func (c *Client) UpdateStatus(ctx context.Context, id string, status model.RsvpStatus) (*model.Rsvp, error) {
	if !c.acquire(id) {
		return nil, ErrInFlight
	}
	defer c.release(id)

	body, err := json.Marshal(updateRequest{Status: status})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "PUT", c.baseURL+"/api/rsvps/"+url.PathEscape(id), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.session != nil {
		req.AddCookie(c.session)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		kind := rsvp.KindGeneric
		if errors.Is(err, context.DeadlineExceeded) {
			kind = rsvp.KindServerFault
		}
		return nil, &Error{Kind: kind, Message: kind.Message(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		kind := kindForStatus(resp.StatusCode)
		return nil, &Error{Kind: kind, Status: resp.StatusCode, Message: kind.Message()}
	}

	var rv model.Rsvp
	if err := json.NewDecoder(resp.Body).Decode(&rv); err != nil {
		return nil, &Error{Kind: rsvp.KindGeneric, Status: resp.StatusCode, Message: rsvp.KindGeneric.Message(), Err: err}
	}
	return &rv, nil
}
