package idp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/dukerupert/soiree/internal/auth"
	"github.com/dukerupert/soiree/internal/model"
)

// Config holds identity provider configuration.
type Config struct {
	URL        string
	CookieName string
	Timeout    time.Duration
	Retries    uint64
	Backoff    time.Duration
}

type whoamiResponse struct {
	ID        string     `json:"id"`
	Active    bool       `json:"active"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Identity  struct {
		ID     string `json:"id"`
		Traits struct {
			Email string `json:"email"`
			Phone string `json:"phone"`
			Name  struct {
				First string `json:"first"`
				Last  string `json:"last"`
			} `json:"name"`
		} `json:"traits"`
	} `json:"identity"`
}

// Client validates session tokens against the identity provider's whoami
// endpoint. It implements auth.Validator.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient creates a new identity provider client.
func NewClient(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.Backoff == 0 {
		cfg.Backoff = 100 * time.Millisecond
	}
	if cfg.CookieName == "" {
		cfg.CookieName = "ory_kratos_session"
	}
	cfg.URL = strings.TrimRight(cfg.URL, "/")

	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Validate forwards token to the whoami endpoint, under the cookie name
// recorded by auth.WithCookieName or CookieName otherwise. Inactive sessions and
// 401/403 responses yield auth.ErrUnauthenticated. Transport failures and 5xx
// responses are retried a bounded number of times before being returned as
// faults.
func (c *Client) Validate(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, auth.ErrUnauthenticated
	}

	var wr whoamiResponse
	backoff := retry.WithMaxRetries(c.cfg.Retries, retry.NewExponential(c.cfg.Backoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var err error
		wr, err = c.whoami(ctx, token)
		return err
	})
	if err != nil {
		return nil, err
	}

	if !wr.Active || wr.Identity.ID == "" {
		return nil, auth.ErrUnauthenticated
	}
	if wr.ExpiresAt != nil && !wr.ExpiresAt.After(time.Now()) {
		return nil, auth.ErrUnauthenticated
	}

	traits := wr.Identity.Traits
	u := &model.User{
		ID:    wr.Identity.ID,
		Email: traits.Email,
		Name:  strings.TrimSpace(traits.Name.First + " " + traits.Name.Last),
	}
	if traits.Phone != "" {
		phone := traits.Phone
		u.Phone = &phone
	}
	return u, nil
}

func (c *Client) whoami(ctx context.Context, token string) (whoamiResponse, error) {
	var wr whoamiResponse

	req, err := http.NewRequestWithContext(ctx, "GET", c.cfg.URL+"/sessions/whoami", nil)
	if err != nil {
		return wr, fmt.Errorf("create request: %w", err)
	}
	name := c.cfg.CookieName
	if n, ok := auth.CookieName(ctx); ok {
		name = n
	}
	req.AddCookie(&http.Cookie{Name: name, Value: token})
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return wr, fmt.Errorf("whoami request: %w", err)
		}
		return wr, retry.RetryableError(fmt.Errorf("whoami request: %w", err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		io.Copy(io.Discard, resp.Body)
		return wr, auth.ErrUnauthenticated
	case resp.StatusCode >= 500:
		io.Copy(io.Discard, resp.Body)
		return wr, retry.RetryableError(fmt.Errorf("whoami: status %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return wr, fmt.Errorf("whoami: status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(&wr); err != nil {
		return wr, fmt.Errorf("decode response: %w", err)
	}
	return wr, nil
}
