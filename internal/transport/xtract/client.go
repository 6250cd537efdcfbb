// Package xtract is the HTTP client for the letter-extraction ticket API.
// It implements the ticket.Source contract: token login, pending-ticket
// listing and match submission.
package xtract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Zaxis018/cbs-match-bot/internal/domain/record"
	"github.com/Zaxis018/cbs-match-bot/internal/usecase/ticket"
)

// tokenTTL is how long a login token is trusted before re-authenticating.
const tokenTTL = 5 * time.Minute

// Config holds connection parameters for the ticket API.
type Config struct {
	BaseURL  string
	Email    string
	Password string
	Timeout  time.Duration
}

// Client talks to the ticket API. Safe for concurrent use.
type Client struct {
	baseURL string
	email   string
	passwd  string
	http    *http.Client
	log     *zap.Logger

	mu        sync.Mutex
	token     string
	fetchedAt time.Time
}

var _ ticket.Source = (*Client)(nil)

// New creates a ticket API client.
func New(cfg Config, log *zap.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		email:   cfg.Email,
		passwd:  cfg.Password,
		http:    &http.Client{Timeout: timeout},
		log:     log,
	}, nil
}

// authToken returns a valid token, logging in again when the cached one is
// stale.
func (c *Client) authToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && time.Since(c.fetchedAt) < tokenTTL {
		return c.token, nil
	}

	body, err := json.Marshal(map[string]string{
		"email":    c.email,
		"password": c.passwd,
	})
	if err != nil {
		return "", fmt.Errorf("marshal login: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/users/token-auth/", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("login: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("login: unexpected status %d", resp.StatusCode)
	}

	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode login response: %w", err)
	}
	if out.AccessToken == "" {
		return "", fmt.Errorf("login: empty access token")
	}
	c.token = out.AccessToken
	c.fetchedAt = time.Now()
	c.log.Debug("ticket api token refreshed")
	return c.token, nil
}

// apiTicket mirrors the wire shape of one pending ticket.
type apiTicket struct {
	UUID   string     `json:"uuid"`
	Record record.Raw `json:"record"`
}

// FetchPending lists pending tickets in the date window.
func (c *Client) FetchPending(ctx context.Context, from, to time.Time) ([]ticket.Ticket, error) {
	token, err := c.authToken(ctx)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("processing_status", "pending")
	q.Set("date_from", from.Format("2006-01-02"))
	q.Set("date_to", to.Format("2006-01-02"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/letteraction/tickets/?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build tickets request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch tickets: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch tickets: unexpected status %d", resp.StatusCode)
	}

	var out struct {
		Results []apiTicket `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode tickets: %w", err)
	}

	tickets := make([]ticket.Ticket, 0, len(out.Results))
	for _, t := range out.Results {
		if t.UUID == "" {
			continue
		}
		tickets = append(tickets, ticket.Ticket{ID: t.UUID, Record: t.Record})
	}
	return tickets, nil
}

// SubmitMatches posts the matched rows for one ticket.
func (c *Client) SubmitMatches(ctx context.Context, ticketID string, matches []ticket.MatchEntry) error {
	token, err := c.authToken(ctx)
	if err != nil {
		return err
	}

	body, err := json.Marshal(map[string]any{"matches": matches})
	if err != nil {
		return fmt.Errorf("marshal matches: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/letteraction/tickets/%s/matches/create/", c.baseURL, ticketID),
		bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build submit request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("submit matches: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("submit matches: status %d: %s", resp.StatusCode, msg)
	}
	return nil
}
