package repositories

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"
)

// SupabaseREST is a thin client for the project's PostgREST and GoTrue
// surfaces, authenticated with the service-role key.
type SupabaseREST struct {
	baseURL    *url.URL
	serviceKey string
	httpClient *http.Client
	logger     *slog.Logger
}

type SupabaseRESTConfig struct {
	ProjectURL     string
	ServiceRoleKey string
	HTTPClient     *http.Client
	Logger         *slog.Logger
}

func NewSupabaseREST(cfg SupabaseRESTConfig) (*SupabaseREST, error) {
	if strings.TrimSpace(cfg.ProjectURL) == "" || strings.TrimSpace(cfg.ServiceRoleKey) == "" {
		return nil, errors.New("supabase: project url and service role key are required")
	}
	u, err := url.Parse(strings.TrimSpace(cfg.ProjectURL))
	if err != nil {
		return nil, fmt.Errorf("parse project url: %w", err)
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &SupabaseREST{
		baseURL:    u,
		serviceKey: cfg.ServiceRoleKey,
		httpClient: client,
		logger:     logger,
	}, nil
}

func (c *SupabaseREST) do(ctx context.Context, method, p string, query url.Values, payload any, extra http.Header) ([]byte, error) {
	endpoint := *c.baseURL
	endpoint.Path = path.Join(endpoint.Path, p)
	if query != nil {
		endpoint.RawQuery = query.Encode()
	}

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode payload: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("apikey", c.serviceKey)
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	req.Header.Set("Content-Type", "application/json")
	for k, vs := range extra {
		for _, v := range vs {
			req.Header.Set(k, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("supabase request: %w", err)
	}
	defer resp.Body.Close()

	b, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		c.logger.Warn("supabase request failed", "op", method+" "+p, "status", resp.StatusCode)
		return nil, &SupabaseError{StatusCode: resp.StatusCode, Status: resp.Status, Body: strings.TrimSpace(string(b))}
	}
	return b, nil
}

// Select runs a filtered GET against /rest/v1/{table} and decodes the row set.
func (c *SupabaseREST) Select(ctx context.Context, table string, query url.Values, out any) error {
	b, err := c.do(ctx, http.MethodGet, "/rest/v1/"+table, query, nil, nil)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}

// Patch updates the rows matched by the query filter.
func (c *SupabaseREST) Patch(ctx context.Context, table string, query url.Values, payload any) error {
	headers := http.Header{"Prefer": []string{"return=minimal"}}
	_, err := c.do(ctx, http.MethodPatch, "/rest/v1/"+table, query, payload, headers)
	return err
}

// Delete removes the rows matched by the query filter.
func (c *SupabaseREST) Delete(ctx context.Context, table string, query url.Values) error {
	_, err := c.do(ctx, http.MethodDelete, "/rest/v1/"+table, query, nil, nil)
	return err
}

// AdminDeleteUser removes the auth account itself via the GoTrue admin API,
// making re-login impossible.
func (c *SupabaseREST) AdminDeleteUser(ctx context.Context, userID string) error {
	_, err := c.do(ctx, http.MethodDelete, "/auth/v1/admin/users/"+url.PathEscape(userID), nil, nil, nil)
	return err
}

// SupabaseError is a non-success response from the Supabase project,
// surfaced with the upstream status and body.
type SupabaseError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *SupabaseError) Error() string {
	if e == nil {
		return "<nil>"
	}
	bt := strings.TrimSpace(e.Body)
	if bt == "" {
		return fmt.Sprintf("supabase error: %s", e.Status)
	}
	return fmt.Sprintf("supabase error: %s: %s", e.Status, bt)
}
