// Package backend is the REST client for the voice agent backend: it
// issues session credentials and runs retrieval queries.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ak7270090/Real-time-Voice-AI-Orchestration/internal/models"
	"github.com/ak7270090/Real-time-Voice-AI-Orchestration/internal/observability/logging"
	"github.com/ak7270090/Real-time-Voice-AI-Orchestration/internal/schema"
)

const defaultTimeout = 30 * time.Second

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// Client talks to the backend over JSON.
type Client struct {
	baseURL   string
	http      *http.Client
	validator *schema.Validator
	logger    zerolog.Logger
}

// NewClient creates a client for baseURL, ex: "http://localhost:8000".
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      &http.Client{Timeout: defaultTimeout},
		validator: schema.New(),
		logger:    logging.WithComponent("backend"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIError is a non-2xx backend response.
type APIError struct {
	Status int
	// Detail is the backend's "detail" message, empty when the body did not
	// carry one as a string.
	Detail string
	// Body is the start of the raw response body, for logs only.
	Body string
}

func (e *APIError) Error() string {
	switch {
	case e.Detail != "":
		return fmt.Sprintf("backend: API error (status %d): %s", e.Status, e.Detail)
	case e.Body != "":
		return fmt.Sprintf("backend: API error (status %d): %s", e.Status, e.Body)
	default:
		return fmt.Sprintf("backend: API error (status %d)", e.Status)
	}
}

// ServerMessage returns the message reported by the backend, or "" when
// the response carried none.
func (e *APIError) ServerMessage() string {
	return e.Detail
}

// IssueCredential requests a session credential for the room.
func (c *Client) IssueCredential(ctx context.Context, roomName, participantName string) (models.Credential, error) {
	var cred models.Credential
	req := models.TokenRequest{RoomName: roomName, ParticipantName: participantName}
	if err := c.post(ctx, "/generate-token", req, &cred); err != nil {
		return models.Credential{}, err
	}
	if err := c.validator.Validate(cred); err != nil {
		return models.Credential{}, fmt.Errorf("backend: invalid credential: %w", err)
	}
	return cred, nil
}

// Retrieve runs a retrieval query and returns the hits in backend order.
func (c *Client) Retrieve(ctx context.Context, query string) ([]models.SourceHit, error) {
	var resp models.QueryResponse
	if err := c.post(ctx, "/query", models.QueryRequest{Query: query}, &resp); err != nil {
		return nil, err
	}
	if err := c.validator.Validate(resp); err != nil {
		return nil, fmt.Errorf("backend: invalid query response: %w", err)
	}

	hits := make([]models.SourceHit, 0, len(resp.Results))
	for _, r := range resp.Results {
		hits = append(hits, r.ToSourceHit())
	}
	return hits, nil
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("backend: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("backend: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("backend: request %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug().
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("Backend request completed")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return &APIError{Status: resp.StatusCode, Detail: detailOf(respBody), Body: excerpt(respBody)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("backend: decode %s response: %w", path, err)
	}
	return nil
}

// detailOf extracts the string "detail" field of an error body.
func detailOf(body []byte) string {
	var envelope struct {
		Detail any `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return ""
	}
	detail, _ := envelope.Detail.(string)
	return strings.TrimSpace(detail)
}

func excerpt(body []byte) string {
	const limit = 256
	s := strings.TrimSpace(string(body))
	if len(s) > limit {
		s = s[:limit] + "..."
	}
	return s
}
