// Package attestation implements the HTTP client for the burn-protocol
// attestation service.
//
// Coverage: a single GET-by-message-hash polling endpoint. While a burn is
// still being observed the service answers 404 or status pending; once the
// attesters have signed, the response carries the attestation payload and
// the original message bytes.
package attestation

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/MMN3003/stablebridge/src/bridge/domain"
)

var DefaultHTTPClient = &http.Client{Timeout: 30 * time.Second}

type Client struct {
	BaseURL   *url.URL
	HTTP      *http.Client
	UserAgent string
	Logger    zerolog.Logger
}

var _ domain.Attester = (*Client)(nil)

// Option functional options
type Option func(*Client)

func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.HTTP = h } }
func WithUserAgent(ua string) Option       { return func(c *Client) { c.UserAgent = ua } }
func WithLogger(l zerolog.Logger) Option   { return func(c *Client) { c.Logger = l } }

// NewClient constructs a client for the given attestation service base URL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("base url is required")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}

	c := &Client{
		BaseURL:   u,
		HTTP:      DefaultHTTPClient,
		UserAgent: "stablebridge/1.0",
		Logger:    log.Logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type attestationResponse struct {
	Status      string `json:"status"`
	Attestation string `json:"attestation"`
	Message     string `json:"message"`
}

// Attestation fetches the attestation state for a burn message hash. An
// unknown hash is reported as pending, not as an error, since the service
// only learns about a burn after enough confirmations.
func (c *Client) Attestation(ctx context.Context, messageHash string) (*domain.Attestation, error) {
	u := *c.BaseURL
	u.Path = strings.TrimRight(u.Path, "/") + "/v1/attestations/" + messageHash

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	start := time.Now()
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http do: %w", err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	c.Logger.Debug().
		Str("message_hash", messageHash).
		Int("status", resp.StatusCode).
		Str("duration", time.Since(start).String()).
		Msg("attestation poll")

	if resp.StatusCode == http.StatusNotFound {
		return &domain.Attestation{Status: domain.AttestationPending}, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("http error %d: %s", resp.StatusCode, string(b))
	}

	var body attestationResponse
	if err := json.Unmarshal(b, &body); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	out := &domain.Attestation{Status: body.Status}
	if body.Status != domain.AttestationComplete {
		return out, nil
	}
	if out.Attestation, err = decodeHex(body.Attestation); err != nil {
		return nil, fmt.Errorf("decode attestation: %w", err)
	}
	if body.Message != "" {
		if out.Message, err = decodeHex(body.Message); err != nil {
			return nil, fmt.Errorf("decode message: %w", err)
		}
	}
	return out, nil
}

func decodeHex(s string) ([]byte, error) {
	return hex.DecodeString(strings.TrimPrefix(s, "0x"))
}
