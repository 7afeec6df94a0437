// Package lifi implements a strongly-typed HTTP client for the general
// bridge/swap aggregator.
//
// Coverage: the quote endpoint, which prices a route across the
// aggregator's underlying bridges and DEXs and returns one executable
// transaction request.
//
// Notes:
// - Non-2xx responses carry a {message} body; the client surfaces it.
// - An API key is optional; unauthenticated requests may be rate-limited.
package lifi

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/MMN3003/stablebridge/src/bridge/domain"
	"github.com/MMN3003/stablebridge/src/bridge/registry"
)

var DefaultHTTPClient = &http.Client{Timeout: 30 * time.Second}

type Client struct {
	BaseURL   *url.URL
	HTTP      *http.Client
	APIKey    string
	UserAgent string
	Logger    zerolog.Logger

	reg *registry.Registry
}

var _ domain.Quoter = (*Client)(nil)

// Option functional options
type Option func(*Client)

func WithAPIKey(key string) Option         { return func(c *Client) { c.APIKey = key } }
func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.HTTP = h } }
func WithLogger(l zerolog.Logger) Option   { return func(c *Client) { c.Logger = l } }

// NewClient constructs a new aggregator client. The chain registry is
// needed to translate chain names into the aggregator's numeric ids.
func NewClient(baseURL string, reg *registry.Registry, opts ...Option) (*Client, error) {
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
		reg:       reg,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) Name() string { return "lifi" }

type quoteResponse struct {
	Tool        string `json:"tool"`
	ToolDetails struct {
		Name string `json:"name"`
	} `json:"toolDetails"`
	Estimate struct {
		ToAmount          string `json:"toAmount"`
		ExecutionDuration int    `json:"executionDuration"`
		ApprovalAddress   string `json:"approvalAddress"`
		FeeCosts          []struct {
			Percentage string `json:"percentage"`
		} `json:"feeCosts"`
	} `json:"estimate"`
	TransactionRequest struct {
		To       string `json:"to"`
		Data     string `json:"data"`
		Value    string `json:"value"`
		GasLimit string `json:"gasLimit"`
	} `json:"transactionRequest"`
}

type errorResponse struct {
	Message string `json:"message"`
}

// Quote prices the requested move and returns the executable plan. The
// expected output is parsed with the destination asset's own precision:
// the destination token may well not share the source token's decimals.
func (c *Client) Quote(ctx context.Context, req domain.QuoteRequest) (*domain.Quote, error) {
	fromChain, err := c.chainKey(req.Source)
	if err != nil {
		return nil, err
	}
	toChain, err := c.chainKey(req.Dest)
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("fromChain", fromChain)
	query.Set("toChain", toChain)
	query.Set("fromToken", req.FromToken)
	query.Set("toToken", req.ToToken)
	query.Set("fromAmount", domain.AmountToUnits(req.Amount, req.FromDecimals).String())
	query.Set("fromAddress", req.FromAddress)
	if req.ToAddress != "" {
		query.Set("toAddress", req.ToAddress)
	}

	var body quoteResponse
	if err := c.do(ctx, http.MethodGet, "/v1/quote", query, &body); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrQuoteFailed, err)
	}

	rawOut, ok := new(big.Int).SetString(body.Estimate.ToAmount, 10)
	if !ok {
		return nil, fmt.Errorf("%w: bad toAmount %q", domain.ErrQuoteFailed, body.Estimate.ToAmount)
	}
	amountOut := domain.AmountFromUnits(rawOut, req.ToDecimals)

	feePct := decimal.Zero
	for _, fee := range body.Estimate.FeeCosts {
		if pct, err := decimal.NewFromString(fee.Percentage); err == nil {
			feePct = feePct.Add(pct)
		}
	}

	step, err := decodeStep(body.TransactionRequest.To, body.TransactionRequest.Data,
		body.TransactionRequest.Value, body.TransactionRequest.GasLimit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrQuoteFailed, err)
	}
	if step.To == "" || len(step.Data) == 0 {
		return nil, fmt.Errorf("%w: missing transaction request", domain.ErrEmptyPlan)
	}

	tool := body.ToolDetails.Name
	if tool == "" {
		tool = body.Tool
	}

	plan := domain.TxPlan{Steps: []domain.TxStep{step}}
	if req.FromToken != domain.NativeTokenAddress && body.Estimate.ApprovalAddress != "" {
		plan.ApprovalSpender = body.Estimate.ApprovalAddress
		plan.ApprovalToken = req.FromToken
	}

	return &domain.Quote{
		ID:               uuid.New().String(),
		Source:           req.Source,
		Dest:             req.Dest,
		AmountIn:         req.Amount,
		AmountOut:        amountOut,
		Fee:              req.Amount.Mul(feePct),
		FeePercent:       feePct.Mul(decimal.NewFromInt(100)),
		EstimatedSeconds: body.Estimate.ExecutionDuration,
		Tool:             tool,
		Plan:             plan,
		CreatedAt:        time.Now().UTC(),
	}, nil
}

// chainKey maps a chain onto the aggregator's identifier: the numeric
// chain id for EVM chains, the chain symbol otherwise.
func (c *Client) chainKey(chain domain.Chain) (string, error) {
	cfg, ok := c.reg.ConfigFor(chain)
	if !ok {
		return "", fmt.Errorf("%w: %s", domain.ErrUnsupportedChain, chain)
	}
	if cfg.EVM {
		return cfg.ChainID.String(), nil
	}
	return strings.ToUpper(cfg.NativeSymbol), nil
}

func (c *Client) do(ctx context.Context, method, p string, query url.Values, out any) error {
	u := *c.BaseURL
	u.Path = strings.TrimRight(u.Path, "/") + p
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, method, u.String(), nil)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	if c.APIKey != "" {
		req.Header.Set("x-lifi-api-key", c.APIKey)
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	start := time.Now()
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("http do: %w", err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}

	c.Logger.Info().
		Str("method", method).
		Str("url", u.String()).
		Int("status", resp.StatusCode).
		Str("duration", time.Since(start).String()).
		Msg("aggregator response")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e errorResponse
		if json.Unmarshal(b, &e) == nil && e.Message != "" {
			return fmt.Errorf("aggregator error: %s", e.Message)
		}
		return fmt.Errorf("http error %d: %s", resp.StatusCode, string(b))
	}

	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

// decodeStep parses a raw transaction template (hex to/data/value/gas).
func decodeStep(to, data, value, gasLimit string) (domain.TxStep, error) {
	step := domain.TxStep{To: to}

	if data != "" {
		raw, err := hex.DecodeString(strings.TrimPrefix(data, "0x"))
		if err != nil {
			return step, fmt.Errorf("bad calldata: %v", err)
		}
		step.Data = raw
	}
	if value != "" {
		v, ok := new(big.Int).SetString(strings.TrimPrefix(value, "0x"), 16)
		if !ok {
			return step, fmt.Errorf("bad value %q", value)
		}
		step.Value = v
	}
	if gasLimit != "" {
		g, ok := new(big.Int).SetString(strings.TrimPrefix(gasLimit, "0x"), 16)
		if !ok {
			return step, fmt.Errorf("bad gas limit %q", gasLimit)
		}
		step.GasLimit = g.Uint64()
	}
	return step, nil
}
