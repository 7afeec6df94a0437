// Package relay implements the HTTP client for the fast-relay bridging
// backend: a relayer fronts destination-chain funds immediately and
// recoups them from the source-chain transaction, trading a small fee for
// near-instant settlement.
//
// Coverage:
// - quote endpoint returning output, fee breakdown and a transaction plan
// - registered-chains listing, probed once at startup
package relay

import (
	"bytes"
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
	UserAgent string
	Logger    zerolog.Logger

	reg *registry.Registry
}

var _ domain.Quoter = (*Client)(nil)

// Option functional options
type Option func(*Client)

func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.HTTP = h } }
func WithLogger(l zerolog.Logger) Option   { return func(c *Client) { c.Logger = l } }

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

func (c *Client) Name() string { return "relay" }

type quoteRequest struct {
	SrcChainID int64  `json:"srcChainId"`
	DstChainID int64  `json:"dstChainId"`
	Token      string `json:"token"`
	Amount     string `json:"amount"`
	Sender     string `json:"sender"`
	Recipient  string `json:"recipient"`
}

type quoteResponse struct {
	OutputAmount    string  `json:"outputAmount"`
	Fee             string  `json:"fee"`
	FeePercent      float64 `json:"feePercent"`
	EstimatedTime   int     `json:"estimatedTime"`
	Tool            string  `json:"tool"`
	ApprovalAddress string  `json:"approvalAddress"`
	Steps           []struct {
		To       string `json:"to"`
		Data     string `json:"data"`
		Value    string `json:"value"`
		GasLimit uint64 `json:"gasLimit"`
	} `json:"steps"`
}

type chainsResponse struct {
	Chains []int64 `json:"chains"`
}

type errorResponse struct {
	Message string `json:"message"`
}

// Quote requests a fast-relay quote. Relay routes are same-asset, so the
// output shares the destination token's precision from the request.
func (c *Client) Quote(ctx context.Context, req domain.QuoteRequest) (*domain.Quote, error) {
	srcCfg, ok := c.reg.ConfigFor(req.Source)
	if !ok || !srcCfg.EVM {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedChain, req.Source)
	}
	dstCfg, ok := c.reg.ConfigFor(req.Dest)
	if !ok || !dstCfg.EVM {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedChain, req.Dest)
	}

	payload := quoteRequest{
		SrcChainID: srcCfg.ChainID.Int64(),
		DstChainID: dstCfg.ChainID.Int64(),
		Token:      req.FromToken,
		Amount:     domain.AmountToUnits(req.Amount, req.FromDecimals).String(),
		Sender:     req.FromAddress,
		Recipient:  req.ToAddress,
	}

	var body quoteResponse
	if err := c.do(ctx, http.MethodPost, "/v1/quote", payload, &body); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrQuoteFailed, err)
	}
	if len(body.Steps) == 0 {
		return nil, fmt.Errorf("%w: relay returned no steps", domain.ErrEmptyPlan)
	}

	rawOut, ok := new(big.Int).SetString(body.OutputAmount, 10)
	if !ok {
		return nil, fmt.Errorf("%w: bad outputAmount %q", domain.ErrQuoteFailed, body.OutputAmount)
	}
	rawFee := new(big.Int)
	if body.Fee != "" {
		if _, ok := rawFee.SetString(body.Fee, 10); !ok {
			return nil, fmt.Errorf("%w: bad fee %q", domain.ErrQuoteFailed, body.Fee)
		}
	}

	plan := domain.TxPlan{}
	for _, s := range body.Steps {
		step := domain.TxStep{To: s.To, GasLimit: s.GasLimit}
		if s.Data != "" {
			raw, err := hex.DecodeString(strings.TrimPrefix(s.Data, "0x"))
			if err != nil {
				return nil, fmt.Errorf("%w: bad step calldata: %v", domain.ErrQuoteFailed, err)
			}
			step.Data = raw
		}
		if s.Value != "" {
			v, ok := new(big.Int).SetString(s.Value, 10)
			if !ok {
				return nil, fmt.Errorf("%w: bad step value %q", domain.ErrQuoteFailed, s.Value)
			}
			step.Value = v
		}
		plan.Steps = append(plan.Steps, step)
	}
	if req.FromToken != domain.NativeTokenAddress && body.ApprovalAddress != "" {
		plan.ApprovalSpender = body.ApprovalAddress
		plan.ApprovalToken = req.FromToken
	}

	tool := body.Tool
	if tool == "" {
		tool = c.Name()
	}

	return &domain.Quote{
		ID:               uuid.New().String(),
		Source:           req.Source,
		Dest:             req.Dest,
		AmountIn:         req.Amount,
		AmountOut:        domain.AmountFromUnits(rawOut, req.ToDecimals),
		Fee:              domain.AmountFromUnits(rawFee, req.FromDecimals),
		FeePercent:       decimal.NewFromFloat(body.FeePercent),
		EstimatedSeconds: body.EstimatedTime,
		Tool:             tool,
		Plan:             plan,
		CreatedAt:        time.Now().UTC(),
	}, nil
}

// RegisteredChains asks the relay which chains it serves. Callers fall
// back to a static set when the probe fails.
func (c *Client) RegisteredChains(ctx context.Context) ([]domain.Chain, error) {
	var body chainsResponse
	if err := c.do(ctx, http.MethodGet, "/v1/chains", nil, &body); err != nil {
		return nil, err
	}

	byID := make(map[int64]domain.Chain)
	for _, chain := range c.reg.EVMChains() {
		cfg, _ := c.reg.ConfigFor(chain)
		byID[cfg.ChainID.Int64()] = chain
	}

	var out []domain.Chain
	for _, id := range body.Chains {
		if chain, ok := byID[id]; ok {
			out = append(out, chain)
		}
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, p string, payload, out any) error {
	u := *c.BaseURL
	u.Path = strings.TrimRight(u.Path, "/") + p

	var r io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		r = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), r)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
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
		Msg("relay response")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e errorResponse
		if json.Unmarshal(b, &e) == nil && e.Message != "" {
			return fmt.Errorf("relay error: %s", e.Message)
		}
		return fmt.Errorf("http error %d: %s", resp.StatusCode, string(b))
	}

	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}
