// Package chain is the read-only gateway to the chain RPC.
//
// The client performs no caching and no retries: callers decide what a
// missing or failed lookup means. A transaction the RPC answers 404 for is
// reported as sentinel.ErrNotFound; every other failure is a *GatewayError.
package chain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"ons/pkg/platform/sentinel"
)

const (
	endpointTx           = "tx"
	endpointBalance      = "balance"
	endpointTransactions = "transactions"

	defaultTimeout   = 10 * time.Second
	defaultListLimit = 50
	maxBodyBytes     = 4 << 20
)

// Client talks to the chain RPC over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
	metrics *Metrics
	tracer  trace.Tracer
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// New constructs a Client for the RPC at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
		tracer:  otel.Tracer("ons/internal/chain"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetTransaction fetches a transaction by hash.
func (c *Client) GetTransaction(ctx context.Context, hash string) (*Transaction, error) {
	ctx, span := c.tracer.Start(ctx, "chain.GetTransaction", trace.WithAttributes(attribute.String("tx_hash", hash)))
	defer span.End()

	var raw rpcTransaction
	if err := c.get(ctx, endpointTx, "/tx/"+url.PathEscape(hash), &raw); err != nil {
		recordErr(span, err)
		return nil, err
	}
	tx, err := raw.toTransaction(hash)
	if err != nil {
		gerr := newGatewayError(ErrorDecode, endpointTx, 0, fmt.Errorf("parse amount: %w", err))
		recordErr(span, gerr)
		return nil, gerr
	}
	span.SetAttributes(attribute.String("tx_status", string(tx.Status)))
	return tx, nil
}

// GetBalance fetches the balance of an address.
func (c *Client) GetBalance(ctx context.Context, address string) (*Balance, error) {
	ctx, span := c.tracer.Start(ctx, "chain.GetBalance", trace.WithAttributes(attribute.String("address", address)))
	defer span.End()

	var raw rpcBalance
	if err := c.get(ctx, endpointBalance, "/balance/"+url.PathEscape(address), &raw); err != nil {
		recordErr(span, err)
		return nil, err
	}
	bal, err := parseDecimal(raw.Balance)
	if err != nil {
		gerr := newGatewayError(ErrorDecode, endpointBalance, 0, fmt.Errorf("parse balance: %w", err))
		recordErr(span, gerr)
		return nil, gerr
	}
	return &Balance{Balance: bal, BalanceRaw: raw.BalanceRaw}, nil
}

// ListTransactions returns up to limit recent transactions touching address.
func (c *Client) ListTransactions(ctx context.Context, address string, limit int) ([]Transaction, error) {
	ctx, span := c.tracer.Start(ctx, "chain.ListTransactions", trace.WithAttributes(attribute.String("address", address)))
	defer span.End()

	if limit <= 0 {
		limit = defaultListLimit
	}
	path := "/transactions/" + url.PathEscape(address) + "?limit=" + strconv.Itoa(limit)
	var raw rpcTransactionList
	if err := c.get(ctx, endpointTransactions, path, &raw); err != nil {
		recordErr(span, err)
		return nil, err
	}
	txs := make([]Transaction, 0, len(raw.Transactions))
	for i := range raw.Transactions {
		tx, err := raw.Transactions[i].toTransaction("")
		if err != nil {
			// one malformed entry should not hide the rest of the history
			continue
		}
		txs = append(txs, *tx)
	}
	span.SetAttributes(attribute.Int("count", len(txs)))
	return txs, nil
}

func (c *Client) get(ctx context.Context, endpoint, path string, out any) error {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		c.metrics.observe(endpoint, "error", start)
		return newGatewayError(ErrorTransport, endpoint, 0, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.observe(endpoint, "error", start)
		return newGatewayError(ErrorTransport, endpoint, 0, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		c.metrics.observe(endpoint, "not_found", start)
		return fmt.Errorf("%s %s: %w", endpoint, path, sentinel.ErrNotFound)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		c.metrics.observe(endpoint, "error", start)
		return newGatewayError(ErrorStatus, endpoint, resp.StatusCode, nil)
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(out); err != nil {
		c.metrics.observe(endpoint, "error", start)
		return newGatewayError(ErrorDecode, endpoint, 0, err)
	}
	c.metrics.observe(endpoint, "ok", start)
	return nil
}

func parseDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

func recordErr(span trace.Span, err error) {
	if errors.Is(err, sentinel.ErrNotFound) {
		span.SetAttributes(attribute.Bool("not_found", true))
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
