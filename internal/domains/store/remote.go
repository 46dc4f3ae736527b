package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"ons/internal/domains/models"
	"ons/pkg/platform/sentinel"
)

// Remote is a client for an external registry CRUD service.
// Transport failures and 5xx responses wrap sentinel.ErrUnavailable.
type Remote struct {
	baseURL string
	token   string
	http    *http.Client
}

// RemoteOption configures a Remote store.
type RemoteOption func(*Remote)

// WithAdminToken sets the X-Admin-Token sent on writes.
func WithAdminToken(token string) RemoteOption {
	return func(r *Remote) {
		r.token = token
	}
}

func WithRemoteHTTPClient(hc *http.Client) RemoteOption {
	return func(r *Remote) {
		if hc != nil {
			r.http = hc
		}
	}
}

func NewRemote(baseURL string, timeout time.Duration, opts ...RemoteOption) *Remote {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	r := &Remote{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Remote) Create(ctx context.Context, rec *models.DomainRecord) error {
	id := rec.ID
	created := rec.CreatedAt
	body := CreateRecordRequest{
		ID:             &id,
		Domain:         rec.Domain,
		Address:        rec.OwnerAddress,
		TxHash:         rec.TxHash,
		Status:         string(rec.Status),
		Reason:         rec.Reason,
		CreatedAt:      &created,
		LastVerifiedAt: rec.LastVerifiedAt,
	}
	return r.do(ctx, http.MethodPost, "/domains", body, nil)
}

func (r *Remote) FindByDomain(ctx context.Context, domain string) (*models.DomainRecord, error) {
	var rec models.DomainRecord
	if err := r.do(ctx, http.MethodGet, "/domains/"+url.PathEscape(domain), nil, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *Remote) Update(ctx context.Context, rec *models.DomainRecord, from models.Status) error {
	var resp UpdateStatusResponse
	path := "/domains/" + url.PathEscape(rec.Domain) + "/status"
	if err := r.do(ctx, http.MethodPut, path, StatusUpdateFor(rec, from), &resp); err != nil {
		return err
	}
	if resp.Updated == 0 {
		return fmt.Errorf("%s moved from %s: %w", rec.Domain, from, sentinel.ErrInvalidState)
	}
	return nil
}

func (r *Remote) Resolve(ctx context.Context, domain string) (*models.DomainRecord, error) {
	var rec models.DomainRecord
	if err := r.do(ctx, http.MethodGet, "/domains/resolve/"+url.PathEscape(domain), nil, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *Remote) ListByAddress(ctx context.Context, address string) ([]*models.DomainRecord, error) {
	var list RecordList
	if err := r.do(ctx, http.MethodGet, "/domains/address/"+url.PathEscape(address), nil, &list); err != nil {
		return nil, err
	}
	return list.Domains, nil
}

func (r *Remote) Recent(ctx context.Context, limit int) ([]*models.DomainRecord, error) {
	var list RecordList
	path := "/domains/recent?limit=" + strconv.Itoa(ClampLimit(limit))
	if err := r.do(ctx, http.MethodGet, path, nil, &list); err != nil {
		return nil, err
	}
	return list.Domains, nil
}

func (r *Remote) ListByStatus(ctx context.Context, limit int, statuses ...models.Status) ([]*models.DomainRecord, error) {
	raw := make([]string, len(statuses))
	for i, st := range statuses {
		raw[i] = string(st)
	}
	q := url.Values{}
	q.Set("status", strings.Join(raw, ","))
	q.Set("limit", strconv.Itoa(ClampLimit(limit)))
	var list RecordList
	if err := r.do(ctx, http.MethodGet, "/domains?"+q.Encode(), nil, &list); err != nil {
		return nil, err
	}
	return list.Domains, nil
}

// Stats ignores since: the registry service owns the 24 hour window.
func (r *Remote) Stats(ctx context.Context, _ time.Time) (*models.Stats, error) {
	var stats models.Stats
	if err := r.do(ctx, http.MethodGet, "/stats", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

type errorBody struct {
	Error string `json:"error"`
}

func (r *Remote) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.token != "" && method != http.MethodGet {
		req.Header.Set("X-Admin-Token", r.token)
	}

	resp, err := r.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %v: %w", method, path, err, sentinel.ErrUnavailable)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return sentinel.ErrNotFound
	case resp.StatusCode == http.StatusConflict:
		var eb errorBody
		_ = json.NewDecoder(resp.Body).Decode(&eb)
		if eb.Error == "invalid_state" {
			return fmt.Errorf("%s %s: %w", method, path, sentinel.ErrInvalidState)
		}
		return fmt.Errorf("%s %s: %w", method, path, sentinel.ErrConflict)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%s %s: status %d: %w", method, path, resp.StatusCode, sentinel.ErrUnavailable)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %v: %w", method, path, err, sentinel.ErrUnavailable)
	}
	return nil
}
