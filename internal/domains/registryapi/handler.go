// Package registryapi serves the registry CRUD surface over a Store. It is
// what store.Remote talks to when resolvers share one registry service.
//
// The surface is deliberately dumb: it enforces the store contract (unique
// live domain, unique tx hash, compare-and-set updates) and nothing about
// verification.
package registryapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"ons/internal/domains/models"
	"ons/internal/domains/store"
	"ons/internal/platform/middleware"
	dErrors "ons/pkg/domain-errors"
	"ons/pkg/platform/httputil"
	"ons/pkg/platform/sentinel"
	platformstrings "ons/pkg/platform/strings"
	"ons/pkg/requestcontext"
)

// Store is the persistence the registry serves.
type Store interface {
	Create(ctx context.Context, rec *models.DomainRecord) error
	FindByDomain(ctx context.Context, domain string) (*models.DomainRecord, error)
	Update(ctx context.Context, rec *models.DomainRecord, from models.Status) error
	Resolve(ctx context.Context, domain string) (*models.DomainRecord, error)
	ListByAddress(ctx context.Context, address string) ([]*models.DomainRecord, error)
	Recent(ctx context.Context, limit int) ([]*models.DomainRecord, error)
	ListByStatus(ctx context.Context, limit int, statuses ...models.Status) ([]*models.DomainRecord, error)
	Stats(ctx context.Context, since time.Time) (*models.Stats, error)
}

type Handler struct {
	store      Store
	adminToken string
	logger     *slog.Logger
}

func New(s Store, adminToken string, logger *slog.Logger) *Handler {
	return &Handler{
		store:      s,
		adminToken: adminToken,
		logger:     logger,
	}
}

// Register mounts the registry routes. Writes require the admin token when one is configured.
func (h *Handler) Register(r chi.Router) {
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/domains", h.HandleListByStatus)
	r.Get("/domains/recent", h.HandleRecent)
	r.Get("/domains/resolve/{domain}", h.HandleResolve)
	r.Get("/domains/address/{address}", h.HandleListByAddress)
	r.Get("/domains/{domain}", h.HandleFind)
	r.Get("/stats", h.HandleStats)

	r.Group(func(w chi.Router) {
		w.Use(middleware.RequireAdminToken(h.adminToken, h.logger))
		w.Post("/domains", h.HandleCreate)
		w.Put("/domains/{domain}/status", h.HandleUpdateStatus)
	})
}

// HandleCreate handles POST /domains.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[createRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	rec := req.toRecord(requestcontext.Now(ctx))
	if err := h.store.Create(ctx, rec); err != nil {
		h.logger.WarnContext(ctx, "registry create failed",
			"request_id", requestID,
			"domain", rec.Domain,
			"error", err,
		)
		httputil.WriteError(w, translate(err, "domain or transaction already registered"))
		return
	}

	h.logger.InfoContext(ctx, "registry record created",
		"request_id", requestID,
		"domain", rec.Domain,
		"status", rec.Status,
	)
	httputil.WriteJSON(w, http.StatusCreated, rec)
}

// HandleUpdateStatus handles PUT /domains/{domain}/status. With
// expected_status the write only applies if the newest record still has it.
func (h *Handler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	domain := models.NormalizeName(chi.URLParam(r, "domain"))

	req, ok := httputil.DecodeAndPrepare[updateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	current, err := h.store.FindByDomain(ctx, domain)
	if err != nil {
		httputil.WriteError(w, translate(err, "failed to load domain"))
		return
	}
	if req.ID != nil && *req.ID != current.ID {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidState, "record is no longer the newest for this domain"))
		return
	}
	from := current.Status
	if req.ExpectedStatus != "" && models.Status(req.ExpectedStatus) != from {
		httputil.WriteError(w, dErrors.Newf(dErrors.CodeInvalidState, "domain is %s, expected %s", from, req.ExpectedStatus))
		return
	}

	if err := from.Guard(models.Status(req.Status)); err != nil {
		httputil.WriteError(w, err)
		return
	}

	next := current.Clone()
	req.Apply(next, requestcontext.Now(ctx))
	if err := h.store.Update(ctx, next, from); err != nil {
		h.logger.WarnContext(ctx, "registry update failed",
			"request_id", requestID,
			"domain", domain,
			"status", req.Status,
			"error", err,
		)
		httputil.WriteError(w, translate(err, "transaction already registered"))
		return
	}

	h.logger.InfoContext(ctx, "registry status updated",
		"request_id", requestID,
		"domain", domain,
		"from", from,
		"to", next.Status,
	)
	httputil.WriteJSON(w, http.StatusOK, store.UpdateStatusResponse{Success: true, Updated: 1})
}

// HandleFind handles GET /domains/{domain}: the newest record in any status.
func (h *Handler) HandleFind(w http.ResponseWriter, r *http.Request) {
	rec, err := h.store.FindByDomain(r.Context(), models.NormalizeName(chi.URLParam(r, "domain")))
	if err != nil {
		httputil.WriteError(w, translate(err, "failed to load domain"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rec)
}

// HandleResolve handles GET /domains/resolve/{domain}.
func (h *Handler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	rec, err := h.store.Resolve(r.Context(), models.NormalizeName(chi.URLParam(r, "domain")))
	if err != nil {
		httputil.WriteError(w, translate(err, "failed to resolve domain"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rec)
}

// HandleListByAddress handles GET /domains/address/{address}.
func (h *Handler) HandleListByAddress(w http.ResponseWriter, r *http.Request) {
	recs, err := h.store.ListByAddress(r.Context(), chi.URLParam(r, "address"))
	if err != nil {
		httputil.WriteError(w, translate(err, "failed to list domains"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, list(recs))
}

// HandleRecent handles GET /domains/recent?limit=N.
func (h *Handler) HandleRecent(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	recs, err := h.store.Recent(r.Context(), limit)
	if err != nil {
		httputil.WriteError(w, translate(err, "failed to list domains"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, list(recs))
}

// HandleListByStatus handles GET /domains?status=a,b&limit=N.
func (h *Handler) HandleListByStatus(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var statuses []models.Status
	for _, raw := range platformstrings.SplitList(r.URL.Query().Get("status")) {
		st, err := models.ParseStatus(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		statuses = append(statuses, st)
	}
	if len(statuses) == 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "status is required"))
		return
	}
	recs, err := h.store.ListByStatus(r.Context(), limit, statuses...)
	if err != nil {
		httputil.WriteError(w, translate(err, "failed to list domains"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, list(recs))
}

// HandleStats handles GET /stats.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stats, err := h.store.Stats(ctx, requestcontext.Now(ctx).Add(-models.RecentWindow))
	if err != nil {
		httputil.WriteError(w, translate(err, "failed to load stats"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

func list(recs []*models.DomainRecord) store.RecordList {
	if recs == nil {
		recs = []*models.DomainRecord{}
	}
	return store.RecordList{Domains: recs}
}

func parseLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeBadRequest, "limit must be an integer")
	}
	return n, nil
}

// translate maps store sentinels to the codes store.Remote decodes.
func translate(err error, conflictMsg string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "domain not found")
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.New(dErrors.CodeInvalidState, "domain changed concurrently")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, conflictMsg)
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "store unavailable")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "store failure")
	}
}
