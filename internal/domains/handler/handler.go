package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"ons/internal/domains/models"
	"ons/internal/domains/service"
	"ons/pkg/platform/httputil"
	"ons/pkg/requestcontext"
)

// Service defines the resolver operations exposed over HTTP.
type Service interface {
	RegisterDomain(ctx context.Context, domain, address, txHash string) (*models.DomainRecord, error)
	AdmitPendingClaim(ctx context.Context, domain, address, txHash string) (*models.DomainRecord, error)
	DeleteDomain(ctx context.Context, domain, address, txHash string) (*models.DomainRecord, error)
	Reconcile(ctx context.Context, domain string) (*models.DomainRecord, error)
	AwaitReconciled(ctx context.Context, domain string) (*models.DomainRecord, error)
	ProcessTransaction(ctx context.Context, txHash, address string) (*models.DomainRecord, error)
	SyncAddress(ctx context.Context, address string) ([]*models.DomainRecord, error)
	ResolveDomain(ctx context.Context, domain string) (*models.DomainRecord, error)
	CheckAvailability(ctx context.Context, domain string) (bool, error)
	DomainsByAddress(ctx context.Context, address string) ([]*models.DomainRecord, error)
	RecentDomains(ctx context.Context, limit int) ([]*models.DomainRecord, error)
	Stats(ctx context.Context) (*models.Stats, error)
	Balance(ctx context.Context, address string) (*service.BalanceView, error)
}

// Handler wires the public resolver API to the reconciliation service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts the resolver endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/health", h.HandleHealth)

	r.Post("/domains/register", h.HandleRegister)
	r.Post("/domains/pending", h.HandleAdmitPending)
	r.Post("/domains/{domain}/delete", h.HandleDelete)
	r.Post("/domains/{domain}/reconcile", h.HandleReconcile)
	r.Post("/transactions/{tx_hash}/process", h.HandleProcessTransaction)
	r.Post("/addresses/{address}/sync", h.HandleSyncAddress)

	r.Get("/domains/resolve/{domain}", h.HandleResolve)
	r.Get("/domains/address/{address}", h.HandleListByAddress)
	r.Get("/domains/recent", h.HandleRecent)
	r.Get("/domains/{domain}/availability", h.HandleAvailability)
	r.Get("/stats", h.HandleStats)
	r.Get("/balance/{address}", h.HandleBalance)
}

func (h *Handler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleRegister handles POST /domains/register: verify now, record on success.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[ClaimRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	rec, err := h.service.RegisterDomain(ctx, req.Domain, req.Address, req.TxHash)
	if err != nil {
		h.logFailure(ctx, "domain registration failed", err, "domain", req.Domain, "tx_hash", req.TxHash)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "domain registered",
		"request_id", requestID,
		"domain", rec.FullName(),
		"address", rec.OwnerAddress,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusCreated, FromRecord(rec))
}

// HandleAdmitPending handles POST /domains/pending: hold a name while its transaction confirms.
func (h *Handler) HandleAdmitPending(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[ClaimRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	rec, err := h.service.AdmitPendingClaim(ctx, req.Domain, req.Address, req.TxHash)
	if err != nil {
		h.logFailure(ctx, "pending claim failed", err, "domain", req.Domain, "tx_hash", req.TxHash)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, FromRecord(rec))
}

// HandleDelete handles POST /domains/{domain}/delete.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	domain := chi.URLParam(r, "domain")

	req, ok := httputil.DecodeAndPrepare[DeleteRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	rec, err := h.service.DeleteDomain(ctx, domain, req.Address, req.TxHash)
	if err != nil {
		h.logFailure(ctx, "domain deletion failed", err, "domain", domain, "tx_hash", req.TxHash)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, FromRecord(rec))
}

const maxReconcileWait = 25 * time.Second

// HandleReconcile handles POST /domains/{domain}/reconcile. With ?wait=true
// it blocks until the pending transaction confirms or the wait window ends.
func (h *Handler) HandleReconcile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	domain := chi.URLParam(r, "domain")

	reconcile := h.service.Reconcile
	if r.URL.Query().Get("wait") == "true" {
		// stay inside the server's write timeout
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, maxReconcileWait)
		defer cancel()
		reconcile = h.service.AwaitReconciled
	}
	rec, err := reconcile(ctx, domain)
	if err != nil {
		h.logFailure(ctx, "reconcile failed", err, "domain", domain)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromRecord(rec))
}

// HandleProcessTransaction handles POST /transactions/{tx_hash}/process.
// The body is optional; when present its address must have sent the transaction.
func (h *Handler) HandleProcessTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	txHash := chi.URLParam(r, "tx_hash")

	address := ""
	if r.ContentLength > 0 {
		req, ok := httputil.DecodeAndPrepare[ProcessRequest](w, r, h.logger, ctx, requestID)
		if !ok {
			return
		}
		address = req.Address
	}

	rec, err := h.service.ProcessTransaction(ctx, txHash, address)
	if err != nil {
		h.logFailure(ctx, "transaction processing failed", err, "tx_hash", txHash)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromRecord(rec))
}

// HandleSyncAddress handles POST /addresses/{address}/sync.
func (h *Handler) HandleSyncAddress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	address := chi.URLParam(r, "address")

	recs, err := h.service.SyncAddress(ctx, address)
	if err != nil {
		h.logFailure(ctx, "address sync failed", err, "address", address)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, SyncResponse{Records: FromRecords(recs)})
}

// HandleResolve handles GET /domains/resolve/{domain}.
func (h *Handler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	rec, err := h.service.ResolveDomain(r.Context(), chi.URLParam(r, "domain"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromRecord(rec))
}

// HandleAvailability handles GET /domains/{domain}/availability.
func (h *Handler) HandleAvailability(w http.ResponseWriter, r *http.Request) {
	domain := chi.URLParam(r, "domain")
	available, err := h.service.CheckAvailability(r.Context(), domain)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, AvailabilityResponse{
		Domain:    models.FullName(models.NormalizeName(domain)),
		Available: available,
	})
}

// HandleListByAddress handles GET /domains/address/{address}.
func (h *Handler) HandleListByAddress(w http.ResponseWriter, r *http.Request) {
	recs, err := h.service.DomainsByAddress(r.Context(), chi.URLParam(r, "address"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, DomainListResponse{Domains: FromRecords(recs)})
}

// HandleRecent handles GET /domains/recent?limit=N.
func (h *Handler) HandleRecent(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			httputil.WriteError(w, errInvalidLimit)
			return
		}
		limit = n
	}
	recs, err := h.service.RecentDomains(r.Context(), limit)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, DomainListResponse{Domains: FromRecords(recs)})
}

// HandleStats handles GET /stats.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

// HandleBalance handles GET /balance/{address}.
func (h *Handler) HandleBalance(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Balance(r.Context(), chi.URLParam(r, "address"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromBalance(view))
}

func (h *Handler) logFailure(ctx context.Context, msg string, err error, attrs ...any) {
	attrs = append([]any{"request_id", requestcontext.RequestID(ctx)}, attrs...)
	attrs = append(attrs, "error", err)
	h.logger.WarnContext(ctx, msg, attrs...)
}
