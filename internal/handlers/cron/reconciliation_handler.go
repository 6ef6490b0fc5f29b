package cron

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dema501/magento-payment-module-EcorePay/internal/domain"
	"github.com/dema501/magento-payment-module-EcorePay/internal/services/reconciliation"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Reconciler is the part of the reconciliation engine the handler drives
type Reconciler interface {
	Cron(ctx context.Context) reconciliation.SweepReport
	SyncOrder(ctx context.Context, incrementID string) (reconciliation.SyncResult, error)
}

// ReconciliationHandler exposes the sweep to external schedulers
type ReconciliationHandler struct {
	engine     Reconciler
	logger     *zap.Logger
	cronSecret string // Secret token for authenticating cron requests
	now        func() time.Time
}

// NewReconciliationHandler creates the handler. An empty secret rejects every request.
func NewReconciliationHandler(engine Reconciler, logger *zap.Logger, cronSecret string) *ReconciliationHandler {
	return &ReconciliationHandler{
		engine:     engine,
		logger:     logger,
		cronSecret: cronSecret,
		now:        time.Now,
	}
}

// Routes mounts the cron endpoints
func (h *ReconciliationHandler) Routes(r chi.Router) {
	r.Route("/cron", func(r chi.Router) {
		r.Use(h.requireSecret)
		r.Post("/sync-orders", h.SyncOrders)
		r.Post("/orders/{incrementID}/sync", h.SyncOrder)
	})
}

// SyncOrdersResponse wraps a sweep report
type SyncOrdersResponse struct {
	Report      reconciliation.SweepReport `json:"report"`
	ProcessedAt string                     `json:"processed_at"`
	Success     bool                       `json:"success"`
}

// SyncOrders handles POST /cron/sync-orders. It is called by Cloud Scheduler
// or crontab and runs one sweep to completion even if the caller goes away.
func (h *ReconciliationHandler) SyncOrders(w http.ResponseWriter, r *http.Request) {
	h.logger.Info("Reconciliation cron job triggered",
		zap.String("remote_addr", r.RemoteAddr),
		zap.String("user_agent", r.UserAgent()),
	)

	report := h.engine.Cron(context.WithoutCancel(r.Context()))

	status := http.StatusOK
	switch {
	case report.Err != nil:
		status = http.StatusInternalServerError
	case report.Errors > 0:
		status = http.StatusPartialContent // 206 indicates partial success
	}

	h.respondJSON(w, status, SyncOrdersResponse{
		Report:      report,
		ProcessedAt: h.now().Format(time.RFC3339),
		Success:     status == http.StatusOK,
	})
}

// SyncOrder handles POST /cron/orders/{incrementID}/sync
func (h *ReconciliationHandler) SyncOrder(w http.ResponseWriter, r *http.Request) {
	incrementID := strings.TrimSpace(chi.URLParam(r, "incrementID"))
	if incrementID == "" {
		h.respondError(w, http.StatusBadRequest, "increment id is required")
		return
	}

	result, err := h.engine.SyncOrder(r.Context(), incrementID)
	if err != nil {
		h.logger.Warn("Manual order sync rejected",
			zap.String("order", incrementID),
			zap.Error(err),
		)
		h.respondError(w, statusForError(err), err.Error())
		return
	}

	status := http.StatusOK
	switch result.Action {
	case reconciliation.ActionSkipped:
		status = http.StatusConflict
	case reconciliation.ActionError:
		status = http.StatusBadGateway
		if !domain.IsGatewayError(result.Err) {
			status = http.StatusInternalServerError
		}
	}
	h.respondJSON(w, status, result)
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, domain.ErrOrderNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrTxnInvalidState):
		return http.StatusConflict
	case errors.Is(err, domain.ErrConfig):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *ReconciliationHandler) requireSecret(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.authenticateRequest(r) {
			h.logger.Warn("Unauthorized cron request",
				zap.String("remote_addr", r.RemoteAddr),
				zap.String("path", r.URL.Path),
			)
			h.respondError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// authenticateRequest accepts the secret in X-Cron-Secret or as a bearer token
func (h *ReconciliationHandler) authenticateRequest(r *http.Request) bool {
	if h.cronSecret == "" {
		return false
	}
	if secretEqual(r.Header.Get("X-Cron-Secret"), h.cronSecret) {
		return true
	}
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	return ok && secretEqual(token, h.cronSecret)
}

func secretEqual(got, want string) bool {
	return got != "" && subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

func (h *ReconciliationHandler) respondError(w http.ResponseWriter, statusCode int, message string) {
	h.respondJSON(w, statusCode, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}

func (h *ReconciliationHandler) respondJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}
