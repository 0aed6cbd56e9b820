// Package v1handler implements the /v1 HTTP endpoints: email subscriptions,
// domain registration status, delta reports and on-demand refreshes.
package v1handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"typowatch/internal/config"
	"typowatch/pkg/logger"
	"typowatch/pkg/repository"
	"typowatch/pkg/serrors"
	"typowatch/pkg/storage"
)

// Options configures the v1 handler.
type Options struct {
	// DeltasMaxAttempts is the retry budget of refresh jobs.
	DeltasMaxAttempts int
}

// NewOptions builds Options from the application configuration.
func NewOptions(cfg *config.Config) Options {
	return Options{DeltasMaxAttempts: cfg.Deltas.MaxAttempts}
}

// Deps are the collaborators of the v1 handler.
type Deps struct {
	Repo *repository.Repository
	Jobs storage.JobStorage
}

// Handler serves the v1 API.
type Handler struct {
	deps    Deps
	options Options
}

// New constructs a Handler.
func New(deps Deps, options Options) *Handler {
	return &Handler{deps: deps, options: options}
}

// Routes mounts the v1 endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/subscriptions", func(r chi.Router) {
		r.Post("/", h.CreateSubscription)
		r.Get("/{id}", h.GetSubscription)
		r.Delete("/{id}", h.DeleteSubscription)
		r.Get("/{id}/unsubscribe", h.Unsubscribe)
	})
	r.Route("/domains/{domain}", func(r chi.Router) {
		r.Get("/", h.GetDomain)
		r.Get("/report", h.GetReport)
		r.Post("/refresh", h.Refresh)
	})
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewError maps err to a status code and response body. Errors without a
// client facing kind are logged and reported as internal.
func (h *Handler) NewError(ctx context.Context, err error) (int, ErrorResponse) {
	var status int
	kind := serrors.KindOf(err)
	switch {
	case errors.Is(err, serrors.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, serrors.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, serrors.ErrConflict):
		status = http.StatusConflict
	default:
		logger.Error(ctx, "request failed", zap.Error(err))

		return http.StatusInternalServerError, ErrorResponse{
			Code:    serrors.ErrInternal.Error(),
			Message: "internal error",
		}
	}

	message := kind.Error()
	var semErr *serrors.Error
	if errors.As(err, &semErr) && semErr.Message() != "" {
		message = semErr.Message()
	}

	return status, ErrorResponse{Code: kind.Error(), Message: message}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := h.NewError(r.Context(), err)
	writeJSON(r.Context(), w, status, body)
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Warn(ctx, "could not write response", zap.Error(err))
	}
}
