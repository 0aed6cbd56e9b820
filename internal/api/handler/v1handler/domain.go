package v1handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"typowatch/internal/deltas"
	"typowatch/pkg/domainname"
	"typowatch/pkg/serrors"
)

// DomainResponse reports whether a domain is monitored.
type DomainResponse struct {
	Domain     string `json:"domain"`
	Registered bool   `json:"registered"`
}

// RefreshResponse reports whether a refresh was enqueued. Queued is false
// when a run for the domain is already pending.
type RefreshResponse struct {
	Domain string `json:"domain"`
	Queued bool   `json:"queued"`
}

// domainParam decodes the {domain} path parameter.
func domainParam(r *http.Request) (string, error) {
	return domainname.Decode(chi.URLParam(r, "domain")) //nolint: wrapcheck
}

// GetDomain returns the registration status of a domain.
func (h *Handler) GetDomain(w http.ResponseWriter, r *http.Request) {
	name, err := domainParam(r)
	if err != nil {
		h.writeError(w, r, err)

		return
	}

	registered, err := h.deps.Repo.IsDomainRegistered(r.Context(), name)
	if err != nil {
		h.writeError(w, r, err)

		return
	}

	writeJSON(r.Context(), w, http.StatusOK, DomainResponse{Domain: name, Registered: registered})
}

// GetReport returns the current delta report of a domain and marks it read.
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	name, err := domainParam(r)
	if err != nil {
		h.writeError(w, r, err)

		return
	}

	if err := h.deps.Repo.MarkDeltaReportRead(ctx, name); err != nil {
		h.writeError(w, r, err)

		return
	}

	report, err := h.deps.Repo.GetDeltaReport(ctx, name)
	if err != nil {
		h.writeError(w, r, err)

		return
	}
	if report == nil {
		writeJSON(ctx, w, http.StatusNotFound, ErrorResponse{
			Code:    serrors.ErrNotFound.Error(),
			Message: "no report for " + name + " yet",
		})

		return
	}

	writeJSON(ctx, w, http.StatusOK, report)
}

// Refresh registers a domain and enqueues a delta run for it.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	name, err := domainParam(r)
	if err != nil {
		h.writeError(w, r, err)

		return
	}

	if err := h.deps.Repo.RegisterDomainForDelta(ctx, name); err != nil {
		h.writeError(w, r, err)

		return
	}

	queued, err := h.deps.Jobs.AddJob(ctx, deltas.JobArgs{Domain: name, MaxAttempts: h.options.DeltasMaxAttempts}, nil)
	if err != nil {
		h.writeError(w, r, err)

		return
	}

	writeJSON(ctx, w, http.StatusAccepted, RefreshResponse{Domain: name, Queued: queued})
}
