package v1handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"typowatch/pkg/domain"
	"typowatch/pkg/domainname"
	"typowatch/pkg/serrors"
)

// CreateSubscriptionRequest is the body of POST /subscriptions.
type CreateSubscriptionRequest struct {
	Email string `json:"email"`
	// Domain may be hex or base64 encoded, or given as-is.
	Domain string `json:"domain"`
}

// CreateSubscriptionResponse is returned once a subscription is stored.
type CreateSubscriptionResponse struct {
	ID     domain.SubscriptionID `json:"id"`
	Domain string                `json:"domain"`
}

// CreateSubscription subscribes an email address to a domain's reports.
func (h *Handler) CreateSubscription(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateSubscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, serrors.Wrap(serrors.ErrValidation, err, "invalid request body"))

		return
	}

	name, err := domainname.Decode(req.Domain)
	if err != nil {
		h.writeError(w, r, err)

		return
	}

	id := domain.SubscriptionID(uuid.NewString())
	if err := h.deps.Repo.SubscribeEmail(ctx, id, req.Email, name); err != nil {
		h.writeError(w, r, err)

		return
	}

	writeJSON(ctx, w, http.StatusCreated, CreateSubscriptionResponse{ID: id, Domain: name})
}

// GetSubscription returns a stored subscription.
func (h *Handler) GetSubscription(w http.ResponseWriter, r *http.Request) {
	id := domain.SubscriptionID(chi.URLParam(r, "id"))

	sub, err := h.deps.Repo.GetSubscription(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)

		return
	}
	if sub == nil {
		h.writeError(w, r, serrors.With(serrors.ErrNotFound, "subscription %s not found", id))

		return
	}

	writeJSON(r.Context(), w, http.StatusOK, sub)
}

// DeleteSubscription removes a subscription.
func (h *Handler) DeleteSubscription(w http.ResponseWriter, r *http.Request) {
	id := domain.SubscriptionID(chi.URLParam(r, "id"))

	if err := h.deps.Repo.Unsubscribe(r.Context(), id); err != nil {
		h.writeError(w, r, err)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Unsubscribe is the link target in notification emails. Mail clients follow
// links with GET, and repeated clicks succeed.
func (h *Handler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	id := domain.SubscriptionID(chi.URLParam(r, "id"))

	err := h.deps.Repo.Unsubscribe(r.Context(), id)
	if err != nil && !errors.Is(err, serrors.ErrNotFound) {
		h.writeError(w, r, err)

		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("You have been unsubscribed.\n"))
}
