package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ludexhq/ludex/internal/metrics"
	"github.com/ludexhq/ludex/internal/mirror"
)

// ReceiveWebhook handles POST /igdb/webhooks/{entity}/{method}. Unlike the
// query endpoints this speaks plain HTTP status codes: the upstream's
// delivery agent retries on non-2xx and understands nothing else.
func (h *Handler) ReceiveWebhook(w http.ResponseWriter, r *http.Request) {
	entity := chi.URLParam(r, "entity")
	method := chi.URLParam(r, "method")

	// An unconfigured secret rejects everything; there is no open mode.
	if h.webhookSecret == "" || !constantTimeEqual(r.Header.Get("X-Secret"), h.webhookSecret) {
		h.logger.Warn("webhook rejected",
			"entity", entity,
			"method", method,
			"reason", "invalid secret",
			"remote_ip", r.RemoteAddr,
		)
		http.Error(w, "invalid webhook secret", http.StatusUnauthorized)
		return
	}

	sink, ok := h.registry.ByEndpoint(entity)
	if !ok {
		http.Error(w, "unknown entity", http.StatusNotFound)
		return
	}

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		metrics.WebhookEvents.WithLabelValues(entity, "error").Inc()
		http.Error(w, "reading payload", http.StatusInternalServerError)
		return
	}

	if err := sink.ApplyWebhook(r.Context(), method, payload); err != nil {
		if errors.Is(err, mirror.ErrBadPayload) {
			h.logger.Warn("webhook payload rejected", "entity", entity, "method", method, "error", err)
			metrics.WebhookEvents.WithLabelValues(entity, "rejected").Inc()
			http.Error(w, "bad payload", http.StatusBadRequest)
			return
		}
		h.logger.Error("webhook apply failed", "entity", entity, "method", method, "error", err)
		metrics.WebhookEvents.WithLabelValues(entity, "error").Inc()
		http.Error(w, "applying webhook", http.StatusInternalServerError)
		return
	}

	h.logger.Info("webhook applied", "entity", entity, "method", method)
	metrics.WebhookEvents.WithLabelValues(entity, "applied").Inc()
	w.WriteHeader(http.StatusOK)
}
