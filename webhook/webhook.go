// Package webhook exposes the two inbound notification endpoints as
// http.Handlers. Both providers sign the exact raw request body, so the
// handlers read it fully, untouched, before anything else sees it.
package webhook

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	enroll "github.com/xraph/enroll"
)

// Engine is the subset of the enrollment engine the handlers drive.
type Engine interface {
	HandleGatewayNotification(ctx context.Context, payload []byte, headers map[string]string) error
	HandleIdentityNotification(ctx context.Context, payload []byte, headers map[string]string) error
}

// maxBodyBytes caps inbound notification bodies. Provider events are
// small; anything larger is not a notification.
const maxBodyBytes = 1 << 20

// Handler serves the gateway and identity notification endpoints.
type Handler struct {
	engine Engine
	logger *slog.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// New creates a webhook handler over an engine.
func New(e Engine, opts ...Option) *Handler {
	h := &Handler{
		engine: e,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Gateway returns the handler for payment provider notifications.
func (h *Handler) Gateway() http.Handler {
	return h.notificationHandler("gateway", h.engine.HandleGatewayNotification)
}

// Identity returns the handler for identity provider notifications.
func (h *Handler) Identity() http.Handler {
	return h.notificationHandler("identity", h.engine.HandleIdentityNotification)
}

// Mount registers both endpoints on a mux.
func (h *Handler) Mount(mux *http.ServeMux) {
	mux.Handle("/webhooks/gateway", h.Gateway())
	mux.Handle("/webhooks/identity", h.Identity())
}

func (h *Handler) notificationHandler(source string, apply func(context.Context, []byte, map[string]string) error) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		body, err := io.ReadAll(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		headers := make(map[string]string, len(r.Header))
		for k := range r.Header {
			headers[k] = r.Header.Get(k)
		}

		err = apply(r.Context(), body, headers)
		w.WriteHeader(statusFor(err))
		if err != nil {
			h.logger.Debug("notification handled with error",
				"source", source,
				"status", statusFor(err),
				"error", err,
			)
		}
	})
}

// statusFor maps the engine's error taxonomy to response codes the
// provider's retry policy understands. Conflicts and unknown purchases
// are acknowledged with 200: redelivery resolves neither, the engine
// has already logged them, and the sweep picks up entries whose
// notification raced initiation.
func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case enroll.IsConflict(err):
		return http.StatusOK
	case errors.Is(err, enroll.ErrUnknownPurchase):
		return http.StatusOK
	case errors.Is(err, enroll.ErrUnauthenticatedNotification):
		return http.StatusUnauthorized
	case enroll.IsNotFound(err):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
