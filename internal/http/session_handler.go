package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/daguilastro/Los5deSergito/internal/order"
	"github.com/daguilastro/Los5deSergito/internal/session"
	"github.com/daguilastro/Los5deSergito/internal/upstream"
)

// Authenticator is the upstream session surface.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (session.Actor, error)
	Logout(ctx context.Context) error
	WhoAmI(ctx context.Context) (session.Actor, error)
}

type SessionHandler struct {
	upstream Authenticator
	actors   *session.Store
	drafts   *order.Store
	timeout  time.Duration
	logger   *zap.Logger
}

func NewSessionHandler(upstream Authenticator, actors *session.Store, drafts *order.Store, timeout time.Duration, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{
		upstream: upstream,
		actors:   actors,
		drafts:   drafts,
		timeout:  timeout,
		logger:   logger,
	}
}

type LoginRequestDTO struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// POST /api/v1/session/login
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req LoginRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Username == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "invalid_credentials", "username and password are required")
		return
	}

	actor, err := h.upstream.Login(ctx, req.Username, req.Password)
	if err != nil {
		var apiErr *upstream.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode < http.StatusInternalServerError {
			respondError(w, apiErr.StatusCode, "invalid_credentials", apiErr.Detail)
			return
		}
		h.logger.Error("login failed", zap.String("request_id", getRequestID(r.Context())), zap.Error(err))
		respondError(w, http.StatusBadGateway, "upstream_error", "could not reach the management API")
		return
	}

	h.actors.Set(actor)
	respondJSON(w, http.StatusOK, actor)
}

// POST /api/v1/session/logout drops the upstream session, the actor and the
// operator's draft.
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	actor, _ := h.actors.Current()
	if err := h.upstream.Logout(ctx); err != nil {
		// Logged out locally regardless; the upstream session will expire.
		h.logger.Warn("upstream logout failed", zap.Error(err))
	}
	h.actors.Clear()
	if actor.Username != "" {
		h.drafts.Drop(actor.Username)
	}
	respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// GET /api/v1/session returns the current actor.
func (h *SessionHandler) Current(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actors.Current()
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "no autenticado")
		return
	}
	respondJSON(w, http.StatusOK, actor)
}

// POST /api/v1/session/refresh re-reads the identity from the upstream, the
// explicit refresh event for the actor store.
func (h *SessionHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	actor, err := h.upstream.WhoAmI(ctx)
	if err != nil {
		var apiErr *upstream.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
			h.actors.Clear()
			respondError(w, http.StatusUnauthorized, "unauthenticated", "no autenticado")
			return
		}
		h.logger.Error("session refresh failed", zap.Error(err))
		respondError(w, http.StatusBadGateway, "upstream_error", "could not reach the management API")
		return
	}

	h.actors.Set(actor)
	respondJSON(w, http.StatusOK, actor)
}
