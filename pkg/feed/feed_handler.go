package feed

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"github.com/varsla/varsla/internal/utils"
	"github.com/varsla/varsla/pkg/user"
)

// Handler serves the token-authenticated calendar feed. The feed endpoint is
// not session-authenticated: the opaque token in the path is the only
// credential, and an invalid token looks exactly like a missing feed.
type Handler struct {
	renderer    *Renderer
	tokens      TokenRepo
	clock       utils.Clock
	daysBack    int
	daysForward int
}

func NewHandler(renderer *Renderer, tokens TokenRepo, clock utils.Clock, daysBack, daysForward int) *Handler {
	return &Handler{
		renderer:    renderer,
		tokens:      tokens,
		clock:       clock,
		daysBack:    daysBack,
		daysForward: daysForward,
	}
}

type TokenDTO struct {
	Token string `json:"token"`
	Path  string `json:"path"`
}

func (h *Handler) GetCalendar(w http.ResponseWriter, r *http.Request) {
	token := mux.Vars(r)["token"]

	tenantId, userId, err := h.tokens.ResolveToken(r.Context(), token)
	if err != nil {
		if errors.Is(err, ErrFeedNotFound) {
			http.NotFound(w, r)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	from, to := h.window(h.clock.Now())

	document, err := h.renderer.Render(r.Context(), tenantId, userId, from, to)
	if err != nil {
		log.Errorf("failed to render feed for user %d: %v", userId, err)
		http.Error(w, "failed to render calendar", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="calendar.ics"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(document)); err != nil {
		log.Errorf("failed to write feed response: %v", err)
	}
}

func (h *Handler) CreateToken(w http.ResponseWriter, r *http.Request) {
	currentUser, err := user.CurrentUser(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}

	token, err := h.tokens.CreateToken(r.Context(), currentUser.TenantId, currentUser.Id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	dto := TokenDTO{Token: token, Path: "/api/feed/" + token + "/calendar.ics"}
	if err := json.NewEncoder(w).Encode(dto); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) RevokeToken(w http.ResponseWriter, r *http.Request) {
	currentUser, err := user.CurrentUser(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}

	if err := h.tokens.RevokeTokens(r.Context(), currentUser.TenantId, currentUser.Id); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// window is exposed for tests.
func (h *Handler) window(now time.Time) (time.Time, time.Time) {
	return now.AddDate(0, 0, -h.daysBack), now.AddDate(0, 0, h.daysForward)
}
