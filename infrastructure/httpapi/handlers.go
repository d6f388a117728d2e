package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"dm-relay/auth"
	"dm-relay/errors"
	"dm-relay/services"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
)

type Handlers struct {
	log         *slog.Logger
	authService services.IAuthService
	chatService services.IChatService
	tokenMaxAge time.Duration
}

func NewHandlers(log *slog.Logger, authService services.IAuthService,
	chatService services.IChatService, tokenMaxAge time.Duration) *Handlers {
	return &Handlers{
		log:         log,
		authService: authService,
		chatService: chatService,
		tokenMaxAge: tokenMaxAge,
	}
}

type registerPayload struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var payload registerPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.authService.Register(payload.Username, payload.Email, payload.Password)
	if err != nil {
		h.writeError(w, errors.MapToHTTPStatus(err), err.Error())
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]any{
		"message": "user registered successfully",
		"userId":  user.ID.String(),
	})
}

// Login issues the session token as an http-only cookie, the way the
// browser client consumes it, and echoes the user record in the body.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var payload loginPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, token, err := h.authService.Login(payload.Email, payload.Password)
	if err != nil {
		h.writeError(w, errors.MapToHTTPStatus(err), err.Error())
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    string(token),
		Path:     "/",
		HttpOnly: true,
		MaxAge:   int(h.tokenMaxAge.Seconds()),
		SameSite: http.SameSiteLaxMode,
	})
	h.writeJSON(w, http.StatusOK, map[string]any{
		"message": "logged in successfully",
		"user":    toWireUser(user, true),
	})
}

func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFrom(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	if err := h.authService.Logout(userID); err != nil {
		h.writeError(w, errors.MapToHTTPStatus(err), err.Error())
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
	h.writeJSON(w, http.StatusOK, map[string]any{"message": "logged out successfully"})
}

func (h *Handlers) CurrentUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFrom(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	user, err := h.chatService.Profile(r.Context(), userID)
	if err != nil {
		h.writeError(w, errors.MapToHTTPStatus(err), err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, toWireUser(user, true))
}

// Contacts lists every other registered user with last-known presence.
func (h *Handlers) Contacts(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFrom(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	users, err := h.chatService.Contacts(r.Context(), userID)
	if err != nil {
		h.writeError(w, errors.MapToHTTPStatus(err), err.Error())
		return
	}

	wired := make([]wireUser, 0, len(users))
	for _, user := range users {
		wired = append(wired, toWireUser(user, false))
	}
	h.writeJSON(w, http.StatusOK, wired)
}

// History returns every message between the caller and the user named
// in the path, chronological ascending.
func (h *Handlers) History(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFrom(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	otherID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	messages, err := h.chatService.History(r.Context(), userID, otherID)
	if err != nil {
		h.writeError(w, errors.MapToHTTPStatus(err), err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, toWireMessages(messages))
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.log.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
