package api

import (
	"chat-link/auth"
	"chat-link/contract"
	"chat-link/errors"
	"chat-link/runtime/workers"
	"chat-link/services"
	goerrors "errors"
	"fmt"
	"log/slog"
	"net/http"
)

const maxBodyBytes = 1 << 20

// ProcessStatsSource is satisfied by the process stats worker.
type ProcessStatsSource interface {
	Latest() workers.ProcessStats
}

type Handlers struct {
	log          *slog.Logger
	credentials  services.ICredentialService
	messages     services.IMessageService
	directory    services.IDirectoryService
	registry     contract.IRegistry
	processStats ProcessStatsSource
}

func NewHandlers(
	log *slog.Logger,
	credentials services.ICredentialService,
	messages services.IMessageService,
	directory services.IDirectoryService,
	registry contract.IRegistry,
	processStats ProcessStatsSource) *Handlers {
	return &Handlers{
		log:          log,
		credentials:  credentials,
		messages:     messages,
		directory:    directory,
		registry:     registry,
		processStats: processStats,
	}
}

func (h *Handlers) Home(w http.ResponseWriter, _ *http.Request) {
	writeMessage(h.log, w, http.StatusOK, "Server working")
}

type healthResponse struct {
	Status       string                `json:"status"`
	LiveSessions int                   `json:"live_sessions"`
	Process      *workers.ProcessStats `json:"process,omitempty"`
}

func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	response := healthResponse{Status: "ok", LiveSessions: h.registry.Len()}
	if h.processStats != nil {
		// Nothing to show before the first sample
		if stats := h.processStats.Latest(); !stats.SampledAt.IsZero() {
			response.Process = &stats
		}
	}
	writeJSON(h.log, w, http.StatusOK, response)
}

// CreateUser is the bare record creation, every failure is a server error.
func (h *Handlers) CreateUser(w http.ResponseWriter, r *http.Request) {
	var cmd services.SignUpCommand
	if err := decodeBody(w, r, &cmd); err != nil {
		writeError(h.log, w, http.StatusInternalServerError, err)
		return
	}
	user, err := h.credentials.CreateUser(r.Context(), cmd)
	if err != nil {
		writeError(h.log, w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(h.log, w, http.StatusCreated, user)
}

func (h *Handlers) SignUp(w http.ResponseWriter, r *http.Request) {
	var cmd services.SignUpCommand
	if err := decodeBody(w, r, &cmd); err != nil {
		writeMessage(h.log, w, http.StatusBadRequest, errors.ErrInvalidRequest.Error())
		return
	}
	user, err := h.credentials.SignUp(r.Context(), cmd)
	switch {
	case goerrors.Is(err, errors.ErrUserAlreadyExists):
		writeMessage(h.log, w, http.StatusBadRequest, errors.ErrUserAlreadyExists.Error())
	case goerrors.Is(err, errors.ErrInvalidRequest):
		writeMessage(h.log, w, http.StatusBadRequest, err.Error())
	case err != nil:
		writeError(h.log, w, http.StatusInternalServerError, err)
	default:
		writeJSON(h.log, w, http.StatusCreated, user)
	}
}

type loginBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handlers) LogIn(w http.ResponseWriter, r *http.Request) {
	var body loginBody
	if err := decodeBody(w, r, &body); err != nil {
		writeMessage(h.log, w, http.StatusBadRequest, errors.ErrInvalidRequest.Error())
		return
	}
	result, err := h.credentials.LogIn(r.Context(), body.Email, body.Password)
	switch {
	case goerrors.Is(err, errors.ErrInvalidCredentials):
		writeMessage(h.log, w, http.StatusUnauthorized, errors.ErrInvalidCredentials.Error())
	case err != nil:
		writeError(h.log, w, http.StatusInternalServerError, err)
	default:
		writeJSON(h.log, w, http.StatusOK, result)
	}
}

// LogOut also reads the "Authorisation" spelling older clients send.
func (h *Handlers) LogOut(w http.ResponseWriter, r *http.Request) {
	header := r.Header.Get("Authorization")
	if header == "" {
		header = r.Header.Get("Authorisation")
	}
	token, err := auth.BearerToken(header)
	if err != nil {
		writeError(h.log, w, http.StatusInternalServerError, err)
		return
	}
	if err := h.credentials.LogOut(r.Context(), token); err != nil {
		writeError(h.log, w, http.StatusInternalServerError, err)
		return
	}
	writeMessage(h.log, w, http.StatusOK, "Logged out successfully")
}

type tokenResponse struct {
	Token string `json:"token"`
}

func (h *Handlers) RefreshToken(w http.ResponseWriter, r *http.Request) {
	token, _ := auth.BearerToken(r.Header.Get("Authorization"))
	access, err := h.credentials.Refresh(r.Context(), token)
	if err != nil {
		writeMessage(h.log, w, http.StatusForbidden, "Login First")
		return
	}
	writeJSON(h.log, w, http.StatusOK, tokenResponse{Token: access})
}

func (h *Handlers) AllUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.directory.ListUsers(r.Context(), h.callerOrParam(r, "userId"))
	if err != nil {
		writeError(h.log, w, http.StatusNotFound, err)
		return
	}
	writeJSON(h.log, w, http.StatusOK, users)
}

func (h *Handlers) SearchUsers(w http.ResponseWriter, r *http.Request) {
	search := r.URL.Query().Get("search")
	users, err := h.directory.SearchUsers(r.Context(), search, h.callerOrParam(r, "userId"))
	if err != nil {
		writeError(h.log, w, http.StatusNotFound, err)
		return
	}
	writeJSON(h.log, w, http.StatusOK, users)
}

func (h *Handlers) AllMessages(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	user1, ok := h.caller(w, r, query.Get("user1"))
	if !ok {
		return
	}
	entries, err := h.messages.History(r.Context(), user1, query.Get("user2"))
	if err != nil {
		writeError(h.log, w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(h.log, w, http.StatusOK, entries)
}

type clearBody struct {
	Sender   string `json:"sender"`
	Receiver string `json:"receiver"`
}

func (h *Handlers) ClearChatMessages(w http.ResponseWriter, r *http.Request) {
	var body clearBody
	if err := decodeBody(w, r, &body); err != nil {
		writeError(h.log, w, http.StatusInternalServerError, err)
		return
	}
	sender, ok := h.caller(w, r, body.Sender)
	if !ok {
		return
	}
	result, err := h.messages.Clear(r.Context(), sender, body.Receiver)
	if err != nil {
		writeError(h.log, w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(h.log, w, http.StatusOK, result)
}

type connectedUsersResponse struct {
	Data any `json:"data"`
}

func (h *Handlers) ConnectedUsers(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r, r.URL.Query().Get("userId"))
	if !ok {
		return
	}
	users, err := h.directory.ConnectedUsers(r.Context(), userID)
	if err != nil {
		writeError(h.log, w, http.StatusInternalServerError, fmt.Errorf("failed to load contacts: %w", err))
		return
	}
	writeJSON(h.log, w, http.StatusOK, connectedUsersResponse{Data: users})
}

// caller resolves an id that must be the authenticated user's own, an empty one defaults to it.
// Anything else is answered with a 403.
func (h *Handlers) caller(w http.ResponseWriter, r *http.Request, claimed string) (string, bool) {
	userID, _ := auth.UserIDFromContext(r.Context())
	if claimed == "" || claimed == userID {
		return userID, true
	}
	h.log.Warn("Access to another user's data refused", "user_id", userID, "claimed_id", claimed)
	writeMessage(h.log, w, http.StatusForbidden, errors.ErrNotCaller.Error())
	return "", false
}

// callerOrParam falls back to the authenticated user when the query parameter is absent.
// Only used where the id merely excludes a user from the result.
func (h *Handlers) callerOrParam(r *http.Request, name string) string {
	if value := r.URL.Query().Get(name); value != "" {
		return value
	}
	userID, _ := auth.UserIDFromContext(r.Context())
	return userID
}
