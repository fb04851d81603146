package api

import (
	"chat-link/observability"
	"chat-link/services"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
)

// NewRouter wires every route. The directory and history routes sit behind RequireToken,
// the live channel behind RequireSocketToken, account routes stay public.
func NewRouter(
	log *slog.Logger,
	handlers *Handlers,
	socket http.Handler,
	credentials services.ICredentialService,
	metrics *observability.Metrics) *mux.Router {
	r := mux.NewRouter()
	r.Use(AccessLog(log, metrics))

	r.HandleFunc("/", handlers.Home).Methods(http.MethodGet)
	r.HandleFunc("/healthz", handlers.Health).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	r.Handle("/socket", RequireSocketToken(log, credentials)(socket)).Methods(http.MethodGet)

	r.HandleFunc("/user", handlers.CreateUser).Methods(http.MethodPost)
	r.HandleFunc("/signUp", handlers.SignUp).Methods(http.MethodPost)
	r.HandleFunc("/logIn", handlers.LogIn).Methods(http.MethodPost)
	r.HandleFunc("/logOut", handlers.LogOut).Methods(http.MethodGet)
	r.HandleFunc("/refreshToken", handlers.RefreshToken).Methods(http.MethodGet)

	gated := r.NewRoute().Subrouter()
	gated.Use(RequireToken(log, credentials))
	gated.HandleFunc("/allUsers", handlers.AllUsers).Methods(http.MethodGet)
	gated.HandleFunc("/searchUsers", handlers.SearchUsers).Methods(http.MethodGet)
	gated.HandleFunc("/getAllMessages", handlers.AllMessages).Methods(http.MethodGet)
	gated.HandleFunc("/clearChatMessages", handlers.ClearChatMessages).Methods(http.MethodPost)
	gated.HandleFunc("/connectedUser", handlers.ConnectedUsers).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeMessage(log, w, http.StatusNotFound, "Route not found")
	})
	return r
}
