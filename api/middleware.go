package api

import (
	"bufio"
	"chat-link/auth"
	"chat-link/errors"
	"chat-link/observability"
	"chat-link/services"
	goerrors "errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

// RequireToken resolves the bearer token into a user id stored in the request context.
func RequireToken(log *slog.Logger, credentials services.ICredentialService) mux.MiddlewareFunc {
	return requireToken(log, credentials, headerToken)
}

// RequireSocketToken also accepts a token query parameter,
// browser websocket clients cannot set headers on the handshake.
func RequireSocketToken(log *slog.Logger, credentials services.ICredentialService) mux.MiddlewareFunc {
	return requireToken(log, credentials, socketToken)
}

func headerToken(r *http.Request) (string, error) {
	return auth.BearerToken(r.Header.Get("Authorization"))
}

func socketToken(r *http.Request) (string, error) {
	if token, err := headerToken(r); err == nil {
		return token, nil
	}
	if token := r.URL.Query().Get("token"); token != "" {
		return token, nil
	}
	return "", errors.ErrTokenMissing
}

func requireToken(
	log *slog.Logger,
	credentials services.ICredentialService,
	extract func(r *http.Request) (string, error)) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := extract(r)
			if err != nil {
				writeMessage(log, w, http.StatusUnauthorized, errors.ErrTokenInvalid.Error())
				return
			}

			userID, err := credentials.Authenticate(r.Context(), token)
			switch {
			case goerrors.Is(err, errors.ErrTokenRevoked), goerrors.Is(err, errors.ErrUserNotFound):
				writeMessage(log, w, http.StatusForbidden, errors.ErrTokenRevoked.Error())
			case goerrors.Is(err, errors.ErrTokenExpired):
				writeMessage(log, w, http.StatusUnauthorized, errors.ErrTokenExpired.Error())
			case goerrors.Is(err, errors.ErrTokenInvalid), goerrors.Is(err, errors.ErrTokenMissing):
				writeMessage(log, w, http.StatusUnauthorized, errors.ErrTokenInvalid.Error())
			case err != nil:
				writeError(log, w, http.StatusInternalServerError, err)
			default:
				next.ServeHTTP(w, r.WithContext(auth.WithUserID(r.Context(), userID)))
			}
		})
	}
}

// statusRecorder keeps http.Hijacker reachable for the websocket upgrade.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	// A hijacked connection has switched protocols
	r.status = http.StatusSwitchingProtocols
	return hijacker.Hijack()
}

// AccessLog logs one line per request and counts it by route template.
// Headers are never logged, they carry bearer tokens.
func AccessLog(log *slog.Logger, metrics *observability.Metrics) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(recorder, r)

			route := "unmatched"
			if current := mux.CurrentRoute(r); current != nil {
				if template, err := current.GetPathTemplate(); err == nil {
					route = template
				}
			}
			metrics.RequestServed(route, recorder.status)

			level := slog.LevelInfo
			switch {
			case recorder.status >= http.StatusInternalServerError:
				level = slog.LevelError
			case recorder.status >= http.StatusBadRequest:
				level = slog.LevelWarn
			}
			log.Log(r.Context(), level, "HTTP request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", recorder.status,
				"duration", time.Since(start))
		})
	}
}
