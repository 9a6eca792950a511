package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// Pinger reports whether the store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RouterDependencies collects handler dependencies.
type RouterDependencies struct {
	Accounts     *AccountHandler
	Deposits     *DepositHandler
	DepositTypes *DepositTypeHandler
	Health       Pinger
	Metrics      http.Handler
}

const headerRequestID = "X-Request-ID"

// NewRouter wires the HTTP routes exposed by the service.
func NewRouter(logger *slog.Logger, deps RouterDependencies) http.Handler {
	r := mux.NewRouter()
	r.Use(requestMiddleware(logger))

	r.HandleFunc("/health", healthHandler(deps.Health)).Methods(http.MethodGet)
	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api").Subrouter()

	if h := deps.Accounts; h != nil {
		api.Handle("/accounts", client(h.CreateAccountHandler)).Methods(http.MethodPost)
		api.Handle("/accounts/client/{clientId}", client(h.GetClientAccountHandler)).Methods(http.MethodGet)
		api.Handle("/accounts/{accountNumber}", client(h.GetAccountHandler)).Methods(http.MethodGet)
		api.Handle("/accounts/{accountNumber}/fund", admin(h.FundAccountHandler)).Methods(http.MethodPost)
		api.Handle("/accounts/{accountNumber}/entries", client(h.ListEntriesHandler)).Methods(http.MethodGet)
	}

	if h := deps.Deposits; h != nil {
		api.Handle("/deposits", client(h.CreateDepositHandler)).Methods(http.MethodPost)
		api.Handle("/deposits/due", admin(h.ListDueDepositsHandler)).Methods(http.MethodGet)
		api.Handle("/deposits/client/{clientId}", client(h.ListClientDepositsHandler)).Methods(http.MethodGet)
		api.Handle("/deposits/account/{accountNumber}", client(h.ListAccountDepositsHandler)).Methods(http.MethodGet)
		api.Handle("/deposits/{depositId:[0-9]+}", client(h.GetDepositHandler)).Methods(http.MethodGet)
		api.Handle("/deposits/{depositId:[0-9]+}/close", client(h.CloseDepositHandler)).Methods(http.MethodPost)
		api.Handle("/deposits/{depositId:[0-9]+}/mature", admin(h.MatureDepositHandler)).Methods(http.MethodPost)
	}

	if h := deps.DepositTypes; h != nil {
		api.HandleFunc("/deposit-types/active", h.ListActiveHandler).Methods(http.MethodGet)
		api.Handle("/deposit-types", admin(h.ListAllHandler)).Methods(http.MethodGet)
		api.Handle("/deposit-types", admin(h.CreateHandler)).Methods(http.MethodPost)
		api.HandleFunc("/deposit-types/{id:[0-9]+}", h.GetHandler).Methods(http.MethodGet)
		api.Handle("/deposit-types/{id:[0-9]+}", admin(h.UpdateHandler)).Methods(http.MethodPut)
		api.Handle("/deposit-types/{id:[0-9]+}/activate", admin(h.ActivateHandler)).Methods(http.MethodPost)
		api.Handle("/deposit-types/{id:[0-9]+}/deactivate", admin(h.DeactivateHandler)).Methods(http.MethodPost)
	}

	return r
}

func healthHandler(store Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		payload := map[string]any{"status": "ok"}
		if store != nil {
			if err := store.Ping(ctx); err != nil {
				loggerFrom(r.Context()).Error("health probe failed", "error", err)
				status = http.StatusServiceUnavailable
				payload["status"] = "degraded"
			}
		}
		writeJSON(w, status, payload)
	}
}

// client requires a caller identity.
func client(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := identityFromHeaders(r.Header)
		if !ok {
			writeMessage(w, http.StatusUnauthorized, "Missing "+headerClientID+" header")
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), identityKey, id)))
	})
}

// admin requires a caller identity holding the ADMIN role.
func admin(next http.HandlerFunc) http.Handler {
	return client(func(w http.ResponseWriter, r *http.Request) {
		if !identityFrom(r.Context()).IsAdmin() {
			writeMessage(w, http.StatusForbidden, "Admin role required")
			return
		}
		next(w, r)
	})
}

// requestMiddleware tags each request with an id, echoes it back and logs the completed request.
func requestMiddleware(logger *slog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(headerRequestID)
			if requestID == "" {
				requestID = uuid.NewString()
			}
			w.Header().Set(headerRequestID, requestID)

			reqLogger := logger.With("request_id", requestID)
			ctx := context.WithValue(r.Context(), loggerKey, reqLogger)

			start := time.Now()
			rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r.WithContext(ctx))
			reqLogger.Info("request completed",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}

type responseRecorder struct {
	http.ResponseWriter
	status int
}

func (r *responseRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
