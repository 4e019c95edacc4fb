package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	tgAuth "github.com/MrEthical07/tgAuth"
	"github.com/MrEthical07/tgAuth/middleware"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const maxBodyBytes = 16 << 10

// Service is the Engine surface the HTTP layer needs. *tgAuth.Engine
// implements it.
type Service interface {
	IssueSession(ctx context.Context, raw string, opts tgAuth.VerifyOptions) (*tgAuth.IssueResult, error)
	ValidateSession(ctx context.Context, token string) (*tgAuth.AuthResult, error)
	RevokeSession(ctx context.Context, sessionID string) error
	RevokeAllForUser(ctx context.Context, userID int64) (int, error)
	ListActiveSessions(ctx context.Context, userID int64) ([]tgAuth.SessionInfo, error)
	Ping(ctx context.Context) error
}

// Options configures [NewRouter].
type Options struct {
	Logger *zap.Logger
	// RequestsPerSecond and Burst bound POST /api/auth/verify per client IP.
	// A zero RequestsPerSecond disables the limiter.
	RequestsPerSecond float64
	Burst             int
	// TrustProxyHeaders takes the client IP from X-Forwarded-For / X-Real-IP.
	TrustProxyHeaders bool
	// MetricsHandler is mounted on GET /metrics when non-nil.
	MetricsHandler http.Handler
}

type server struct {
	svc    Service
	logger *zap.Logger
}

// NewRouter builds the HTTP handler for svc.
func NewRouter(svc Service, opts Options) *mux.Router {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &server{svc: svc, logger: logger}

	r := mux.NewRouter()
	r.Use(clientContext(opts.TrustProxyHeaders))
	r.Use(requestLogger(logger))

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	if opts.MetricsHandler != nil {
		r.Handle("/metrics", opts.MetricsHandler).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api").Subrouter()

	var verify http.Handler = http.HandlerFunc(s.handleVerify)
	if opts.RequestsPerSecond > 0 {
		verify = NewIPRateLimiter(opts.RequestsPerSecond, opts.Burst, logger).Handler(verify)
	}
	api.Handle("/auth/verify", verify).Methods(http.MethodPost)

	authed := api.NewRoute().Subrouter()
	authed.Use(middleware.Guard(svc))
	authed.HandleFunc("/auth/me", s.handleMe).Methods(http.MethodGet)
	authed.HandleFunc("/auth/logout", s.handleLogout).Methods(http.MethodPost)

	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(middleware.Guard(svc), middleware.RequireRole(tgAuth.RoleAdmin))
	admin.HandleFunc("/users/{id:[0-9]+}/sessions", s.handleActiveSessions).Methods(http.MethodGet)
	admin.HandleFunc("/users/{id:[0-9]+}/sessions", s.handleRevokeAll).Methods(http.MethodDelete)

	return r
}

func (s *server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.writeVerifyFailure(w, tgAuth.ErrMissingPayload)
		return
	}

	res, err := s.svc.IssueSession(r.Context(), req.InitData, tgAuth.VerifyOptions{
		SecurityLevel:   req.SecurityLevel,
		ClientTimestamp: req.ClientTimestamp,
	})
	if err != nil {
		s.writeVerifyFailure(w, err)
		return
	}

	identity := res.Identity
	expiresAt := res.Session.ExpiresAt
	writeJSON(w, http.StatusOK, VerifyResponse{
		Success:      true,
		UserID:       identity.ID,
		UserData:     &identity,
		Message:      "Authentication successful",
		SecurityInfo: securityInfo(res.Security),
		Token:        res.Session.Token,
		SessionID:    res.Session.SessionID,
		Role:         res.Session.Role,
		ExpiresAt:    &expiresAt,
	})
}

// writeVerifyFailure answers with one generic message and a coarse reason.
func (s *server) writeVerifyFailure(w http.ResponseWriter, err error) {
	status := verifyFailureStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Warn("verification backend failure", zap.String("reason", tgAuth.ReasonCode(err)))
	}
	writeJSON(w, status, VerifyResponse{
		Success:      false,
		Message:      "Authentication failed",
		Reason:       tgAuth.ReasonCode(err),
		SecurityInfo: failedSecurityInfo,
	})
}

func verifyFailureStatus(err error) int {
	if errors.Is(err, tgAuth.ErrIssueRateLimited) {
		return http.StatusTooManyRequests
	}
	switch tgAuth.KindOf(err) {
	case tgAuth.KindUpstream:
		return http.StatusServiceUnavailable
	case tgAuth.KindTimeout, tgAuth.KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusUnauthorized
	}
}

func (s *server) handleMe(w http.ResponseWriter, r *http.Request) {
	res, _ := middleware.AuthResultFromContext(r.Context())
	writeJSON(w, http.StatusOK, MeResponse{
		UserID:    res.UserID,
		SessionID: res.SessionID,
		Role:      res.Role,
		IssuedAt:  res.IssuedAt,
		ExpiresAt: res.ExpiresAt,
	})
}

func (s *server) handleLogout(w http.ResponseWriter, r *http.Request) {
	res, _ := middleware.AuthResultFromContext(r.Context())
	if err := s.svc.RevokeSession(r.Context(), res.SessionID); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleActiveSessions(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDVar(w, r)
	if !ok {
		return
	}
	sessions, err := s.svc.ListActiveSessions(r.Context(), userID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SessionsResponse{UserID: userID, Active: len(sessions), Sessions: sessions})
}

func (s *server) handleRevokeAll(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDVar(w, r)
	if !ok {
		return
	}
	n, err := s.svc.RevokeAllForUser(r.Context(), userID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SessionsResponse{UserID: userID, Revoked: n})
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Ping(r.Context()); err != nil {
		s.logger.Warn("health check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch tgAuth.KindOf(err) {
	case tgAuth.KindUpstream:
		status = http.StatusServiceUnavailable
	case tgAuth.KindUnauthorized:
		status = http.StatusUnauthorized
	}
	if status != http.StatusUnauthorized {
		s.logger.Warn("request failed", zap.Error(err))
	}
	writeJSON(w, status, errorResponse{
		Message: http.StatusText(status),
		Reason:  tgAuth.ReasonCode(err),
	})
}

func userIDVar(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "invalid user id", Reason: "bad_request"})
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
