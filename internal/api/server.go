package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/JakeFAU/profile-screener/internal/config"
	"github.com/JakeFAU/profile-screener/internal/metrics"
	"github.com/JakeFAU/profile-screener/internal/policy/ratelimit"
	"github.com/JakeFAU/profile-screener/internal/profile"
)

// maxBodyBytes bounds request bodies on the profile routes.
const maxBodyBytes = 1 << 20

// Screener acquires and scores one profile.
type Screener interface {
	Screen(ctx context.Context, url string) (profile.Result, error)
	ScreenWithCredentials(ctx context.Context, url string, creds profile.Credentials) (profile.Result, error)
}

// Server wires HTTP handlers to the screening service.
type Server struct {
	router   chi.Router
	screener Screener
	limiter  *ratelimit.Limiter
	logger   *zap.Logger
	cfg      config.Config
}

// NewServer constructs a Server with middleware and routes.
func NewServer(screener Screener, cfg config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()
	s := &Server{
		screener: screener,
		limiter: ratelimit.New(ratelimit.Config{
			Requests: cfg.RateLimit.Requests,
			Window:   cfg.RateLimit.Window,
		}),
		logger: logger.Named("api"),
		cfg:    cfg,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(metrics.Middleware)

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		if cfg.Auth.Enabled {
			r.Use(middleware.BasicAuth("profile-screener", map[string]string{
				cfg.Auth.Username: cfg.Auth.Password,
			}))
		}
		r.Use(s.rateLimitMiddleware)
		r.Use(timeoutMiddleware(cfg.Server.RequestTimeout))
		r.Post("/profile", s.screenProfile)
		r.Get("/profile", s.screenProfileByQuery)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	if s.screener == nil {
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type screenRequest struct {
	LinkedInURL string               `json:"linkedinUrl"`
	Credentials *profile.Credentials `json:"credentials,omitempty"`
}

type successResponse struct {
	Success bool           `json:"success"`
	Data    profile.Result `json:"data"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Kind    string `json:"kind,omitempty"`
}

func (s *Server) screenProfile(w http.ResponseWriter, r *http.Request) {
	var req screenRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON", kindValidation)
		return
	}
	s.screen(w, r, req)
}

func (s *Server) screenProfileByQuery(w http.ResponseWriter, r *http.Request) {
	s.screen(w, r, screenRequest{LinkedInURL: r.URL.Query().Get("url")})
}

func (s *Server) screen(w http.ResponseWriter, r *http.Request, req screenRequest) {
	if err := validateRequest(req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error(), kindValidation)
		return
	}
	if s.screener == nil {
		s.writeError(w, http.StatusServiceUnavailable, "screener not configured", "")
		return
	}

	var (
		result profile.Result
		err    error
	)
	if req.Credentials != nil {
		result, err = s.screener.ScreenWithCredentials(r.Context(), req.LinkedInURL, *req.Credentials)
	} else {
		result, err = s.screener.Screen(r.Context(), req.LinkedInURL)
	}
	if err != nil {
		kind := profile.KindOf(err)
		s.logger.Warn("screening failed",
			zap.String("request_id", requestIDFrom(r.Context())),
			zap.String("url", req.LinkedInURL),
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
		s.writeError(w, statusFor(kind), clientMessage(err), string(kind))
		return
	}
	s.writeJSON(w, http.StatusOK, successResponse{Success: true, Data: result})
}

const timeoutBody = `{"success":false,"error":"request timed out"}`

// kindValidation labels request validation failures in error responses.
const kindValidation = "ValidationError"

var kindStatus = map[profile.ErrorKind]int{
	profile.KindLoginRequired:     http.StatusUnauthorized,
	profile.KindLoginFailed:       http.StatusUnauthorized,
	profile.KindExtraction:        http.StatusNotFound,
	profile.KindSecurityChallenge: http.StatusServiceUnavailable,
	profile.KindCapacity:          http.StatusServiceUnavailable,
	profile.KindNavigation:        http.StatusGatewayTimeout,
	profile.KindUnknown:           http.StatusInternalServerError,
}

func statusFor(kind profile.ErrorKind) int {
	if status, ok := kindStatus[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// clientMessage returns the classified message without the wrapped cause,
// which may carry browser internals.
func clientMessage(err error) string {
	var acqErr *profile.AcquisitionError
	if errors.As(err, &acqErr) && acqErr.Message != "" {
		return acqErr.Message
	}
	return "profile acquisition failed"
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("write JSON failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg, kind string) {
	s.writeJSON(w, status, errorResponse{Success: false, Error: msg, Kind: kind})
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if d <= 0 {
			return next
		}
		th := http.TimeoutHandler(next, d, timeoutBody)
		// TimeoutHandler writes its body straight to w; every /v1 handler
		// answers JSON, so the type is set up front.
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			th.ServeHTTP(w, r)
		})
	}
}
