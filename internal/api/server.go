// Package api exposes the candidate and admin HTTP endpoints.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"expvar"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dharsanguruparan/TalentDesk/internal/binding"
	"github.com/dharsanguruparan/TalentDesk/internal/captcha"
	"github.com/dharsanguruparan/TalentDesk/internal/config"
	"github.com/dharsanguruparan/TalentDesk/internal/events"
	"github.com/dharsanguruparan/TalentDesk/internal/intake"
	"github.com/dharsanguruparan/TalentDesk/internal/jobs"
	"github.com/dharsanguruparan/TalentDesk/internal/model"
	"github.com/dharsanguruparan/TalentDesk/internal/registry"
	"github.com/dharsanguruparan/TalentDesk/internal/s3storage"
	"github.com/dharsanguruparan/TalentDesk/internal/signing"
)

// ApplicationStore is the admin view of stored applications.
type ApplicationStore interface {
	GetApplication(ctx context.Context, id string) (*model.Application, error)
	ListApplications(ctx context.Context, f model.ApplicationFilter) ([]model.Application, error)
	UpdateApplication(ctx context.Context, id string, status *model.ApplicationStatus, notes *string) (*model.Application, error)
}

// ResumeStore issues presigned resume URLs. *s3storage.Storage implements it.
type ResumeStore interface {
	PresignResumeUpload(ctx context.Context, fileName string, ttl time.Duration) (*s3storage.Upload, error)
	PresignResumeDownload(ctx context.Context, objectKey string, ttl time.Duration) (string, error)
	KeyFromURL(raw string) (string, bool)
}

// EventSource streams submission events for the admin dashboard.
type EventSource func(ctx context.Context) <-chan events.Submitted

// Deps are the collaborators of a Server. Resumes, Events and Captcha are
// optional.
type Deps struct {
	Templates    *registry.Service
	Jobs         *jobs.Service
	Intake       *intake.Service
	Resolver     *binding.Resolver
	Applications ApplicationStore
	Resumes      ResumeStore
	Events       EventSource
	Captcha      captcha.Verifier
	Signer       *signing.Signer
	Logger       *slog.Logger
}

// Server exposes HTTP endpoints for job listings, applications and the admin
// dashboard.
type Server struct {
	cfg     *config.Config
	deps    Deps
	log     *slog.Logger
	limiter *ipLimiter
	handler http.Handler
	once    sync.Once
}

// New constructs a Server.
func New(cfg *config.Config, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Captcha == nil {
		deps.Captcha = captcha.Noop{}
	}
	return &Server{
		cfg:     cfg,
		deps:    deps,
		log:     deps.Logger,
		limiter: newIPLimiter(submitRate, submitBurst),
	}
}

// Handler returns the fully wrapped route table.
func (s *Server) Handler() http.Handler {
	s.once.Do(func() {
		mux := http.NewServeMux()
		mux.HandleFunc("/healthz", s.handleHealth)
		mux.Handle("/debug/vars", expvar.Handler())
		mux.HandleFunc("/api/jobs", s.handleJobs)
		mux.HandleFunc("/api/jobs/", s.handleJobRoute)
		mux.HandleFunc("/api/uploads/resume", s.handleResumeUpload)
		mux.HandleFunc("/api/admin/login", s.handleLogin)
		mux.Handle("/api/admin/", s.requireAdmin(http.HandlerFunc(s.handleAdminRoute)))
		s.handler = requestIDMiddleware(corsMiddleware(s.loggingMiddleware(mux)))
	})
	return s.handler
}

// Run starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	s.log.Info("api listening", "addr", s.cfg.Address)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// splitPath returns the non-empty segments of path after prefix.
func splitPath(path, prefix string) []string {
	rest := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	if rest == "" {
		return nil
	}
	return strings.Split(rest, "/")
}

func methodNotAllowed(w http.ResponseWriter) {
	jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
}

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		jsonError(w, fmt.Sprintf("invalid JSON body: %v", err), http.StatusBadRequest)
		return false
	}
	return true
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Warn("encode response", "err", err)
	}
}

type errorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	respondJSON(w, code, errorBody{Error: msg})
}

// respondError maps domain errors onto HTTP statuses. Anything unrecognised
// is logged and reported as a 500 without details.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr *model.ValidationError
		rerr *intake.RequiredFieldError
	)
	switch {
	case errors.As(err, &rerr):
		respondJSON(w, http.StatusUnprocessableEntity, errorBody{Error: rerr.Error(), Fields: rerr.Messages()})
	case errors.As(err, &verr):
		respondJSON(w, http.StatusBadRequest, errorBody{Error: verr.Msg, Fields: verr.Fields})
	case errors.Is(err, model.ErrNotFound):
		jsonError(w, "not found", http.StatusNotFound)
	case errors.Is(err, intake.ErrJobClosed):
		jsonError(w, intake.ErrJobClosed.Error(), http.StatusConflict)
	case errors.Is(err, captcha.ErrRejected):
		jsonError(w, captcha.ErrRejected.Error(), http.StatusForbidden)
	default:
		s.log.Error("request failed", "method", r.Method, "path", r.URL.Path,
			"requestId", requestID(r.Context()), "err", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
	}
}
