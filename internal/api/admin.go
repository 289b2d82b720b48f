package api

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dharsanguruparan/TalentDesk/internal/binding"
	"github.com/dharsanguruparan/TalentDesk/internal/formconfig"
	"github.com/dharsanguruparan/TalentDesk/internal/jobs"
	"github.com/dharsanguruparan/TalentDesk/internal/model"
)

const adminSubject = "admin"

type loginRequest struct {
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if s.cfg.AdminPassword == "" {
		jsonError(w, "admin login is disabled", http.StatusServiceUnavailable)
		return
	}
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if subtle.ConstantTimeCompare([]byte(req.Password), []byte(s.cfg.AdminPassword)) != 1 {
		s.log.Warn("admin login rejected", "ip", s.clientIP(r))
		jsonError(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	token, expires := s.deps.Signer.Issue(adminSubject, s.cfg.AdminSessionTTL)
	respondJSON(w, http.StatusOK, map[string]any{"token": token, "expiresAt": expires.UTC()})
}

func (s *Server) handleAdminRoute(w http.ResponseWriter, r *http.Request) {
	parts := splitPath(r.URL.Path, "/api/admin/")
	if len(parts) == 0 {
		http.NotFound(w, r)
		return
	}
	switch parts[0] {
	case "templates":
		s.handleTemplates(w, r, parts[1:])
	case "jobs":
		s.handleAdminJobs(w, r, parts[1:])
	case "applications":
		s.handleApplications(w, r, parts[1:])
	case "config":
		if len(parts) == 2 && parts[1] == "defaults" {
			s.handleDefaults(w, r)
			return
		}
		http.NotFound(w, r)
	case "events":
		s.handleEvents(w, r)
	default:
		http.NotFound(w, r)
	}
}

// Templates

type templateRequest struct {
	Name   string                 `json:"name"`
	Config formconfig.FieldConfig `json:"config"`
}

type templateView struct {
	*model.ConfigTemplate
	Authoring formconfig.FieldConfig `json:"authoring"`
}

func viewTemplate(t *model.ConfigTemplate) templateView {
	return templateView{ConfigTemplate: t, Authoring: t.Config.Authoring()}
}

func (s *Server) handleTemplates(w http.ResponseWriter, r *http.Request, rest []string) {
	ctx := r.Context()
	if len(rest) == 0 {
		switch r.Method {
		case http.MethodGet:
			list, err := s.deps.Templates.List(ctx)
			if err != nil {
				s.respondError(w, r, err)
				return
			}
			respondJSON(w, http.StatusOK, list)
		case http.MethodPost:
			var req templateRequest
			if !decodeJSON(w, r, &req) {
				return
			}
			t, err := s.deps.Templates.Create(ctx, req.Name, req.Config)
			if err != nil {
				s.respondError(w, r, err)
				return
			}
			respondJSON(w, http.StatusCreated, viewTemplate(t))
		default:
			methodNotAllowed(w)
		}
		return
	}
	if len(rest) != 1 {
		http.NotFound(w, r)
		return
	}
	id := rest[0]
	switch r.Method {
	case http.MethodGet:
		t, err := s.deps.Templates.Get(ctx, id)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, viewTemplate(t))
	case http.MethodPut:
		var req templateRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		t, err := s.deps.Templates.Update(ctx, id, req.Name, req.Config)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, viewTemplate(t))
	case http.MethodDelete:
		if err := s.deps.Templates.Delete(ctx, id); err != nil {
			s.respondError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w)
	}
}

// Jobs

func (s *Server) handleAdminJobs(w http.ResponseWriter, r *http.Request, rest []string) {
	ctx := r.Context()
	if len(rest) == 0 {
		switch r.Method {
		case http.MethodGet:
			var status model.JobStatus
			if raw := r.URL.Query().Get("status"); raw != "" {
				parsed, err := model.ParseJobStatus(raw)
				if err != nil {
					jsonError(w, err.Error(), http.StatusBadRequest)
					return
				}
				status = parsed
			}
			list, err := s.deps.Jobs.List(ctx, status)
			if err != nil {
				s.respondError(w, r, err)
				return
			}
			respondJSON(w, http.StatusOK, list)
		case http.MethodPost:
			var in jobs.Input
			if !decodeJSON(w, r, &in) {
				return
			}
			job, err := s.deps.Jobs.Create(ctx, in)
			if err != nil {
				s.respondError(w, r, err)
				return
			}
			respondJSON(w, http.StatusCreated, job)
		default:
			methodNotAllowed(w)
		}
		return
	}

	id := rest[0]
	if len(rest) == 2 {
		switch rest[1] {
		case "status":
			s.handleJobStatus(w, r, id)
		case "effective-config":
			s.handleEffectiveConfig(w, r, id)
		case "form":
			s.handleDraftForm(w, r, id)
		case "preview":
			s.handleDraftPreview(w, r, id)
		default:
			http.NotFound(w, r)
		}
		return
	}
	if len(rest) != 1 {
		http.NotFound(w, r)
		return
	}
	switch r.Method {
	case http.MethodGet:
		job, err := s.deps.Jobs.Get(ctx, id)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, job)
	case http.MethodPut:
		var in jobs.Input
		if !decodeJSON(w, r, &in) {
			return
		}
		job, err := s.deps.Jobs.Update(ctx, id, in)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, job)
	case http.MethodDelete:
		if err := s.deps.Jobs.Delete(ctx, id); err != nil {
			s.respondError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	to, err := model.ParseJobStatus(req.Status)
	if err != nil {
		s.respondError(w, r, &model.ValidationError{Msg: err.Error()})
		return
	}
	job, err := s.deps.Jobs.SetStatus(r.Context(), id, to)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, job)
}

func (s *Server) handleDraftForm(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	form, err := s.deps.Intake.DraftForm(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, form)
}

func (s *Server) handleDraftPreview(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	values, _, ok := s.readValues(w, r)
	if !ok {
		return
	}
	result, err := s.deps.Intake.DraftPreview(r.Context(), id, values)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

type effectiveConfig struct {
	binding.Resolution
	Authoring formconfig.FieldConfig `json:"authoring"`
}

func (s *Server) handleEffectiveConfig(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	job, err := s.deps.Jobs.Get(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	res, err := s.deps.Resolver.Resolve(r.Context(), job)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, effectiveConfig{Resolution: res, Authoring: res.Config.Authoring()})
}

func (s *Server) handleDefaults(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	defaults := s.deps.Resolver.Defaults()
	respondJSON(w, http.StatusOK, map[string]any{
		"fields":    formconfig.Fields,
		"config":    defaults,
		"authoring": defaults.Authoring(),
	})
}

// Applications

type applicationPatch struct {
	Status *string `json:"status"`
	Notes  *string `json:"notes"`
}

func (s *Server) handleApplications(w http.ResponseWriter, r *http.Request, rest []string) {
	ctx := r.Context()
	if len(rest) == 0 {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		q := r.URL.Query()
		filter := model.ApplicationFilter{JobID: q.Get("jobId")}
		if raw := q.Get("status"); raw != "" {
			st, err := model.ParseApplicationStatus(raw)
			if err != nil {
				jsonError(w, err.Error(), http.StatusBadRequest)
				return
			}
			filter.Status = st
		}
		list, err := s.deps.Applications.ListApplications(ctx, filter)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, list)
		return
	}

	id := rest[0]
	if len(rest) == 2 && rest[1] == "resume-url" {
		s.handleResumeURL(w, r, id)
		return
	}
	if len(rest) != 1 {
		http.NotFound(w, r)
		return
	}
	switch r.Method {
	case http.MethodGet:
		app, err := s.deps.Applications.GetApplication(ctx, id)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, app)
	case http.MethodPatch:
		var patch applicationPatch
		if !decodeJSON(w, r, &patch) {
			return
		}
		if patch.Status == nil && patch.Notes == nil {
			s.respondError(w, r, &model.ValidationError{Msg: "nothing to update"})
			return
		}
		var status *model.ApplicationStatus
		if patch.Status != nil {
			st, err := model.ParseApplicationStatus(*patch.Status)
			if err != nil {
				s.respondError(w, r, &model.ValidationError{Msg: err.Error(), Fields: map[string]string{"status": "unknown status"}})
				return
			}
			status = &st
		}
		app, err := s.deps.Applications.UpdateApplication(ctx, id, status, patch.Notes)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, app)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleResumeURL(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	app, err := s.deps.Applications.GetApplication(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	raw := app.Fields[formconfig.FieldResumeURL]
	if raw == "" {
		jsonError(w, "application has no resume", http.StatusNotFound)
		return
	}
	if s.deps.Resumes == nil {
		respondJSON(w, http.StatusOK, map[string]string{"url": raw})
		return
	}
	key, ok := s.deps.Resumes.KeyFromURL(raw)
	if !ok {
		// Linked from elsewhere; nothing to sign.
		respondJSON(w, http.StatusOK, map[string]string{"url": raw})
		return
	}
	url, err := s.deps.Resumes.PresignResumeDownload(r.Context(), key, s.cfg.SignedURLTTL)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"url":       url,
		"expiresAt": time.Now().Add(s.cfg.SignedURLTTL).UTC(),
	})
}

// Events

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	if s.deps.Events == nil {
		jsonError(w, "live updates are not configured", http.StatusServiceUnavailable)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		jsonError(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for ev := range s.deps.Events(r.Context()) {
		data, err := json.Marshal(ev)
		if err != nil {
			continue
		}
		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data); err != nil {
			return
		}
		flusher.Flush()
	}
}
