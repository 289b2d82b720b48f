package api

import (
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/dharsanguruparan/TalentDesk/internal/formconfig"
	"github.com/dharsanguruparan/TalentDesk/internal/model"
)

// publicJob is what candidates see of a posting.
type publicJob struct {
	ID            string         `json:"id"`
	Title         string         `json:"title"`
	Location      string         `json:"location"`
	Industry      string         `json:"industry"`
	Description   string         `json:"description"`
	Eligibility   string         `json:"eligibility"`
	SalaryMin     *float64       `json:"salaryMin,omitempty"`
	SalaryMax     *float64       `json:"salaryMax,omitempty"`
	Currency      string         `json:"currency,omitempty"`
	ExperienceMin *int           `json:"experienceMin,omitempty"`
	ExperienceMax *int           `json:"experienceMax,omitempty"`
	Type          model.JobType  `json:"type"`
	Priority      model.Priority `json:"priority"`
	PostedAt      time.Time      `json:"postedAt"`
}

func toPublicJob(j *model.Job) publicJob {
	return publicJob{
		ID:            j.ID,
		Title:         j.Title,
		Location:      j.Location,
		Industry:      j.Industry,
		Description:   j.Description,
		Eligibility:   j.Eligibility,
		SalaryMin:     j.SalaryMin,
		SalaryMax:     j.SalaryMax,
		Currency:      j.Currency,
		ExperienceMin: j.ExperienceMin,
		ExperienceMax: j.ExperienceMax,
		Type:          j.Type,
		Priority:      j.Priority,
		PostedAt:      j.CreatedAt,
	}
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	list, err := s.deps.Jobs.ListPublished(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	out := make([]publicJob, 0, len(list))
	for i := range list {
		out = append(out, toPublicJob(&list[i]))
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleJobRoute(w http.ResponseWriter, r *http.Request) {
	parts := splitPath(r.URL.Path, "/api/jobs/")
	if len(parts) == 0 {
		http.NotFound(w, r)
		return
	}
	id := parts[0]
	switch {
	case len(parts) == 1:
		s.handlePublicJob(w, r, id)
	case len(parts) == 2 && parts[1] == "form":
		s.handleForm(w, r, id)
	case len(parts) == 2 && parts[1] == "applications":
		s.handleApply(w, r, id)
	case len(parts) == 3 && parts[1] == "applications" && parts[2] == "validate":
		s.handlePreview(w, r, id)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handlePublicJob(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	job, err := s.deps.Jobs.GetPublished(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toPublicJob(job))
}

func (s *Server) handleForm(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	form, err := s.deps.Intake.Form(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, form)
}

// captchaField is read from the application body and never stored.
const captchaField = "captchaToken"

func (s *Server) readValues(w http.ResponseWriter, r *http.Request) (formconfig.Values, string, bool) {
	var raw map[string]any
	if !decodeJSON(w, r, &raw) {
		return nil, "", false
	}
	token, _ := raw[captchaField].(string)
	delete(raw, captchaField)
	return formconfig.ValuesFromJSON(raw), token, true
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	values, _, ok := s.readValues(w, r)
	if !ok {
		return
	}
	result, err := s.deps.Intake.Preview(r.Context(), id, values)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleApply(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	ip := s.clientIP(r)
	if !s.limiter.allow(ip) {
		w.Header().Set("Retry-After", "5")
		jsonError(w, "too many applications, try again shortly", http.StatusTooManyRequests)
		return
	}
	values, token, ok := s.readValues(w, r)
	if !ok {
		return
	}
	if err := s.deps.Captcha.Verify(r.Context(), token, ip); err != nil {
		s.respondError(w, r, err)
		return
	}
	app, err := s.deps.Intake.Submit(r.Context(), id, values)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{
		"id":        app.ID,
		"jobId":     app.JobID,
		"status":    app.Status,
		"appliedAt": app.AppliedAt,
	})
}

type resumeUploadRequest struct {
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

func (s *Server) handleResumeUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if s.deps.Resumes == nil {
		jsonError(w, "resume uploads are not configured", http.StatusServiceUnavailable)
		return
	}
	var req resumeUploadRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	fields := map[string]string{}
	if strings.TrimSpace(req.FileName) == "" {
		fields["fileName"] = "file name is required"
	}
	contentType, _, _ := strings.Cut(req.ContentType, ";")
	if !slices.Contains(s.cfg.ResumeAllowedTypes, strings.TrimSpace(contentType)) {
		fields["contentType"] = "unsupported resume format"
	}
	if req.Size <= 0 || req.Size > s.cfg.ResumeMaxBytes {
		fields["size"] = "resume must be between 1 byte and the upload limit"
	}
	if len(fields) > 0 {
		s.respondError(w, r, &model.ValidationError{Msg: "invalid resume upload", Fields: fields})
		return
	}
	upload, err := s.deps.Resumes.PresignResumeUpload(r.Context(), req.FileName, s.cfg.SignedURLTTL)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, upload)
}
