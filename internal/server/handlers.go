package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/yairfalse/cloudctl/internal/filter"
	"github.com/yairfalse/cloudctl/internal/plugin"
	"github.com/yairfalse/cloudctl/orchestrator"
	"github.com/yairfalse/cloudctl/payload"
	"github.com/yairfalse/cloudctl/providers"
	"github.com/yairfalse/cloudctl/storage"
	"github.com/yairfalse/cloudctl/types"
	"github.com/yairfalse/cloudctl/validation"
)

// maxBodyBytes bounds request bodies; a cloud with a GCP key fits easily
const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error  string                 `json:"error"`
	Fields []validation.FieldError `json:"fields,omitempty"`
}

type providerResponse struct {
	Provider types.Provider           `json:"provider"`
	Config   providers.ProviderConfig `json:"config"`
}

type validateResponse struct {
	Valid   bool            `json:"valid"`
	Payload payload.Payload `json:"payload"`
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	req, err := s.pageRequest(r)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}

	page, err := s.reader.List(r.Context(), req)
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	for i := range page.Items {
		page.Items[i] = page.Items[i].Masked()
	}
	s.writeJSON(w, http.StatusOK, page)
}

func (s *Server) pageRequest(r *http.Request) (storage.PageRequest, error) {
	q := r.URL.Query()
	req := storage.PageRequest{Page: 1, PageSize: s.pageSize}

	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return req, fmt.Errorf("page must be a positive integer")
		}
		req.Page = n
	}
	if v := q.Get("pageSize"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 100 {
			return req, fmt.Errorf("pageSize must be between 1 and 100")
		}
		req.PageSize = n
	}
	if v := q.Get("provider"); v != "" {
		p, err := types.ParseProvider(v)
		if err != nil {
			return req, err
		}
		req.Provider = p
	}
	f := filter.New(nil, q["group"], q["excludeGroup"], q.Get("q"))
	req.Match = f.Predicate()
	return req, nil
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	c, err := s.clouds.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if r.URL.Query().Get("reveal") != "true" {
		c = c.Masked()
	}
	s.writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	c, ok := s.decodeCloud(w, r)
	if !ok {
		return
	}
	c.ID = ""

	saved, err := s.clouds.Save(r.Context(), payload.Build(c))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/clouds/"+saved.ID)
	s.writeJSON(w, http.StatusCreated, saved.Masked())
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.clouds.Get(r.Context(), id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	c, ok := s.decodeCloud(w, r)
	if !ok {
		return
	}
	c.ID = id

	saved, err := s.clouds.Save(r.Context(), payload.Build(c))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, saved.Masked())
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.clouds.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	c, err := s.clouds.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	v, ok := plugin.Get(c.Provider)
	if !ok {
		s.writeError(w, r, http.StatusNotImplemented, fmt.Errorf("no verifier for provider %s", c.Provider))
		return
	}

	report, err := v.Verify(r.Context(), c)
	if err != nil {
		s.writeError(w, r, http.StatusBadGateway, err)
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

// handleValidate runs the full validation pass without storing anything
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	c, ok := s.decodeCloud(w, r)
	if !ok {
		return
	}
	validated, errs := validation.Validate(c)
	if len(errs) > 0 {
		s.writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "validation failed", Fields: errs})
		return
	}
	s.writeJSON(w, http.StatusOK, validateResponse{Valid: true, Payload: payload.Build(validated.Masked())})
}

func (s *Server) handleProviders(w http.ResponseWriter, _ *http.Request) {
	out := make([]providerResponse, 0, len(providers.Providers()))
	for _, p := range providers.Providers() {
		out = append(out, providerResponse{Provider: p, Config: providers.ConfigFor(p)})
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleProvider(w http.ResponseWriter, r *http.Request) {
	p, err := types.ParseProvider(r.PathValue("provider"))
	if err != nil {
		s.writeError(w, r, http.StatusNotFound, err)
		return
	}
	s.writeJSON(w, http.StatusOK, providerResponse{Provider: p, Config: providers.ConfigFor(p)})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	body := map[string]any{"status": "ok"}
	if s.daemon != nil {
		h := s.daemon.Health()
		body["daemon"] = h
		if h.Status != "healthy" {
			body["status"] = h.Status
		}
	}
	s.writeJSON(w, http.StatusOK, body)
}

func (s *Server) decodeCloud(w http.ResponseWriter, r *http.Request) (types.Cloud, bool) {
	var c types.Cloud
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	data, err := io.ReadAll(body)
	if err != nil {
		s.writeError(w, r, http.StatusRequestEntityTooLarge, err)
		return c, false
	}
	if err := json.Unmarshal(data, &c); err != nil {
		s.writeError(w, r, http.StatusBadRequest, fmt.Errorf("decode cloud: %w", err))
		return c, false
	}
	return c, true
}

// writeServiceError maps submit path errors onto status codes. Field
// errors from validation and policies both come back as 422.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var errs validation.Errors
	var denied *orchestrator.DeniedError

	switch {
	case errors.As(err, &errs):
		s.writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "validation failed", Fields: errs})
	case errors.As(err, &denied):
		s.writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "denied by policy", Fields: denied.FieldErrors()})
	case errors.Is(err, storage.ErrNotFound):
		s.writeError(w, r, http.StatusNotFound, err)
	default:
		s.writeError(w, r, http.StatusInternalServerError, err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.WithContext(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn().Err(err).Msg("write response")
	}
}
