// Package crmtest provides an in-memory lead API for tests.
package crmtest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Lead is the record kept by the fake API.
type Lead struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	LoanType   string    `json:"loanType"`
	LoanAmount float64   `json:"loanAmount"`
	Stage      string    `json:"stage"`
	Tags       []string  `json:"tags"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Server is a fake lead API backed by a map.
type Server struct {
	*httptest.Server

	Token string

	mu        sync.Mutex
	stages    []string
	leads     map[string]*Lead
	stageTags map[string][]string
	failures  map[string]int
	calls     map[string]int
	now       func() time.Time
}

// NewServer starts a fake API with the given stage order.
func NewServer(stages []string) *Server {
	s := &Server{
		stages:    slices.Clone(stages),
		leads:     map[string]*Lead{},
		stageTags: map[string][]string{},
		failures:  map[string]int{},
		calls:     map[string]int{},
		now:       func() time.Time { return time.Now().UTC() },
	}
	s.Server = httptest.NewServer(s.routes())
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.authenticate)
	r.Get("/pipeline/leads", s.counted("list", s.handleList))
	r.Post("/pipeline/leads", s.counted("create", s.handleCreate))
	r.Get("/pipeline/stages/{stage}/tags", s.counted("tags", s.handleStageTags))
	r.Patch("/pipeline/leads/{id}", s.counted("update", s.handleUpdate))
	r.Post("/pipeline/leads/{id}/move", s.counted("move", s.handleMove))
	r.Delete("/pipeline/leads/{id}", s.counted("delete", s.handleDelete))
	r.Put("/pipeline/leads/{id}/tags", s.counted("set_tags", s.handleSetTags))
	return r
}

// Seed inserts a lead directly and returns its id.
func (s *Server) Seed(l Lead) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = s.now()
	}
	if l.Tags == nil {
		l.Tags = []string{}
	}
	cp := l
	s.leads[l.ID] = &cp
	return l.ID
}

// SetStageTags sets the tag vocabulary returned for a stage.
func (s *Server) SetStageTags(stage string, tags []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stageTags[stage] = slices.Clone(tags)
}

// FailNext makes the next n calls of op return 500. Ops are list, create,
// tags, update, move, delete and set_tags.
func (s *Server) FailNext(op string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = n
}

// Calls returns how many requests op has received.
func (s *Server) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// Get returns a copy of a stored lead.
func (s *Server) Get(id string) (Lead, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.leads[id]
	if !ok {
		return Lead{}, false
	}
	cp := *l
	cp.Tags = slices.Clone(l.Tags)
	return cp, true
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.Token != "" && r.Header.Get("Authorization") != "Bearer "+s.Token {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) counted(op string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls[op]++
		fail := s.failures[op] > 0
		if fail {
			s.failures[op]--
		}
		s.mu.Unlock()
		if fail {
			writeError(w, http.StatusInternalServerError, "injected failure")
			return
		}
		h(w, r)
	}
}

func (s *Server) handleList(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string][]Lead, len(s.stages))
	for _, stage := range s.stages {
		out[stage] = []Lead{}
	}
	for _, l := range s.leads {
		out[l.Stage] = append(out[l.Stage], *l)
	}
	for stage := range out {
		slices.SortFunc(out[stage], func(a, b Lead) int { return a.CreatedAt.Compare(b.CreatedAt) })
	}
	writeJSON(w, http.StatusOK, map[string]any{"stages": out})
}

func (s *Server) handleStageTags(w http.ResponseWriter, r *http.Request) {
	stage := chi.URLParam(r, "stage")
	s.mu.Lock()
	tags := slices.Clone(s.stageTags[stage])
	s.mu.Unlock()
	if tags == nil {
		tags = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"tags": tags})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Stage      string   `json:"stage"`
		Name       string   `json:"name"`
		LoanType   string   `json:"loanType"`
		LoanAmount float64  `json:"loanAmount"`
		Tags       []string `json:"tags"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Name == "" || !slices.Contains(s.stages, req.Stage) {
		writeError(w, http.StatusUnprocessableEntity, "name and a known stage are required")
		return
	}
	if req.Tags == nil {
		req.Tags = []string{}
	}
	s.mu.Lock()
	l := &Lead{
		ID:         uuid.NewString(),
		Name:       req.Name,
		LoanType:   req.LoanType,
		LoanAmount: req.LoanAmount,
		Stage:      req.Stage,
		Tags:       req.Tags,
		CreatedAt:  s.now(),
	}
	s.leads[l.ID] = l
	out := *l
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name       *string   `json:"name"`
		LoanType   *string   `json:"loanType"`
		LoanAmount *float64  `json:"loanAmount"`
		Tags       *[]string `json:"tags"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.withLead(w, r, func(l *Lead) {
		if req.Name != nil {
			l.Name = *req.Name
		}
		if req.LoanType != nil {
			l.LoanType = *req.LoanType
		}
		if req.LoanAmount != nil {
			l.LoanAmount = *req.LoanAmount
		}
		if req.Tags != nil {
			l.Tags = slices.Clone(*req.Tags)
		}
	})
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FromStage string `json:"fromStage"`
		ToStage   string `json:"toStage"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !slices.Contains(s.stages, req.ToStage) {
		writeError(w, http.StatusUnprocessableEntity, "unknown stage")
		return
	}
	s.withLead(w, r, func(l *Lead) {
		l.Stage = req.ToStage
	})
}

func (s *Server) handleSetTags(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Tags []string `json:"tags"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Tags == nil {
		req.Tags = []string{}
	}
	s.withLead(w, r, func(l *Lead) {
		l.Tags = req.Tags
	})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	_, ok := s.leads[id]
	delete(s.leads, id)
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "lead not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) withLead(w http.ResponseWriter, r *http.Request, mutate func(*Lead)) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	l, ok := s.leads[id]
	if ok {
		mutate(l)
		l.UpdatedAt = s.now()
	}
	var out Lead
	if ok {
		out = *l
		out.Tags = slices.Clone(l.Tags)
	}
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "lead not found")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}
