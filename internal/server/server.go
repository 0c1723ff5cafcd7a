// Package server runs export and walk jobs behind a small HTTP API.
//
// Jobs are queued and run one at a time. Clients follow a job by polling
// its status or by subscribing to its server-sent events, and download
// the assembled book once the job completed.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	pageharvest "github.com/porticus-lab/go-page-harvest"
)

// Job kinds.
const (
	KindExport = "export"
	KindWalk   = "walk"
)

// Job states.
const (
	StatusQueued    = "queued"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// DefaultQueueSize is the number of jobs waiting before new ones are
// refused.
const DefaultQueueSize = 16

var (
	// ErrInvalidRequest is returned for a job request that cannot run.
	ErrInvalidRequest = errors.New("invalid job request")

	// ErrQueueFull is returned when the queue holds DefaultQueueSize jobs.
	ErrQueueFull = errors.New("job queue is full")
)

// Request is the body of POST /api/jobs.
type Request struct {
	Kind  string `json:"kind"`
	URL   string `json:"url"`
	Start int    `json:"start,omitempty"`
	Pages int    `json:"pages,omitempty"`
	Title string `json:"title,omitempty"`
}

// validate fills defaults and checks r.
func (r *Request) validate() error {
	if r.Kind != KindExport && r.Kind != KindWalk {
		return fmt.Errorf("%w: kind must be %q or %q", ErrInvalidRequest, KindExport, KindWalk)
	}
	if _, err := url.ParseRequestURI(r.URL); err != nil || r.URL == "" {
		return fmt.Errorf("%w: url is not absolute", ErrInvalidRequest)
	}
	if r.Start == 0 {
		r.Start = 1
	}
	if r.Start < 1 || r.Pages < 0 {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, pageharvest.ErrInvalidRange)
	}
	if r.Kind == KindExport && r.Pages == 0 {
		return fmt.Errorf("%w: export needs pages", ErrInvalidRequest)
	}
	if r.Title == "" {
		r.Title = "book"
	}
	return nil
}

// Range returns the requested page range.
func (r Request) Range() pageharvest.PageRange {
	return pageharvest.PageRange{Start: r.Start, Count: r.Pages}
}

// Runner performs a job. It writes its files below dir and returns the
// path of the assembled book. progress is called after every page of
// every phase.
type Runner interface {
	Run(ctx context.Context, req Request, dir string, progress func(phase string, p pageharvest.Progress)) (book string, err error)
}

// Status is the state of a job as served to clients.
type Status struct {
	ID       string    `json:"id"`
	Kind     string    `json:"kind"`
	URL      string    `json:"url"`
	Title    string    `json:"title"`
	Status   string    `json:"status"`
	Phase    string    `json:"phase,omitempty"`
	Done     int       `json:"done"`
	Total    int       `json:"total"`
	Error    string    `json:"error,omitempty"`
	Created  time.Time `json:"created"`
	Finished time.Time `json:"finished,omitzero"`
}

func (s Status) final() bool {
	return s.Status == StatusCompleted || s.Status == StatusFailed
}

type job struct {
	req  Request
	dir  string
	book string

	mu          sync.Mutex
	status      Status
	subscribers []chan Status
}

// snapshot returns the current status.
func (j *job) snapshot() Status {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status
}

// update applies fn to the status and notifies subscribers. Slow
// subscribers miss intermediate updates but always get the final one.
func (j *job) update(fn func(*Status)) {
	j.mu.Lock()
	defer j.mu.Unlock()
	fn(&j.status)
	st := j.status
	for _, ch := range j.subscribers {
		if st.final() {
			// Make room for the final status.
			select {
			case <-ch:
			default:
			}
		}
		select {
		case ch <- st:
		default:
		}
	}
}

func (j *job) subscribe() (<-chan Status, func()) {
	ch := make(chan Status, 8)
	j.mu.Lock()
	j.subscribers = append(j.subscribers, ch)
	j.mu.Unlock()
	return ch, func() {
		j.mu.Lock()
		defer j.mu.Unlock()
		for i, c := range j.subscribers {
			if c == ch {
				j.subscribers = append(j.subscribers[:i], j.subscribers[i+1:]...)
				break
			}
		}
	}
}

// Server queues jobs and serves their state.
type Server struct {
	runner  Runner
	workDir string
	logger  *slog.Logger
	queue   chan *job

	mu    sync.Mutex
	jobs  map[string]*job
	order []string
}

// New returns a Server running jobs with runner below workDir. A nil
// logger uses slog.Default.
func New(runner Runner, workDir string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		runner:  runner,
		workDir: workDir,
		logger:  logger.With("component", "server"),
		queue:   make(chan *job, DefaultQueueSize),
		jobs:    make(map[string]*job),
	}
}

// Submit validates req and queues it.
func (s *Server) Submit(req Request) (Status, error) {
	if err := req.validate(); err != nil {
		return Status{}, err
	}
	id := uuid.NewString()
	j := &job{
		req: req,
		dir: filepath.Join(s.workDir, id),
		status: Status{
			ID:      id,
			Kind:    req.Kind,
			URL:     req.URL,
			Title:   req.Title,
			Status:  StatusQueued,
			Total:   req.Pages,
			Created: time.Now().UTC(),
		},
	}

	st := j.status

	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case s.queue <- j:
	default:
		return Status{}, ErrQueueFull
	}
	s.jobs[id] = j
	s.order = append(s.order, id)
	return st, nil
}

// Job returns the status of the job id.
func (s *Server) Job(id string) (Status, bool) {
	j, ok := s.job(id)
	if !ok {
		return Status{}, false
	}
	return j.snapshot(), true
}

// Jobs returns every job in submission order.
func (s *Server) Jobs() []Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Status, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.jobs[id].snapshot())
	}
	return out
}

func (s *Server) job(id string) (*job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	return j, ok
}

// Run processes queued jobs one at a time until ctx is cancelled. A job
// running at that moment is cancelled as well.
func (s *Server) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case j := <-s.queue:
			s.process(ctx, j)
		}
	}
}

func (s *Server) process(ctx context.Context, j *job) {
	log := s.logger.With("job", j.status.ID, "kind", j.req.Kind)
	log.Info("job started")
	j.update(func(st *Status) { st.Status = StatusRunning })

	var book string
	err := os.MkdirAll(j.dir, 0o755)
	if err == nil {
		book, err = s.runner.Run(ctx, j.req, j.dir, func(phase string, p pageharvest.Progress) {
			j.update(func(st *Status) {
				st.Phase, st.Done, st.Total = phase, p.Done, p.Total
			})
		})
	}

	j.mu.Lock()
	j.book = book
	j.mu.Unlock()
	j.update(func(st *Status) {
		st.Finished = time.Now().UTC()
		if err != nil {
			st.Status, st.Error = StatusFailed, err.Error()
			return
		}
		st.Status = StatusCompleted
	})
	if err != nil {
		log.Warn("job failed", "error", err)
		return
	}
	log.Info("job completed", "book", book)
}

// Handler returns the HTTP API:
//
//	GET  /health
//	POST /api/jobs
//	GET  /api/jobs
//	GET  /api/jobs/{id}
//	GET  /api/jobs/{id}/events
//	GET  /api/jobs/{id}/book
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /api/jobs", s.handleSubmit)
	mux.HandleFunc("GET /api/jobs", s.handleList)
	mux.HandleFunc("GET /api/jobs/{id}", s.handleStatus)
	mux.HandleFunc("GET /api/jobs/{id}/events", s.handleEvents)
	mux.HandleFunc("GET /api/jobs/{id}/book", s.handleBook)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%w: %w", ErrInvalidRequest, err))
		return
	}
	st, err := s.Submit(req)
	switch {
	case errors.Is(err, ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, ErrQueueFull):
		writeError(w, http.StatusServiceUnavailable, err)
	case err != nil:
		writeError(w, http.StatusInternalServerError, err)
	default:
		w.Header().Set("Location", "/api/jobs/"+st.ID)
		writeJSON(w, http.StatusAccepted, st)
	}
}

func (s *Server) handleList(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.Jobs())
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, ok := s.Job(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("job not found"))
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// handleEvents streams the job status as server-sent events until the
// job finished or the client went away.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	j, ok := s.job(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("job not found"))
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, errors.New("streaming unsupported"))
		return
	}

	events, unsubscribe := j.subscribe()
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	send := func(st Status) error {
		data, err := json.Marshal(st)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "event: status\ndata: %s\n\n", data); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	st := j.snapshot()
	if err := send(st); err != nil || st.final() {
		return
	}
	for {
		select {
		case <-r.Context().Done():
			return
		case st := <-events:
			if err := send(st); err != nil || st.final() {
				return
			}
		}
	}
}

func (s *Server) handleBook(w http.ResponseWriter, r *http.Request) {
	j, ok := s.job(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("job not found"))
		return
	}
	st := j.snapshot()
	if st.Status != StatusCompleted {
		writeError(w, http.StatusConflict, fmt.Errorf("job is %s", st.Status))
		return
	}
	j.mu.Lock()
	book := j.book
	j.mu.Unlock()

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", pageharvest.SanitizeFilename(st.Title)+".pdf"))
	http.ServeFile(w, r, book)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
