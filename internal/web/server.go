// Package web exposes study sessions over a JSON HTTP API.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sourcegraph/conc"
	"go.uber.org/zap"

	"github.com/conorfennell/studydeck/internal/catalog"
	"github.com/conorfennell/studydeck/internal/decksync"
	"github.com/conorfennell/studydeck/internal/domain"
	"github.com/conorfennell/studydeck/internal/session"
	"github.com/conorfennell/studydeck/internal/storage"
)

// UserHeader carries the caller's user id. Requests without it study signed
// out.
const UserHeader = "X-User-ID"

// StudyDurations are the session lengths a client may ask for, in minutes.
var StudyDurations = []int{5, 10, 15}

// DefaultFinishedTTL is how long an expired session stays readable so a client
// can fetch its summary.
const DefaultFinishedTTL = time.Minute

// MachineFactory builds an idle machine for one session.
type MachineFactory func(identity session.Identity, notifier session.Notifier) *session.Machine

// ProgressReader serves the stored progress of a user.
type ProgressReader interface {
	Progress(ctx context.Context, userID, deckID string) (*domain.DeckProgress, error)
	ReviewHistory(ctx context.Context, userID, deckID string, limit int) ([]domain.ReviewRecord, error)
}

// SourceStore manages deck sources.
type SourceStore interface {
	GetAllSources(ctx context.Context) ([]storage.Source, error)
	EnsureSource(ctx context.Context, path, sourceType string) (int64, error)
}

// Syncer re-indexes all deck sources.
type Syncer interface {
	Run(ctx context.Context) (decksync.Result, error)
}

// Deps are the collaborators of a Server. Progress, Sources and Sync are
// optional; their routes answer 501 without them.
type Deps struct {
	Catalog        catalog.Source
	NewMachine     MachineFactory
	Progress       ProgressReader
	Sources        SourceStore
	Sync           Syncer
	Logger         *zap.Logger
	DefaultMinutes int
	// FinishedTTL keeps ended sessions readable for this long before they
	// are evicted. Zero means DefaultFinishedTTL.
	FinishedTTL time.Duration
}

// Server holds the dependencies for the HTTP server.
type Server struct {
	deps   Deps
	logger *zap.Logger
	router *http.ServeMux

	mu       sync.Mutex
	sessions map[string]*entry
	draining conc.WaitGroup
}

type entry struct {
	owner   string
	machine *session.Machine
	notices *noticeBuffer
}

// NewServer creates and configures a new server.
func NewServer(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.DefaultMinutes == 0 {
		deps.DefaultMinutes = StudyDurations[0]
	}
	if deps.FinishedTTL <= 0 {
		deps.FinishedTTL = DefaultFinishedTTL
	}
	s := &Server{
		deps:     deps,
		logger:   deps.Logger,
		router:   http.NewServeMux(),
		sessions: make(map[string]*entry),
	}
	s.routes()
	return s
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	user := strings.TrimSpace(r.Header.Get(UserHeader))

	s.router.ServeHTTP(rec, r.WithContext(withUser(r.Context(), user)))

	s.logger.Debug("request",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("status", rec.status),
		zap.Duration("took", time.Since(start)),
	)
}

// routes sets up the routing for the server.
func (s *Server) routes() {
	s.router.HandleFunc("GET /decks", s.handleGetDecks())

	s.router.HandleFunc("POST /sessions", s.handleStartSession())
	s.router.HandleFunc("GET /sessions/{id}", s.handleGetSession())
	s.router.HandleFunc("POST /sessions/{id}/flip", s.handleFlip())
	s.router.HandleFunc("POST /sessions/{id}/rate", s.handleRate())
	s.router.HandleFunc("POST /sessions/{id}/abort", s.handleAbort())

	s.router.HandleFunc("GET /progress", s.handleGetProgress())
	s.router.HandleFunc("GET /history", s.handleGetHistory())

	s.router.HandleFunc("GET /sources", s.handleGetSources())
	s.router.HandleFunc("POST /sources", s.handlePostSource())
	s.router.HandleFunc("POST /sync", s.handlePostSync())
}

// Shutdown aborts every running session and waits for pending saves.
func (s *Server) Shutdown() {
	s.mu.Lock()
	entries := make([]*entry, 0, len(s.sessions))
	for _, e := range s.sessions {
		entries = append(entries, e)
	}
	s.mu.Unlock()

	for _, e := range entries {
		e.machine.Abort()
		e.machine.Wait()
	}
	s.draining.Wait()
}

type sessionResponse struct {
	session.View
	Notices []noticeJSON `json:"notices,omitempty"`
}

func (s *Server) respondSession(w http.ResponseWriter, status int, e *entry) {
	writeJSON(w, status, sessionResponse{
		View:    e.machine.Snapshot(),
		Notices: e.notices.drain(),
	})
}

func (s *Server) handleGetDecks() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		decks, err := s.deps.Catalog.Decks(r.Context())
		if err != nil {
			s.logger.Error("error listing decks", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to list decks")
			return
		}
		if decks == nil {
			decks = []domain.Deck{}
		}
		writeJSON(w, http.StatusOK, decks)
	}
}

type startRequest struct {
	DeckID  string `json:"deck_id"`
	Minutes int    `json:"minutes"`
}

func (s *Server) handleStartSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req startRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.DeckID == "" {
			writeError(w, http.StatusBadRequest, "deck_id is required")
			return
		}
		if req.Minutes == 0 {
			req.Minutes = s.deps.DefaultMinutes
		}
		if !slices.Contains(StudyDurations, req.Minutes) {
			writeError(w, http.StatusBadRequest, "minutes must be one of 5, 10 or 15")
			return
		}

		cards, err := s.deps.Catalog.Cards(r.Context(), req.DeckID)
		if errors.Is(err, catalog.ErrDeckNotFound) {
			writeError(w, http.StatusNotFound, "deck not found")
			return
		}
		if err != nil {
			s.logger.Error("error loading deck", zap.String("deck_id", req.DeckID), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to load deck")
			return
		}

		e := &entry{owner: userFrom(r.Context()), notices: &noticeBuffer{}}
		e.machine = s.deps.NewMachine(contextIdentity{}, e.notices)
		if err := e.machine.Start(r.Context(), req.DeckID, cards, req.Minutes); err != nil {
			s.logger.Error("error starting session", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to start session")
			return
		}

		s.mu.Lock()
		s.sessions[e.machine.ID()] = e
		s.mu.Unlock()
		go s.evictWhenDone(e)

		s.respondSession(w, http.StatusCreated, e)
	}
}

// evictWhenDone drops e once its session has ended and FinishedTTL has
// passed, whether or not a client reads it again.
func (s *Server) evictWhenDone(e *entry) {
	<-e.machine.Done()
	time.AfterFunc(s.deps.FinishedTTL, func() { s.remove(e.machine.ID()) })
}

// remove forgets a session. Saves still in flight are waited for on
// Shutdown.
func (s *Server) remove(id string) {
	s.mu.Lock()
	e, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if ok {
		s.draining.Go(e.machine.Wait)
	}
}

// Sessions returns the number of sessions the server currently holds.
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// lookup finds the caller's session. Sessions are only visible to the user
// who started them.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*entry, bool) {
	s.mu.Lock()
	e, ok := s.sessions[r.PathValue("id")]
	s.mu.Unlock()
	if !ok || e.owner != userFrom(r.Context()) {
		writeError(w, http.StatusNotFound, "session not found")
		return nil, false
	}
	return e, true
}

func (s *Server) handleGetSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e, ok := s.lookup(w, r)
		if !ok {
			return
		}
		s.respondSession(w, http.StatusOK, e)

		// A finished session has nothing more to show once its final state
		// was read.
		if st := e.machine.Snapshot().State; st == session.StateExpired || st == session.StateAborted {
			s.remove(e.machine.ID())
		}
	}
}

func (s *Server) handleFlip() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e, ok := s.lookup(w, r)
		if !ok {
			return
		}
		e.machine.Flip()
		s.respondSession(w, http.StatusOK, e)
	}
}

type rateRequest struct {
	Rating domain.Rating `json:"rating"`
}

func (s *Server) handleRate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e, ok := s.lookup(w, r)
		if !ok {
			return
		}
		var req rateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !req.Rating.IsValid() {
			writeError(w, http.StatusBadRequest, "invalid rating")
			return
		}
		if !e.machine.Rate(r.Context(), req.Rating) {
			writeError(w, http.StatusConflict, "card cannot be rated now")
			return
		}
		s.respondSession(w, http.StatusOK, e)
	}
}

func (s *Server) handleAbort() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e, ok := s.lookup(w, r)
		if !ok {
			return
		}
		e.machine.Abort()
		s.respondSession(w, http.StatusOK, e)
		s.remove(e.machine.ID())
	}
}

func (s *Server) handleGetProgress() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, deckID, ok := s.progressQuery(w, r)
		if !ok {
			return
		}
		p, err := s.deps.Progress.Progress(r.Context(), user, deckID)
		if err != nil {
			s.logger.Error("error getting progress", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to get progress")
			return
		}
		if p == nil {
			p = &domain.DeckProgress{UserID: user, DeckID: deckID}
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func (s *Server) handleGetHistory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, deckID, ok := s.progressQuery(w, r)
		if !ok {
			return
		}
		limit := 50
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 || n > 500 {
				writeError(w, http.StatusBadRequest, "limit must be between 1 and 500")
				return
			}
			limit = n
		}
		recs, err := s.deps.Progress.ReviewHistory(r.Context(), user, deckID, limit)
		if err != nil {
			s.logger.Error("error getting review history", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to get review history")
			return
		}
		if recs == nil {
			recs = []domain.ReviewRecord{}
		}
		writeJSON(w, http.StatusOK, recs)
	}
}

func (s *Server) progressQuery(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	if s.deps.Progress == nil {
		writeError(w, http.StatusNotImplemented, "progress is not stored")
		return "", "", false
	}
	user := userFrom(r.Context())
	if user == "" {
		writeError(w, http.StatusUnauthorized, "sign in to see progress")
		return "", "", false
	}
	deckID := r.URL.Query().Get("deck")
	if deckID == "" {
		writeError(w, http.StatusBadRequest, "deck is required")
		return "", "", false
	}
	return user, deckID, true
}

func (s *Server) handleGetSources() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.deps.Sources == nil {
			writeError(w, http.StatusNotImplemented, "sources are not stored")
			return
		}
		s.writeSources(w, r, http.StatusOK)
	}
}

type sourceRequest struct {
	Path string `json:"path"`
}

// handlePostSource adds a new source and returns the source list.
func (s *Server) handlePostSource() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.deps.Sources == nil {
			writeError(w, http.StatusNotImplemented, "sources are not stored")
			return
		}
		var req sourceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Path == "" {
			writeError(w, http.StatusBadRequest, "path cannot be empty")
			return
		}

		if _, err := s.deps.Sources.EnsureSource(r.Context(), req.Path, SourceType(req.Path)); err != nil {
			s.logger.Error("error inserting new source", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to add source")
			return
		}
		s.writeSources(w, r, http.StatusCreated)
	}
}

func (s *Server) writeSources(w http.ResponseWriter, r *http.Request, status int) {
	sources, err := s.deps.Sources.GetAllSources(r.Context())
	if err != nil {
		s.logger.Error("error getting sources", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list sources")
		return
	}
	out := make([]sourceJSON, 0, len(sources))
	for _, src := range sources {
		js := sourceJSON{ID: src.ID, Path: src.Path, Type: src.Type}
		if src.LastScanned.Valid {
			t := src.LastScanned.Time
			js.LastScanned = &t
		}
		out = append(out, js)
	}
	writeJSON(w, status, out)
}

type syncResponse struct {
	Sources int      `json:"sources"`
	Cards   int      `json:"cards"`
	Deleted int      `json:"deleted"`
	Errors  []string `json:"errors,omitempty"`
}

// handlePostSync runs a sync in the foreground and reports what changed.
func (s *Server) handlePostSync() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.deps.Sync == nil {
			writeError(w, http.StatusNotImplemented, "sync is not configured")
			return
		}
		res, err := s.deps.Sync.Run(r.Context())
		if err != nil {
			s.logger.Error("error running sync", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "sync failed")
			return
		}
		out := syncResponse{Sources: res.Sources, Cards: res.Cards, Deleted: res.Deleted}
		for _, e := range res.Errors {
			out.Errors = append(out.Errors, e.Error())
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// SourceType guesses whether path names a git repository.
func SourceType(path string) string {
	if strings.HasSuffix(path, ".git") || strings.HasPrefix(path, "git@") || strings.HasPrefix(path, "https://") {
		return storage.SourceGit
	}
	return storage.SourceLocal
}
