// Package httpapi serves the resource services as a JSON API.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dshills/ballotdesk/internal/resource"
)

const maxBodyBytes = 1 << 20

// Server exposes a resource store over HTTP.
type Server struct {
	store  resource.Store
	logger *slog.Logger
	token  string
	wrap   []func(http.Handler) http.Handler
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithToken requires a bearer token on every /api request.
func WithToken(token string) Option {
	return func(s *Server) { s.token = token }
}

// WithMiddleware wraps the handler. Middleware is applied in order, the
// first one outermost.
func WithMiddleware(mw func(http.Handler) http.Handler) Option {
	return func(s *Server) {
		if mw != nil {
			s.wrap = append(s.wrap, mw)
		}
	}
}

// NewServer constructs a server over store.
func NewServer(store resource.Store, opts ...Option) *Server {
	s := &Server{
		store:  store,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns an http.Handler for the server.
func (s *Server) Handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("GET /api/games", s.handleListGames)
	api.HandleFunc("POST /api/games", s.handleCreateGame)
	api.HandleFunc("GET /api/games/{id}", s.handleGetGame)
	api.HandleFunc("PUT /api/games/{id}", s.handleUpdateGame)
	api.HandleFunc("DELETE /api/games/{id}", s.handleDeleteGame)
	api.HandleFunc("GET /api/games/{id}/nominations", s.handleListNominations)

	api.HandleFunc("GET /api/voting-configs/{code}", s.handleGetVotingConfig)
	api.HandleFunc("PUT /api/voting-configs/{code}", s.handleImportVotingConfig)
	api.HandleFunc("DELETE /api/voting-configs/{code}", s.handleDeleteVotingConfig)

	api.HandleFunc("POST /api/nominations", s.handleCreateNomination)
	api.HandleFunc("GET /api/nominations/{id}", s.handleGetNomination)
	api.HandleFunc("DELETE /api/nominations/{id}", s.handleDeleteNomination)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.Handle("/api/", s.requireToken(api))

	var handler http.Handler = mux
	for i := len(s.wrap) - 1; i >= 0; i-- {
		handler = s.wrap[i](handler)
	}
	return withRequestLogging(handler, s.logger)
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	if s.token == "" {
		return next
	}
	want := "Bearer " + s.token
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != want {
			writeJSON(w, http.StatusUnauthorized, resource.APIError{Code: "unauthorized", Message: "missing or invalid token"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleListGames(w http.ResponseWriter, r *http.Request) {
	games, err := s.store.ListGames(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if games == nil {
		games = []resource.Game{}
	}
	writeJSON(w, http.StatusOK, games)
}

func (s *Server) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	var in resource.GameInput
	if !s.decode(w, r, &in) {
		return
	}
	game, err := s.store.CreateGame(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, game)
}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	game, err := s.store.GetGame(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, game)
}

func (s *Server) handleUpdateGame(w http.ResponseWriter, r *http.Request) {
	var in resource.GameInput
	if !s.decode(w, r, &in) {
		return
	}
	game, err := s.store.UpdateGame(r.Context(), r.PathValue("id"), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, game)
}

func (s *Server) handleDeleteGame(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteGame(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListNominations(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.ListNominations(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if list == nil {
		list = []resource.Nomination{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetVotingConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.store.GetVotingConfig(r.Context(), r.PathValue("code"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleImportVotingConfig(w http.ResponseWriter, r *http.Request) {
	var cfg resource.VotingConfig
	if !s.decode(w, r, &cfg) {
		return
	}
	code := r.PathValue("code")
	if cfg.Code == "" {
		cfg.Code = code
	}
	if cfg.Code != code {
		s.writeError(w, r, fmt.Errorf("%w: body code %q does not match path %q", resource.ErrValidation, cfg.Code, code))
		return
	}

	force := false
	if v := r.URL.Query().Get("force"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			s.writeError(w, r, fmt.Errorf("%w: force: %v", resource.ErrValidation, err))
			return
		}
		force = parsed
	}

	stored, err := s.store.ImportVotingConfig(r.Context(), cfg, force)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stored)
}

func (s *Server) handleDeleteVotingConfig(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteVotingConfig(r.Context(), r.PathValue("code")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCreateNomination(w http.ResponseWriter, r *http.Request) {
	var in resource.NominationInput
	if !s.decode(w, r, &in) {
		return
	}
	n, err := s.store.CreateNomination(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, n)
}

func (s *Server) handleGetNomination(w http.ResponseWriter, r *http.Request) {
	n, err := s.store.GetNomination(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (s *Server) handleDeleteNomination(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteNomination(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: decode body: %v", resource.ErrValidation, err))
		return false
	}
	return true
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := resource.StatusCode(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	}
	msg := err.Error()
	var apiErr *resource.APIError
	if errors.As(err, &apiErr) {
		msg = apiErr.Message
	}
	writeJSON(w, status, resource.APIError{Code: resource.ErrorCode(err), Message: msg})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	data, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
