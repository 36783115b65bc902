package control

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/lexiqai/voice-typer/internal/commands"
	"github.com/lexiqai/voice-typer/internal/config"
	"github.com/lexiqai/voice-typer/internal/observability"
	"github.com/lexiqai/voice-typer/internal/recognition"
)

// Recognizer is the lifecycle surface the control server drives.
type Recognizer interface {
	Start(ctx context.Context) error
	Stop()
	Toggle(ctx context.Context) error
	State() recognition.State
	LastInterim() string
}

// StateResponse is the body of the lifecycle endpoints.
type StateResponse struct {
	State       string `json:"state"`
	LastInterim string `json:"last_interim,omitempty"`
	Error       string `json:"error,omitempty"`
}

// CommandResponse is one entry of the command table.
type CommandResponse struct {
	Phrase string `json:"phrase"`
	Action string `json:"action"`
}

// ClassifyRequest is the body of POST /classify.
type ClassifyRequest struct {
	Text string `json:"text"`
}

// ClassifyResponse reports how a phrase would be handled.
type ClassifyResponse struct {
	Kind       string  `json:"kind"`
	Text       string  `json:"text"`
	Phrase     string  `json:"phrase,omitempty"`
	Action     string  `json:"action,omitempty"`
	Similarity float64 `json:"similarity,omitempty"`
}

// Server is the local HTTP control surface of the daemon.
type Server struct {
	recognizer Recognizer
	matcher    *commands.Matcher
	events     *EventHub
	checks     []observability.NamedCheck
	metrics    bool
	logger     zerolog.Logger
	httpServer *http.Server
}

// NewServer creates a control server. events may be nil to disable the
// event feed.
func NewServer(cfg *config.Config, recognizer Recognizer, matcher *commands.Matcher, events *EventHub, checks ...observability.NamedCheck) *Server {
	s := &Server{
		recognizer: recognizer,
		matcher:    matcher,
		events:     events,
		checks:     checks,
		metrics:    cfg.MetricsEnabled,
		logger:     observability.Component("control"),
	}
	s.httpServer = &http.Server{
		Addr:         cfg.ListenAddr(),
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the routing table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", observability.HealthCheckHandler())
	checks := append([]observability.NamedCheck{{Name: "recognizer", Check: s.recognizerCheck}}, s.checks...)
	mux.HandleFunc("GET /ready", observability.ReadinessHandler(checks...))

	mux.HandleFunc("GET /state", s.handleState)
	mux.HandleFunc("POST /start", s.handleStart)
	mux.HandleFunc("POST /stop", s.handleStop)
	mux.HandleFunc("POST /toggle", s.handleToggle)

	mux.HandleFunc("GET /commands", s.handleCommands)
	mux.HandleFunc("POST /classify", s.handleClassify)

	if s.events != nil {
		mux.Handle("GET /events", s.events)
	}
	if s.metrics {
		mux.Handle("GET /metrics", promhttp.Handler())
	}
	return mux
}

// ListenAndServe serves until Shutdown. It returns nil after a clean
// shutdown.
func (s *Server) ListenAndServe() error {
	s.logger.Info().
		Str("addr", s.httpServer.Addr).
		Bool("metrics_enabled", s.metrics).
		Msg("Control server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and closes event feed clients.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.events != nil {
		s.events.Close()
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) recognizerCheck(ctx context.Context) (bool, error) {
	if state := s.recognizer.State(); state == recognition.StateError {
		return false, errors.New("recognizer is in error state")
	}
	return true, nil
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.stateResponse(nil))
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	err := s.recognizer.Start(r.Context())
	writeJSON(w, statusFor(err), s.stateResponse(err))
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.recognizer.Stop()
	writeJSON(w, http.StatusOK, s.stateResponse(nil))
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	err := s.recognizer.Toggle(r.Context())
	writeJSON(w, statusFor(err), s.stateResponse(err))
}

func (s *Server) handleCommands(w http.ResponseWriter, r *http.Request) {
	entries := s.matcher.Table().Entries()
	resp := make([]CommandResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, CommandResponse{Phrase: e.Phrase, Action: e.Action})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	var req ClassifyRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, StateResponse{State: s.recognizer.State().String(), Error: "invalid request body"})
		return
	}

	parsed := s.matcher.Classify(req.Text)
	writeJSON(w, http.StatusOK, ClassifyResponse{
		Kind:       parsed.Kind.String(),
		Text:       parsed.Text,
		Phrase:     parsed.Phrase,
		Action:     parsed.Action,
		Similarity: parsed.Similarity,
	})
}

func (s *Server) stateResponse(err error) StateResponse {
	resp := StateResponse{
		State:       s.recognizer.State().String(),
		LastInterim: s.recognizer.LastInterim(),
	}
	if err != nil {
		resp.Error = err.Error()
	}
	return resp
}

func statusFor(err error) int {
	var configErr *recognition.ConfigError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &configErr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, recognition.ErrClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, recognition.ErrConnectionTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
