package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	domain "github.com/akarpushin/remote-alarm/internal/domain/alarm"
	"github.com/akarpushin/remote-alarm/internal/logger"
	alarmsvc "github.com/akarpushin/remote-alarm/internal/service/alarm"
)

// Service abstracts the alarm operations the transport layer depends on.
type Service interface {
	GetInfo(ctx context.Context) *domain.Info
	PlayOnce(ctx context.Context) (string, error)
	PlayLoop(ctx context.Context, hours float64) (string, error)
	StopAll(ctx context.Context) (string, error)
	StopDelayed(ctx context.Context, delay time.Duration) (string, error)
	SetVolume(ctx context.Context, percent int) (int, string, error)
}

// Options carries the transport-level settings the handlers need.
type Options struct {
	// AuthEnabled toggles basic authentication for all routes.
	AuthEnabled bool
	// Username and Password are the expected basic-auth credentials.
	Username string
	Password string
	// DefaultLoopHours is used when a loop request has no explicit duration.
	DefaultLoopHours float64
	// DefaultStopDelay is used when a delayed-stop request has no explicit delay.
	DefaultStopDelay time.Duration
}

// Server exposes the alarm service over an HTTP JSON API plus an embedded
// control page.
type Server struct {
	// service provides the alarm business logic.
	service Service
	// opts holds auth settings and request defaults.
	opts Options
}

// NewServer wires the provided service implementation into HTTP handlers.
func NewServer(service Service, opts Options) *Server {
	return &Server{
		service: service,
		opts:    opts,
	}
}

// Handler builds the routing table wrapped in the auth middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/play", s.handlePlay)
	mux.HandleFunc("/api/loop", s.handleLoop)
	mux.HandleFunc("/api/stop", s.handleStop)
	mux.HandleFunc("/api/stop-delayed", s.handleStopDelayed)
	mux.HandleFunc("/api/volume", s.handleVolume)

	return BasicAuth(s.opts.AuthEnabled, s.opts.Username, s.opts.Password, mux)
}

// actionResponse is the JSON body for control operations.
type actionResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// statusResponse mirrors the status payload the control page consumes.
type statusResponse struct {
	Status    string `json:"status"`
	Volume    int    `json:"volume"`
	Remaining string `json:"remaining,omitempty"`
}

// volumeResponse echoes the applied (clamped) volume back to the caller.
type volumeResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Volume  int    `json:"volume"`
}

// loopRequest is the optional JSON body of POST /api/loop.
type loopRequest struct {
	Hours *float64 `json:"hours"`
}

// delayedStopRequest is the optional JSON body of POST /api/stop-delayed.
type delayedStopRequest struct {
	DelaySeconds *int `json:"delay_seconds"`
}

// volumeRequest is the JSON body of POST /api/volume.
type volumeRequest struct {
	Volume *int `json:"volume"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)

		return
	}

	info := s.service.GetInfo(r.Context())

	writeJSON(r.Context(), w, http.StatusOK, statusResponse{
		Status:    info.Status.String(),
		Volume:    info.VolumePercent,
		Remaining: info.Remaining,
	})
}

func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)

		return
	}

	message, err := s.service.PlayOnce(r.Context())
	if err != nil {
		s.writeError(r.Context(), w, err)

		return
	}

	writeJSON(r.Context(), w, http.StatusOK, actionResponse{Success: true, Message: message})
}

func (s *Server) handleLoop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)

		return
	}

	hours := s.opts.DefaultLoopHours

	var req loopRequest
	if decodeOptionalJSON(r, &req) && req.Hours != nil && *req.Hours > 0 {
		hours = *req.Hours
	}

	message, err := s.service.PlayLoop(r.Context(), hours)
	if err != nil {
		s.writeError(r.Context(), w, err)

		return
	}

	writeJSON(r.Context(), w, http.StatusOK, actionResponse{Success: true, Message: message})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)

		return
	}

	message, err := s.service.StopAll(r.Context())
	if err != nil {
		s.writeError(r.Context(), w, err)

		return
	}

	writeJSON(r.Context(), w, http.StatusOK, actionResponse{Success: true, Message: message})
}

func (s *Server) handleStopDelayed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)

		return
	}

	delay := s.opts.DefaultStopDelay

	var req delayedStopRequest
	if decodeOptionalJSON(r, &req) && req.DelaySeconds != nil && *req.DelaySeconds > 0 {
		delay = time.Duration(*req.DelaySeconds) * time.Second
	}

	message, err := s.service.StopDelayed(r.Context(), delay)
	if err != nil {
		s.writeError(r.Context(), w, err)

		return
	}

	writeJSON(r.Context(), w, http.StatusOK, actionResponse{Success: true, Message: message})
}

func (s *Server) handleVolume(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)

		return
	}

	percent := 100

	var req volumeRequest
	if decodeOptionalJSON(r, &req) && req.Volume != nil {
		percent = *req.Volume
	}

	applied, message, err := s.service.SetVolume(r.Context(), percent)
	if err != nil {
		s.writeError(r.Context(), w, err)

		return
	}

	writeJSON(r.Context(), w, http.StatusOK, volumeResponse{
		Success: true,
		Message: message,
		Volume:  applied,
	})
}

// writeError maps domain errors to HTTP status codes and writes a failure body.
func (s *Server) writeError(ctx context.Context, w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError

	switch {
	case errors.Is(err, alarmsvc.ErrResourceUnavailable):
		code = http.StatusNotFound
	case errors.Is(err, alarmsvc.ErrNothingToStop):
		code = http.StatusConflict
	}

	writeJSON(ctx, w, code, actionResponse{Success: false, Message: err.Error()})
}

// writeJSON writes v as a JSON response with the provided status code.
func writeJSON(ctx context.Context, w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Errorf(ctx, "Failed to encode response: %v", err)
	}
}

// decodeOptionalJSON decodes the request body into v, tolerating an empty
// body. Reports whether a body was decoded.
func decodeOptionalJSON(r *http.Request, v any) bool {
	if r.Body == nil {
		return false
	}

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return false
	}

	return true
}
