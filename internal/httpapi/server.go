// Package httpapi exposes the pipeline over HTTP and a websocket session
// stream.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/JiayiLi18/Symbiotic-Voxel-AI-Agent/internal/config"
	"github.com/JiayiLi18/Symbiotic-Voxel-AI-Agent/internal/observability"
	"github.com/JiayiLi18/Symbiotic-Voxel-AI-Agent/internal/pipeline"
	"github.com/JiayiLi18/Symbiotic-Voxel-AI-Agent/internal/protocol"
)

type Server struct {
	cfg      config.Config
	service  *pipeline.Service
	metrics  *observability.Metrics
	upgrader websocket.Upgrader
}

func New(cfg config.Config, service *pipeline.Service, metrics *observability.Metrics) *Server {
	return &Server{
		cfg:     cfg,
		service: service,
		metrics: metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Default: only allow browser websocket connections from the
				// same origin. Game clients omit Origin and pass through.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Post("/v1/events", s.handleEvents)
	r.Post("/v1/approval", s.handleApproval)
	r.Post("/v1/session/clear", s.handleSessionClear)
	r.Get("/v1/session/{id}/history", s.handleSessionHistory)
	r.Get("/v1/session/ws", s.handleSessionWS)
	r.Get("/v1/voxels", s.handleListVoxels)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	var batch protocol.EventBatch
	if err := decodeJSON(r, &batch); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if len(batch.Events) == 0 {
		respondError(w, http.StatusBadRequest, "empty_batch", "at least one event is required")
		return
	}

	reply := s.service.HandleEvents(r.Context(), batch)
	respondJSON(w, http.StatusOK, reply)
}

func (s *Server) handleApproval(w http.ResponseWriter, r *http.Request) {
	var approval protocol.Approval
	if err := decodeJSON(r, &approval); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(approval.GoalID) == "" {
		respondError(w, http.StatusBadRequest, "missing_goal_id", "goal_id is required")
		return
	}

	batch := s.service.HandleApproval(r.Context(), approval)
	respondJSON(w, http.StatusOK, batch)
}

func (s *Server) handleSessionClear(w http.ResponseWriter, r *http.Request) {
	var req protocol.SessionClearRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if !req.ClearAll && strings.TrimSpace(req.SessionID) == "" {
		respondError(w, http.StatusBadRequest, "missing_session_id", "session_id or clear_all is required")
		return
	}
	respondJSON(w, http.StatusOK, s.service.ClearSession(req))
}

func (s *Server) handleSessionHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if strings.TrimSpace(id) == "" {
		respondError(w, http.StatusBadRequest, "invalid_session_id", "missing session id")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"session_id": id,
		"messages":   s.service.History(id, 0),
	})
}

func (s *Server) handleListVoxels(w http.ResponseWriter, r *http.Request) {
	types, err := s.service.VoxelTypes(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "catalog_unavailable", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"voxel_types": types})
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
