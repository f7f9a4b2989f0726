package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"log/slog"

	"sitelog/internal/api"
	"sitelog/internal/config"
	"sitelog/internal/ingest"
	"sitelog/internal/logging"
	"sitelog/internal/session"
	"sitelog/internal/store"
)

const maxRequestBytes = 8 << 20

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	if cfg == nil || d == nil {
		return nil, nil
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, nil
	}

	mux := http.NewServeMux()
	srv := &apiServer{
		bind:   bind,
		logger: logger,
		daemon: d,
	}

	mux.HandleFunc("/api/status", srv.handleStatus)
	mux.HandleFunc("/api/sessions", srv.handleSessions)
	mux.HandleFunc("/api/sessions/", srv.handleSessionItem)
	mux.HandleFunc("/api/sync/trigger-webhook", srv.handleTriggerWebhook)
	mux.HandleFunc("/api/sync/status", srv.handleSyncStatus)
	mux.HandleFunc("/api/webhook/callback", srv.handleWebhookCallback)

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	counts, err := s.daemon.store.SessionSyncCounts(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	settings, err := s.daemon.store.LoadSettings(r.Context(), s.daemon.cfg.Webhook.URL)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, api.DaemonStatus{
		Running:      s.daemon.Running(),
		DatabasePath: s.daemon.store.Path(),
		WebhookURL:   settings.WebhookURL,
		AutoSync:     settings.AutoSync,
		Sync:         api.FromSyncCounts(counts),
	})
}

type startSessionRequest struct {
	ProjectID   string                 `json:"projectId"`
	AreaID      string                 `json:"areaId"`
	AreaType    string                 `json:"areaType"`
	Mode        string                 `json:"mode"`
	SessionType string                 `json:"sessionType"`
	Meeting     *store.MeetingMetadata `json:"meetingMetadata"`
}

func (s *apiServer) handleSessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		sessions, err := s.daemon.store.ListSessions(r.Context())
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		views := make([]api.Session, 0, len(sessions))
		for _, sess := range sessions {
			views = append(views, api.FromSession(sess))
		}
		s.writeJSON(w, http.StatusOK, map[string]any{"sessions": views})
	case http.MethodPost:
		var req startSessionRequest
		if err := decodeBody(r, &req); err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		mode, _ := store.ParseCaptureMode(req.Mode)
		areaType, _ := store.ParseAreaType(req.AreaType)
		created, err := s.daemon.sessions.Start(r.Context(), session.StartRequest{
			ProjectID:   req.ProjectID,
			AreaID:      req.AreaID,
			AreaType:    areaType,
			Mode:        mode,
			SessionType: store.SessionType(req.SessionType),
			Meeting:     req.Meeting,
		})
		if err != nil {
			status := http.StatusBadRequest
			if errors.Is(err, session.ErrConsentRequired) {
				status = http.StatusForbidden
			}
			s.writeError(w, status, err.Error())
			return
		}
		s.writeJSON(w, http.StatusCreated, api.FromSession(created))
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) handleSessionItem(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/sessions/")
	id, action, _ := strings.Cut(rest, "/")
	if id == "" {
		s.writeError(w, http.StatusNotFound, "session not found")
		return
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		sess, err := s.daemon.store.GetSession(r.Context(), id)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if sess == nil {
			s.writeError(w, http.StatusNotFound, "session not found")
			return
		}
		s.writeJSON(w, http.StatusOK, api.FromSession(sess))
	case action == "end" && r.Method == http.MethodPut:
		sess, err := s.daemon.sessions.End(r.Context(), id)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.writeJSON(w, http.StatusOK, api.FromSession(sess))
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) handleTriggerWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req struct {
		SessionID string `json:"sessionId"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.SessionID != "" {
		if !s.daemon.dispatch.Send(r.Context(), req.SessionID) {
			s.writeError(w, http.StatusBadGateway, "webhook delivery failed")
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]any{"synced": 1})
		return
	}

	synced, err := s.daemon.syncer.SyncPendingSessions(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"synced": synced})
}

func (s *apiServer) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	counts, err := s.daemon.store.SessionSyncCounts(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromSyncCounts(counts))
}

// handleWebhookCallback ingests an asynchronous analysis result pushed back
// by the webhook pipeline, keyed by sessionId in the body.
func (s *apiServer) handleWebhookCallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "read body")
		return
	}

	var envelope struct {
		SessionID string `json:"sessionId"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.SessionID == "" {
		s.writeError(w, http.StatusBadRequest, "sessionId is required")
		return
	}

	sess, err := s.daemon.store.GetSession(r.Context(), envelope.SessionID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if sess == nil {
		s.writeError(w, http.StatusNotFound, "session not found")
		return
	}

	processor := ingest.NewProcessor(s.daemon.store, s.logger)
	report, err := processor.Apply(r.Context(), sess, body)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "received",
		"sessionId": envelope.SessionID,
		"tasks":     report.Tasks,
	})
}

func decodeBody(r *http.Request, target any) error {
	defer r.Body.Close()
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxRequestBytes))
	if err := decoder.Decode(target); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return logging.WithComponent(s.logger, "api-server")
	}
	return logging.NewNop()
}
