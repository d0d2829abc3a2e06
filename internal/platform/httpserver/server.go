package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	adsetautomation "adshift/contexts/ad-operations/adset-automation-service"
	automationhttp "adshift/contexts/ad-operations/adset-automation-service/adapters/http"
	httptransport "adshift/contexts/ad-operations/adset-automation-service/transport/http"
	_ "adshift/internal/platform/httpserver/docs"

	httpSwagger "github.com/swaggo/http-swagger"
)

const maxBodyBytes = 1 << 20

type Server struct {
	mux        *http.ServeMux
	logger     *slog.Logger
	addr       string
	account    string
	automation adsetautomation.Module
	http       *http.Server
}

func New(
	automation adsetautomation.Module,
	account string,
	logger *slog.Logger,
	addr string,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:        http.NewServeMux(),
		logger:     logger,
		addr:       addr,
		account:    strings.TrimSpace(account),
		automation: automation,
	}
	s.registerRoutes()
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the route table, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	s.mux.HandleFunc("GET /health", s.handleHealth)

	s.mux.HandleFunc("GET /api/automation/v1/snapshot", s.handleSnapshot)
	s.mux.HandleFunc("GET /api/automation/v1/adsets/{adset_id}", s.handleGetSettings)
	s.mux.HandleFunc("POST /api/automation/v1/adsets/{adset_id}/fields", s.handleSetField)
	s.mux.HandleFunc("POST /api/automation/v1/adsets/bulk-fields", s.handleBulkSetField)
	s.mux.HandleFunc("POST /api/automation/v1/adsets/{adset_id}/run-state", s.handleToggleRunState)
	s.mux.HandleFunc("POST /api/automation/v1/adsets/bulk-run-state", s.handleBulkToggleRunState)
	s.mux.HandleFunc("POST /api/automation/v1/scheduled-actions", s.handleScheduleRunState)
	s.mux.HandleFunc("GET /api/automation/v1/scheduled-actions", s.handleListScheduledActions)
	s.mux.HandleFunc("POST /api/automation/v1/automation/toggle", s.handleToggleAutomation)
	s.mux.HandleFunc("POST /api/automation/v1/automation/evaluate", s.handleEvaluate)
	s.mux.HandleFunc("GET /api/automation/v1/turns", s.handleListTurns)
	s.mux.HandleFunc("PUT /api/automation/v1/turns/{name}", s.handleUpsertTurn)
	s.mux.HandleFunc("GET /api/automation/v1/logs", s.handleListLogs)
}

// handleHealth godoc
// @Summary Liveness probe
// @Tags platform
// @Produce json
// @Success 200 {object} httptransport.HealthResponse
// @Router /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, httptransport.HealthResponse{
		Status:    "ok",
		Account:   s.account,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	resp, err := s.automation.Handler.SnapshotHandler(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	resp, err := s.automation.Handler.GetSettingsHandler(r.Context(), r.PathValue("adset_id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSetField(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req httptransport.SetFieldRequest
	if !decodeBody(w, r, &req, false) {
		return
	}
	resp, err := s.automation.Handler.SetFieldHandler(r.Context(), actor, r.PathValue("adset_id"), req)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleBulkSetField(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req httptransport.BulkSetFieldRequest
	if !decodeBody(w, r, &req, false) {
		return
	}
	resp, err := s.automation.Handler.BulkSetFieldHandler(r.Context(), actor, req)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleToggleRunState(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req httptransport.ToggleRunStateRequest
	if !decodeBody(w, r, &req, true) {
		return
	}
	resp, err := s.automation.Handler.ToggleRunStateHandler(r.Context(), actor, r.PathValue("adset_id"), req)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleBulkToggleRunState(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req httptransport.BulkRunStateRequest
	if !decodeBody(w, r, &req, false) {
		return
	}
	resp, err := s.automation.Handler.BulkToggleRunStateHandler(r.Context(), actor, req)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleScheduleRunState(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req httptransport.ScheduleRunStateRequest
	if !decodeBody(w, r, &req, false) {
		return
	}
	resp, err := s.automation.Handler.ScheduleRunStateHandler(r.Context(), actor, req)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListScheduledActions(w http.ResponseWriter, r *http.Request) {
	pendingOnly := false
	if raw := strings.TrimSpace(r.URL.Query().Get("pending")); raw != "" {
		value, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_pending", "pending must be a boolean")
			return
		}
		pendingOnly = value
	}
	resp, err := s.automation.Handler.ListScheduledActionsHandler(r.Context(), pendingOnly)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleToggleAutomation(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	resp, err := s.automation.Handler.ToggleAutomationHandler(r.Context(), actor)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	resp, err := s.automation.Handler.EvaluateHandler(r.Context(), actor)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	status := http.StatusOK
	if resp.Queued {
		status = http.StatusAccepted
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleListTurns(w http.ResponseWriter, r *http.Request) {
	resp, err := s.automation.Handler.ListTurnsHandler(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUpsertTurn(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req httptransport.UpsertTurnRequest
	if !decodeBody(w, r, &req, false) {
		return
	}
	resp, err := s.automation.Handler.UpsertTurnHandler(r.Context(), actor, r.PathValue("name"), req)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListLogs(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be an integer")
			return
		}
		limit = value
	}
	resp, err := s.automation.Handler.ListLogsHandler(r.Context(), limit)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	code := automationhttp.ErrorCode(err)
	status := statusFor(code)
	message := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed",
			"event", "http_request_failed",
			"module", "internal/platform/httpserver",
			"layer", "platform",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err.Error(),
		)
		message = "internal server error"
	}
	writeError(w, status, code, message)
}

func statusFor(code string) int {
	switch code {
	case "missing_actor":
		return http.StatusUnauthorized
	case "adset_not_found", "action_not_found":
		return http.StatusNotFound
	case "adset_frozen":
		return http.StatusConflict
	case "invalid_field":
		return http.StatusBadRequest
	case "unknown_turn", "validation_failed":
		return http.StatusUnprocessableEntity
	case "platform_unavailable", "platform_rejected", "platform_read_failed":
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func requireActor(w http.ResponseWriter, r *http.Request) (string, bool) {
	actor := strings.TrimSpace(r.Header.Get("X-User-Id"))
	if actor == "" {
		writeError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return "", false
	}
	return actor, true
}

// decodeBody keeps JSON numbers as json.Number so stop-loss and hour values
// reach validation unrounded.
func decodeBody(w http.ResponseWriter, r *http.Request, target any, allowEmpty bool) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.UseNumber()
	if err := decoder.Decode(target); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return true
		}
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, httptransport.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
