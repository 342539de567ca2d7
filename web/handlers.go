package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"time"

	football "football-live-tracker"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.temporal.io/api/workflowservice/v1"
	"go.temporal.io/sdk/client"
)

// football-data competition codes: CL, PL, BL1, SA, PD, FL1, DED, PPL, ELC, EC, WC
var competitionCode = regexp.MustCompile(`^[A-Za-z0-9]{2,5}$`)

type Handlers struct {
	temporalClient client.Client
	dashboards     DashboardReader
	hub            *Hub
	cfg            football.Config
	logger         *slog.Logger
	now            func() time.Time
}

// NewHandlers builds the UI/API handlers. temporalClient can be nil, in which
// case the UI runs in demo mode.
func NewHandlers(temporalClient client.Client, cfg football.Config, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	reader := temporalReader{client: temporalClient}
	return &Handlers{
		temporalClient: temporalClient,
		dashboards:     reader,
		hub:            NewHub(reader, cfg.RefreshInterval, cfg.Location, logger),
		cfg:            cfg,
		logger:         logger,
		now:            time.Now,
	}
}

// Hub returns the websocket hub; the caller runs it alongside the server.
func (h *Handlers) Hub() *Hub {
	return h.hub
}

// DashboardWorkflow represents a running dashboard workflow
type DashboardWorkflow struct {
	WorkflowID  string    `json:"workflowId"`
	RunID       string    `json:"runId"`
	WorkflowURL string    `json:"workflowUrl,omitempty"`
	Status      string    `json:"status"`
	Competition string    `json:"competition"`
	StartTime   time.Time `json:"startTime"`
}

type trackRequest struct {
	Competition string `json:"competition"`
}

func (h *Handlers) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/", h.Index)
	r.Get("/api/board/{competition}", h.GetBoard)
	r.Get("/api/dashboards", h.GetDashboards)
	r.Post("/api/track", h.StartTracking)
	r.Post("/api/dashboards/{competition}/refresh", h.RefreshDashboard)
	r.Delete("/api/dashboards/{competition}", h.StopDashboard)
	r.Get("/ws/{competition}", h.Live)
	return r
}

// Index renders the dashboard page for ?competition= (default from config)
func (h *Handlers) Index(w http.ResponseWriter, r *http.Request) {
	competition := r.URL.Query().Get("competition")
	if competition == "" {
		competition = h.cfg.Competition
	}
	competition, ok := normalizeCompetition(competition)
	if !ok {
		http.Error(w, "Invalid competition code", http.StatusBadRequest)
		return
	}

	state, err := h.dashboards.Dashboard(r.Context(), competition)
	if err != nil {
		// Still render the page; the websocket fills it in once the dashboard runs
		state = football.DashboardState{Competition: competition, LastError: dashboardUnavailable(err)}
	}

	page, err := renderIndex(competition, football.BuildBoard(state, h.now(), h.cfg.Location))
	if err != nil {
		h.logger.Error("Failed to render page", "error", err)
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(page)
}

// GetBoard returns the current board of a competition as JSON
func (h *Handlers) GetBoard(w http.ResponseWriter, r *http.Request) {
	competition, ok := normalizeCompetition(chi.URLParam(r, "competition"))
	if !ok {
		http.Error(w, "Invalid competition code", http.StatusBadRequest)
		return
	}

	state, err := h.dashboards.Dashboard(r.Context(), competition)
	if err != nil {
		h.logger.Warn("Dashboard unavailable", "competition", competition, "error", err)
		http.Error(w, dashboardUnavailable(err), http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, football.BuildBoard(state, h.now(), h.cfg.Location))
}

// GetDashboards returns currently running dashboard workflows
func (h *Handlers) GetDashboards(w http.ResponseWriter, r *http.Request) {
	dashboards := []DashboardWorkflow{}

	// Check if Temporal client is available
	if h.temporalClient == nil {
		writeJSON(w, dashboards)
		return
	}

	listRequest := &workflowservice.ListWorkflowExecutionsRequest{
		Namespace: h.cfg.TemporalNamespace,
		Query:     "WorkflowId STARTS_WITH 'dashboard-' AND ExecutionStatus = 'Running'",
	}

	resp, err := h.temporalClient.ListWorkflow(r.Context(), listRequest)
	if err != nil {
		// Log error but don't fail the request - return empty list
		h.logger.Error("Failed to list workflows", "error", err)
		writeJSON(w, dashboards)
		return
	}

	for _, execution := range resp.GetExecutions() {
		dashboard := DashboardWorkflow{
			WorkflowID:  execution.GetExecution().GetWorkflowId(),
			RunID:       execution.GetExecution().GetRunId(),
			Status:      execution.GetStatus().String(),
			Competition: strings.TrimPrefix(execution.GetExecution().GetWorkflowId(), "dashboard-"),
		}
		if execution.GetStartTime() != nil {
			dashboard.StartTime = execution.GetStartTime().AsTime()
		}
		dashboard.WorkflowURL = h.workflowURL(dashboard.WorkflowID, dashboard.RunID)
		dashboards = append(dashboards, dashboard)
	}

	sort.Slice(dashboards, func(i, j int) bool {
		return dashboards[i].Competition < dashboards[j].Competition
	})

	writeJSON(w, dashboards)
}

// StartTracking starts the dashboard workflow for a competition. Starting a
// competition that already runs returns the running workflow.
func (h *Handlers) StartTracking(w http.ResponseWriter, r *http.Request) {
	var req trackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Competition == "" {
		req.Competition = h.cfg.Competition
	}
	competition, ok := normalizeCompetition(req.Competition)
	if !ok {
		http.Error(w, "Invalid competition code", http.StatusBadRequest)
		return
	}

	// Check if Temporal client is available
	if h.temporalClient == nil {
		writeJSON(w, map[string]string{
			"workflowId": "demo-" + football.DashboardWorkflowID(competition),
			"runId":      "demo-run-" + h.now().Format("150405"),
			"message":    "Demo mode: Tracking request received (Temporal server not connected)",
		})
		return
	}

	options := client.StartWorkflowOptions{
		ID:        football.DashboardWorkflowID(competition),
		TaskQueue: h.cfg.TaskQueue,
	}

	we, err := h.temporalClient.ExecuteWorkflow(r.Context(), options, football.DashboardWorkflow, h.cfg.DashboardRequest(competition))
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to start workflow: %v", err), http.StatusInternalServerError)
		return
	}
	h.logger.Info("Started dashboard workflow", "WorkflowID", we.GetID(), "RunID", we.GetRunID())

	writeJSON(w, map[string]string{
		"workflowId": we.GetID(),
		"runId":      we.GetRunID(),
		"message":    "Tracking started successfully",
	})
}

// RefreshDashboard asks the dashboard workflow to poll now instead of waiting for its timer
func (h *Handlers) RefreshDashboard(w http.ResponseWriter, r *http.Request) {
	h.manageDashboard(w, r, "refresh", func(ctx context.Context, workflowID string) error {
		return h.temporalClient.SignalWorkflow(ctx, workflowID, "", football.RefreshSignal, nil)
	})
}

// StopDashboard cancels the dashboard workflow of a competition
func (h *Handlers) StopDashboard(w http.ResponseWriter, r *http.Request) {
	h.manageDashboard(w, r, "cancel", func(ctx context.Context, workflowID string) error {
		return h.temporalClient.CancelWorkflow(ctx, workflowID, "")
	})
}

func (h *Handlers) manageDashboard(w http.ResponseWriter, r *http.Request, action string, do func(context.Context, string) error) {
	competition, ok := normalizeCompetition(chi.URLParam(r, "competition"))
	if !ok {
		http.Error(w, "Invalid competition code", http.StatusBadRequest)
		return
	}

	// Check if Temporal client is available
	if h.temporalClient == nil {
		writeJSON(w, map[string]string{
			"message": fmt.Sprintf("Demo mode: Workflow %s request received (Temporal server not connected)", action),
		})
		return
	}

	workflowID := football.DashboardWorkflowID(competition)
	if err := do(r.Context(), workflowID); err != nil {
		http.Error(w, fmt.Sprintf("Failed to %s workflow: %v", action, err), http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]string{
		"workflowId": workflowID,
		"message":    fmt.Sprintf("Workflow %s requested successfully", action),
	})
}

// Live upgrades to a websocket that receives the rendered board on every change
func (h *Handlers) Live(w http.ResponseWriter, r *http.Request) {
	competition, ok := normalizeCompetition(chi.URLParam(r, "competition"))
	if !ok {
		http.Error(w, "Invalid competition code", http.StatusBadRequest)
		return
	}
	h.hub.ServeWS(w, r, competition)
}

func (h *Handlers) workflowURL(workflowID, runID string) string {
	path := fmt.Sprintf("/namespaces/%s/workflows/%s/%s", h.cfg.TemporalNamespace, workflowID, runID)

	// Add http or https and UI URL, based on TEMPORAL_HOST
	if football.IsLocalTemporal(h.cfg.TemporalHost) {
		return "http://localhost:8233" + path
	}
	return "https://cloud.temporal.io" + path
}

func normalizeCompetition(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if !competitionCode.MatchString(s) {
		return "", false
	}
	return strings.ToUpper(s), true
}

func dashboardUnavailable(err error) string {
	if errors.Is(err, ErrNotConnected) {
		return "Dashboard unavailable: Temporal server not connected"
	}
	return "Dashboard unavailable: is the dashboard workflow running?"
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
