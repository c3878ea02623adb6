package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/jonwraymond/healthcheck/task"
)

// TasksResponse is the JSON response of the tasks endpoints.
type TasksResponse struct {
	Message string      `json:"message"`
	Tasks   []task.Info `json:"tasks"`
}

// NotReadyResponse is the JSON body served while start-up is gated.
type NotReadyResponse struct {
	Message             string `json:"message"`
	TroubleshootingLink string `json:"troubleshooting_link"`
}

// LivenessHandler returns an HTTP handler for liveness probes.
// This is a simple check that the service is running.
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}

// ReadinessHandler returns an HTTP handler for readiness probes. It answers
// 503 with the troubleshooting link until h is ready.
func ReadinessHandler(h *HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.Ready() {
			w.Header().Set("Content-Type", "text/plain")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("OK"))
			return
		}

		w.Header().Set("Retry-After", "30")
		writeJSON(w, http.StatusServiceUnavailable, NotReadyResponse{
			Message:             "Server is not ready yet",
			TroubleshootingLink: h.GetConfig().TroubleshootingLink,
		})
	}
}

// ConfigHandler returns an HTTP handler serving the active configuration.
func ConfigHandler(h *HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.logger.Debug(r.Context(), "Getting health check config")
		writeJSON(w, http.StatusOK, h.GetConfig())
	}
}

// TasksHandler returns an HTTP handler serving check snapshots. The optional
// query parameter name holds a comma separated list of checks.
func TasksHandler(h *HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		names, ok := requestNames(w, r, h)
		if !ok {
			return
		}

		ctx := r.Context()
		h.logger.Debug(ctx, "Getting health check tasks related to internal scope")

		infos, err := h.GetChecksInfo(names)
		if err != nil {
			writeError(w, "Error getting the internal healthcheck tasks: "+err.Error())
			return
		}

		writeJSON(w, http.StatusOK, TasksResponse{
			Message: "Task information was returned.",
			Tasks:   infos,
		})
	}
}

// RunTasksHandler returns an HTTP handler that runs the requested checks
// now. When the cycle fails it serves the checks' current snapshots.
func RunTasksHandler(h *HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		names, ok := requestNames(w, r, h)
		if !ok {
			return
		}

		ctx := r.Context()
		h.logger.Debug(ctx, "Running healthcheck tasks related to internal scope")

		tasks, err := runTasks(ctx, h, names)
		if err != nil {
			writeError(w, "Error running the internal healthcheck tasks: "+err.Error())
			return
		}

		h.logger.Info(ctx, "Healthcheck tasks related to internal scope were executed")
		writeJSON(w, http.StatusOK, TasksResponse{
			Message: "Task information was returned.",
			Tasks:   tasks,
		})
	}
}

func runTasks(ctx context.Context, h *HealthCheck, names []string) ([]task.Info, error) {
	st, err := h.RunNamed(ctx, names)
	if err == nil {
		return st.Checks, nil
	}
	if errors.Is(err, ErrCycleFailed) {
		return h.GetChecksInfo(names)
	}
	return nil, err
}

func requestNames(w http.ResponseWriter, r *http.Request, h *HealthCheck) ([]string, bool) {
	raw := r.URL.Query().Get("name")
	if raw == "" {
		return nil, true
	}

	names := strings.Split(raw, ",")
	if err := h.ValidateNames(names); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return nil, false
	}
	return names, true
}

func writeError(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusServiceUnavailable, map[string]string{"message": message})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// RegisterHandlers registers the health check handlers on mux. The config
// and tasks endpoints are mounted under prefix, for example
// "/api/healthcheck".
func RegisterHandlers(mux *http.ServeMux, h *HealthCheck, prefix string) {
	prefix = strings.TrimSuffix(prefix, "/")

	mux.HandleFunc("GET /healthz", LivenessHandler())
	mux.HandleFunc("GET /readyz", ReadinessHandler(h))
	mux.HandleFunc("GET "+prefix+"/config", ConfigHandler(h))
	mux.HandleFunc("GET "+prefix+"/internal", TasksHandler(h))
	mux.HandleFunc("POST "+prefix+"/internal", RunTasksHandler(h))
}
