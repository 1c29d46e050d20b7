package health

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

// Per-request limits. The aggregator's own timeout still applies inside.
const (
	readyTimeout  = 5 * time.Second
	reportTimeout = 10 * time.Second
)

// CheckResponse is the JSON form of a Result.
type CheckResponse struct {
	Status   Status         `json:"status"`
	Message  string         `json:"message,omitempty"`
	Duration string         `json:"duration,omitempty"`
	Details  map[string]any `json:"details,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// HealthResponse is the JSON form of a Report, keyed by check name.
type HealthResponse struct {
	Status    Status                   `json:"status"`
	Timestamp string                   `json:"timestamp"`
	Checks    map[string]CheckResponse `json:"checks,omitempty"`
}

func NewCheckResponse(r Result) CheckResponse {
	resp := CheckResponse{
		Status:   r.Status,
		Message:  r.Message,
		Duration: r.Duration.String(),
		Details:  r.Details,
	}
	if r.Error != nil {
		resp.Error = r.Error.Error()
	}
	return resp
}

func NewHealthResponse(rep Report) HealthResponse {
	resp := HealthResponse{
		Status:    rep.Status,
		Timestamp: rep.Timestamp.UTC().Format(time.RFC3339),
		Checks:    make(map[string]CheckResponse, len(rep.Checks)),
	}
	for _, c := range rep.Checks {
		resp.Checks[c.Name] = NewCheckResponse(c.Result)
	}
	return resp
}

// LivenessHandler answers 200 "OK" without running any check.
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeText(w, http.StatusOK, "OK")
	}
}

// ReadinessHandler runs every check and answers with the overall status in
// upper case, e.g. "DEGRADED". Only unhealthy answers 503.
func ReadinessHandler(agg *Aggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		status := agg.Run(ctx).Status
		body := strings.ToUpper(status.String())
		if status == StatusHealthy {
			body = "OK"
		}
		writeText(w, httpStatus(status), body)
	}
}

// DetailedHandler answers with the full report as JSON.
func DetailedHandler(agg *Aggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), reportTimeout)
		defer cancel()

		rep := agg.Run(ctx)
		writeJSON(w, httpStatus(rep.Status), NewHealthResponse(rep))
	}
}

// SingleCheckHandler answers with one check's result as JSON, or 404 when
// name is not registered.
func SingleCheckHandler(agg *Aggregator, name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		result, err := agg.Check(ctx, name)
		if err != nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, httpStatus(result.Status), NewCheckResponse(result))
	}
}

// Mux is satisfied by *http.ServeMux and chi.Router.
type Mux interface {
	Handle(pattern string, handler http.Handler)
}

// RegisterHandlers mounts /healthz, /readyz, /health and one /health/{name}
// per checker registered so far.
func RegisterHandlers(mux Mux, agg *Aggregator) {
	mux.Handle("/healthz", LivenessHandler())
	mux.Handle("/readyz", ReadinessHandler(agg))
	mux.Handle("/health", DetailedHandler(agg))
	for _, name := range agg.CheckerNames() {
		mux.Handle("/health/"+name, SingleCheckHandler(agg, name))
	}
}

func httpStatus(s Status) int {
	if s == StatusUnhealthy {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
