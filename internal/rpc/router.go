package rpc

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mrnavastar/launchcore/internal/telemetry"
)

// NewRouter builds the full HTTP surface: every spec §6 command under /v1,
// an SSE stream at /v1/events, and a /metrics endpoint for the prometheus
// registry telemetry.Metrics populates. Grounded on
// JHAEA-mcp-registry-service/internal/api's NewRouter (chi + standard
// middleware stack + a single handlers receiver).
func NewRouter(h *Handlers) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/obtain_manifests", timed("obtain_manifests", h.ObtainManifests))
		r.Post("/obtain_version", timed("obtain_version", h.ObtainVersion))
		r.Post("/import_zip", timed("import_zip", h.ImportZip))
		r.Get("/load_instances", timed("load_instances", h.LoadInstances))
		r.Post("/launch_instance", timed("launch_instance", h.LaunchInstance))
		r.Post("/open_folder", timed("open_folder", h.OpenFolder))
		r.Get("/get_logs", timed("get_logs", h.GetLogs))
		r.Post("/read_log_lines", timed("read_log_lines", h.ReadLogLines))
		r.Post("/check_for_update", timed("check_for_update", h.CheckForUpdate))
		r.Get("/get_screenshots", timed("get_screenshots", h.GetScreenshots))
		r.Get("/get_accounts", timed("get_accounts", h.GetAccounts))
		r.Post("/start_authentication_flow", timed("start_authentication_flow", h.StartAuthenticationFlow))
		r.Post("/poll_device_code_authentication", timed("poll_device_code_authentication", h.PollDeviceCodeAuthentication))
		r.Post("/login_to_account", timed("login_to_account", h.LoginToAccount))
		r.Get("/get_account_skin", timed("get_account_skin", h.GetAccountSkin))
		r.Get("/get_curseforge_categories", timed("get_curseforge_categories", h.GetCurseforgeCategories))
		r.Post("/search_curseforge", timed("search_curseforge", h.SearchCurseforge))

		r.Get("/events", h.streamEvents)
	})

	return r
}

// timed wraps a command handler with an RPCRequestDuration observation,
// labeled by command name and response status. The SSE stream isn't
// wrapped: its "duration" is the life of the connection, not a request.
func timed(command string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next(ww, r)
		telemetry.RPCRequestDuration.WithLabelValues(command, strconv.Itoa(ww.Status())).Observe(time.Since(start).Seconds())
	}
}

// streamEvents implements the SSE stream launch_instance's response
// describes as "begins event stream": a UI subscribes here once and
// receives every instance-logging/instance-state/instance-exited/
// authentication-error/download-progress/instance-done/new-instance event
// for the lifetime of the connection. Grounded on
// bureau-foundation-bureau/proxy/http_service.go's SSE relay (keep-alive
// headers, flush-per-event, unsubscribe on client disconnect).
func (h *Handlers) streamEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, fmt.Errorf("streaming unsupported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sub := h.Events.Subscribe()
	defer h.Events.Unsubscribe(sub)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-sub:
			if !ok {
				return
			}
			payload, err := encodeEvent(event)
			if err != nil {
				log.Warn("dropping unencodable event %q: %v", event.Name, err)
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Name, payload)
			flusher.Flush()
		}
	}
}
