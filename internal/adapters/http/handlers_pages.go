package web

import (
	"context"
	"net/http"
	"time"

	"sportsmed/internal/adapters/storage"
)

// handleHome renders the landing page (GET /). Any other unmatched path is a 404.
func handleHome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != "GET" && r.Method != "HEAD" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	renderTemplate(w, r, "home.html", map[string]any{"Title": "Home"})
}

// handleStaticPage renders one of the markdown placeholder pages.
func handleStaticPage(slug string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "GET" && r.Method != "HEAD" {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		p, err := site.Page(slug)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		renderTemplate(w, r, "static.html", map[string]any{
			"Title": p.Title,
			"Page":  p,
		})
	}
}

// handleHealthz reports database reachability and recent request timings (GET /healthz).
// POST: 200 with status "ok", or 503 with status "degraded" when the database ping fails
func handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	resp := map[string]any{"status": "ok", "time": timeNow().UTC().Format(time.RFC3339)}
	status := http.StatusOK

	if dbPinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := dbPinger.PingContext(ctx); err != nil {
			resp["status"] = "degraded"
			resp["database"] = "unreachable"
			status = http.StatusServiceUnavailable
		} else {
			resp["database"] = "ok"
		}
		if q, ok := dbPinger.(storage.SQLDB); ok {
			if v, err := storage.SchemaVersion(ctx, q); err == nil {
				resp["schema_version"] = v
			}
		}
	}
	if perfCollector != nil {
		resp["perf"] = perfCollector.Snapshot(timeNow().Add(-5*time.Minute), 5)
	}
	writeJSON(w, status, resp)
}
