package web

import (
	"bytes"
	"embed"
	"encoding/json"
	"html/template"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/csrf"

	"sportsmed/internal/adapters/content"
	"sportsmed/internal/adapters/http/middleware"
)

//go:embed templates/*.html static/*
var assets embed.FS

// timeNow is a variable for testability.
var timeNow = time.Now

// generateID creates a new UUID string.
func generateID() string {
	return uuid.New().String()
}

func staticFS() fs.FS {
	sub, err := fs.Sub(assets, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

// internalError logs the real error and returns a generic message to the client.
func internalError(w http.ResponseWriter, err error) {
	slog.Error("internal_error", "error", err.Error())
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

// strictDecode decodes JSON from the request body, rejecting unknown fields.
func strictDecode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("json_encode_failed", "error", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"error": code, "message": message})
}

func requestIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Toast is a transient notice shown at the top of a page.
type Toast struct {
	Title       string
	Description string
	Error       bool
}

const flashCookieName = "sportsmed_flash"

// setFlash stores a toast for the next rendered page, surviving one redirect.
func setFlash(w http.ResponseWriter, t Toast) {
	v := url.Values{}
	v.Set("t", t.Title)
	v.Set("d", t.Description)
	if t.Error {
		v.Set("e", "1")
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    v.Encode(),
		Path:     "/",
		HttpOnly: true,
		Secure:   middleware.SecureCookies,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   60,
	})
}

// popFlash reads and clears the flash cookie.
func popFlash(w http.ResponseWriter, r *http.Request) *Toast {
	c, err := r.Cookie(flashCookieName)
	if err != nil || c.Value == "" {
		return nil
	}
	http.SetCookie(w, &http.Cookie{Name: flashCookieName, Path: "/", MaxAge: -1})
	v, err := url.ParseQuery(c.Value)
	if err != nil || v.Get("t") == "" {
		return nil
	}
	return &Toast{Title: v.Get("t"), Description: v.Get("d"), Error: v.Get("e") == "1"}
}

// page is the data every template receives.
type page struct {
	Title string
	Path  string
	Toast *Toast
	Data  map[string]any
}

func renderTemplate(w http.ResponseWriter, r *http.Request, templateName string, data map[string]any) {
	renderTemplateStatus(w, r, http.StatusOK, templateName, data)
}

// renderTemplateStatus renders layout.html around the named page template.
// A toast under data["Toast"] wins over a pending flash.
func renderTemplateStatus(w http.ResponseWriter, r *http.Request, status int, templateName string, data map[string]any) {
	sess, loggedIn := middleware.GetSessionFromContext(r.Context())

	p := page{Path: r.URL.Path, Data: data}
	if t, ok := data["Toast"].(*Toast); ok && t != nil {
		p.Toast = t
	} else {
		p.Toast = popFlash(w, r)
	}
	if title, ok := data["Title"].(string); ok {
		p.Title = title
	}

	funcMap := template.FuncMap{
		"isLoggedIn":   func() bool { return loggedIn },
		"isStaff":      func() bool { return loggedIn && sess.IsStaff() },
		"currentName":  func() string { return sess.FirstName },
		"csrfField":    func() template.HTML { return csrf.TemplateField(r) },
		"site":         func() content.Site { return site.Site },
		"isActivePath": func(path string) bool { return path == r.URL.Path },
		"renderMarkdown": func(md string) template.HTML {
			html, err := content.RenderMarkdown([]byte(md))
			if err != nil {
				return template.HTML(template.HTMLEscapeString(md))
			}
			return html
		},
		"formatDate": func(t *time.Time) string {
			if t == nil || t.IsZero() {
				return ""
			}
			return t.Format("2 Jan 2006")
		},
		"join": strings.Join,
	}

	tpl, err := template.New("layout.html").Funcs(funcMap).ParseFS(assets, "templates/layout.html", "templates/"+templateName)
	if err != nil {
		internalError(w, err)
		return
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, p); err != nil {
		internalError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}
