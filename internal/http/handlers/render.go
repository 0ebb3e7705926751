package handlers

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"filedrop/internal/security"

	"github.com/sirupsen/logrus"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Static serves the embedded CSS and JS under /static/.
func Static() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}

var pages = []string{"index.html", "login.html", "register.html", "upload.html", "admin.html"}

var funcs = template.FuncMap{
	"timestamp": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Local().Format("2006-01-02 15:04")
	},
}

// Renderer executes page templates inside the shared layout and takes care of
// flash messages.
type Renderer struct {
	pages    map[string]*template.Template
	sessions *security.SessionManager
	log      logrus.FieldLogger
}

func NewRenderer(sessions *security.SessionManager, log logrus.FieldLogger) (*Renderer, error) {
	rd := &Renderer{
		pages:    make(map[string]*template.Template, len(pages)),
		sessions: sessions,
		log:      log,
	}
	for _, page := range pages {
		tmpl, err := template.New(page).Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+page)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", page, err)
		}
		rd.pages[page] = tmpl
	}
	return rd, nil
}

// Render writes page with data. Title, Identity and Flashes are filled in
// here; handlers supply only their own keys.
func (rd *Renderer) Render(w http.ResponseWriter, r *http.Request, status int, page, title string, data map[string]interface{}) {
	tmpl, ok := rd.pages[page]
	if !ok {
		rd.log.WithField("page", page).Error("unknown template")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if data == nil {
		data = map[string]interface{}{}
	}
	data["Title"] = title
	if id, ok := security.IdentityFrom(r.Context()); ok {
		data["Identity"] = &id
	}

	flashes, err := rd.sessions.Flashes(w, r)
	if err != nil {
		rd.log.WithError(err).Warn("failed to clear flashes")
	}
	data["Flashes"] = flashes

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		rd.log.WithError(err).WithField("page", page).Error("render failed")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// Redirect queues msg as a flash and sends the browser to target.
func (rd *Renderer) Redirect(w http.ResponseWriter, r *http.Request, target, msg string) {
	if msg != "" {
		if err := rd.sessions.AddFlash(w, r, msg); err != nil {
			rd.log.WithError(err).Error("failed to save flash")
		}
	}
	http.Redirect(w, r, target, http.StatusFound)
}
