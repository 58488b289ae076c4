// Package stubapp serves a local stand-in for the landing page builder and
// its preview host. It renders the same markup the locator registries
// target, so full runs can be exercised without the hosted tool.
package stubapp

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"path"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/uuid"
	"github.com/samber/lo"

	"github.com/networkteam/pagecheck/page"
)

//go:embed assets
var assets embed.FS

// MaxUploadSize bounds a single uploaded file.
const MaxUploadSize = 10 << 20

// DefaultFormDelay is how long the form provider script takes to load.
const DefaultFormDelay = 1500 * time.Millisecond

// Required field names checked on save. Gated pages add RequiredGated.
var (
	Required      = []string{"marqueeDescription", "cardTitle", "seoMetadataTitle"}
	RequiredGated = []string{"formTemplate", "campaignId", "marketoPOI"}
)

// ErrMissingFields is returned by Save when required fields are empty.
var ErrMissingFields = errors.New("required fields missing")

// SavedPage is what the builder posts on Save & Preview.
type SavedPage struct {
	Path        string            `json:"path"`
	ContentType string            `json:"contentType"`
	Gated       string            `json:"gated"`
	Region      string            `json:"region"`
	Headline    string            `json:"headline"`
	Fields      map[string]string `json:"fields"`
	Products    []string          `json:"products"`
	BodyText    string            `json:"bodyText"`
	Media       map[string]string `json:"media"`
	PDF         string            `json:"pdf"`
	Saved       time.Time         `json:"-"`
}

// Missing returns the required fields that are empty.
func (p SavedPage) Missing() []string {
	required := Required
	if p.Gated == "Gated" {
		required = append(slices.Clone(required), RequiredGated...)
	}
	return lo.Filter(required, func(name string, _ int) bool {
		return strings.TrimSpace(p.Fields[name]) == ""
	})
}

// Submission is one embedded form submission.
type Submission struct {
	Page   string            `json:"page"`
	Values map[string]string `json:"values"`
}

type media struct {
	name        string
	contentType string
	data        []byte
}

// App is the stub builder. It implements http.Handler.
type App struct {
	logger    *slog.Logger
	formDelay time.Duration
	taken     []string

	mux     *http.ServeMux
	preview *template.Template

	mu          sync.RWMutex
	pages       map[string]SavedPage
	media       map[string]media
	submissions []Submission
}

// Option configures an App.
type Option func(*App)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *App) {
		a.logger = logger
	}
}

// WithFormDelay sets how long the embedded form provider takes to load.
func WithFormDelay(d time.Duration) Option {
	return func(a *App) {
		a.formDelay = d
	}
}

// WithTakenPaths marks page names the path check reports as conflicting.
func WithTakenPaths(names ...string) Option {
	return func(a *App) {
		a.taken = append(a.taken, names...)
	}
}

// New creates the stub builder.
func New(opts ...Option) *App {
	a := &App{
		logger:    slog.New(slog.DiscardHandler),
		formDelay: DefaultFormDelay,
		pages:     make(map[string]SavedPage),
		media:     make(map[string]media),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.preview = template.Must(template.New("preview.html").Funcs(template.FuncMap{
		"caasTag": func(contentType string) string { return page.CaaSContentTypes[contentType] },
	}).ParseFS(assets, "assets/preview.html"))

	a.mux = http.NewServeMux()
	a.mux.HandleFunc("GET "+page.BuilderPath, a.serveAsset("assets/builder.html", "text/html; charset=utf-8"))
	a.mux.HandleFunc("GET /static/builder.js", a.serveAsset("assets/builder.js", "text/javascript"))
	a.mux.HandleFunc("GET /static/builder.css", a.serveAsset("assets/builder.css", "text/css"))
	a.mux.HandleFunc("GET /api/path", a.handlePath)
	a.mux.HandleFunc("POST /api/upload", a.handleUpload)
	a.mux.HandleFunc("GET /media/{name}", a.handleMedia)
	a.mux.HandleFunc("POST /api/pages", a.handleSave)
	a.mux.HandleFunc("GET /preview/{path...}", a.handlePreview)
	a.mux.HandleFunc("GET /forms/embed.js", a.handleFormScript)
	a.mux.HandleFunc("POST /forms/submit", a.handleSubmit)
	return a
}

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	a.mux.ServeHTTP(rec, r)
	a.logger.Debug("Stub request",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Int("status", rec.status),
		slog.Duration("duration", time.Since(start)),
	)
}

// Page returns a saved page by its path.
func (a *App) Page(pagePath string) (SavedPage, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	p, ok := a.pages[normalizePath(pagePath)]
	return p, ok
}

// Pages returns the paths of all saved pages, sorted.
func (a *App) Pages() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	paths := lo.Keys(a.pages)
	slices.Sort(paths)
	return paths
}

// Submissions returns the embedded form submissions in arrival order.
func (a *App) Submissions() []Submission {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return slices.Clone(a.submissions)
}

// Save stores a page and returns its preview path.
func (a *App) Save(p SavedPage) (string, error) {
	p.Path = normalizePath(p.Path)
	if p.Path == "/" {
		return "", errors.New("page path is empty")
	}
	if missing := p.Missing(); len(missing) > 0 {
		return "", fmt.Errorf("%w: %s", ErrMissingFields, strings.Join(missing, ", "))
	}
	p.Saved = time.Now()
	a.mu.Lock()
	a.pages[p.Path] = p
	a.mu.Unlock()
	a.logger.Info("Page saved", slog.String("path", p.Path), slog.String("contentType", p.ContentType))
	return "/preview" + p.Path, nil
}

func (a *App) serveAsset(name, contentType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := assets.ReadFile(name)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Cache-Control", "no-store")
		_, _ = w.Write(data)
	}
}

func (a *App) handlePath(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		http.Error(w, "missing name", http.StatusBadRequest)
		return
	}
	full := normalizePath(r.URL.Query().Get("prefix") + name)
	available := !lo.Contains(a.taken, name)
	writeJSON(w, http.StatusOK, map[string]any{"path": full, "available": available})
}

func (a *App) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize)
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, fmt.Sprintf("reading upload: %v", err), http.StatusBadRequest)
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, fmt.Sprintf("reading upload: %v", err), http.StatusBadRequest)
		return
	}
	if len(data) == 0 {
		http.Error(w, "empty upload", http.StatusBadRequest)
		return
	}

	id, err := uuid.NewV4()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	contentType := http.DetectContentType(data)
	name := id.String() + strings.ToLower(path.Ext(header.Filename))
	a.mu.Lock()
	a.media[name] = media{name: header.Filename, contentType: contentType, data: data}
	a.mu.Unlock()

	a.logger.Debug("Media uploaded", slog.String("file", header.Filename), slog.Int("size", len(data)), slog.String("contentType", contentType))
	writeJSON(w, http.StatusOK, map[string]string{"url": "/media/" + name, "name": header.Filename})
}

func (a *App) handleMedia(w http.ResponseWriter, r *http.Request) {
	a.mu.RLock()
	m, ok := a.media[r.PathValue("name")]
	a.mu.RUnlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", m.contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", m.name))
	_, _ = w.Write(m.data)
}

func (a *App) handleSave(w http.ResponseWriter, r *http.Request) {
	var p SavedPage
	if err := json.NewDecoder(io.LimitReader(r.Body, MaxUploadSize)).Decode(&p); err != nil {
		http.Error(w, fmt.Sprintf("decoding page: %v", err), http.StatusBadRequest)
		return
	}
	preview, err := a.Save(p)
	if errors.Is(err, ErrMissingFields) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"error": err.Error(), "missing": p.Missing()})
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"preview": preview})
}

func (a *App) handlePreview(w http.ResponseWriter, r *http.Request) {
	p, ok := a.Page(r.PathValue("path"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	var buf bytes.Buffer
	if err := a.preview.Execute(&buf, p); err != nil {
		a.logger.Error("Rendering preview failed", slog.String("path", p.Path), slog.Any("error", err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

// handleFormScript delays the provider script like a slow third party.
func (a *App) handleFormScript(w http.ResponseWriter, r *http.Request) {
	select {
	case <-time.After(a.formDelay):
	case <-r.Context().Done():
		return
	}
	a.serveAsset("assets/form.js", "text/javascript")(w, r)
}

func (a *App) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var s Submission
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&s); err != nil {
		http.Error(w, fmt.Sprintf("decoding submission: %v", err), http.StatusBadRequest)
		return
	}
	if s.Values["Email"] == "" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "email is required"})
		return
	}
	a.mu.Lock()
	a.submissions = append(a.submissions, s)
	a.mu.Unlock()
	a.logger.Info("Form submitted", slog.String("page", s.Page), slog.String("email", s.Values["Email"]))
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func normalizePath(p string) string {
	return path.Clean("/" + strings.Trim(p, "/"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
