package handlers

import (
	_ "embed"
	"fmt"
	"html/template"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"gopkg.in/yaml.v3"

	"finitefield.org/taskboard/internal/platform/httpx"
	"finitefield.org/taskboard/internal/services"
)

//go:embed openapi.yaml
var openAPIDocument []byte

// SystemHandlers serves service metadata, probes and API documentation.
type SystemHandlers struct {
	system services.SystemService

	docOnce sync.Once
	doc     map[string]any
	docErr  error
}

// NewSystemHandlers constructs the system handlers.
func NewSystemHandlers(system services.SystemService) *SystemHandlers {
	return &SystemHandlers{system: system}
}

// Routes registers /, /health, /readyz, /doc, /doc.yaml and /ui.
func (h *SystemHandlers) Routes(r chi.Router) {
	r.Get("/", h.info)
	r.Get("/health", h.health)
	r.Get("/readyz", h.ready)
	r.Get("/doc", h.docJSON)
	r.Get("/doc.yaml", h.docYAML)
	r.Get("/ui", h.swaggerUI)
}

func (h *SystemHandlers) info(w http.ResponseWriter, _ *http.Request) {
	build := h.system.Info()
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"name":    build.Name,
		"version": build.Version,
		"docs":    "/ui",
	})
}

func (h *SystemHandlers) health(w http.ResponseWriter, r *http.Request) {
	report := h.system.Health(r.Context())
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"status":    report.Status,
		"uptime":    report.Uptime.Seconds(),
		"timestamp": report.Timestamp.Format(time.RFC3339),
	})
}

func (h *SystemHandlers) ready(w http.ResponseWriter, r *http.Request) {
	report := h.system.Ready(r.Context())
	status := http.StatusOK
	if report.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	httpx.WriteJSON(w, status, map[string]any{
		"status":    report.Status,
		"checks":    report.Checks,
		"timestamp": report.Timestamp.Format(time.RFC3339),
	})
}

// document parses the embedded OpenAPI document once and stamps the running version on it.
func (h *SystemHandlers) document() (map[string]any, error) {
	h.docOnce.Do(func() {
		var doc map[string]any
		if err := yaml.Unmarshal(openAPIDocument, &doc); err != nil {
			h.docErr = fmt.Errorf("parse openapi document: %w", err)
			return
		}
		if info, ok := doc["info"].(map[string]any); ok && h.system != nil {
			if version := h.system.Info().Version; version != "" {
				info["version"] = version
			}
		}
		h.doc = doc
	})
	return h.doc, h.docErr
}

func (h *SystemHandlers) docJSON(w http.ResponseWriter, r *http.Request) {
	doc, err := h.document()
	if err != nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("doc_unavailable", err.Error(), http.StatusInternalServerError))
		return
	}
	httpx.WriteJSON(w, http.StatusOK, doc)
}

func (h *SystemHandlers) docYAML(w http.ResponseWriter, r *http.Request) {
	doc, err := h.document()
	if err != nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("doc_unavailable", err.Error(), http.StatusInternalServerError))
		return
	}
	out, err := yaml.Marshal(doc)
	if err != nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("doc_unavailable", err.Error(), http.StatusInternalServerError))
		return
	}
	w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}

var swaggerPage = template.Must(template.New("swagger").Parse(`<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
<script>window.ui = SwaggerUIBundle({url: {{.DocURL}}, dom_id: "#swagger-ui"});</script>
</body>
</html>`))

func (h *SystemHandlers) swaggerUI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = swaggerPage.Execute(w, map[string]string{"Title": "Taskboard API", "DocURL": "/doc"})
}
