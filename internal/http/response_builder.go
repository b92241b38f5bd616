// Package http serves the budget web interface.
//
// This file holds the fluent builder used by every handler to render a page
// template with a status code and extra headers.
package http

import (
	"bytes"
	"html/template"
	"net/http"

	"budget/internal/log"
)

// PageResponse renders one named template. The template is executed into a
// buffer first so a template error still produces a clean 500.
type PageResponse struct {
	templates  *template.Template
	name       string
	data       any
	statusCode int
	headers    map[string]string
}

func NewPageResponse(t *template.Template, name string, data any) *PageResponse {
	return &PageResponse{
		templates:  t,
		name:       name,
		data:       data,
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *PageResponse) Status(code int) *PageResponse {
	b.statusCode = code
	return b
}

func (b *PageResponse) Header(name, value string) *PageResponse {
	b.headers[name] = value
	return b
}

func (b *PageResponse) Write(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := b.templates.ExecuteTemplate(&buf, b.name, b.data); err != nil {
		log.FromContext(r.Context()).WithComponent(log.ComponentTemplate).ErrorContext(r.Context(),
			"Template render failed",
			"template", b.name,
			log.FieldOperation, log.OpRender,
			log.FieldError, err.Error())
		ErrorResponse(http.StatusInternalServerError, "Internal server error").Write(w)
		return
	}

	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(b.statusCode)
	_, _ = buf.WriteTo(w)
}

// PlainResponse is a minimal HTML body for failures that happen before or
// outside page rendering.
type PlainResponse struct {
	statusCode int
	body       string
}

// ErrorResponse HTML-escapes message.
func ErrorResponse(statusCode int, message string) PlainResponse {
	return PlainResponse{
		statusCode: statusCode,
		body:       `<div class="error">` + template.HTMLEscapeString(message) + `</div>`,
	}
}

func (p PlainResponse) Write(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(p.statusCode)
	_, _ = w.Write([]byte(p.body))
}

func NotFoundError() PlainResponse {
	return ErrorResponse(http.StatusNotFound, "Not found")
}

func InternalServerError() PlainResponse {
	return ErrorResponse(http.StatusInternalServerError, "Internal server error")
}

// seeOther is the redirect used after every successful POST.
func seeOther(w http.ResponseWriter, r *http.Request, location string) {
	http.Redirect(w, r, location, http.StatusSeeOther)
}
