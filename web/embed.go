// Package web holds the embedded page templates and stylesheet.
package web

import "embed"

// TemplatesFS holds one file per page plus layout.html with the shared
// header, footer and field_error blocks.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

//go:embed static/*
var StaticFS embed.FS
