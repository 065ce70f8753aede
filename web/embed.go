package web

import "embed"

// TemplatesFS embeds the dashboard page and its panels partial.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS embeds static assets (css/js).
//
//go:embed static
var StaticFS embed.FS
