// Package ui holds the HTML templates and static assets compiled into the web server.
package ui

import "embed"

//go:embed templates
var Templates embed.FS

//go:embed static
var Static embed.FS
