// Package contexthelpers stores request-scoped values needed by the page templates.
package contexthelpers

type contextKey string

const (
	currentPathContextKey = contextKey("currentPath")
	csrfTokenContextKey   = contextKey("csrfToken")
)
