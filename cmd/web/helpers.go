package main

import (
	"bytes"
	"log/slog"
	"net/http"

	"github.com/myrjola/nearmiss/internal/errors"
)

func (app *application) serverError(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.LogAttrs(r.Context(), slog.LevelError, "server error", errors.SlogError(err))
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

func (app *application) clientError(w http.ResponseWriter, r *http.Request, status int) {
	app.logger.LogAttrs(r.Context(), slog.LevelDebug, http.StatusText(status))
	http.Error(w, http.StatusText(status), status)
}

func (app *application) notFound(w http.ResponseWriter, r *http.Request) {
	app.clientError(w, r, http.StatusNotFound)
}

// render executes the page template into a buffer first so that template errors still produce a clean 500.
func (app *application) render(w http.ResponseWriter, r *http.Request, status int, page string, data any) {
	t, ok := app.templates.page(page)
	if !ok {
		app.serverError(w, r, errors.New("page template not found", slog.String("template", page)))
		return
	}

	buf := new(bytes.Buffer)
	if err := t.ExecuteTemplate(buf, "base", data); err != nil {
		app.serverError(w, r, errors.Wrap(err, "execute template", slog.String("template", page)))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// redirectWithFlash stores a one-time message in the session and redirects with 303 See Other.
func (app *application) redirectWithFlash(w http.ResponseWriter, r *http.Request, url, flash string) {
	if flash != "" {
		app.sessionManager.Put(r.Context(), flashSessionKey, flash)
	}
	http.Redirect(w, r, url, http.StatusSeeOther)
}
