package main

import (
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"path"

	"github.com/myrjola/nearmiss/internal/contexthelpers"
	"github.com/myrjola/nearmiss/internal/errors"
	"github.com/myrjola/nearmiss/ui"
)

const flashSessionKey = "flash"

type BaseTemplateData struct {
	CurrentPath string
	CSRFToken   string
	// Flash is a one-time message stored in the session by a previous request.
	Flash string
}

func (app *application) newBaseTemplateData(r *http.Request) BaseTemplateData {
	ctx := r.Context()
	return BaseTemplateData{
		CurrentPath: contexthelpers.CurrentPath(ctx),
		CSRFToken:   contexthelpers.CSRFToken(ctx),
		Flash:       app.sessionManager.PopString(ctx, flashSessionKey),
	}
}

// templateCache holds one parsed template per page.
type templateCache struct {
	pages map[string]*template.Template
}

// newTemplateCache parses the embedded templates. Every directory in templates/pages is a page combined with
// templates/base.gohtml.
func newTemplateCache() (*templateCache, error) {
	pageDirs, err := fs.ReadDir(ui.Templates, "templates/pages")
	if err != nil {
		return nil, errors.Wrap(err, "read pages directory")
	}
	cache := &templateCache{pages: make(map[string]*template.Template, len(pageDirs))}
	for _, dir := range pageDirs {
		if !dir.IsDir() {
			continue
		}
		name := dir.Name()
		patterns := []string{"templates/base.gohtml", path.Join("templates/pages", name, "*.gohtml")}
		t, parseErr := template.New(name).ParseFS(ui.Templates, patterns...)
		if parseErr != nil {
			return nil, errors.Wrap(parseErr, "parse page template", slog.String("page", name))
		}
		cache.pages[name] = t
	}
	return cache, nil
}

func (c *templateCache) page(name string) (*template.Template, bool) {
	t, ok := c.pages[name]
	return t, ok
}
