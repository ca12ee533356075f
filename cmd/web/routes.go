package main

import (
	"io/fs"
	"net/http"

	"github.com/justinas/alice"
	"github.com/myrjola/nearmiss/ui"
)

const (
	uploadsURLPrefix = "/uploads"
	pdfURLPrefix     = "/pdf_reports"
	imageURLPrefix   = "/report_images"

	// multipartOverhead covers the text fields and part headers next to the uploaded images.
	multipartOverhead = 1 << 20
)

func (app *application) routes() http.Handler {
	mux := http.NewServeMux()

	static, err := fs.Sub(ui.Static, "static")
	if err != nil {
		panic(err) // the directory is embedded at compile time
	}
	mux.Handle("GET /static/", cacheHeaders(http.StripPrefix("/static", http.FileServerFS(static))))
	for _, dir := range []struct {
		prefix string
		root   string
	}{
		{uploadsURLPrefix, app.dirs.Uploads.Root()},
		{pdfURLPrefix, app.dirs.PDFs.Root()},
		{imageURLPrefix, app.dirs.Images.Root()},
	} {
		mux.Handle("GET "+dir.prefix+"/", noDirListing(http.StripPrefix(dir.prefix, http.FileServer(http.Dir(dir.root)))))
	}

	mux.HandleFunc("GET /api/healthy", app.healthy)

	session := alice.New(app.sessionManager.LoadAndSave, noSurf, commonContext)
	mux.Handle("GET /{$}", session.ThenFunc(app.home))
	mux.Handle("GET /list", session.ThenFunc(app.list))
	upload := alice.New(limitRequestBody(maxUploadBytes + multipartOverhead)).Extend(session)
	mux.Handle("POST /preview", upload.ThenFunc(app.preview))
	mux.Handle("POST /submit", session.ThenFunc(app.submit))
	mux.Handle("/", session.ThenFunc(app.notFound))

	common := alice.New(app.recoverPanic, app.logRequest, secureHeaders)
	return common.Then(timeoutHandler(mux, app.requestTimeout))
}
