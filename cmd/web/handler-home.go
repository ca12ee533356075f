package main

import (
	"net/http"
)

type homeTemplateData struct {
	BaseTemplateData
	// Error is "generation" or "submission" after a failed submit.
	Error       string
	Form        previewForm
	FieldErrors map[string]string
}

func (app *application) home(w http.ResponseWriter, r *http.Request) {
	data := homeTemplateData{
		BaseTemplateData: app.newBaseTemplateData(r),
		Error:            "",
		Form:             previewForm{}, //nolint:exhaustruct // empty form
		FieldErrors:      nil,
	}
	switch e := r.URL.Query().Get("error"); e {
	case submitErrorGeneration, submitErrorSubmission:
		data.Error = e
	}

	app.render(w, r, http.StatusOK, "home", data)
}
