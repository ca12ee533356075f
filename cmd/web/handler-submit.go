package main

import (
	"log/slog"
	"net/http"

	"github.com/myrjola/nearmiss/internal/errors"
	"github.com/myrjola/nearmiss/internal/models"
	"github.com/myrjola/nearmiss/internal/report"
	"github.com/myrjola/nearmiss/internal/submission"
)

// Values of the home page error query parameter.
const (
	submitErrorGeneration = "generation"
	submitErrorSubmission = "submission"
)

func (app *application) submit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := r.ParseForm(); err != nil {
		app.clientError(w, r, http.StatusBadRequest)
		return
	}

	form := submitForm{
		Department:      r.PostForm.Get("department"),
		Position:        r.PostForm.Get("position"),
		Name:            r.PostForm.Get("name"),
		Date:            r.PostForm.Get("date"),
		Description:     r.PostForm.Get("description"),
		BeforeImagePath: r.PostForm.Get("before_image_path"),
		AfterImagePath:  r.PostForm.Get("after_image_path"),
	}
	fieldErrors, err := app.fieldErrors(form)
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	fields := report.FromForm(r.PostForm.Get, report.Labels)
	for _, label := range report.Labels {
		if len([]rune(fields[label.Text])) > maxFieldLength {
			if fieldErrors == nil {
				fieldErrors = make(map[string]string)
			}
			fieldErrors[label.Key] = "입력한 내용이 너무 깁니다."
		}
	}
	if fieldErrors != nil {
		app.logger.LogAttrs(ctx, slog.LevelDebug, "invalid submission", slog.Any("field_errors", fieldErrors))
		app.redirectWithFlash(w, r, "/?error="+submitErrorSubmission, validationFlash(fieldErrors))
		return
	}

	c, err := app.submissions.Submit(ctx, models.Report{
		Author: models.Author{
			Department: form.Department,
			Position:   form.Position,
			Name:       form.Name,
			Date:       form.Date,
		},
		Description: form.Description,
		Fields:      fields,
		BeforeImage: form.BeforeImagePath,
		AfterImage:  form.AfterImagePath,
	})
	switch {
	case err == nil:
		app.logger.LogAttrs(ctx, slog.LevelInfo, "report submitted", slog.Int64("case_id", c.ID))
		app.redirectWithFlash(w, r, "/list", "보고서가 저장되었습니다.")
	case errors.Is(err, submission.ErrGenerationFailed):
		app.logger.LogAttrs(ctx, slog.LevelError, "report generation failed", errors.SlogError(err))
		app.redirectWithFlash(w, r, "/?error="+submitErrorGeneration, "")
	default:
		app.logger.LogAttrs(ctx, slog.LevelError, "report submission failed", errors.SlogError(err))
		app.redirectWithFlash(w, r, "/?error="+submitErrorSubmission, "")
	}
}
