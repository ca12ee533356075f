package main

import (
	"net/http"

	"github.com/myrjola/nearmiss/internal/errors"
)

type caseView struct {
	ID              int64
	Created         string
	Description     string
	ImagePath       string
	PDFPath         string
	ReportImagePath string
}

type listTemplateData struct {
	BaseTemplateData
	Cases []caseView
}

func (app *application) list(w http.ResponseWriter, r *http.Request) {
	cases, err := app.cases.ListAll(r.Context())
	if err != nil {
		app.serverError(w, r, errors.Wrap(err, "list cases"))
		return
	}

	views := make([]caseView, len(cases))
	for i, c := range cases {
		created := c.Timestamp
		if t, parseErr := c.CreatedAt(); parseErr == nil {
			created = t.Format("2006-01-02 15:04:05")
		}
		views[i] = caseView{
			ID:              c.ID,
			Created:         created,
			Description:     c.Description,
			ImagePath:       c.ImagePath,
			PDFPath:         c.PDFPath.String,
			ReportImagePath: c.ReportImagePath.String,
		}
	}

	app.render(w, r, http.StatusOK, "list", listTemplateData{
		BaseTemplateData: app.newBaseTemplateData(r),
		Cases:            views,
	})
}
