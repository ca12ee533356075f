package main

import (
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/myrjola/nearmiss/internal/ai"
	"github.com/myrjola/nearmiss/internal/errors"
	"github.com/myrjola/nearmiss/internal/submission"
)

type previewTemplateData struct {
	BaseTemplateData
	Draft submission.Draft
	// CompletionError explains why no draft could be generated. Draft is empty when it is set.
	CompletionError string
}

func (app *application) preview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		app.clientError(w, r, http.StatusBadRequest)
		return
	}

	form := previewForm{
		Department:  r.PostForm.Get("department"),
		Position:    r.PostForm.Get("position"),
		Name:        r.PostForm.Get("name"),
		Description: r.PostForm.Get("description"),
	}
	fieldErrors, err := app.fieldErrors(form)
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	if fieldErrors != nil {
		app.render(w, r, http.StatusUnprocessableEntity, "home", homeTemplateData{
			BaseTemplateData: app.newBaseTemplateData(r),
			Error:            "",
			Form:             form,
			FieldErrors:      fieldErrors,
		})
		return
	}

	before, err := formUpload(r, "before_image")
	if err != nil {
		app.clientError(w, r, http.StatusBadRequest)
		return
	}
	defer before.close()
	after, err := formUpload(r, "after_image")
	if err != nil {
		app.clientError(w, r, http.StatusBadRequest)
		return
	}
	defer after.close()

	draft, err := app.submissions.Preview(ctx, submission.PreviewInput{
		Department:  form.Department,
		Position:    form.Position,
		Name:        form.Name,
		Description: form.Description,
		Before:      before.upload,
		After:       after.upload,
	})
	data := previewTemplateData{
		BaseTemplateData: app.newBaseTemplateData(r),
		Draft:            draft,
		CompletionError:  "",
	}
	var completionErr *ai.CompletionError
	switch {
	case err == nil:
	case errors.As(err, &completionErr):
		app.logger.LogAttrs(ctx, slog.LevelWarn, "completion failed, no draft",
			slog.String("kind", completionErr.Kind.String()), errors.SlogError(err))
		data.CompletionError = completionMessage(completionErr.Kind)
	default:
		app.serverError(w, r, errors.Wrap(err, "preview report"))
		return
	}

	app.render(w, r, http.StatusOK, "preview", data)
}

func completionMessage(kind ai.Kind) string {
	const retry = " 보고서를 생성하지 못했습니다. 잠시 후 다시 시도해 주세요."
	switch kind {
	case ai.KindMissingCredential:
		return "OpenAI API 키가 설정되지 않았습니다." + retry
	case ai.KindInvalidCredential:
		return "OpenAI API 키가 올바르지 않습니다." + retry
	case ai.KindEmptyResponse:
		return "AI 서비스가 빈 응답을 보냈습니다." + retry
	case ai.KindNetwork:
		return "AI 서비스에 연결하지 못했습니다." + retry
	default:
		return "AI 서비스 오류가 발생했습니다." + retry
	}
}

// openedUpload is an uploaded file from a multipart form. upload is nil when no file was chosen.
type openedUpload struct {
	upload *submission.Upload
	file   multipart.File
}

func (u openedUpload) close() {
	if u.file != nil {
		_ = u.file.Close()
	}
}

func formUpload(r *http.Request, key string) (openedUpload, error) {
	file, header, err := r.FormFile(key)
	if errors.Is(err, http.ErrMissingFile) {
		return openedUpload{upload: nil, file: nil}, nil
	}
	if err != nil {
		return openedUpload{upload: nil, file: nil}, errors.Wrap(err, "form file", slog.String("key", key))
	}
	if header.Size == 0 {
		_ = file.Close()
		return openedUpload{upload: nil, file: nil}, nil
	}
	return openedUpload{
		upload: &submission.Upload{Filename: header.Filename, Content: file},
		file:   file,
	}, nil
}
