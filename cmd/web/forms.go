package main

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/myrjola/nearmiss/internal/errors"
)

const (
	maxUploadBytes = 32 << 20
	// maxFieldLength limits each report field value.
	maxFieldLength = 1000
)

var formFieldNames = []struct{ key, name string }{ //nolint:gochecknoglobals // display order
	{"description", "사고 내용"},
	{"date", "작성일"},
	{"department", "부서"},
	{"position", "직위"},
	{"name", "성명"},
	{"before_image_path", "개선 전 사진"},
	{"after_image_path", "개선 후 사진"},
}

// previewForm is the first step of the report: author metadata and the incident description. The uploads are
// read separately.
type previewForm struct {
	Department  string `form:"department" validate:"max=100"`
	Position    string `form:"position" validate:"max=100"`
	Name        string `form:"name" validate:"max=100"`
	Description string `form:"description" validate:"required,max=5000"`
}

// submitForm is the reviewed draft. The report fields are validated one by one because their keys come from the
// label set.
type submitForm struct {
	Department      string `form:"department" validate:"max=100"`
	Position        string `form:"position" validate:"max=100"`
	Name            string `form:"name" validate:"max=100"`
	Date            string `form:"date" validate:"omitempty,datetime=2006-01-02"`
	Description     string `form:"description" validate:"required,max=5000"`
	BeforeImagePath string `form:"before_image_path" validate:"omitempty,max=300,startswith=/"`
	AfterImagePath  string `form:"after_image_path" validate:"omitempty,max=300,startswith=/"`
}

func newValidator() *validator.Validate {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("form"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return validate
}

// fieldErrors validates form and maps the failures to user-facing messages keyed by form field name. It returns
// nil when the form is valid.
func (app *application) fieldErrors(form any) (map[string]string, error) {
	err := app.validate.Struct(form)
	if err == nil {
		return nil, nil
	}
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil, errors.Wrap(err, "validate form")
	}
	messages := make(map[string]string, len(validationErrors))
	for _, fe := range validationErrors {
		messages[fe.Field()] = validationMessage(fe)
	}
	return messages, nil
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "필수 항목입니다."
	case "max":
		return "입력한 내용이 너무 깁니다."
	case "datetime":
		return "날짜 형식이 올바르지 않습니다."
	default:
		return "올바르지 않은 값입니다."
	}
}

// validationFlash summarises the messages in one line for a flash message.
func validationFlash(messages map[string]string) string {
	parts := make([]string, 0, len(messages))
	for _, f := range formFieldNames {
		if msg, ok := messages[f.key]; ok {
			parts = append(parts, f.name+": "+msg)
		}
	}
	if len(parts) == 0 {
		return "입력한 내용이 올바르지 않습니다."
	}
	return strings.Join(parts, " ")
}
