// Package render turns a reviewed report into its two artifacts: a tabular PDF document and a PNG screenshot of
// an HTML rendering. The renderers never panic or return partial files; each call returns a Result.
package render

import (
	"fmt"

	"github.com/myrjola/nearmiss/internal/models"
	"github.com/myrjola/nearmiss/internal/report"
)

// Failure classifies why an artifact was not generated.
type Failure int

const (
	FailureNone Failure = iota
	// FailureFont means the CJK font asset could not be loaded or fetched.
	FailureFont
	// FailureLayout means the PDF library reported an error while laying out the document.
	FailureLayout
	// FailureBrowser means the headless browser failed to launch, navigate or capture.
	FailureBrowser
	// FailureFilesystem means reading or writing local files failed.
	FailureFilesystem
)

func (f Failure) String() string {
	switch f {
	case FailureNone:
		return "none"
	case FailureFont:
		return "font"
	case FailureLayout:
		return "layout"
	case FailureBrowser:
		return "browser"
	case FailureFilesystem:
		return "filesystem"
	default:
		return fmt.Sprintf("Failure(%d)", int(f))
	}
}

// Result is the outcome of rendering one artifact.
type Result struct {
	// Path is the URL path of the artifact, empty on failure.
	Path    string
	Failure Failure
	Err     error
}

// OK reports whether the artifact was generated.
func (r Result) OK() bool {
	return r.Failure == FailureNone && r.Path != ""
}

func failed(kind Failure, err error) Result {
	return Result{Failure: kind, Err: err}
}

// Document is the input of both renderers.
type Document struct {
	Title  string
	Author models.Author
	Fields []report.Value
	// BeforeImage and AfterImage are paths on disk, empty when no image was uploaded.
	BeforeImage string
	AfterImage  string
}

const DefaultTitle = "아차사고 사례 보고서"

// Shared labels of the header table and the photo section.
const (
	labelDepartment = "부서"
	labelPosition   = "직위"
	labelName       = "성명"
	labelDate       = "작성일"
	labelBefore     = "개선 전"
	labelAfter      = "개선 후"
)
