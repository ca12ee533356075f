package models

import "github.com/myrjola/nearmiss/internal/report"

// DateLayout formats [Author.Date].
const DateLayout = "2006-01-02"

// Author is the header metadata of a report.
type Author struct {
	Department string
	Position   string
	Name       string
	// Date is the authored-on date, pre-filled with the preview date.
	Date string
}

// Report is a reviewed draft ready to be rendered.
type Report struct {
	Author      Author
	Description string
	Fields      report.Fields
	// BeforeImage and AfterImage are URL paths of uploaded images or empty.
	BeforeImage string
	AfterImage  string
}
