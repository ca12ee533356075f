package render

import (
	"context"
	"image"
	_ "image/gif"  // register decoder for DecodeConfig
	_ "image/jpeg" // register decoder for DecodeConfig
	_ "image/png"  // register decoder for DecodeConfig
	"log/slog"
	"os"

	"github.com/go-pdf/fpdf"
	"github.com/myrjola/nearmiss/internal/errors"
	"github.com/myrjola/nearmiss/internal/storage"
)

// Layout of the A4 portrait document in millimetres. The usable width is 190 with the default 10 mm margins.
const (
	fontFamily = "report"

	titleHeight   = 15
	titleFontSize = 18
	bodyFontSize  = 10

	headerCellWidth  = 47.5
	headerCellHeight = 8

	labelCellWidth = 40
	valueCellWidth = 150
	bodyCellHeight = 10

	photoCellWidth   = 95
	photoCellHeight  = 70
	photoHeadHeight  = 8
	photoInset       = 5
	photoImageWidth  = 85
	photoImageHeight = 60
)

// FontLoader provides TrueType font bytes.
type FontLoader interface {
	Load(ctx context.Context) ([]byte, error)
}

// PDFRenderer lays out a report as a single-page table document.
type PDFRenderer struct {
	fonts  FontLoader
	dir    *storage.Dir
	logger *slog.Logger
}

func NewPDFRenderer(fonts FontLoader, dir *storage.Dir, logger *slog.Logger) *PDFRenderer {
	return &PDFRenderer{
		fonts:  fonts,
		dir:    dir,
		logger: logger.With(slog.String("source", "PDFRenderer")),
	}
}

// Render writes {stem}.pdf into the PDF directory. Nothing is left on disk when rendering fails.
func (r *PDFRenderer) Render(ctx context.Context, doc Document, stem string) (result Result) {
	font, err := r.fonts.Load(ctx)
	if err != nil {
		return failed(FailureFont, errors.Wrap(err, "load font"))
	}

	res, err := r.dir.Reserve(stem, ".pdf")
	if err != nil {
		return failed(FailureFilesystem, errors.Wrap(err, "reserve pdf"))
	}
	defer func() {
		if p := recover(); p != nil {
			result = failed(FailureLayout, errors.New("pdf layout panicked", slog.Any("panic", p)))
		}
		if !result.OK() {
			r.dir.Discard(res)
		}
	}()

	pdf := fpdf.New(fpdf.OrientationPortrait, fpdf.UnitMillimeter, fpdf.PageSizeA4, "")
	pdf.AddUTF8FontFromBytes(fontFamily, "", font)
	pdf.SetFont(fontFamily, "", titleFontSize)
	if pdf.Err() {
		return failed(FailureFont, errors.Wrap(pdf.Error(), "register font"))
	}
	pdf.AddPage()

	title := doc.Title
	if title == "" {
		title = DefaultTitle
	}
	pdf.CellFormat(0, titleHeight, title, "", 1, "C", false, 0, "")

	pdf.SetFont(fontFamily, "", bodyFontSize)
	for _, label := range []string{labelDepartment, labelPosition, labelName, labelDate} {
		pdf.CellFormat(headerCellWidth, headerCellHeight, label, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)
	for _, value := range []string{doc.Author.Department, doc.Author.Position, doc.Author.Name, doc.Author.Date} {
		pdf.CellFormat(headerCellWidth, headerCellHeight, value, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	for _, field := range doc.Fields {
		pdf.CellFormat(labelCellWidth, bodyCellHeight, field.Text, "1", 0, "C", false, 0, "")
		pdf.CellFormat(valueCellWidth, bodyCellHeight, field.Value, "1", 1, "L", false, 0, "")
	}

	pdf.CellFormat(photoCellWidth, photoHeadHeight, labelBefore, "1", 0, "C", false, 0, "")
	pdf.CellFormat(photoCellWidth, photoHeadHeight, labelAfter, "1", 1, "C", false, 0, "")
	x, y := pdf.GetXY()
	pdf.CellFormat(photoCellWidth, photoCellHeight, "", "1", 0, "", false, 0, "")
	pdf.CellFormat(photoCellWidth, photoCellHeight, "", "1", 1, "", false, 0, "")
	if pdf.Err() {
		return failed(FailureLayout, errors.Wrap(pdf.Error(), "lay out tables"))
	}
	r.placeImage(ctx, pdf, doc.BeforeImage, x+photoInset, y+photoInset)
	r.placeImage(ctx, pdf, doc.AfterImage, x+photoCellWidth+photoInset, y+photoInset)

	if err = pdf.OutputFileAndClose(res.DiskPath); err != nil {
		return failed(FailureLayout, errors.Wrap(err, "write pdf", slog.String("path", res.DiskPath)))
	}
	return Result{Path: res.URLPath}
}

// placeImage draws the image at path into a photo cell. Missing or undecodable images leave the cell blank.
func (r *PDFRenderer) placeImage(ctx context.Context, pdf *fpdf.Fpdf, path string, x, y float64) {
	if path == "" {
		return
	}
	format, err := imageFormat(path)
	if err != nil {
		r.logger.LogAttrs(ctx, slog.LevelWarn, "skip image", slog.String("path", path), errors.SlogError(err))
		return
	}
	pdf.ImageOptions(path, x, y, photoImageWidth, photoImageHeight, false,
		fpdf.ImageOptions{ImageType: format, ReadDpi: false, AllowNegativePosition: false}, 0, "")
	if pdf.Err() {
		r.logger.LogAttrs(ctx, slog.LevelWarn, "skip image", slog.String("path", path),
			errors.SlogError(pdf.Error()))
		pdf.ClearError()
	}
}

// imageFormat sniffs the image type from its content because upload file extensions are not trusted.
func imageFormat(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrap(err, "open image")
	}
	defer f.Close()
	_, format, err := image.DecodeConfig(f)
	if err != nil {
		return "", errors.Wrap(err, "decode image config")
	}
	switch format {
	case "jpeg", "png", "gif":
		return format, nil
	default:
		return "", errors.New("unsupported image format", slog.String("format", format))
	}
}
