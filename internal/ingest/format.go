package ingest

import (
	"errors"
	"path/filepath"
	"strings"
)

// Format identifies a supported upload format.
type Format int

const (
	FormatUnsupported Format = iota
	FormatCSV
	FormatExcel // xlsx, xls, xml
	FormatDOCX
	FormatPDF
	FormatTXT
)

var (
	// ErrUnsupportedFormat is returned for file extensions outside the
	// supported set. Checked before the upload is written anywhere.
	ErrUnsupportedFormat = errors.New("unsupported file format: use .csv, .xml, .xls, .xlsx, .docx, .pdf or .txt")
	// ErrEmptyDocument is returned when extraction produces no text chunks.
	ErrEmptyDocument = errors.New("no text could be extracted from the file")
)

// String returns the format name for logging.
func (f Format) String() string {
	switch f {
	case FormatCSV:
		return "csv"
	case FormatExcel:
		return "excel"
	case FormatDOCX:
		return "docx"
	case FormatPDF:
		return "pdf"
	case FormatTXT:
		return "txt"
	default:
		return "unsupported"
	}
}

// FormatForFilename maps a filename to its Format by extension.
// Returns ErrUnsupportedFormat for anything outside the supported set.
func FormatForFilename(name string) (Format, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	switch ext {
	case "csv":
		return FormatCSV, nil
	case "xlsx", "xls", "xml":
		return FormatExcel, nil
	case "docx":
		return FormatDOCX, nil
	case "pdf":
		return FormatPDF, nil
	case "txt":
		return FormatTXT, nil
	default:
		return FormatUnsupported, ErrUnsupportedFormat
	}
}
