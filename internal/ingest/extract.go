package ingest

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/csv"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"

	"flowmind/internal/contextutil"
)

// Ingest validates, extracts, and fingerprints an uploaded file held in
// memory. The filename is used only for format dispatch; the bytes are the
// source of truth. Returns ErrUnsupportedFormat or ErrEmptyDocument on
// recoverable ingestion failures.
func Ingest(ctx context.Context, filename string, data []byte) (*Corpus, error) {
	logger := contextutil.LoggerFromContext(ctx)

	format, err := FormatForFilename(filename)
	if err != nil {
		return nil, err
	}

	chunks, err := Extract(format, data)
	if err != nil {
		logger.WarnContext(ctx, "extraction failed", "filename", filename, "format", format.String(), "error", err)
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, ErrEmptyDocument
	}

	corpus := &Corpus{
		Filename:    filename,
		Format:      format,
		Fingerprint: Fingerprint(data),
		Chunks:      chunks,
	}
	logger.InfoContext(ctx, "file ingested", "filename", filename, "format", format.String(), "chunks", len(chunks))
	return corpus, nil
}

// Extract dispatches to the format-specific extractor and returns text chunks.
func Extract(format Format, data []byte) ([]string, error) {
	switch format {
	case FormatCSV:
		return extractCSV(data)
	case FormatExcel:
		return extractExcel(data)
	case FormatDOCX:
		return extractDOCX(data)
	case FormatPDF:
		return extractPDF(data)
	case FormatTXT:
		return extractTXT(data)
	default:
		return nil, ErrUnsupportedFormat
	}
}

// extractCSV produces one chunk per data row, rendered as "header: value"
// lines so column names survive into the retrieval context.
func extractCSV(data []byte) ([]string, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1 // tolerate ragged rows

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrEmptyDocument
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	var chunks []string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row: %w", err)
		}
		chunk := renderRow(header, row)
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
	}
	return chunks, nil
}

// extractExcel produces one chunk per row of the first sheet.
func extractExcel(data []byte) ([]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open spreadsheet: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyDocument
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, ErrEmptyDocument
	}

	header := rows[0]
	var chunks []string
	for _, row := range rows[1:] {
		chunk := renderRow(header, row)
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
	}
	return chunks, nil
}

// docx XML shapes for WordprocessingML. Only paragraph text is extracted;
// tables, headers, and footers are ignored.
type docxDocument struct {
	Body docxBody `xml:"body"`
}

type docxBody struct {
	Paragraphs []docxParagraph `xml:"p"`
}

type docxParagraph struct {
	Runs []docxRun `xml:"r"`
}

type docxRun struct {
	Texts []string `xml:"t"`
}

// extractDOCX produces one chunk per non-empty paragraph.
func extractDOCX(data []byte) ([]string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open docx archive: %w", err)
	}

	var docFile *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return nil, fmt.Errorf("docx archive has no word/document.xml")
	}

	rc, err := docFile.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open word/document.xml: %w", err)
	}
	defer func() {
		_ = rc.Close()
	}()

	var doc docxDocument
	if err := xml.NewDecoder(rc).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse word/document.xml: %w", err)
	}

	var chunks []string
	for _, para := range doc.Body.Paragraphs {
		var sb strings.Builder
		for _, run := range para.Runs {
			for _, text := range run.Texts {
				sb.WriteString(text)
			}
		}
		if text := strings.TrimSpace(sb.String()); text != "" {
			chunks = append(chunks, text)
		}
	}
	return chunks, nil
}

// extractPDF produces one chunk per page with extractable text.
func extractPDF(data []byte) ([]string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}

	var chunks []string
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// Pages that fail text extraction are skipped, not fatal
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			chunks = append(chunks, text)
		}
	}
	return chunks, nil
}

// extractTXT returns the whole file as a single chunk.
func extractTXT(data []byte) ([]string, error) {
	text := strings.TrimSpace(string(data))
	if text == "" {
		return nil, nil
	}
	return []string{text}, nil
}

// renderRow formats a tabular row as "header: value" lines.
func renderRow(header, row []string) string {
	var sb strings.Builder
	for i, value := range row {
		if strings.TrimSpace(value) == "" {
			continue
		}
		name := fmt.Sprintf("col%d", i)
		if i < len(header) && strings.TrimSpace(header[i]) != "" {
			name = strings.TrimSpace(header[i])
		}
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(name)
		sb.WriteString(": ")
		sb.WriteString(strings.TrimSpace(value))
	}
	return sb.String()
}
