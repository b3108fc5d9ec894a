package ingest

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

func TestFormatForFilename(t *testing.T) {
	tests := []struct {
		filename string
		want     Format
		wantErr  bool
	}{
		{filename: "report.csv", want: FormatCSV},
		{filename: "report.CSV", want: FormatCSV},
		{filename: "book.xlsx", want: FormatExcel},
		{filename: "book.xls", want: FormatExcel},
		{filename: "feed.xml", want: FormatExcel},
		{filename: "letter.docx", want: FormatDOCX},
		{filename: "paper.pdf", want: FormatPDF},
		{filename: "notes.txt", want: FormatTXT},
		{filename: "image.png", wantErr: true},
		{filename: "archive.zip", wantErr: true},
		{filename: "noextension", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			got, err := FormatForFilename(tt.filename)
			if tt.wantErr {
				if !errors.Is(err, ErrUnsupportedFormat) {
					t.Errorf("FormatForFilename() error = %v, want ErrUnsupportedFormat", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("FormatForFilename() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("FormatForFilename() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExtractCSV(t *testing.T) {
	data := []byte("name,city\nAlice,Paris\nBob,Lima\n")

	chunks, err := extractCSV(data)
	if err != nil {
		t.Fatalf("extractCSV() error = %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("extractCSV() returned %d chunks, want 2", len(chunks))
	}
	if chunks[0] != "name: Alice\ncity: Paris" {
		t.Errorf("extractCSV() chunk[0] = %q", chunks[0])
	}
	if chunks[1] != "name: Bob\ncity: Lima" {
		t.Errorf("extractCSV() chunk[1] = %q", chunks[1])
	}
}

func TestExtractCSV_RaggedRows(t *testing.T) {
	data := []byte("a,b\n1\n2,3,4\n")

	chunks, err := extractCSV(data)
	if err != nil {
		t.Fatalf("extractCSV() error = %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("extractCSV() returned %d chunks, want 2", len(chunks))
	}
	// The third column of an over-long row has no header and gets a
	// positional name.
	if !strings.Contains(chunks[1], "col2: 4") {
		t.Errorf("extractCSV() chunk[1] = %q, want positional column name", chunks[1])
	}
}

func docxBytes(t *testing.T, paragraphs ...string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("zip.Create() error = %v", err)
	}

	var body strings.Builder
	body.WriteString(`<?xml version="1.0"?><w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)
	for _, p := range paragraphs {
		body.WriteString(`<w:p><w:r><w:t>`)
		body.WriteString(p)
		body.WriteString(`</w:t></w:r></w:p>`)
	}
	body.WriteString(`</w:body></w:document>`)

	if _, err := w.Write([]byte(body.String())); err != nil {
		t.Fatalf("zip write error = %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip.Close() error = %v", err)
	}
	return buf.Bytes()
}

func TestExtractDOCX(t *testing.T) {
	data := docxBytes(t, "First paragraph.", "", "Second paragraph.")

	chunks, err := extractDOCX(data)
	if err != nil {
		t.Fatalf("extractDOCX() error = %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("extractDOCX() returned %d chunks, want 2", len(chunks))
	}
	if chunks[0] != "First paragraph." || chunks[1] != "Second paragraph." {
		t.Errorf("extractDOCX() chunks = %v", chunks)
	}
}

func TestExtractDOCX_NotAnArchive(t *testing.T) {
	if _, err := extractDOCX([]byte("plain text, not a zip")); err == nil {
		t.Error("extractDOCX() error = nil, want error")
	}
}

func TestIngest(t *testing.T) {
	ctx := context.Background()

	corpus, err := Ingest(ctx, "notes.txt", []byte("  hello world  "))
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if corpus.Format != FormatTXT {
		t.Errorf("Ingest() format = %v, want FormatTXT", corpus.Format)
	}
	if len(corpus.Chunks) != 1 || corpus.Chunks[0] != "hello world" {
		t.Errorf("Ingest() chunks = %v", corpus.Chunks)
	}
	if len(corpus.Fingerprint) != 64 {
		t.Errorf("Ingest() fingerprint length = %d, want 64 hex chars", len(corpus.Fingerprint))
	}
}

func TestIngest_Errors(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		filename string
		data     []byte
		wantErr  error
	}{
		{
			name:     "unsupported extension",
			filename: "image.png",
			data:     []byte("binary"),
			wantErr:  ErrUnsupportedFormat,
		},
		{
			name:     "empty text file",
			filename: "empty.txt",
			data:     []byte("   \n  "),
			wantErr:  ErrEmptyDocument,
		},
		{
			name:     "csv with header only",
			filename: "header.csv",
			data:     []byte("a,b,c\n"),
			wantErr:  ErrEmptyDocument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Ingest(ctx, tt.filename, tt.data)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Ingest() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestFingerprint_ContentAddressed(t *testing.T) {
	a := Fingerprint([]byte("same bytes"))
	b := Fingerprint([]byte("same bytes"))
	c := Fingerprint([]byte("different bytes"))

	if a != b {
		t.Error("Fingerprint() differs for identical content")
	}
	if a == c {
		t.Error("Fingerprint() collides for different content")
	}
}
