package services

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"tender-response-platform/internal/config"

	"github.com/xuri/excelize/v2"
)

func testConfig() *config.Config {
	return &config.Config{
		ChunkSize:         2500,
		ChunkOverlap:      500,
		MaxContextWords:   1000,
		OCRServiceEnabled: false,
	}
}

func TestExtractPlainText(t *testing.T) {
	e := NewTextExtractor(testConfig(), nil)

	result, err := e.Extract(context.Background(), "tender.txt", []byte("Please describe your approach to service delivery.\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Format != "txt" || result.Method != "passthrough" {
		t.Errorf("unexpected metadata: %+v", result)
	}
	if result.WordCount != 7 {
		t.Errorf("expected 7 words, got %d", result.WordCount)
	}
}

func TestExtractRejectsShortText(t *testing.T) {
	e := NewTextExtractor(testConfig(), nil)

	_, err := e.Extract(context.Background(), "tender.txt", []byte("too short"))

	var extractionErr *ExtractionError
	if !errors.As(err, &extractionErr) {
		t.Fatalf("expected *ExtractionError, got %v", err)
	}
	if extractionErr.Format != "txt" {
		t.Errorf("unexpected format in error: %q", extractionErr.Format)
	}
}

func TestExtractRejectsUnsupportedFormat(t *testing.T) {
	e := NewTextExtractor(testConfig(), nil)

	_, err := e.Extract(context.Background(), "archive.tar.gz", []byte("irrelevant"))

	var extractionErr *ExtractionError
	if !errors.As(err, &extractionErr) {
		t.Fatalf("expected *ExtractionError, got %v", err)
	}
}

func TestExtractImageWithoutOCR(t *testing.T) {
	e := NewTextExtractor(testConfig(), nil)

	_, err := e.Extract(context.Background(), "scan.png", []byte{0x89, 0x50, 0x4e, 0x47})

	var extractionErr *ExtractionError
	if !errors.As(err, &extractionErr) {
		t.Fatalf("expected *ExtractionError, got %v", err)
	}
	if !strings.Contains(extractionErr.Reason, "OCR") {
		t.Errorf("error should mention OCR: %q", extractionErr.Reason)
	}
}

func buildTestDocx(t *testing.T, paragraphs []string) []byte {
	t.Helper()

	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0"?><w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)
	for _, p := range paragraphs {
		sb.WriteString(`<w:p><w:r><w:t>`)
		sb.WriteString(p)
		sb.WriteString(`</w:t></w:r></w:p>`)
	}
	sb.WriteString(`</w:body></w:document>`)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.Write([]byte(sb.String())); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestExtractDocx(t *testing.T) {
	e := NewTextExtractor(testConfig(), nil)

	data := buildTestDocx(t, []string{
		"SUBMISSION REQUIREMENTS",
		"Responses must be uploaded to the procurement portal before noon.",
	})

	result, err := e.Extract(context.Background(), "tender.docx", data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(result.Text, "procurement portal") {
		t.Errorf("paragraph text missing: %q", result.Text)
	}
	if !strings.Contains(result.Text, "SUBMISSION REQUIREMENTS\n") {
		t.Errorf("paragraphs should be newline-separated: %q", result.Text)
	}
}

func TestExtractDocxRejectsCorrupt(t *testing.T) {
	e := NewTextExtractor(testConfig(), nil)

	_, err := e.Extract(context.Background(), "tender.docx", []byte("this is not a zip archive"))

	var extractionErr *ExtractionError
	if !errors.As(err, &extractionErr) {
		t.Fatalf("expected *ExtractionError, got %v", err)
	}
}

func TestExtractXlsx(t *testing.T) {
	wb := excelize.NewFile()
	wb.SetCellValue("Sheet1", "A1", "Question")
	wb.SetCellValue("Sheet1", "B1", "Response required")
	wb.SetCellValue("Sheet1", "A2", "Describe your escalation process")
	buf, err := wb.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}

	e := NewTextExtractor(testConfig(), nil)
	result, err := e.Extract(context.Background(), "questions.xlsx", buf.Bytes())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(result.Text, "Describe your escalation process") {
		t.Errorf("cell content missing: %q", result.Text)
	}
	if !strings.Contains(result.Text, "Question\tResponse required") {
		t.Errorf("row cells should be tab-joined: %q", result.Text)
	}
}

func TestExtractRtf(t *testing.T) {
	rtf := `{\rtf1\ansi\deff0 {\fonttbl{\f0 Times New Roman;}}\f0\fs24 Please provide details of your insurance cover.\par It must include professional indemnity.\par}`

	e := NewTextExtractor(testConfig(), nil)
	result, err := e.Extract(context.Background(), "tender.rtf", []byte(rtf))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(result.Text, "insurance cover.") {
		t.Errorf("body text missing: %q", result.Text)
	}
	if strings.Contains(result.Text, `\rtf`) || strings.Contains(result.Text, "{") {
		t.Errorf("control structure not stripped: %q", result.Text)
	}
}

func TestScoreTextQuality(t *testing.T) {
	clean := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 5)
	if score := scoreTextQuality(clean); score < 0.7 {
		t.Errorf("clean prose scored %v, want >= 0.7", score)
	}

	corrupted := strings.Repeat("�� a", 40)
	if score := scoreTextQuality(corrupted); score > 0.5 {
		t.Errorf("corrupted text scored %v, want <= 0.5", score)
	}

	if score := scoreTextQuality("tiny"); score != 0.1 {
		t.Errorf("short text scored %v, want 0.1", score)
	}
}
