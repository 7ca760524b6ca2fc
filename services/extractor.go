package services

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"tender-response-platform/internal/config"
	"tender-response-platform/internal/logger"

	"github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"
)

// Minimum viable recovered-text lengths per format. Anything below fails with
// an ExtractionError so the pipeline short-circuits instead of segmenting
// nothing.
const (
	minTextChars  = 20
	minDocxChars  = 50
	minXlsxChars  = 20
	minRtfChars   = 30
	minPdfChars   = 50
	minImageChars = 50
)

// TextExtractor converts a stored document into plain text, dispatching on
// file extension.
type TextExtractor struct {
	config *config.Config
	ocr    *OCRClient
}

// NewTextExtractor creates a new text extractor. ocr may be nil when no OCR
// sidecar is configured.
func NewTextExtractor(cfg *config.Config, ocr *OCRClient) *TextExtractor {
	return &TextExtractor{
		config: cfg,
		ocr:    ocr,
	}
}

// ExtractionResult contains the recovered text and extraction metadata.
type ExtractionResult struct {
	Text           string
	Format         string
	Method         string
	QualityScore   float64
	WordCount      int
	CharacterCount int
	Pages          int
}

// Extract recovers plain text from document bytes. It returns an
// *ExtractionError when the format is unsupported or the recovered text is
// below the viability threshold for its format.
func (e *TextExtractor) Extract(ctx context.Context, filename string, data []byte) (*ExtractionResult, error) {
	ext := strings.ToLower(filepath.Ext(filename))

	switch ext {
	case ".txt", ".md", ".text":
		return e.finalize("txt", "passthrough", string(data), 0, minTextChars)
	case ".docx":
		text, err := extractDocx(data)
		if err != nil {
			return nil, &ExtractionError{Format: "docx", Reason: "failed to decode document", Err: err}
		}
		return e.finalize("docx", "docx-xml", text, 0, minDocxChars)
	case ".xlsx":
		text, err := extractXlsx(data)
		if err != nil {
			return nil, &ExtractionError{Format: "xlsx", Reason: "failed to decode workbook", Err: err}
		}
		return e.finalize("xlsx", "excelize", text, 0, minXlsxChars)
	case ".rtf":
		return e.finalize("rtf", "rtf-strip", extractRtf(data), 0, minRtfChars)
	case ".pdf":
		return e.extractPDF(ctx, filename, data)
	case ".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tiff", ".tif":
		return e.extractViaOCR(ctx, "image", filename, data, minImageChars)
	default:
		return nil, &ExtractionError{Format: strings.TrimPrefix(ext, "."), Reason: "unsupported file format"}
	}
}

// extractPDF tries the embedded text layer first; scanned PDFs fall through
// to the OCR sidecar.
func (e *TextExtractor) extractPDF(ctx context.Context, filename string, data []byte) (*ExtractionResult, error) {
	text, pages, err := extractPdfTextLayer(data)
	if err == nil && len(strings.TrimSpace(text)) >= minPdfChars {
		if result, ferr := e.finalize("pdf", "pdf-text", text, pages, minPdfChars); ferr == nil && result.QualityScore >= 0.3 {
			return result, nil
		}
	}
	if err != nil {
		logger.Debug("pdf text layer extraction failed", "file", filename, "error", err)
	}

	return e.extractViaOCR(ctx, "pdf", filename, data, minPdfChars)
}

func (e *TextExtractor) extractViaOCR(ctx context.Context, format, filename string, data []byte, minChars int) (*ExtractionResult, error) {
	if !e.ocr.Enabled() {
		return nil, &ExtractionError{
			Format: format,
			Reason: "document requires OCR and no OCR service is configured",
		}
	}

	ocrResult, err := e.ocr.ExtractText(ctx, filename, data)
	if err != nil {
		return nil, &ExtractionError{Format: format, Reason: "OCR extraction failed", Err: err}
	}

	return e.finalize(format, "ocr", ocrResult.Text, ocrResult.Pages, minChars)
}

// finalize normalizes the text, scores it and enforces the viability floor.
func (e *TextExtractor) finalize(format, method, text string, pages, minChars int) (*ExtractionResult, error) {
	text = normalizeExtractedText(text)
	if len(text) < minChars {
		return nil, &ExtractionError{
			Format: format,
			Reason: fmt.Sprintf("recovered text too short (%d chars, need %d)", len(text), minChars),
		}
	}

	return &ExtractionResult{
		Text:           text,
		Format:         format,
		Method:         method,
		QualityScore:   scoreTextQuality(text),
		WordCount:      len(strings.Fields(text)),
		CharacterCount: len(text),
		Pages:          pages,
	}, nil
}

// extractDocx recovers readable runs from word/document.xml inside the zip
// container.
func extractDocx(data []byte) (string, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("not a zip container: %w", err)
	}

	var docFile *zip.File
	for _, f := range reader.File {
		if f.Name == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return "", fmt.Errorf("word/document.xml not found")
	}

	rc, err := docFile.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open document.xml: %w", err)
	}
	defer rc.Close()

	var sb strings.Builder
	decoder := xml.NewDecoder(rc)
	inText := false

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("malformed document.xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				sb.WriteByte('\t')
			case "br":
				sb.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				sb.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}

	return sb.String(), nil
}

// extractXlsx flattens every sheet into tab-separated rows.
func extractXlsx(data []byte) (string, error) {
	wb, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to open workbook: %w", err)
	}
	defer wb.Close()

	var sb strings.Builder
	for _, sheet := range wb.GetSheetList() {
		rows, err := wb.GetRows(sheet)
		if err != nil {
			continue
		}
		for _, row := range rows {
			cells := make([]string, 0, len(row))
			for _, cell := range row {
				if strings.TrimSpace(cell) != "" {
					cells = append(cells, strings.TrimSpace(cell))
				}
			}
			if len(cells) > 0 {
				sb.WriteString(strings.Join(cells, "\t"))
				sb.WriteByte('\n')
			}
		}
		sb.WriteByte('\n')
	}

	return sb.String(), nil
}

var (
	rtfDestinationRe = regexp.MustCompile(`\{\\(?:fonttbl|colortbl|stylesheet|info|\*)[^{}]*(?:\{[^{}]*\}[^{}]*)*\}`)
	rtfHexEscapeRe   = regexp.MustCompile(`\\'([0-9a-fA-F]{2})`)
	rtfControlRe     = regexp.MustCompile(`\\[a-zA-Z]+-?\d* ?`)
)

// extractRtf strips RTF control structure and recovers the readable runs.
// Best-effort: malformed input degrades to whatever plain text survives the
// stripping, which the viability floor then judges.
func extractRtf(data []byte) string {
	text := string(data)

	text = rtfDestinationRe.ReplaceAllString(text, "")
	text = strings.ReplaceAll(text, `\par`, "\n")
	text = strings.ReplaceAll(text, `\line`, "\n")
	text = strings.ReplaceAll(text, `\tab`, "\t")
	text = rtfHexEscapeRe.ReplaceAllStringFunc(text, func(m string) string {
		code, err := strconv.ParseUint(m[2:], 16, 8)
		if err != nil {
			return ""
		}
		return string(rune(code))
	})
	text = rtfControlRe.ReplaceAllString(text, "")
	text = strings.NewReplacer("{", "", "}", "", `\`, "").Replace(text)

	return text
}

// extractPdfTextLayer reads the embedded text layer, page by page.
func extractPdfTextLayer(data []byte) (string, int, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", 0, fmt.Errorf("failed to create PDF reader: %w", err)
	}

	var sb strings.Builder
	pages := reader.NumPage()

	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		fonts := make(map[string]*pdf.Font)
		text, err := page.GetPlainText(fonts)
		if err != nil {
			logger.Debug("failed to extract pdf page", "page", i, "error", err)
			continue
		}

		sb.WriteString(text)
		sb.WriteString("\n\n")
	}

	return sb.String(), pages, nil
}

var multiBlankRe = regexp.MustCompile(`\n{3,}`)

func normalizeExtractedText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = multiBlankRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// scoreTextQuality assesses recovered text: ratio of printable and
// alphanumeric content, penalized for replacement characters.
func scoreTextQuality(text string) float64 {
	text = strings.TrimSpace(text)
	if len(text) < 10 {
		return 0.1
	}

	var alphanumeric, printable, corrupted int
	for _, r := range text {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'):
			alphanumeric++
			printable++
		case r == ' ' || r == '\n' || r == '\t':
			printable++
		case r == '�':
			corrupted++
		case r >= 32:
			printable++
		}
	}

	total := len([]rune(text))
	if total == 0 {
		return 0.0
	}

	score := float64(printable) / float64(total) * 0.5
	alphaRatio := float64(alphanumeric) / float64(total)
	if alphaRatio >= 0.3 {
		score += 0.3
	} else {
		score += alphaRatio
	}
	score -= float64(corrupted) / float64(total) * 2.0
	if len(text) > 100 {
		score += 0.1
	}

	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
