package services

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"

	"elearning-chat-platform/internal/logger"
)

// SupportedExtensions lists the upload formats the extractor accepts.
var SupportedExtensions = map[string]bool{
	".pdf":  true,
	".txt":  true,
	".xlsx": true,
}

// ExtractionError reports why a document yielded no usable text. It is a
// permanent, per-document failure: retrying the same bytes will fail the
// same way.
type ExtractionError struct {
	Filename string
	Format   string
	Reason   string
	Err      error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extract %s (%s): %s: %v", e.Filename, e.Format, e.Reason, e.Err)
	}
	return fmt.Sprintf("extract %s (%s): %s", e.Filename, e.Format, e.Reason)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// ExtractText converts raw uploaded bytes into plain text based on the file
// extension. Empty or unreadable content is an error, never an empty string.
func ExtractText(content []byte, filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))

	if len(content) == 0 {
		return "", &ExtractionError{Filename: filename, Format: ext, Reason: "file is empty"}
	}

	switch ext {
	case ".pdf":
		return extractPDF(content, filename)
	case ".txt":
		return extractPlainText(content, filename)
	case ".xlsx":
		return extractSpreadsheet(content, filename)
	default:
		return "", &ExtractionError{Filename: filename, Format: ext, Reason: "unsupported file type"}
	}
}

func extractPDF(content []byte, filename string) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", &ExtractionError{Filename: filename, Format: ".pdf", Reason: "corrupt or unreadable PDF", Err: err}
	}

	var pages []string
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			logger.Warn("Skipping unreadable PDF page", "file", filename, "page", i, "error", err)
			continue
		}
		text = strings.TrimSpace(text)
		if text != "" {
			pages = append(pages, text)
		}
	}

	if len(pages) == 0 {
		return "", &ExtractionError{Filename: filename, Format: ".pdf", Reason: "no extractable text (scanned or image-only document)"}
	}
	return strings.Join(pages, "\n\n"), nil
}

func extractPlainText(content []byte, filename string) (string, error) {
	if !utf8.Valid(content) {
		return "", &ExtractionError{Filename: filename, Format: ".txt", Reason: "content is not valid UTF-8"}
	}
	text := strings.TrimSpace(string(content))
	if text == "" {
		return "", &ExtractionError{Filename: filename, Format: ".txt", Reason: "file contains no text"}
	}
	return text, nil
}

func extractSpreadsheet(content []byte, filename string) (string, error) {
	wb, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return "", &ExtractionError{Filename: filename, Format: ".xlsx", Reason: "corrupt or unreadable workbook", Err: err}
	}
	defer wb.Close()

	var sb strings.Builder
	for _, sheet := range wb.GetSheetList() {
		rows, err := wb.GetRows(sheet)
		if err != nil {
			logger.Warn("Skipping unreadable sheet", "file", filename, "sheet", sheet, "error", err)
			continue
		}
		for _, row := range rows {
			line := strings.TrimSpace(strings.Join(row, " "))
			if line != "" {
				sb.WriteString(line)
				sb.WriteString("\n")
			}
		}
		sb.WriteString("\n")
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", &ExtractionError{Filename: filename, Format: ".xlsx", Reason: "workbook contains no text"}
	}
	return text, nil
}
