package services

import (
	"errors"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestExtractPlainText(t *testing.T) {
	text, err := ExtractText([]byte("  Lecture 1: Introduction.\nWelcome to the course.  "), "notes.txt")
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	if !strings.HasPrefix(text, "Lecture 1") {
		t.Errorf("expected trimmed text, got %q", text)
	}
}

func TestExtractEmptyFile(t *testing.T) {
	_, err := ExtractText(nil, "empty.txt")
	var exErr *ExtractionError
	if !errors.As(err, &exErr) {
		t.Fatalf("expected ExtractionError, got %v", err)
	}
	if exErr.Filename != "empty.txt" {
		t.Errorf("error names wrong file: %q", exErr.Filename)
	}
}

func TestExtractWhitespaceOnlyText(t *testing.T) {
	_, err := ExtractText([]byte("   \n\t  "), "blank.txt")
	var exErr *ExtractionError
	if !errors.As(err, &exErr) {
		t.Fatalf("expected ExtractionError, got %v", err)
	}
}

func TestExtractInvalidUTF8(t *testing.T) {
	_, err := ExtractText([]byte{0xff, 0xfe, 0x41}, "binary.txt")
	var exErr *ExtractionError
	if !errors.As(err, &exErr) {
		t.Fatalf("expected ExtractionError, got %v", err)
	}
}

func TestExtractUnsupportedExtension(t *testing.T) {
	_, err := ExtractText([]byte("content"), "slides.pptx")
	var exErr *ExtractionError
	if !errors.As(err, &exErr) {
		t.Fatalf("expected ExtractionError, got %v", err)
	}
	if !strings.Contains(exErr.Reason, "unsupported") {
		t.Errorf("unexpected reason: %q", exErr.Reason)
	}
}

func TestExtractCorruptPDF(t *testing.T) {
	_, err := ExtractText([]byte("this is not a pdf"), "corrupt.pdf")
	var exErr *ExtractionError
	if !errors.As(err, &exErr) {
		t.Fatalf("expected ExtractionError, got %v", err)
	}
	if exErr.Format != ".pdf" {
		t.Errorf("error names wrong format: %q", exErr.Format)
	}
}

func TestExtractSpreadsheet(t *testing.T) {
	wb := excelize.NewFile()
	if err := wb.SetCellValue("Sheet1", "A1", "Week"); err != nil {
		t.Fatal(err)
	}
	if err := wb.SetCellValue("Sheet1", "B1", "Topic"); err != nil {
		t.Fatal(err)
	}
	if err := wb.SetCellValue("Sheet1", "A2", "1"); err != nil {
		t.Fatal(err)
	}
	if err := wb.SetCellValue("Sheet1", "B2", "Limits and continuity"); err != nil {
		t.Fatal(err)
	}
	buf, err := wb.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}

	text, err := ExtractText(buf.Bytes(), "syllabus.xlsx")
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	if !strings.Contains(text, "Limits and continuity") {
		t.Errorf("extracted text missing cell content: %q", text)
	}
}

func TestExtractCorruptSpreadsheet(t *testing.T) {
	_, err := ExtractText([]byte("not a zip archive"), "broken.xlsx")
	var exErr *ExtractionError
	if !errors.As(err, &exErr) {
		t.Fatalf("expected ExtractionError, got %v", err)
	}
}
