// Package extractor turns source documents into plain text. PDF is the
// primary format; DOCX, XLSX, Markdown and plain text are handled as well.
package extractor

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"
)

// Extract dispatches on the file extension and returns the document's plain
// text, trimmed of leading and trailing whitespace.
func Extract(filePath string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filePath))
	switch ext {
	case ".pdf":
		return ExtractPDF(filePath)
	case ".docx":
		return extractDOCX(filePath)
	case ".xlsx":
		return extractXLSX(filePath)
	case ".md", ".markdown":
		return extractMarkdown(filePath)
	case ".txt":
		return extractText(filePath)
	default:
		return "", fmt.Errorf("unsupported file format: %s", ext)
	}
}

// ExtractPDF concatenates the text of all pages, each non-empty page preceded
// by a "--- Page N ---" marker. Pages without an extractable text layer are
// skipped; there is no OCR fallback.
func ExtractPDF(filePath string) (string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("error extracting text from PDF: %w", err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("error extracting text from PDF: %w", err)
	}

	reader, err := pdf.NewReader(f, stat.Size())
	if err != nil {
		return "", fmt.Errorf("error extracting text from PDF: %w", err)
	}

	var text strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			log.Warn().Err(err).Int("page", i).Msg("Skipping unextractable page")
			continue
		}
		if strings.TrimSpace(pageText) == "" {
			continue
		}
		fmt.Fprintf(&text, "\n\n--- Page %d ---\n\n", i)
		text.WriteString(pageText)
	}

	return strings.TrimSpace(text.String()), nil
}

var xmlTagRe = regexp.MustCompile(`<[^>]+>`)

func extractDOCX(filePath string) (string, error) {
	r, err := docx.ReadDocxFile(filePath)
	if err != nil {
		return "", fmt.Errorf("error extracting text from DOCX: %w", err)
	}
	defer r.Close()

	content := xmlTagRe.ReplaceAllString(r.Editable().GetContent(), "\n")

	var text strings.Builder
	for _, para := range strings.Split(content, "\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if text.Len() > 0 {
			text.WriteString("\n\n")
		}
		text.WriteString(para)
	}
	return text.String(), nil
}

func extractXLSX(filePath string) (string, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return "", fmt.Errorf("error extracting text from XLSX: %w", err)
	}
	defer f.Close()

	var text strings.Builder
	for _, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			continue
		}
		fmt.Fprintf(&text, "\n\n--- Sheet: %s ---\n\n", sheetName)
		for _, row := range rows {
			text.WriteString(strings.Join(row, "\t"))
			text.WriteString("\n")
		}
	}
	return strings.TrimSpace(text.String()), nil
}

func extractText(filePath string) (string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("error extracting text: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}
