// Package extract pulls plain text out of uploaded book files.
package extract

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	pdf "github.com/ledongthuc/pdf"
)

// FallbackMessage is stored as book content when a PDF defeats both
// extraction strategies. Readers see it instead of an empty book.
const FallbackMessage = "Could not extract text from PDF"

// PDFText extracts text from a PDF, trying the whole-document reader first
// (better for complex layouts) and falling back to a page-by-page pass. It
// never fails: a PDF that defeats both strategies yields FallbackMessage.
func PDFText(data []byte) string {
	if text, err := wholeDocumentText(data); err == nil && strings.TrimSpace(text) != "" {
		return text
	}

	text, err := pageByPageText(data)
	if err != nil {
		return FallbackMessage
	}
	return text
}

// wholeDocumentText reads the full content stream in one pass.
func wholeDocumentText(data []byte) (text string, err error) {
	// The pdf library panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf reader panic: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("pdf reader: %w", err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("pdf plaintext: %w", err)
	}
	b, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("pdf read: %w", err)
	}
	return string(b), nil
}

// pageByPageText walks pages individually, joining what each yields. Pages
// that fail to parse are skipped rather than sinking the whole document.
func pageByPageText(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf page panic: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("pdf reader: %w", err)
	}

	var out strings.Builder
	total := r.NumPage()
	for i := 1; i <= total; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		out.WriteString(pageText)
		out.WriteString("\n")
	}
	return out.String(), nil
}

// IsPDF reports whether data starts with the PDF magic header.
func IsPDF(data []byte) bool {
	return len(data) >= 5 && string(data[:5]) == "%PDF-"
}

// IsProbablyText reports whether data looks like plain text: mostly printable
// bytes and no NULs in the leading sample.
func IsProbablyText(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	sample := data
	if len(sample) > 4096 {
		sample = sample[:4096]
	}
	good := 0
	for _, c := range sample {
		if c == 0x00 {
			return false
		}
		if c == '\n' || c == '\r' || c == '\t' || (c >= 0x20 && c <= 0x7E) || c >= 0x80 {
			good++
		}
	}
	return float64(good)/float64(len(sample)) > 0.9
}
