// Package pdfutil turns uploaded resume PDFs into searchable plain text.
package pdfutil

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode"

	pdf "github.com/ledongthuc/pdf"
)

// MaxTextRunes caps the amount of resume text kept on an application.
const MaxTextRunes = 20000

// ErrNotPDF is returned for documents without a PDF header.
var ErrNotPDF = errors.New("document is not a PDF")

// IsPDF reports whether data starts with the PDF magic bytes.
func IsPDF(data []byte) bool {
	return bytes.HasPrefix(data, []byte("%PDF-"))
}

// ExtractText reads PDF bytes and returns plain text using ledongthuc/pdf.
// Pages that fail to decode are skipped; only a document with no readable
// page at all is an error.
func ExtractText(data []byte) (string, error) {
	if !IsPDF(data) {
		return "", ErrNotPDF
	}
	doc, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("new pdf reader: %w", err)
	}
	var (
		builder strings.Builder
		lastErr error
		read    int
	)
	total := doc.NumPage()
	for page := 1; page <= total; page++ {
		p := doc.Page(page)
		if p.V.IsNull() {
			continue
		}
		content, err := p.GetPlainText(nil)
		if err != nil {
			lastErr = fmt.Errorf("page %d: %w", page, err)
			continue
		}
		read++
		builder.WriteString(content)
		builder.WriteString("\n")
	}
	if read == 0 && lastErr != nil {
		return "", lastErr
	}
	return Normalize(builder.String(), MaxTextRunes), nil
}

// Normalize collapses runs of whitespace, drops control characters and trims
// the result to at most limit runes.
func Normalize(text string, limit int) string {
	var (
		b       strings.Builder
		n       int
		pending bool
	)
	for _, r := range text {
		if unicode.IsSpace(r) {
			pending = b.Len() > 0
			continue
		}
		if unicode.IsControl(r) {
			continue
		}
		if pending {
			if limit > 0 && n >= limit {
				break
			}
			b.WriteRune(' ')
			n++
			pending = false
		}
		if limit > 0 && n >= limit {
			break
		}
		b.WriteRune(r)
		n++
	}
	return b.String()
}
