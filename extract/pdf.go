package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/lu4p/cat"
)

// pdfText tries two extraction libraries in turn. Scanned or oddly
// encoded PDFs frequently defeat one library but not the other, so the
// second is a silent fallback rather than an error path.
func pdfText(path string) (string, error) {
	if text, err := pdfTextPrimary(path); err == nil && strings.TrimSpace(text) != "" {
		return text, nil
	}
	text, err := cat.File(path)
	if err != nil {
		return "", fmt.Errorf("pdf extraction failed, err: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("pdf contains no extractable text")
	}
	return text, nil
}

func pdfTextPrimary(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf failed, err: %w", err)
	}
	defer f.Close()
	reader, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text failed, err: %w", err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(reader); err != nil {
		return "", fmt.Errorf("read pdf text failed, err: %w", err)
	}
	return buf.String(), nil
}
