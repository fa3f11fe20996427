// Package extract turns uploaded document files into plain text for
// ingestion. PDF is the primary format; anything else is read as UTF-8
// text.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrNoText is returned when a file yields no extractable text.
var ErrNoText = errors.New("extract: no text extracted")

// Text extracts the text content of the file at path.
func Text(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("extract: read %s: %w", path, err)
	}

	var text string
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		text, err = pdfText(content)
		if err != nil {
			return "", fmt.Errorf("extract: %s: %w", path, err)
		}
	} else {
		text = string(content)
	}

	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: %s", ErrNoText, path)
	}
	return text, nil
}

func pdfText(content []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			// Pages with broken font maps are skipped rather than
			// failing the whole document.
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(pageText)
	}
	return sb.String(), nil
}
