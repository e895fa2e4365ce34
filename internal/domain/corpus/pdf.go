package corpus

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/kailas-cloud/museumrag/internal/domain"
)

// LoadPDF extracts one document per non-empty page.
func LoadPDF(path, title string) ([]domain.Document, error) {
	f, rdr, err := pdf.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open pdf %s: %w", path, err)
	}
	defer f.Close()

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if title == "" {
		title = base
	}

	var docs []domain.Document
	for i := 1; i <= rdr.NumPage(); i++ {
		page := rdr.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("read pdf page %d: %w", i, err)
		}
		text = normalizeSpace(text)
		if text == "" {
			continue
		}
		docs = append(docs, domain.Document{
			ID:      base + "-p" + strconv.Itoa(i),
			Title:   title,
			Section: "page " + strconv.Itoa(i),
			Text:    text,
		})
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("no text extracted from %s: %w", path, domain.ErrValidation)
	}
	return docs, nil
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
