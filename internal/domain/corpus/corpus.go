package corpus

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/museumrag/internal/domain"
)

// Source names a corpus origin.
type Source string

const (
	// SourceBuiltin is the compiled-in Dalí dataset.
	SourceBuiltin Source = "builtin"
	// SourceYAML reads documents from a YAML file.
	SourceYAML Source = "yaml"
	// SourcePDF extracts one document per PDF page.
	SourcePDF Source = "pdf"
)

// Options selects and locates the corpus.
type Options struct {
	Source Source
	Path   string
	Title  string // PDF only; defaults to the file name
}

// Load returns the validated corpus described by opts.
func Load(opts Options) ([]domain.Document, error) {
	var (
		docs []domain.Document
		err  error
	)
	switch opts.Source {
	case "", SourceBuiltin:
		docs = Dali()
	case SourceYAML:
		docs, err = LoadYAML(opts.Path)
	case SourcePDF:
		docs, err = LoadPDF(opts.Path, opts.Title)
	default:
		return nil, fmt.Errorf("unknown corpus source %q: %w", opts.Source, domain.ErrConfiguration)
	}
	if err != nil {
		return nil, err
	}
	if err := Validate(docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// Validate checks that docs is non-empty, IDs are unique and every document has text.
func Validate(docs []domain.Document) error {
	if len(docs) == 0 {
		return fmt.Errorf("corpus is empty: %w", domain.ErrValidation)
	}
	seen := make(map[string]struct{}, len(docs))
	for i, d := range docs {
		if d.ID == "" {
			return fmt.Errorf("document [%d] has no id: %w", i, domain.ErrValidation)
		}
		if strings.TrimSpace(d.Text) == "" {
			return fmt.Errorf("document %q has no text: %w", d.ID, domain.ErrValidation)
		}
		if _, dup := seen[d.ID]; dup {
			return fmt.Errorf("duplicate document id %q: %w", d.ID, domain.ErrValidation)
		}
		seen[d.ID] = struct{}{}
	}
	return nil
}

// Chunks converts documents into index records without vectors.
func Chunks(docs []domain.Document) []domain.Chunk {
	out := make([]domain.Chunk, len(docs))
	for i, d := range docs {
		out[i] = domain.Chunk{
			ID:      d.ID,
			Text:    d.Text,
			Title:   d.Title,
			Section: d.Section,
		}
	}
	return out
}
