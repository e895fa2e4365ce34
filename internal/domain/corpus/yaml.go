package corpus

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/museumrag/internal/domain"
)

type yamlFile struct {
	Documents []yamlDocument `yaml:"documents"`
}

type yamlDocument struct {
	ID      string `yaml:"id"`
	Title   string `yaml:"title"`
	Section string `yaml:"section"`
	Text    string `yaml:"text"`
}

// LoadYAML reads a corpus file of the form `documents: [{id, title, section, text}]`.
func LoadYAML(path string) ([]domain.Document, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read corpus %s: %w", path, err)
	}
	return ParseYAML(data)
}

// ParseYAML decodes corpus YAML.
func ParseYAML(data []byte) ([]domain.Document, error) {
	var f yamlFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse corpus: %w", err)
	}
	docs := make([]domain.Document, len(f.Documents))
	for i, d := range f.Documents {
		docs[i] = domain.Document{
			ID:      d.ID,
			Title:   d.Title,
			Section: d.Section,
			Text:    d.Text,
		}
	}
	return docs, nil
}
