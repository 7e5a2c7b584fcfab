package repository

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"examtrack-sync/internal/domain"

	"gopkg.in/yaml.v3"
)

//go:embed taxonomy_default.yaml
var defaultTaxonomy []byte

// TaxonomyRepository serves the static tag tree of each subject. It is
// read-only once loaded.
type TaxonomyRepository interface {
	Tree(subject string) ([]domain.TagNode, bool)
	Subjects() []string
}

type taxonomyRepository struct {
	trees map[string][]domain.TagNode
}

// NewTaxonomyRepository loads the taxonomy from path, or the built-in one when
// path is empty.
func NewTaxonomyRepository(path string) (TaxonomyRepository, error) {
	data := defaultTaxonomy
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read taxonomy: %w", err)
		}
	}
	return ParseTaxonomy(data)
}

func ParseTaxonomy(data []byte) (TaxonomyRepository, error) {
	trees := map[string][]domain.TagNode{}
	if err := yaml.Unmarshal(data, &trees); err != nil {
		return nil, fmt.Errorf("failed to parse taxonomy: %w", err)
	}

	for subject, nodes := range trees {
		if err := validateTree(nodes, map[string]bool{}); err != nil {
			return nil, fmt.Errorf("invalid taxonomy for %q: %w", subject, err)
		}
	}

	return &taxonomyRepository{trees: trees}, nil
}

func validateTree(nodes []domain.TagNode, seen map[string]bool) error {
	for _, node := range nodes {
		if node.ID == "" {
			return fmt.Errorf("tag %q has no id", node.Label)
		}
		if node.Label == "" {
			return fmt.Errorf("tag %q has no label", node.ID)
		}
		if seen[node.ID] {
			return fmt.Errorf("duplicate tag id %q", node.ID)
		}
		seen[node.ID] = true
		if err := validateTree(node.Children, seen); err != nil {
			return err
		}
	}
	return nil
}

func (r *taxonomyRepository) Tree(subject string) ([]domain.TagNode, bool) {
	nodes, ok := r.trees[subject]
	return nodes, ok
}

func (r *taxonomyRepository) Subjects() []string {
	subjects := make([]string, 0, len(r.trees))
	for s := range r.trees {
		subjects = append(subjects, s)
	}
	sort.Strings(subjects)
	return subjects
}
