package catalog

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/terra-clan/scheme-connect/internal/models"
)

//go:embed seed.yaml
var embeddedSeed []byte

// seedFile represents the YAML structure of a seed catalog file
type seedFile struct {
	Schemes []models.Scheme `yaml:"schemes"`
}

// DefaultSeed returns the built-in seed schemes
func DefaultSeed() ([]models.Scheme, error) {
	return ParseSeed(embeddedSeed)
}

// LoadSeedFile loads seed schemes from a YAML file
func LoadSeedFile(path string) ([]models.Scheme, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	return ParseSeed(data)
}

// ParseSeed decodes and validates a YAML seed document
func ParseSeed(data []byte) ([]models.Scheme, error) {
	var sf seedFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("failed to parse seed YAML: %w", err)
	}

	seen := make(map[string]struct{}, len(sf.Schemes))
	for i := range sf.Schemes {
		s := &sf.Schemes[i]

		// Validate required fields
		if s.ID == "" {
			return nil, fmt.Errorf("seed scheme %d: id is required", i+1)
		}
		if s.Title == "" {
			return nil, fmt.Errorf("seed scheme %q: title is required", s.ID)
		}
		if _, dup := seen[s.ID]; dup {
			return nil, fmt.Errorf("seed scheme %q: %w", s.ID, ErrDuplicateID)
		}
		seen[s.ID] = struct{}{}

		// Apply defaults
		if s.Status == "" {
			s.Status = models.SchemeActive
		}
		if s.Eligibility == nil {
			s.Eligibility = []string{}
		}
		if s.Documents == nil {
			s.Documents = []string{}
		}
	}

	return sf.Schemes, nil
}
