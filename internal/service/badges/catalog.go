package badges

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/streakfarm/streakfarm-api/internal/models"
)

//go:embed catalog.yaml
var catalogYAML []byte

type catalogFile struct {
	Badges []catalogEntry `yaml:"badges"`
}

type catalogEntry struct {
	Slug        string  `yaml:"slug"`
	Name        string  `yaml:"name"`
	Description string  `yaml:"description"`
	Icon        string  `yaml:"icon"`
	Rarity      string  `yaml:"rarity"`
	Multiplier  float64 `yaml:"multiplier"`
	Metric      string  `yaml:"metric"`
	Operator    string  `yaml:"operator"`
	Value       float64 `yaml:"value"`
}

// LoadCatalog parses the embedded badge catalog.
func LoadCatalog() ([]models.Badge, error) {
	return parseCatalog(catalogYAML)
}

func parseCatalog(raw []byte) ([]models.Badge, error) {
	var file catalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("failed to parse badge catalog: %w", err)
	}
	if len(file.Badges) == 0 {
		return nil, fmt.Errorf("badge catalog is empty")
	}

	badges := make([]models.Badge, 0, len(file.Badges))
	seen := make(map[string]bool, len(file.Badges))
	for i, entry := range file.Badges {
		if entry.Slug == "" {
			return nil, fmt.Errorf("badge catalog entry %d has no slug", i)
		}
		if seen[entry.Slug] {
			return nil, fmt.Errorf("badge catalog has duplicate slug %q", entry.Slug)
		}
		seen[entry.Slug] = true

		badges = append(badges, models.Badge{
			Slug:        entry.Slug,
			Name:        entry.Name,
			Description: entry.Description,
			Icon:        entry.Icon,
			Rarity:      entry.Rarity,
			Multiplier:  entry.Multiplier,
			Metric:      entry.Metric,
			Operator:    entry.Operator,
			Value:       entry.Value,
		})
	}
	return badges, nil
}
