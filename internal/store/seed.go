package store

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/feever-health/feever/internal/model"
)

// seedFile is the on-disk shape of a rate seed.
type seedFile struct {
	Rates []model.Rate `yaml:"rates"`
}

// LoadSeed reads a YAML rate seed and validates each entry against the table
// invariant min_rate <= rate <= max_rate.
func LoadSeed(path string) ([]model.Rate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "store: read seed %s", path)
	}

	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, eris.Wrapf(err, "store: parse seed %s", path)
	}
	if len(seed.Rates) == 0 {
		return nil, eris.Errorf("store: seed %s contains no rates", path)
	}

	for _, r := range seed.Rates {
		if err := validateRate(r); err != nil {
			return nil, err
		}
	}
	return seed.Rates, nil
}

func validateRate(r model.Rate) error {
	if r.Code == "" {
		return eris.Errorf("store: rate %q has no code", r.Description)
	}
	if r.Description == "" {
		return eris.Errorf("store: rate %s has no description", r.Code)
	}
	if r.MinRate > r.Rate || r.Rate > r.MaxRate {
		return eris.Errorf("store: rate %s violates min <= rate <= max (%.2f, %.2f, %.2f)",
			r.Code, r.MinRate, r.Rate, r.MaxRate)
	}
	return nil
}
