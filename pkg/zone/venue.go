package zone

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/soundprediction/zonegraph/pkg/types"
)

//go:embed venue_profile.yaml
var defaultVenueProfile []byte

// DefaultVenueProfile returns the built-in venue profile.
func DefaultVenueProfile() (*types.VenueProfile, error) {
	return ParseVenueProfile(defaultVenueProfile)
}

// LoadVenueProfile reads a venue profile from a YAML file.
func LoadVenueProfile(path string) (*types.VenueProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read venue profile: %w", err)
	}
	return ParseVenueProfile(data)
}

// ParseVenueProfile decodes a YAML venue profile.
func ParseVenueProfile(data []byte) (*types.VenueProfile, error) {
	var profile types.VenueProfile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("failed to parse venue profile: %w", err)
	}
	if profile.CoordinateSystem == "" {
		profile.CoordinateSystem = "WGS84"
	}
	return &profile, nil
}
