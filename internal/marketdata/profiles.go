package marketdata

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Profile controls the random walk for a symbol: the uniform step bound per
// tick and the base volume before jitter.
type Profile struct {
	StepBound  float64 `yaml:"step_bound"`
	BaseVolume int64   `yaml:"base_volume"`
}

// Profiles resolves a symbol's walk profile: an exact symbol entry wins,
// then the symbol's asset class, then the global default.
type Profiles struct {
	Default      Profile            `yaml:"default"`
	AssetClasses map[string]Profile `yaml:"asset_classes"`
	Symbols      map[string]Profile `yaml:"symbols"`
}

func DefaultProfiles() *Profiles {
	return &Profiles{
		Default: Profile{StepBound: 0.005, BaseVolume: 1_000_000},
	}
}

// LoadProfiles reads a YAML profile file. Missing fields in a symbol or
// asset-class entry inherit from the default profile.
func LoadProfiles(path string) (*Profiles, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profiles: %w", err)
	}
	p := DefaultProfiles()
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("parse profiles: %w", err)
	}
	if p.Default.StepBound <= 0 {
		p.Default.StepBound = 0.005
	}
	if p.Default.BaseVolume <= 0 {
		p.Default.BaseVolume = 1_000_000
	}
	return p, nil
}

func (p *Profiles) Resolve(symbol, assetClass string) Profile {
	if prof, ok := p.Symbols[symbol]; ok {
		return p.fill(prof)
	}
	if prof, ok := p.AssetClasses[assetClass]; ok {
		return p.fill(prof)
	}
	return p.Default
}

func (p *Profiles) fill(prof Profile) Profile {
	if prof.StepBound <= 0 {
		prof.StepBound = p.Default.StepBound
	}
	if prof.BaseVolume <= 0 {
		prof.BaseVolume = p.Default.BaseVolume
	}
	return prof
}
