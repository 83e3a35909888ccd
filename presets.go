package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"rhythmpath/geom"
	"rhythmpath/planner"
)

// PlannerPreset bundles the ball size, speed and wall geometry for one look.
// Zero geometry fields are derived from CharacterSize.
type PlannerPreset struct {
	Name          string  `json:"name" yaml:"name"`
	Density       string  `json:"density" yaml:"density"` // "sparse", "normal" or "dense"
	CharacterSize float64 `json:"characterSize" yaml:"characterSize"`
	Speed         float64 `json:"speed" yaml:"speed"`
	WallThickness float64 `json:"wallThickness,omitempty" yaml:"wallThickness,omitempty"`
	WallLength    float64 `json:"wallLength,omitempty" yaml:"wallLength,omitempty"`
	PathWidth     float64 `json:"pathWidth,omitempty" yaml:"pathWidth,omitempty"`
	MinDistance   float64 `json:"minDistance,omitempty" yaml:"minDistance,omitempty"`
}

// GetPresets returns all available planner presets
func GetPresets() map[string]PlannerPreset {
	return map[string]PlannerPreset{
		"classic": {
			Name:          "Classic ball, 30px at 200px/s",
			Density:       "normal",
			CharacterSize: 30,
			Speed:         200,
		},
		"small": {
			Name:          "Small ball for busy passages",
			Density:       "dense",
			CharacterSize: 18,
			Speed:         160,
		},
		"tight": {
			Name:          "Fast runs with a narrow corridor",
			Density:       "dense",
			CharacterSize: 20,
			Speed:         240,
			PathWidth:     16,
			MinDistance:   30,
		},
		"wide": {
			Name:          "Slow pieces, long walls",
			Density:       "sparse",
			CharacterSize: 40,
			Speed:         220,
			WallLength:    60,
		},
		"ballad": {
			Name:          "Large slow ball",
			Density:       "sparse",
			CharacterSize: 48,
			Speed:         140,
		},
	}
}

// GetPresetByName returns a preset by its key name
func GetPresetByName(name string) (PlannerPreset, bool) {
	preset, exists := GetPresets()[name]
	return preset, exists
}

// GetDefaultPreset returns the default preset for a note density
func GetDefaultPreset(density string) PlannerPreset {
	switch strings.ToLower(density) {
	case "dense":
		return GetPresets()["small"]
	case "sparse":
		return GetPresets()["wide"]
	default:
		return GetPresets()["classic"]
	}
}

// Config turns the preset into a planner config starting at start.
func (p PlannerPreset) Config(start geom.Vec2) planner.Config {
	cfg := planner.DefaultConfig(start, p.Speed, p.CharacterSize)
	if p.WallThickness > 0 {
		cfg.WallThickness = p.WallThickness
	}
	if p.WallLength > 0 {
		cfg.WallLength = p.WallLength
	}
	if p.PathWidth > 0 {
		cfg.PathWidth = p.PathWidth
	}
	if p.MinDistance > 0 {
		cfg.MinDistance = p.MinDistance
	}
	return cfg
}

// loadPresetFile overlays the fields present in a YAML file onto base.
func loadPresetFile(path string, base PlannerPreset) (PlannerPreset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("failed to read preset file: %w", err)
	}
	out := base
	if err := yaml.Unmarshal(data, &out); err != nil {
		return base, fmt.Errorf("failed to parse preset file %s: %w", path, err)
	}
	return out, nil
}

// resolvePreset picks the named preset (or the default), then applies the
// optional YAML override file.
func resolvePreset(name, configFile string) (PlannerPreset, error) {
	preset := GetDefaultPreset("")
	if name != "" {
		var exists bool
		preset, exists = GetPresetByName(name)
		if !exists {
			return preset, fmt.Errorf("preset '%s' not found (use 'rhythmpath list-presets' to see available presets)", name)
		}
	}
	if configFile != "" {
		return loadPresetFile(configFile, preset)
	}
	return preset, nil
}

// listPresets prints all available presets
func listPresets() {
	presets := GetPresets()

	fmt.Println("Available planner presets:")
	fmt.Println()

	groups := map[string][]string{}
	for key, preset := range presets {
		groups[preset.Density] = append(groups[preset.Density], key)
	}

	for _, density := range []string{"sparse", "normal", "dense"} {
		keys := groups[density]
		if len(keys) == 0 {
			continue
		}
		sort.Strings(keys)
		fmt.Printf("%s%s presets:\n", strings.ToUpper(density[:1]), density[1:])
		for _, key := range keys {
			preset := presets[key]
			cfg := preset.Config(geom.Vec2{})
			fmt.Printf("  %-8s - %s (size=%.0f, speed=%.0f, wall=%.1fx%.1f, path=%.1f, min=%.1f)\n",
				key, preset.Name, cfg.CharacterSize, cfg.Speed,
				cfg.WallLength, cfg.WallThickness, cfg.PathWidth, cfg.MinDistance)
		}
		fmt.Println()
	}

	fmt.Println("Usage: rhythmpath plan -i notes.yaml -p preset-name")
}
