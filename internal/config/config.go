// Package config handles tool configuration loading and management.
package config

import "fmt"

// Config holds all settings.
type Config struct {
	Data    DataConfig    `yaml:"data"`
	Terrain TerrainConfig `yaml:"terrain"`
	Props   PropsConfig   `yaml:"props"`
	Export  ExportConfig  `yaml:"export"`
	Logging LoggingConfig `yaml:"logging"`
}

// DataConfig holds client data locations and lookup settings.
type DataConfig struct {
	Root           string   `yaml:"root"`            // Client "data" folder
	Region         string   `yaml:"region"`          // Default region file
	TextureExt     string   `yaml:"texture_ext"`     // Texture file extension, without dot
	SearchDirs     []string `yaml:"search_dirs"`     // Texture fallback dirs under material/, in order
	FeatureSetting string   `yaml:"feature_setting"` // Feature set selected after loading features.xml
	TestFeatures   bool     `yaml:"test_features"`
	DevFeatures    bool     `yaml:"dev_features"`
}

// TerrainConfig holds mesh generation settings.
type TerrainConfig struct {
	WorldScale float32 `yaml:"world_scale"` // Source millimetres to scene units
	PlaneSize  float32 `yaml:"plane_size"`  // Distance between height samples, millimetres
	UVMode     string  `yaml:"uv_mode"`     // quarter, grid or stored
}

// PropsConfig selects which props are placed.
type PropsConfig struct {
	SpawnNormal   bool `yaml:"spawn_normal"`
	SpawnEvent    bool `yaml:"spawn_event"`
	SpawnDisabled bool `yaml:"spawn_disabled"`
}

// ExportConfig holds glTF export settings.
type ExportConfig struct {
	Binary      bool `yaml:"binary"`
	DoubleSided bool `yaml:"double_sided"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// DefaultSearchDirs is the texture fallback order under material/.
var DefaultSearchDirs = []string{
	"fx", "obj", "etc", "interior", "char",
	"giant", "glossmap", "guildemblem", "monster", "statue",
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Data: DataConfig{
			Root:           "",
			TextureExt:     "dds",
			SearchDirs:     append([]string(nil), DefaultSearchDirs...),
			FeatureSetting: "USA",
		},
		Terrain: TerrainConfig{
			WorldScale: 0.01,
			PlaneSize:  200,
			UVMode:     "quarter",
		},
		Props: PropsConfig{
			SpawnNormal:   true,
			SpawnEvent:    false,
			SpawnDisabled: false,
		},
		Export: ExportConfig{
			Binary:      true,
			DoubleSided: true,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Validate reports settings that cannot produce a usable scene.
func (c *Config) Validate() error {
	if c.Terrain.WorldScale <= 0 {
		return fmt.Errorf("terrain.world_scale must be positive, got %g", c.Terrain.WorldScale)
	}
	if c.Terrain.PlaneSize <= 0 {
		return fmt.Errorf("terrain.plane_size must be positive, got %g", c.Terrain.PlaneSize)
	}
	switch c.Terrain.UVMode {
	case "quarter", "grid", "stored":
	default:
		return fmt.Errorf("terrain.uv_mode %q is not one of quarter, grid, stored", c.Terrain.UVMode)
	}
	if c.Data.TextureExt == "" {
		return fmt.Errorf("data.texture_ext must not be empty")
	}
	return nil
}
