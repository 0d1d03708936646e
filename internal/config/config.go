// Package config handles tool configuration loading and management.
package config

import "github.com/Faultbox/kcltool/pkg/kcl"

// Config holds all tool settings.
type Config struct {
	Build   BuildConfig   `yaml:"build"`
	Logging LoggingConfig `yaml:"logging"`
}

// BuildConfig holds spatial-index builder settings.
type BuildConfig struct {
	RootCellWidth uint32  `yaml:"root_cell_width"`
	MaxLeafPrisms int     `yaml:"max_leaf_prisms"`
	MaxDepth      int     `yaml:"max_depth"`
	Padding       float32 `yaml:"padding"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	def := kcl.DefaultBuildOptions()
	return &Config{
		Build: BuildConfig{
			RootCellWidth: def.RootCellWidth,
			MaxLeafPrisms: def.MaxLeafPrisms,
			MaxDepth:      def.MaxDepth,
			Padding:       def.Padding,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// BuildOptions converts the build section into builder options. Zero or
// missing values fall back to the builder defaults.
func (c *Config) BuildOptions() kcl.BuildOptions {
	return kcl.BuildOptions{
		RootCellWidth: c.Build.RootCellWidth,
		MaxLeafPrisms: c.Build.MaxLeafPrisms,
		MaxDepth:      c.Build.MaxDepth,
		Padding:       c.Build.Padding,
	}
}
