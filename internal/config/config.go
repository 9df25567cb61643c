// Package config holds the settings for a terrace extraction run. Values
// come from defaults, an optional YAML file, environment variables and
// finally command-line flags, in increasing priority.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ironsheep/terrace-extractor/internal/geo"
	"github.com/ironsheep/terrace-extractor/internal/imaging"
	"github.com/ironsheep/terrace-extractor/internal/trace"
	"github.com/ironsheep/terrace-extractor/internal/vector"
)

// Environment variables read by Load.
const (
	EnvLogLevel = "TERRACE_LOG_LEVEL"
	EnvBackend  = "TERRACE_BACKEND"
)

// Config holds all terrace-extractor configuration.
type Config struct {
	// Input image and output directory. Usually given as flags.
	Image  string `yaml:"image"`
	OutDir string `yaml:"out"`

	Edges   imaging.EdgeOptions `yaml:"edges"`
	Backend string              `yaml:"backend"`

	Window WindowConfig `yaml:"window"`
	Trace  TraceConfig  `yaml:"trace"`
	Georef GeorefConfig `yaml:"georef"`
	Output OutputConfig `yaml:"output"`

	Logging LoggingConfig `yaml:"logging"`
}

// WindowConfig selects the part of the image that is processed.
type WindowConfig struct {
	// Crop is "x1,y1,x2,y2" or a named region such as "top-left". Empty
	// processes the whole image.
	Crop  string  `yaml:"crop"`
	Scale float64 `yaml:"scale"`
}

// TraceConfig configures vectorization.
type TraceConfig struct {
	Mode     string  `yaml:"mode"` // contour, centerline
	Simplify float64 `yaml:"simplify"`
}

// GeorefConfig describes how pixels map to the ground when the image carries
// no georeferencing of its own.
type GeorefConfig struct {
	EPSG      int     `yaml:"epsg"`
	PixelSize float64 `yaml:"pixel_size"`
	OriginX   float64 `yaml:"origin_x"`
	OriginY   float64 `yaml:"origin_y"`

	// GCPs is a CSV of col,row,x,y control points. When set, the fitted
	// transform replaces the pixel-size transform.
	GCPs string `yaml:"gcps"`

	// ProjectEPSG reprojects vectors before length filtering.
	ProjectEPSG int `yaml:"project_epsg"`
}

// OutputConfig controls what is written.
type OutputConfig struct {
	Format    string  `yaml:"format"` // shp, gpkg, geojson
	MinLength float64 `yaml:"min_length"`
	Overlay   bool    `yaml:"overlay"`
	Report    bool    `yaml:"report"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// DefaultConfig returns the defaults of the extract command.
func DefaultConfig() *Config {
	return &Config{
		Edges:   imaging.DefaultEdgeOptions(),
		Backend: imaging.NativeBackend,
		Window: WindowConfig{
			Scale: 1,
		},
		Trace: TraceConfig{
			Mode: string(trace.ModeContour),
		},
		Georef: GeorefConfig{
			PixelSize: 0.3,
		},
		Output: OutputConfig{
			Format:    string(vector.FormatShapefile),
			MinLength: 5,
			Overlay:   true,
			Report:    true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file. An empty path yields the
// defaults; a named file must exist. Environment overrides are applied in
// both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if level := os.Getenv(EnvLogLevel); level != "" {
		c.Logging.Level = strings.ToLower(level)
	}
	if backend := os.Getenv(EnvBackend); backend != "" {
		c.Backend = backend
	}
}

// ValidLogLevels lists the accepted logging levels.
var ValidLogLevels = []string{"debug", "info", "warn", "error"}

// Validate checks the settings that do not depend on the input image.
// Image-dependent checks such as crop bounds happen when the image is read.
func (c *Config) Validate() error {
	if c.Image == "" {
		return fmt.Errorf("no input image given")
	}
	if c.OutDir == "" {
		return fmt.Errorf("no output directory given")
	}
	return c.ValidateParams()
}

// ValidateParams checks everything except the input and output paths.
func (c *Config) ValidateParams() error {
	if err := c.Edges.Validate(); err != nil {
		return err
	}
	if _, err := imaging.NewBackend(c.Backend); err != nil {
		return err
	}
	if c.Window.Scale <= 0 {
		return fmt.Errorf("scale must be positive, got %g", c.Window.Scale)
	}
	if _, err := trace.ParseMode(c.Trace.Mode); err != nil {
		return err
	}
	if c.Trace.Simplify < 0 {
		return fmt.Errorf("simplify tolerance must be >= 0, got %g", c.Trace.Simplify)
	}
	if c.Georef.PixelSize <= 0 {
		return fmt.Errorf("pixel size must be positive, got %g", c.Georef.PixelSize)
	}
	if c.Georef.EPSG < 0 || c.Georef.ProjectEPSG < 0 {
		return fmt.Errorf("EPSG codes must be positive")
	}
	if _, err := vector.ParseFormat(c.Output.Format); err != nil {
		return err
	}
	if c.Output.MinLength < 0 {
		return fmt.Errorf("min length must be >= 0, got %g", c.Output.MinLength)
	}

	validLevel := false
	for _, l := range ValidLogLevels {
		if c.Logging.Level == l {
			validLevel = true
			break
		}
	}
	if !validLevel {
		return fmt.Errorf("invalid log level: %s (valid: %v)", c.Logging.Level, ValidLogLevels)
	}
	return nil
}

// CRS returns the CRS assigned to images that carry none.
func (g GeorefConfig) CRS() geo.CRS {
	return geo.EPSG(g.EPSG)
}

// ProjectCRS returns the reprojection target, unknown when unset.
func (g GeorefConfig) ProjectCRS() geo.CRS {
	return geo.EPSG(g.ProjectEPSG)
}
