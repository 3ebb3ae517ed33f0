// Package config loads runtime settings from MUDRA_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/composite"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/segment"
)

// Config is the full set of runtime settings.
type Config struct {
	// Pipeline
	Mode        string  `env:"MUDRA_MODE"         envDefault:"dual"`
	Gestures    bool    `env:"MUDRA_GESTURES"     envDefault:"true"`
	Decimation  int     `env:"MUDRA_DECIMATION"   envDefault:"1"`
	Decor       int     `env:"MUDRA_DECOR"        envDefault:"0"`
	RefreshRate int     `env:"MUDRA_REFRESH_RATE" envDefault:"60"`
	MaskRule    string  `env:"MUDRA_MASK_RULE"    envDefault:"category"`
	Background  float64 `env:"MUDRA_MASK_BACKGROUND" envDefault:"0"`
	Threshold   float64 `env:"MUDRA_MASK_THRESHOLD"  envDefault:"0.052"`

	// Segmentation model
	ModelPath   string `env:"MUDRA_MODEL"`
	ModelConfig string `env:"MUDRA_MODEL_CONFIG"`
	Delegate    string `env:"MUDRA_DELEGATE"   envDefault:"cpu"`
	InputSize   int    `env:"MUDRA_INPUT_SIZE" envDefault:"513"`

	// Hand landmarks
	MaxHands      int     `env:"MUDRA_MAX_HANDS"      envDefault:"2"`
	MinConfidence float64 `env:"MUDRA_MIN_CONFIDENCE" envDefault:"0.5"`
	PythonPath    string  `env:"MUDRA_PYTHON"`
	ScriptPath    string  `env:"MUDRA_LANDMARK_SCRIPT"`

	// Camera
	CameraID     int `env:"MUDRA_CAMERA"        envDefault:"0"`
	CameraWidth  int `env:"MUDRA_CAMERA_WIDTH"  envDefault:"640"`
	CameraHeight int `env:"MUDRA_CAMERA_HEIGHT" envDefault:"480"`
	CameraFPS    int `env:"MUDRA_CAMERA_FPS"    envDefault:"30"`

	// Service
	Addr      string `env:"MUDRA_ADDR"       envDefault:"localhost:8080"`
	DataDir   string `env:"MUDRA_DATA_DIR"`
	StaticDir string `env:"MUDRA_STATIC_DIR"`
	Tray      bool   `env:"MUDRA_TRAY"       envDefault:"false"`
	AutoStart bool   `env:"MUDRA_AUTOSTART"  envDefault:"true"`
	LogLevel  string `env:"MUDRA_LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"MUDRA_LOG_FORMAT" envDefault:"text"`
}

// Load parses the environment. Unset variables take their defaults.
func Load() (Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if c.DataDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			c.DataDir = filepath.Join(home, ".mudra")
		} else {
			c.DataDir = ".mudra"
		}
	}
	return c, nil
}

// Validate rejects settings no pipeline can run with.
func (c Config) Validate() error {
	switch c.Delegate {
	case string(segment.DelegateCPU), string(segment.DelegateGPU):
	default:
		return fmt.Errorf("unknown delegate %q", c.Delegate)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	if c.ModelPath == "" {
		return fmt.Errorf("segmentation model path is required (MUDRA_MODEL)")
	}
	if c.MaxHands < 1 {
		return fmt.Errorf("max hands must be at least 1, got %d", c.MaxHands)
	}
	return c.Options().Validate()
}

// Policy returns the compositing policy.
func (c Config) Policy() composite.Policy {
	return composite.Policy{
		Rule:       composite.Rule(c.MaskRule),
		Background: float32(c.Background),
		Threshold:  float32(c.Threshold),
		Mode:       composite.Mode(c.Mode),
	}
}

// Options returns the session options.
func (c Config) Options() app.Options {
	return app.Options{
		Mode:        composite.Mode(c.Mode),
		Policy:      c.Policy(),
		Gestures:    c.Gestures,
		Decimation:  c.Decimation,
		Decor:       c.Decor,
		RefreshRate: c.RefreshRate,
	}
}

// Segment returns the segmentation model settings.
func (c Config) Segment() segment.Config {
	return segment.Config{
		ModelPath:  c.ModelPath,
		ConfigPath: c.ModelConfig,
		Delegate:   segment.Delegate(c.Delegate),
		InputSize:  c.InputSize,
	}
}

// Detector returns the hand landmark settings.
func (c Config) Detector() detector.Config {
	d := detector.DefaultConfig()
	d.MaxHands = c.MaxHands
	d.MinConfidence = c.MinConfidence
	d.PythonPath = c.PythonPath
	d.ScriptPath = c.ScriptPath
	return d
}

// DatabasePath returns the sqlite file inside the data directory.
func (c Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "mudra.db")
}
