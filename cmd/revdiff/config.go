package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/dacharyc/revdiff"
	"github.com/dacharyc/revdiff/internal/logging"
	"github.com/dacharyc/revdiff/scoring"
)

// configEnv names the environment variable holding a config file path.
const configEnv = "REVDIFF_CONFIG"

// Config is the revdiff configuration file layout.
type Config struct {
	Diff     DiffConfig     `yaml:"diff"`
	Annotate AnnotateConfig `yaml:"annotate"`
	Store    StoreConfig    `yaml:"store"`
	Scoring  ScoringConfig  `yaml:"scoring"`
	Ontology OntologyConfig `yaml:"ontology"`
	Log      logging.Config `yaml:"log"`
	Format   FormatConfig   `yaml:"format"`
}

// DiffConfig configures sentence alignment and classification.
type DiffConfig struct {
	Threshold         float64 `yaml:"threshold" validate:"gte=0"`
	AbsoluteThreshold bool    `yaml:"absolute_threshold"`
	Algorithm         string  `yaml:"algorithm" validate:"oneof=best greedy positional"`
	MinAnchors        int     `yaml:"min_anchors" validate:"gte=1"`
	Damerau           bool    `yaml:"damerau"`
}

// AnnotateConfig configures how revision text is split into words.
type AnnotateConfig struct {
	HTML     bool   `yaml:"html"`
	Stem     bool   `yaml:"stem"`
	Language string `yaml:"language" validate:"oneof=english spanish french russian swedish norwegian hungarian"`
}

// StoreConfig locates the ingestion database.
type StoreConfig struct {
	Path string `yaml:"path" validate:"required"`
}

// ScoringConfig configures author ranking.
type ScoringConfig struct {
	HalfLifeDays float64 `yaml:"half_life_days" validate:"gt=0"`
}

// OntologyConfig locates the concept ontology.
type OntologyConfig struct {
	Path string `yaml:"path"`
}

// FormatConfig configures diff rendering.
type FormatConfig struct {
	StartDelete  string `yaml:"start_delete"`
	StopDelete   string `yaml:"stop_delete"`
	StartInsert  string `yaml:"start_insert"`
	StopInsert   string `yaml:"stop_insert"`
	Color        string `yaml:"color"`
	NoColor      bool   `yaml:"no_color"`
	Statistics   bool   `yaml:"statistics"`
	CharDiff     bool   `yaml:"char_diff"`
	ShowDistance bool   `yaml:"show_distance"`
}

// defaultConfig returns a config with default values
func defaultConfig() Config {
	return Config{
		Diff: DiffConfig{
			Threshold:  revdiff.DefaultThreshold,
			Algorithm:  revdiff.AlgorithmBest,
			MinAnchors: revdiff.DefaultAlignOptions().MinAnchors,
		},
		Annotate: AnnotateConfig{
			Stem:     true,
			Language: revdiff.DefaultLanguage,
		},
		Store:   StoreConfig{Path: "revdiff.db"},
		Scoring: ScoringConfig{HalfLifeDays: scoring.DefaultHalfLife.Hours() / 24},
		Log:     logging.DefaultConfig(),
		Format: FormatConfig{
			StartDelete: "[-",
			StopDelete:  "-]",
			StartInsert: "{+",
			StopInsert:  "+}",
		},
	}
}

// findConfigFile returns the config file to load, or "" when none exists.
// Lookup order: explicit path, $REVDIFF_CONFIG, ./revdiff.yaml,
// $XDG_CONFIG_HOME/revdiff/config.yaml, ~/.revdiff.yaml. An explicit path
// must exist.
func findConfigFile(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}
	if env := os.Getenv(configEnv); env != "" {
		if _, err := os.Stat(env); err != nil {
			return "", fmt.Errorf("config file from %s not found: %s", configEnv, env)
		}
		return env, nil
	}

	candidates := []string{"revdiff.yaml"}
	home, homeErr := os.UserHomeDir()
	xdgConfig := os.Getenv("XDG_CONFIG_HOME")
	if xdgConfig == "" && homeErr == nil {
		xdgConfig = filepath.Join(home, ".config")
	}
	if xdgConfig != "" {
		candidates = append(candidates, filepath.Join(xdgConfig, "revdiff", "config.yaml"))
	}
	if homeErr == nil {
		candidates = append(candidates, filepath.Join(home, ".revdiff.yaml"))
	}

	for _, path := range candidates {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, nil
		}
	}
	return "", nil
}

// loadConfig reads a config file over the defaults. An empty path returns
// the defaults.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer file.Close()

	if err := parseConfig(file, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// parseConfig decodes YAML into cfg and validates the result.
func parseConfig(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decoding config: %w", err)
	}
	return validateConfig(cfg)
}

// newValidator returns a validator with the custom rules config uses.
func newValidator() *validator.Validate {
	validate := validator.New()
	_ = validate.RegisterValidation("loglevel", func(fl validator.FieldLevel) bool {
		_, err := logging.ParseLevel(fl.Field().String())
		return err == nil
	})
	return validate
}

// validateConfig checks field rules and the constraints between fields.
func validateConfig(cfg *Config) error {
	if err := newValidator().Struct(cfg); err != nil {
		var errs validator.ValidationErrors
		if errors.As(err, &errs) {
			msgs := make([]string, 0, len(errs))
			for _, e := range errs {
				msg := fmt.Sprintf("%s: rule '%s'", e.Namespace(), e.Tag())
				if e.Param() != "" {
					msg += fmt.Sprintf(" (expected: %s)", e.Param())
				}
				msgs = append(msgs, msg)
			}
			return fmt.Errorf("invalid config:\n  %s", strings.Join(msgs, "\n  "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if !cfg.Diff.AbsoluteThreshold && cfg.Diff.Threshold > 1 {
		return fmt.Errorf("invalid config: diff.threshold %g must be between 0 and 1 unless absolute_threshold is set", cfg.Diff.Threshold)
	}
	if cfg.Format.Color != "" && cfg.Format.Color != "default" && cfg.Format.Color != "list" {
		if _, _, err := revdiff.ParseColorSpec(cfg.Format.Color); err != nil {
			return fmt.Errorf("invalid config: format.color: %w", err)
		}
	}
	return nil
}
