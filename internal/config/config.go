// Package config defines batch configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers defaults, an optional YAML file and LTV_ environment variables.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"strings"
)

// Output formats for the ranking result.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`

	// TopN is the number of customers to return.
	TopN int `koanf:"top_n"`

	// Input is the path of the JSON event batch; "-" reads stdin.
	Input string `koanf:"input"`

	// Output is the path the ranking is written to; "-" writes stdout.
	Output string `koanf:"output"`

	// OutputFormat selects the result encoding: json or yaml.
	OutputFormat string `koanf:"output_format"`

	// MetricsFile, when set, receives batch metrics in Prometheus text format.
	MetricsFile string `koanf:"metrics_file"`

	// CurrencySuffix is stripped from order totals before parsing.
	CurrencySuffix string `koanf:"currency_suffix"`

	// LTVMultiplier scales spend rate times visit rate.
	LTVMultiplier float64 `koanf:"ltv_multiplier"`

	// LTVPrecision is the number of decimals LTV values are rounded to.
	LTVPrecision int `koanf:"ltv_precision"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:       "info",
		LogFormat:      "text",
		TopN:           2,
		Input:          "input.json",
		Output:         "-",
		OutputFormat:   FormatJSON,
		MetricsFile:    "",
		CurrencySuffix: "USD",
		LTVMultiplier:  10,
		LTVPrecision:   2,
	}
}

// Validate checks the values that would make a batch run meaningless.
func (c *Config) Validate() error {
	switch {
	case c.TopN < 0:
		return fmt.Errorf("%w: top_n must not be negative, got %d", ErrInvalidConfig, c.TopN)
	case strings.TrimSpace(c.Input) == "":
		return fmt.Errorf("%w: input must not be empty", ErrInvalidConfig)
	case strings.TrimSpace(c.Output) == "":
		return fmt.Errorf("%w: output must not be empty", ErrInvalidConfig)
	case c.CurrencySuffix == "":
		return fmt.Errorf("%w: currency_suffix must not be empty", ErrInvalidConfig)
	case c.LTVMultiplier <= 0:
		return fmt.Errorf("%w: ltv_multiplier must be positive, got %v", ErrInvalidConfig, c.LTVMultiplier)
	case c.LTVPrecision < 0:
		return fmt.Errorf("%w: ltv_precision must not be negative, got %d", ErrInvalidConfig, c.LTVPrecision)
	}
	switch strings.ToLower(c.OutputFormat) {
	case FormatJSON, FormatYAML:
	default:
		return fmt.Errorf("%w: unknown output_format %q", ErrInvalidConfig, c.OutputFormat)
	}
	return nil
}
