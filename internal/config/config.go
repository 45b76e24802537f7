// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package config loads the rainbow configuration from file, environment and defaults.
package config

import (
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mlnoga/rainbow/internal/bands"
	"github.com/mlnoga/rainbow/internal/rainbow"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Full application configuration
type Config struct {
	Bands     BandsConfig     `yaml:"bands" mapstructure:"bands"`
	Model     ModelConfig     `yaml:"model" mapstructure:"model"`
	Optimizer OptimizerConfig `yaml:"optimizer" mapstructure:"optimizer"`
	Fit       FitConfig       `yaml:"fit" mapstructure:"fit"`
	Batch     BatchConfig     `yaml:"batch" mapstructure:"batch"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// Passbands, either a named preset or explicit effective wavelengths.
// Wavelengths take precedence when given.
type BandsConfig struct {
	Preset   string             `yaml:"preset" mapstructure:"preset" default:"ztf"`
	Angstrom map[string]float64 `yaml:"angstrom" mapstructure:"angstrom" validate:"dive,gt=0"`
}

type ModelConfig struct {
	Bolometric               string `yaml:"bolometric" mapstructure:"bolometric" default:"bazin" validate:"oneof=bazin sigmoid"`
	Temperature              string `yaml:"temperature" mapstructure:"temperature" validate:"omitempty,oneof=logistic constant"` // empty follows the evolution flag
	WithBaseline             bool   `yaml:"with_baseline" mapstructure:"with_baseline"`
	WithTemperatureEvolution bool   `yaml:"with_temperature_evolution" mapstructure:"with_temperature_evolution"`
}

type OptimizerConfig struct {
	Method         string  `yaml:"method" mapstructure:"method" default:"lm" validate:"oneof=lm levenberg-marquardt nelder-mead nm"`
	MaxIterations  int     `yaml:"max_iterations" mapstructure:"max_iterations" validate:"gte=0"`   // 0 selects the method's default
	MaxEvaluations int     `yaml:"max_evaluations" mapstructure:"max_evaluations" validate:"gte=0"` // 0 selects the method's default
	Tolerance      float64 `yaml:"tolerance" mapstructure:"tolerance" default:"1e-10" validate:"gte=0"`
}

type FitConfig struct {
	Check      bool     `yaml:"check" mapstructure:"check"`
	WithErrors bool     `yaml:"with_errors" mapstructure:"with_errors"`
	FillValue  *float64 `yaml:"fill_value" mapstructure:"fill_value"` // nil reports fit failures as errors
}

type BatchConfig struct {
	Threads int `yaml:"threads" mapstructure:"threads" validate:"gte=0"` // 0 selects the number of CPUs
}

type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"` // sqlite file, empty disables storage
}

type ServerConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr" default:":8080" validate:"required"`
}

type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level" default:"info" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" mapstructure:"format" default:"console" validate:"oneof=json console"`
	File   string `yaml:"file" mapstructure:"file"` // written in addition to stderr
}

var validate = validator.New()

// Configuration with all defaults applied
func Default() *Config {
	cfg := &Config{
		Model: ModelConfig{WithTemperatureEvolution: true},
		Fit:   FitConfig{Check: true},
	}
	if err := defaults.Set(cfg); err != nil {
		panic(err)
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("bands.preset", "ztf")
	v.SetDefault("bands.angstrom", map[string]float64{})
	v.SetDefault("model.bolometric", rainbow.DefaultBolometric)
	v.SetDefault("model.temperature", "")
	v.SetDefault("model.with_baseline", false)
	v.SetDefault("model.with_temperature_evolution", true)
	v.SetDefault("optimizer.method", rainbow.MethodLevenbergMarquardt)
	v.SetDefault("optimizer.max_iterations", 0)
	v.SetDefault("optimizer.max_evaluations", 0)
	v.SetDefault("optimizer.tolerance", 1e-10)
	v.SetDefault("fit.check", true)
	v.SetDefault("fit.with_errors", false)
	v.SetDefault("batch.threads", 0)
	v.SetDefault("store.path", "")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.file", "")
}

// Reads configuration from rainbow.yaml in the working directory, or from
// the given file if not empty, with RAINBOW_ environment overrides
func Load(file string) (*Config, error) {
	v := viper.New()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("rainbow")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("RAINBOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	if err := v.BindEnv("fit.fill_value"); err != nil {
		return nil, eris.Wrap(err, "config: bind env")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || file != "" {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	if err := defaults.Set(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: defaults")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	return eris.Wrap(validate.Struct(c), "config: validate")
}

// Passband set selected by the configuration
func (c *Config) BandSet() (*bands.Set, error) {
	if len(c.Bands.Angstrom) > 0 {
		return bands.FromAngstrom(c.Bands.Angstrom)
	}
	return bands.Preset(c.Bands.Preset)
}

// Fitter configuration for the given bands
func (c *Config) RainbowConfig(set *bands.Set, log *zap.Logger) rainbow.Config {
	return rainbow.Config{
		Bands:                    set,
		Bolometric:               c.Model.Bolometric,
		Temperature:              c.Model.Temperature,
		WithBaseline:             c.Model.WithBaseline,
		WithTemperatureEvolution: c.Model.WithTemperatureEvolution,
		WithErrors:               c.Fit.WithErrors,
		Optimizer: rainbow.OptimizerConfig{
			Method:         c.Optimizer.Method,
			MaxIterations:  c.Optimizer.MaxIterations,
			MaxEvaluations: c.Optimizer.MaxEvaluations,
			Tolerance:      c.Optimizer.Tolerance,
		},
		Logger: log,
	}
}

// Builds the fitter the configuration describes
func (c *Config) Fitter(log *zap.Logger) (*rainbow.Fitter, error) {
	set, err := c.BandSet()
	if err != nil {
		return nil, err
	}
	return rainbow.New(c.RainbowConfig(set, log))
}

func (c *Config) FitOptions() *rainbow.FitOptions {
	return &rainbow.FitOptions{SkipCheck: !c.Fit.Check, FillValue: c.Fit.FillValue}
}
