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

// Package rainbow fits multi-band light curves with a blackbody model.
//
// The predicted flux of an observation at time t in a band with frequency nu is
//
//	L(t) * pi * B_nu(nu, T(t)) / (sigma_SB * T(t)^4) + baseline_band
//
// where the bolometric flux L and the temperature T are parametric terms of
// time, and the optional baseline is a constant per band.
package rainbow

import (
	"github.com/mlnoga/rainbow/internal/bands"
	"github.com/mlnoga/rainbow/internal/lsq"
	"github.com/mlnoga/rainbow/internal/terms"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const (
	DefaultBolometric          = "bazin"
	DefaultTemperature         = "logistic"
	DefaultConstantTemperature = "constant"

	MethodLevenbergMarquardt = "lm"
	MethodNelderMead         = "nelder-mead"
)

// Optimizer selection and termination limits. Zero values select the
// method's defaults, see lsq.DefaultSettings and lsq.NelderMeadSettings.
// Limits apply to each start of a fit separately.
type OptimizerConfig struct {
	Method         string  // MethodLevenbergMarquardt (default) or MethodNelderMead
	MaxIterations  int     // exceeding it fails a start with ErrNoConvergence
	MaxEvaluations int     // model evaluations, exceeding it fails a start with ErrNoConvergence
	Tolerance      float64 // relative cost decrease and step length at convergence
}

// Fitter configuration
type Config struct {
	Bands *bands.Set

	// Names of built-in terms. Empty names select the defaults.
	Bolometric  string
	Temperature string

	// Custom terms, replacing the named ones when set
	BolometricTerm  terms.Term
	TemperatureTerm terms.Term

	// Fit an additive flux offset per band
	WithBaseline bool

	// Let the temperature vary with time. When false only the constant
	// temperature term is allowed.
	WithTemperatureEvolution bool

	// Estimate one sigma parameter uncertainties after each fit
	WithErrors bool

	Optimizer OptimizerConfig

	// Defaults to a no-op logger
	Logger *zap.Logger
}

// Default configuration for the given bands: Bazin bolometric flux, logistic
// temperature, no baseline
func DefaultConfig(set *bands.Set) Config {
	return Config{
		Bands:                    set,
		Bolometric:               DefaultBolometric,
		Temperature:              DefaultTemperature,
		WithTemperatureEvolution: true,
	}
}

// Fits light curves with one configuration of terms and bands.
// Immutable after construction, and safe for concurrent use.
type Fitter struct {
	set          *bands.Set
	nu           []float64
	averageNu    float64
	bolo         terms.Term
	temp         terms.Term
	reg          *registry
	withBaseline bool
	withErrors   bool
	method       lsq.Method
	settings     lsq.Settings
	log          *zap.Logger
}

// Resolves the terms and builds the parameter registry
func New(cfg Config) (*Fitter, error) {
	if cfg.Bands == nil || cfg.Bands.Len() == 0 {
		return nil, eris.Wrap(ErrConfig, "no bands configured")
	}
	bolo, err := resolveBolometric(cfg)
	if err != nil {
		return nil, err
	}
	temp, err := resolveTemperature(cfg)
	if err != nil {
		return nil, err
	}
	reg, err := newRegistry(bolo, temp, cfg.Bands, cfg.WithBaseline)
	if err != nil {
		return nil, err
	}
	method, err := resolveMethod(cfg.Optimizer.Method)
	if err != nil {
		return nil, err
	}
	if cfg.Optimizer.MaxIterations < 0 || cfg.Optimizer.MaxEvaluations < 0 || cfg.Optimizer.Tolerance < 0 {
		return nil, eris.Wrapf(ErrConfig, "negative optimizer limit in %+v", cfg.Optimizer)
	}

	f := &Fitter{
		set:          cfg.Bands,
		nu:           make([]float64, cfg.Bands.Len()),
		averageNu:    cfg.Bands.AverageNu(),
		bolo:         bolo,
		temp:         temp,
		reg:          reg,
		withBaseline: cfg.WithBaseline,
		withErrors:   cfg.WithErrors,
		method:       method,
		settings: lsq.Settings{
			MaxIterations:  cfg.Optimizer.MaxIterations,
			MaxEvaluations: cfg.Optimizer.MaxEvaluations,
			FunctionTol:    cfg.Optimizer.Tolerance,
			StepTol:        cfg.Optimizer.Tolerance,
		},
		log: cfg.Logger,
	}
	for b := range f.nu {
		f.nu[b] = cfg.Bands.Nu(b)
	}
	if f.log == nil {
		f.log = zap.NewNop()
	}
	return f, nil
}

func resolveBolometric(cfg Config) (terms.Term, error) {
	if cfg.BolometricTerm != nil {
		return cfg.BolometricTerm, nil
	}
	name := cfg.Bolometric
	if name == "" {
		name = DefaultBolometric
	}
	term, err := terms.Bolometric(name)
	if err != nil {
		return nil, eris.Wrapf(ErrConfig, "%v", err)
	}
	return term, nil
}

func resolveTemperature(cfg Config) (terms.Term, error) {
	if cfg.TemperatureTerm != nil {
		if !cfg.WithTemperatureEvolution && cfg.TemperatureTerm.Name() != DefaultConstantTemperature {
			return nil, eris.Wrapf(ErrConfig, "temperature term %s evolves, but temperature evolution is disabled", cfg.TemperatureTerm.Name())
		}
		return cfg.TemperatureTerm, nil
	}
	name := cfg.Temperature
	switch {
	case name == "" && cfg.WithTemperatureEvolution:
		name = DefaultTemperature
	case name == "":
		name = DefaultConstantTemperature
	case !cfg.WithTemperatureEvolution && name != DefaultConstantTemperature:
		return nil, eris.Wrapf(ErrConfig, "temperature term %s evolves, but temperature evolution is disabled", name)
	}
	term, err := terms.Temperature(name)
	if err != nil {
		return nil, eris.Wrapf(ErrConfig, "%v", err)
	}
	return term, nil
}

func resolveMethod(name string) (lsq.Method, error) {
	switch name {
	case "", MethodLevenbergMarquardt, "levenberg-marquardt":
		return lsq.LevenbergMarquardt, nil
	case MethodNelderMead, "nm":
		return lsq.NelderMead, nil
	}
	return nil, eris.Wrapf(ErrConfig, "unknown optimizer %q, want %s or %s", name, MethodLevenbergMarquardt, MethodNelderMead)
}

// Names of the output vector: the fit parameters followed by the reduced chi-square
func (f *Fitter) Names() []string {
	names := make([]string, 0, len(f.reg.names)+1)
	names = append(names, f.reg.names...)
	return append(names, ReducedChi2Name)
}

// Names of the fit parameters
func (f *Fitter) ParameterNames() []string {
	return append([]string(nil), f.reg.names...)
}

// Length of the output vector, including the reduced chi-square
func (f *Fitter) Size() int { return f.reg.size() + 1 }

// Parameter names shared by the bolometric and temperature terms
func (f *Fitter) Common() []string { return append([]string(nil), f.reg.common...) }

func (f *Fitter) Bands() *bands.Set { return f.set }

func (f *Fitter) BolometricTerm() terms.Term { return f.bolo }

func (f *Fitter) TemperatureTerm() terms.Term { return f.temp }

func (f *Fitter) WithBaseline() bool { return f.withBaseline }

// Position of a parameter in the output vector
func (f *Fitter) Index(name string) (int, bool) {
	if name == ReducedChi2Name {
		return f.reg.size(), true
	}
	i, ok := f.reg.index[name]
	return i, ok
}
