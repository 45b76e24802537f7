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

package rainbow

import (
	"math"
	"slices"
	"testing"

	"github.com/mlnoga/rainbow/internal/bands"
	"github.com/mlnoga/rainbow/internal/terms"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func griz(t *testing.T) *bands.Set {
	set, err := bands.Preset("griz")
	require.NoError(t, err)
	return set
}

func newFitter(t *testing.T, cfg Config) *Fitter {
	f, err := New(cfg)
	require.NoError(t, err)
	return f
}

// A test term with configurable parameters, evaluating to a Gaussian bump
// peaking one width after the reference time
type bumpTerm struct {
	name   string
	params []terms.Parameter
}

func (b bumpTerm) Name() string                  { return b.name }
func (b bumpTerm) Parameters() []terms.Parameter { return b.params }

func (b bumpTerm) Value(dst, t, p []float64) {
	for i, ti := range t {
		if len(p) < 3 {
			dst[i] = 5000
			continue
		}
		d := (ti - p[0] - p[2]) / p[2]
		dst[i] = p[1] * math.Exp(-0.5*d*d)
	}
}

func (b bumpTerm) InitialGuesses(withBaseline bool, t, m []float64, band []string) map[string]float64 {
	g := map[string]float64{}
	for _, p := range b.params {
		g[p.Name] = 1
	}
	return g
}

func (b bumpTerm) Limits(withBaseline bool, t, m []float64, band []string) map[string]terms.Bounds {
	l := map[string]terms.Bounds{}
	for _, p := range b.params {
		l[p.Name] = terms.Bounds{Lo: 0, Hi: 10}
	}
	return l
}

var bump = bumpTerm{"bump", []terms.Parameter{
	{Name: "reference_time", Role: terms.RoleTime},
	{Name: "amplitude", Role: terms.RoleFlux},
	{Name: "width", Role: terms.RoleTimescale},
}}

func TestNewDefaults(t *testing.T) {
	f := newFitter(t, DefaultConfig(griz(t)))
	assert.Equal(t, "bazin", f.BolometricTerm().Name())
	assert.Equal(t, "logistic", f.TemperatureTerm().Name())
	assert.Equal(t, []string{"reference_time", "amplitude", "rise_time", "fall_time", "Tmin", "Tmax", "k_sig", "r_chi2"}, f.Names())
	assert.Equal(t, 8, f.Size())
	assert.Equal(t, []string{"reference_time"}, f.Common())

	i, ok := f.Index("r_chi2")
	assert.True(t, ok)
	assert.Equal(t, 7, i)
	_, ok = f.Index("nope")
	assert.False(t, ok)
}

func TestNewWithoutTemperatureEvolution(t *testing.T) {
	f := newFitter(t, Config{Bands: griz(t), Bolometric: "sigmoid"})
	assert.Equal(t, "constant", f.TemperatureTerm().Name())
	assert.Equal(t, []string{"reference_time", "amplitude", "rise_time", "T", "r_chi2"}, f.Names())
	assert.Empty(t, f.Common())

	_, err := New(Config{Bands: griz(t), Temperature: "logistic"})
	assert.True(t, eris.Is(err, ErrConfig))
}

func TestNewWithBaseline(t *testing.T) {
	cfg := DefaultConfig(griz(t))
	cfg.WithBaseline = true
	f := newFitter(t, cfg)
	names := f.Names()
	assert.Equal(t, []string{"baseline_g", "baseline_r", "baseline_i", "baseline_z", "r_chi2"}, names[7:])
	assert.Equal(t, 12, f.Size())
}

func TestNewConfigErrors(t *testing.T) {
	set := griz(t)
	cfgs := map[string]Config{
		"nil bands":         {Bolometric: "bazin"},
		"unknown bolo":      {Bands: set, Bolometric: "gauss", WithTemperatureEvolution: true},
		"unknown temp":      {Bands: set, Temperature: "linear", WithTemperatureEvolution: true},
		"unknown optimizer": {Bands: set, WithTemperatureEvolution: true, Optimizer: OptimizerConfig{Method: "bfgs"}},
		"negative limit":    {Bands: set, WithTemperatureEvolution: true, Optimizer: OptimizerConfig{MaxIterations: -1}},
		"no parameters": {Bands: set, WithTemperatureEvolution: true,
			BolometricTerm: bumpTerm{"empty", nil}},
		"duplicate": {Bands: set, WithTemperatureEvolution: true,
			BolometricTerm: bumpTerm{"dup", []terms.Parameter{{Name: "a", Role: terms.RoleNone}, {Name: "a", Role: terms.RoleNone}}}},
		"baseline collision": {Bands: set, WithTemperatureEvolution: true, WithBaseline: true,
			BolometricTerm: bumpTerm{"coll", []terms.Parameter{{Name: "baseline_r", Role: terms.RoleFlux}}}},
		"baseline role": {Bands: set, WithTemperatureEvolution: true,
			BolometricTerm: bumpTerm{"role", []terms.Parameter{{Name: "offset", Role: terms.RoleBaseline}}}},
		"role mismatch": {Bands: set, WithTemperatureEvolution: true,
			BolometricTerm: bumpTerm{"mismatch", []terms.Parameter{{Name: "k_sig", Role: terms.RoleNone}}}},
		"evolving custom temperature": {Bands: set,
			TemperatureTerm: bumpTerm{"warm", []terms.Parameter{{Name: "T0", Role: terms.RoleNone}}}},
	}
	for name, cfg := range cfgs {
		_, err := New(cfg)
		assert.True(t, eris.Is(err, ErrConfig), "%s: %v", name, err)
	}
}

func TestRegistryDeterministic(t *testing.T) {
	set := griz(t)
	for _, withBaseline := range []bool{false, true} {
		a, err := newRegistry(terms.Bazin{}, terms.Logistic{}, set, withBaseline)
		require.NoError(t, err)
		b, err := newRegistry(terms.Bazin{}, terms.Logistic{}, set, withBaseline)
		require.NoError(t, err)
		assert.Equal(t, a, b)
	}
}

func TestRegistryCommonParameterDedup(t *testing.T) {
	reg, err := newRegistry(terms.Bazin{}, terms.Logistic{}, griz(t), false)
	require.NoError(t, err)

	count := 0
	for _, name := range reg.names {
		if name == "reference_time" {
			count++
		}
	}
	assert.Equal(t, 1, count)
	assert.Equal(t, []int{0, 1, 2, 3}, reg.bolo)
	assert.Equal(t, []int{0, 4, 5, 6}, reg.temp)
	assert.Equal(t, 7, reg.size())
}

func TestCommonParameterReadByBothTerms(t *testing.T) {
	f := newFitter(t, DefaultConfig(griz(t)))
	params := []float64{60000, 1, 5, 30, 5000, 15000, 4}
	band := []string{"g", "r", "i", "z", "g", "r"}
	ts := []float64{59990, 59998, 60003, 60010, 60025, 60060}

	// shifting the shared reference time and the observations together
	// leaves the flux unchanged only if both terms read the same slot
	shift := 1000.0
	shifted := append([]float64(nil), params...)
	shifted[0] += shift
	tsShifted := make([]float64, len(ts))
	for i := range ts {
		tsShifted[i] = ts[i] + shift
	}

	a, err := f.Model(ts, band, params)
	require.NoError(t, err)
	b, err := f.Model(tsShifted, band, shifted)
	require.NoError(t, err)
	for i := range a {
		assert.InEpsilon(t, a[i], b[i], 1e-9)
	}
}

func TestModelPure(t *testing.T) {
	cfg := DefaultConfig(griz(t))
	cfg.WithBaseline = true
	f := newFitter(t, cfg)
	params := []float64{60000, 1, 5, 30, 5000, 15000, 4, 1e-16, 2e-16, 0, -1e-16, 3.5}
	ts := []float64{59900, 59999, 60000, 60001, 60100, 70000}
	band := []string{"g", "r", "i", "z", "g", "z"}
	tsCopy := append([]float64(nil), ts...)
	paramsCopy := append([]float64(nil), params...)

	first, err := f.Model(ts, band, params)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := f.Model(ts, band, params)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
	assert.Equal(t, tsCopy, ts)
	assert.Equal(t, paramsCopy, params)

	// without the trailing chi-square
	short, err := f.Model(ts, band, params[:len(params)-1])
	require.NoError(t, err)
	assert.Equal(t, first, short)

	// past the guard only the baseline remains
	assert.Equal(t, -1e-16, first[5])
}

func TestModelErrors(t *testing.T) {
	f := newFitter(t, DefaultConfig(griz(t)))
	params := []float64{60000, 1, 5, 30, 5000, 15000, 4}

	_, err := f.Model([]float64{1, 2}, []string{"g"}, params)
	assert.True(t, eris.Is(err, ErrInvalidData))
	_, err = f.Model([]float64{1}, []string{"y"}, params)
	assert.True(t, eris.Is(err, ErrInvalidData))
	_, err = f.Model([]float64{1}, []string{"g"}, params[:3])
	assert.True(t, eris.Is(err, ErrInvalidData))
}

func TestModelGuardContinuity(t *testing.T) {
	f := newFitter(t, DefaultConfig(griz(t)))
	t0, rise, fall, kSig := 60000.0, 5.0, 30.0, 4.0
	params := []float64{t0, 1, rise, fall, 5000, 15000, kSig}
	peak, err := f.Model([]float64{t0}, []string{"g"}, params)
	require.NoError(t, err)
	tol := 1e-12 * peak[0]

	// offsets in days, small enough that the slope of the light curve itself
	// stays far below the tolerance
	eps := 1e-9
	for _, b := range []float64{t0 - 100*rise, t0 + 100*fall, t0 - 100*kSig, t0 + 100*kSig} {
		ts := []float64{b - eps, b, b + eps}
		for _, name := range []string{"g", "z"} {
			vs, err := f.Model(ts, []string{name, name, name}, params)
			require.NoError(t, err)
			for i := 1; i < len(vs); i++ {
				assert.LessOrEqual(t, math.Abs(vs[i]-vs[i-1]), tol, "band %s at %g", name, b)
				assert.False(t, math.IsNaN(vs[i]) || math.IsInf(vs[i], 0))
			}
		}
	}
}

func TestPlanckNu(t *testing.T) {
	assert.Equal(t, 0.0, PlanckNu(5e14, 0))
	assert.Equal(t, 0.0, PlanckNu(5e14, -10))
	assert.Equal(t, 0.0, PlanckNu(5e14, math.NaN()))
	assert.Equal(t, 0.0, PlanckNu(1e20, 10)) // Wien tail underflow

	// Rayleigh-Jeans limit 2 nu^2 k T / c^2
	nu, T := 1e9, 1e4
	rj := 2 * nu * nu * BoltzmannConst * T / (bands.SpeedOfLight * bands.SpeedOfLight)
	assert.InEpsilon(t, rj, PlanckNu(nu, T), 1e-4)

	// the ratio integrates to one over frequency
	sum, dnu := 0.0, 1e11
	for nu := dnu / 2; nu < 1e16; nu += dnu {
		sum += planckRatio(nu, 6000) * dnu
	}
	assert.InEpsilon(t, 1.0, sum, 1e-3)
	assert.Equal(t, 0.0, planckRatio(5e14, 0))
}

func TestPeakSummary(t *testing.T) {
	f := newFitter(t, DefaultConfig(griz(t)))
	peak, err := f.Peak(truth)
	require.NoError(t, err)

	pt, err := f.PeakTime(truth)
	require.NoError(t, err)
	assert.Equal(t, pt, peak.Time)

	lum, err := f.Bolometric([]float64{pt - 1, pt, pt + 1}, truth)
	require.NoError(t, err)
	assert.Equal(t, lum[1], peak.BolometricFlux)
	assert.Greater(t, lum[1], lum[0])
	assert.Greater(t, lum[1], lum[2])

	temps, err := f.Temperature([]float64{59000, pt, 61000}, truth)
	require.NoError(t, err)
	assert.Equal(t, temps[1], peak.Temperature)
	assert.InDelta(t, 15000, temps[0], 1e-6)
	assert.InDelta(t, 5000, temps[2], 1e-6)

	_, err = f.Temperature([]float64{1}, truth[:2])
	assert.True(t, eris.Is(err, ErrInvalidData))
}

func TestBaselineOrderFollowsBands(t *testing.T) {
	set, err := bands.FromAngstrom(map[string]float64{"u": 3560, "r": 6231, "g": 4830})
	require.NoError(t, err)
	cfg := DefaultConfig(set)
	cfg.WithBaseline = true
	f := newFitter(t, cfg)

	names := f.ParameterNames()
	assert.Equal(t, []string{"baseline_g", "baseline_r", "baseline_u"}, names[len(names)-3:])
	for b, band := range set.Names() {
		i := slices.Index(names, BaselineName(band))
		assert.Equal(t, len(names)-3+b, i, band)
	}
}
