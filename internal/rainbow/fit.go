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

	"github.com/mlnoga/rainbow/internal/lsq"
	"github.com/mlnoga/rainbow/internal/terms"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
)

// Per call fit options. A nil *FitOptions selects the zero value.
type FitOptions struct {
	// Observations are already in ascending time order
	Sorted bool

	// Skip the checks for non-finite values and non-positive uncertainties
	SkipCheck bool

	// When set, fit failures return a vector of this value instead of an error.
	// Invalid data and configuration are always reported.
	FillValue *float64
}

// Status of a result built from the fill value
const StatusFilled = "Filled"

// Outcome of a successful fit
type Result struct {
	Names       []string  `json:"names" yaml:"names"`
	Params      []float64 `json:"params" yaml:"params"`
	ReducedChi2 float64   `json:"r_chi2" yaml:"r_chi2"`
	Errors      []float64 `json:"errors,omitempty" yaml:"errors,omitempty"` // one sigma, nil unless requested and available
	Iterations  int       `json:"iterations" yaml:"iterations"`                // of the start with the lowest cost
	Evaluations int       `json:"evaluations" yaml:"evaluations"`              // over all starts
	Status      string    `json:"status" yaml:"status"`
}

// Parameters followed by the reduced chi-square
func (r *Result) Vector() []float64 {
	v := make([]float64, 0, len(r.Params)+1)
	v = append(v, r.Params...)
	return append(v, r.ReducedChi2)
}

// Fitted value of the named parameter
func (r *Result) Get(name string) (float64, bool) {
	for i, n := range r.Names {
		if n == name {
			return r.Params[i], true
		}
	}
	if name == ReducedChi2Name {
		return r.ReducedChi2, true
	}
	return 0, false
}

// Fits the model to fluxes m with uncertainties sigma, observed at times t in
// the given bands. Returns the physical parameters in Names order followed by
// the reduced chi-square. Inputs are not modified.
func (f *Fitter) Fit(t, m, sigma []float64, band []string, opts *FitOptions) ([]float64, error) {
	res, err := f.FitResult(t, m, sigma, band, opts)
	if err != nil {
		if opts != nil && opts.FillValue != nil && IsFitFailure(err) {
			return f.Fill(*opts.FillValue), nil
		}
		return nil, err
	}
	return res.Vector(), nil
}

// Output vector of the given value
func (f *Fitter) Fill(value float64) []float64 {
	v := make([]float64, f.Size())
	for i := range v {
		v[i] = value
	}
	return v
}

// Result carrying the fill value in every parameter and the reduced chi-square
func (f *Fitter) FillResult(value float64) *Result {
	v := f.Fill(value)
	return &Result{
		Names:       f.ParameterNames(),
		Params:      v[:len(v)-1],
		ReducedChi2: value,
		Status:      StatusFilled,
	}
}

// Like Fit, but returns the detailed result and never applies the fill value
func (f *Fitter) FitResult(t, m, sigma []float64, band []string, opts *FitOptions) (*Result, error) {
	if opts == nil {
		opts = &FitOptions{}
	}
	n := len(t)
	if len(m) != n || len(sigma) != n || len(band) != n {
		return nil, eris.Wrapf(ErrInvalidData, "lengths differ: %d times, %d fluxes, %d sigmas, %d bands",
			n, len(m), len(sigma), len(band))
	}
	bandIdx, err := f.set.Indices(band)
	if err != nil {
		return nil, eris.Wrapf(ErrInvalidData, "%v", err)
	}
	if !opts.SkipCheck {
		if err := checkObservations(t, m, sigma); err != nil {
			return nil, err
		}
	}
	numParams := f.reg.size()
	if n <= numParams {
		return nil, eris.Wrapf(ErrNotEnoughObservations, "%d observations for %d parameters", n, numParams)
	}

	t, m, sigma, band, bandIdx = sortByTime(t, m, sigma, band, bandIdx, opts.Sorted)
	sc, err := newScaler(t, m, bandIdx, f.set.Len(), f.withBaseline, f.averageNu)
	if err != nil {
		return nil, err
	}
	x0, lower, upper, err := f.startingPoint(t, m, band, sc)
	if err != nil {
		return nil, err
	}

	ts, ms, ss := sc.scaleData(t, m, sigma, bandIdx)
	ws := f.newWorkspace(n)
	problem := lsq.Problem{
		Func: func(dst, x []float64) {
			f.evaluate(dst, ts, bandIdx, x, ws)
			for i := range dst {
				dst[i] = (dst[i] - ms[i]) / ss[i]
			}
		},
		M:     n,
		Lower: lower,
		Upper: upper,
	}
	opt, evaluations, err := f.minimize(problem, f.starts(x0, lower, upper))
	if err != nil {
		return nil, err
	}

	dof := float64(n - numParams)
	res := &Result{
		Names:       f.ParameterNames(),
		Params:      make([]float64, numParams),
		ReducedChi2: opt.Cost / dof,
		Iterations:  opt.Iterations,
		Evaluations: evaluations,
		Status:      opt.Status.String(),
	}
	for j, role := range f.reg.roles {
		res.Params[j] = sc.inverse(role, f.reg.band[j], opt.X[j])
	}
	if f.withErrors {
		res.Errors = f.uncertainties(problem, opt.X, sc)
	}

	f.log.Debug("rainbow fit", zap.Int("n", n), zap.Int("iterations", res.Iterations),
		zap.Int("evaluations", res.Evaluations), zap.Float64("r_chi2", res.ReducedChi2),
		zap.String("status", res.Status))
	return res, nil
}

func checkObservations(t, m, sigma []float64) error {
	for i := range t {
		if !isFinite(t[i]) || !isFinite(m[i]) || !isFinite(sigma[i]) {
			return eris.Wrapf(ErrInvalidData, "observation %d has non-finite value: t=%g m=%g sigma=%g", i, t[i], m[i], sigma[i])
		}
		if sigma[i] <= 0 {
			return eris.Wrapf(ErrInvalidData, "observation %d has non-positive uncertainty %g", i, sigma[i])
		}
	}
	return nil
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// Returns observations in ascending, stable time order. Copies unless already sorted.
func sortByTime(t, m, sigma []float64, band []string, bandIdx []int, sorted bool) ([]float64, []float64, []float64, []string, []int) {
	if sorted {
		return t, m, sigma, band, bandIdx
	}
	n := len(t)
	ts := append([]float64(nil), t...)
	order := make([]int, n)
	floats.ArgsortStable(ts, order)

	ms, ss := make([]float64, n), make([]float64, n)
	bs, bi := make([]string, n), make([]int, n)
	for i, j := range order {
		ms[i], ss[i], bs[i], bi[i] = m[j], sigma[j], band[j], bandIdx[j]
	}
	return ts, ms, ss, bs, bi
}

// Scaled initial guesses and bounds. Terms see raw data. The bolometric term
// wins on common parameters, baselines start at the band median and are
// unbounded.
func (f *Fitter) startingPoint(t, m []float64, band []string, sc *scaler) (x0, lower, upper []float64, err error) {
	guesses := map[string]float64{}
	limits := map[string]terms.Bounds{}
	for _, term := range []terms.Term{f.temp, f.bolo} {
		for k, v := range term.InitialGuesses(f.withBaseline, t, m, band) {
			guesses[k] = v
		}
		for k, v := range term.Limits(f.withBaseline, t, m, band) {
			limits[k] = v
		}
	}

	size := f.reg.size()
	x0, lower, upper = make([]float64, size), make([]float64, size), make([]float64, size)
	for j, name := range f.reg.names {
		role, b := f.reg.roles[j], f.reg.band[j]
		var guess float64
		var bounds terms.Bounds
		if role == terms.RoleBaseline {
			guess = sc.bandShift[b]
			bounds = terms.Bounds{Lo: math.Inf(-1), Hi: math.Inf(1)}
		} else {
			var okG, okL bool
			guess, okG = guesses[name]
			bounds, okL = limits[name]
			if !okG || !okL {
				return nil, nil, nil, eris.Wrapf(ErrConfig, "no initial guess or limits for parameter %s", name)
			}
			if math.IsNaN(bounds.Lo) || math.IsNaN(bounds.Hi) || bounds.Lo > bounds.Hi {
				return nil, nil, nil, eris.Wrapf(ErrConfig, "invalid limits [%g, %g] for parameter %s", bounds.Lo, bounds.Hi, name)
			}
			if role == terms.RoleFlux {
				guess *= f.averageNu
				bounds.Lo *= f.averageNu
				bounds.Hi *= f.averageNu
			}
		}
		guess = bounds.Clamp(guess)
		if !isFinite(guess) {
			return nil, nil, nil, eris.Wrapf(ErrDegenerateInput, "non-finite initial guess for parameter %s", name)
		}
		x0[j] = sc.forward(role, b, guess)
		lower[j] = sc.forward(role, b, bounds.Lo)
		upper[j] = sc.forward(role, b, bounds.Hi)
	}
	return x0, lower, upper, nil
}

// Multipliers applied to the initial guesses of timescales and of parameters
// without a scaling role, such as temperatures. Every combination is one start.
var (
	timescaleFactors = []float64{1, 0.2}
	scaleFreeFactors = []float64{1, 0.5, 2}
)

// Scaled starting points, the plain initial guess first
func (f *Fitter) starts(x0, lower, upper []float64) [][]float64 {
	var xs [][]float64
	for _, a := range timescaleFactors {
		for _, b := range scaleFreeFactors {
			x := append([]float64(nil), x0...)
			for j, role := range f.reg.roles {
				switch role {
				case terms.RoleTimescale:
					x[j] *= a
				case terms.RoleNone:
					x[j] *= b
				}
				x[j] = terms.Bounds{Lo: lower[j], Hi: upper[j]}.Clamp(x[j])
			}
			if !containsStart(xs, x) {
				xs = append(xs, x)
			}
		}
	}
	return xs
}

func containsStart(xs [][]float64, x []float64) bool {
	for _, y := range xs {
		if floats.Equal(x, y) {
			return true
		}
	}
	return false
}

// Runs the optimizer from every start and keeps the lowest cost. Fails only
// if no start converges. Returns the total number of evaluations.
func (f *Fitter) minimize(problem lsq.Problem, starts [][]float64) (*lsq.Result, int, error) {
	var best *lsq.Result
	var firstErr error
	evaluations := 0
	for i, x0 := range starts {
		opt, err := f.method(problem, x0, &f.settings)
		if opt != nil {
			evaluations += opt.Evaluations
		}
		if err != nil {
			if !eris.Is(err, lsq.ErrNoConvergence) {
				return nil, evaluations, eris.Wrapf(ErrConfig, "%v", err)
			}
			if opt != nil {
				f.log.Debug("rainbow start failed", zap.Int("start", i), zap.Int("iterations", opt.Iterations),
					zap.Stringer("status", opt.Status), zap.Error(err))
			}
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if best == nil || opt.Cost < best.Cost {
			best = opt
		}
	}
	if best == nil {
		return nil, evaluations, eris.Wrapf(ErrNoConvergence, "%v", firstErr)
	}
	return best, evaluations, nil
}

// One sigma uncertainties of the physical parameters, nil if the covariance is singular
// or has negative variances
func (f *Fitter) uncertainties(problem lsq.Problem, x []float64, sc *scaler) []float64 {
	cov, err := lsq.Covariance(problem, x)
	if err != nil {
		f.log.Debug("rainbow uncertainties unavailable", zap.Error(err))
		return nil
	}
	errs := lsq.StdErrors(cov)
	for j, role := range f.reg.roles {
		errs[j] = sc.inverseError(role, errs[j])
		if !isFinite(errs[j]) {
			f.log.Debug("rainbow uncertainties unavailable", zap.String("parameter", f.reg.names[j]))
			return nil
		}
	}
	return errs
}
