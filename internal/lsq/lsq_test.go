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

package lsq

import (
	"math"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Noiseless samples of a*exp(-b*t)
func decayProblem(a, b float64) Problem {
	ts := make([]float64, 101)
	ys := make([]float64, len(ts))
	for i := range ts {
		ts[i] = 0.1 * float64(i)
		ys[i] = a * math.Exp(-b*ts[i])
	}
	return Problem{
		Func: func(dst, x []float64) {
			for i, t := range ts {
				dst[i] = x[0]*math.Exp(-x[1]*t) - ys[i]
			}
		},
		M: len(ts),
	}
}

func rosenbrockProblem() Problem {
	return Problem{
		Func: func(dst, x []float64) {
			dst[0] = 10 * (x[1] - x[0]*x[0])
			dst[1] = 1 - x[0]
		},
		M: 2,
	}
}

// Residuals of a straight line through y = 2x+1 at x = 0..3
func lineProblem() Problem {
	xs := []float64{0, 1, 2, 3}
	return Problem{
		Func: func(dst, p []float64) {
			for i, x := range xs {
				dst[i] = p[0] + p[1]*x - (2*x + 1)
			}
		},
		M: len(xs),
	}
}

func TestLevenbergMarquardtDecay(t *testing.T) {
	res, err := LevenbergMarquardt(decayProblem(3, 0.5), []float64{1, 1}, nil)
	require.NoError(t, err)
	assert.True(t, res.Status.Converged(), res.Status.String())
	assert.InDelta(t, 3.0, res.X[0], 1e-6)
	assert.InDelta(t, 0.5, res.X[1], 1e-6)
	assert.Less(t, res.Cost, 1e-12)
	assert.Greater(t, res.Evaluations, res.Iterations)
}

func TestLevenbergMarquardtRosenbrock(t *testing.T) {
	res, err := LevenbergMarquardt(rosenbrockProblem(), []float64{-1.2, 1}, nil)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, res.X[0], 1e-6)
	assert.InDelta(t, 1.0, res.X[1], 1e-6)
}

func TestLevenbergMarquardtActiveBound(t *testing.T) {
	p := lineProblem()
	p.Lower = []float64{math.Inf(-1), math.Inf(-1)}
	p.Upper = []float64{math.Inf(1), 1.5}
	res, err := LevenbergMarquardt(p, []float64{0, 0}, nil)
	require.NoError(t, err)

	// slope pinned at its bound, intercept absorbs the mean residual
	assert.Equal(t, 1.5, res.X[1])
	assert.InDelta(t, 1+0.5*1.5, res.X[0], 1e-6)
}

func TestLevenbergMarquardtStartOutsideBox(t *testing.T) {
	p := lineProblem()
	p.Lower = []float64{-10, -10}
	p.Upper = []float64{10, 10}
	res, err := LevenbergMarquardt(p, []float64{100, -100}, nil)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, res.X[0], 1e-6)
	assert.InDelta(t, 2.0, res.X[1], 1e-6)
}

func TestLevenbergMarquardtIterationLimit(t *testing.T) {
	res, err := LevenbergMarquardt(rosenbrockProblem(), []float64{-1.2, 1}, &Settings{MaxIterations: 1})
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNoConvergence))
	require.NotNil(t, res)
	assert.Equal(t, IterationLimit, res.Status)
	assert.Equal(t, 1, res.Iterations)
}

func TestLevenbergMarquardtNonFinite(t *testing.T) {
	p := Problem{
		Func: func(dst, x []float64) { dst[0] = math.NaN() },
		M:    1,
	}
	res, err := LevenbergMarquardt(p, []float64{0}, nil)
	assert.True(t, eris.Is(err, ErrNoConvergence))
	assert.Equal(t, Failure, res.Status)
}

func TestNelderMeadDecay(t *testing.T) {
	res, err := NelderMead(decayProblem(3, 0.5), []float64{1, 1}, nil)
	require.NoError(t, err)
	assert.InDelta(t, 3.0, res.X[0], 1e-3)
	assert.InDelta(t, 0.5, res.X[1], 1e-3)
}

// Parameters five orders of magnitude apart, as temperatures next to scaled times
func TestNelderMeadMixedMagnitudes(t *testing.T) {
	xs := []float64{0, 0.25, 0.5, 0.75, 1}
	p := Problem{
		Func: func(dst, x []float64) {
			for i, v := range xs {
				dst[i] = x[0]*v + x[1]/1e4 - (0.3*v + 1.2)
			}
		},
		M: len(xs),
	}
	res, err := NelderMead(p, []float64{1, 5000}, nil)
	require.NoError(t, err)
	assert.InDelta(t, 0.3, res.X[0], 1e-3)
	assert.InEpsilon(t, 12000, res.X[1], 1e-3)
	assert.LessOrEqual(t, res.Iterations, NelderMeadSettings(2).MaxIterations)
}

func TestNelderMeadBound(t *testing.T) {
	p := Problem{
		Func:  func(dst, x []float64) { dst[0] = x[0] - 3 },
		M:     1,
		Upper: []float64{2},
	}
	res, err := NelderMead(p, []float64{0}, nil)
	require.NoError(t, err)
	assert.LessOrEqual(t, res.X[0], 2.0)
	assert.InDelta(t, 2.0, res.X[0], 1e-3)
	assert.InDelta(t, 1.0, res.Cost, 1e-2)
}

func TestInvalidProblem(t *testing.T) {
	for _, method := range []Method{LevenbergMarquardt, NelderMead} {
		_, err := method(Problem{M: 1}, []float64{0}, nil)
		assert.True(t, eris.Is(err, ErrBadProblem))

		p := lineProblem()
		_, err = method(p, nil, nil)
		assert.True(t, eris.Is(err, ErrBadProblem))

		p.Lower = []float64{1, 1}
		p.Upper = []float64{0, 2}
		_, err = method(p, []float64{0, 0}, nil)
		assert.True(t, eris.Is(err, ErrBadProblem))

		p.Lower = []float64{1}
		p.Upper = nil
		_, err = method(p, []float64{0, 0}, nil)
		assert.True(t, eris.Is(err, ErrBadProblem))
	}
}

func TestCovarianceLine(t *testing.T) {
	cov, err := Covariance(lineProblem(), []float64{1, 2})
	require.NoError(t, err)

	// inverse of [[4 6] [6 14]]
	assert.InDelta(t, 0.7, cov.At(0, 0), 1e-6)
	assert.InDelta(t, -0.3, cov.At(0, 1), 1e-6)
	assert.InDelta(t, 0.2, cov.At(1, 1), 1e-6)

	errs := StdErrors(cov)
	assert.InDelta(t, math.Sqrt(0.7), errs[0], 1e-6)
	assert.InDelta(t, math.Sqrt(0.2), errs[1], 1e-6)
}

func TestCovarianceAtBound(t *testing.T) {
	p := lineProblem()
	p.Lower = []float64{1, math.Inf(-1)}
	p.Upper = []float64{math.Inf(1), 2}
	line := p.Func
	p.Func = func(dst, x []float64) {
		line(dst, x)
		if x[0] < 1 || x[1] > 2 {
			for i := range dst {
				dst[i] = math.NaN()
			}
		}
	}

	// both parameters sit on a bound, so only one-sided steps stay finite
	cov, err := Covariance(p, []float64{1, 2})
	require.NoError(t, err)
	assert.InDelta(t, 0.7, cov.At(0, 0), 1e-6)
	assert.InDelta(t, -0.3, cov.At(0, 1), 1e-6)
	assert.InDelta(t, 0.2, cov.At(1, 1), 1e-6)
}

func TestCovarianceSingular(t *testing.T) {
	p := Problem{
		Func: func(dst, x []float64) {
			dst[0] = x[0] - 1
			dst[1] = x[0] + 1
		},
		M: 2,
	}
	_, err := Covariance(p, []float64{0, 0})
	assert.True(t, eris.Is(err, ErrSingular))
}

func TestSettingsDefaults(t *testing.T) {
	s := (&Settings{MaxIterations: 7}).withDefaults(DefaultSettings())
	assert.Equal(t, 7, s.MaxIterations)
	assert.Equal(t, DefaultSettings().MaxEvaluations, s.MaxEvaluations)
	assert.Equal(t, *DefaultSettings(), (*Settings)(nil).withDefaults(DefaultSettings()))

	nm := NelderMeadSettings(7)
	assert.Equal(t, 14000, nm.MaxIterations)
	assert.Equal(t, 35000, nm.MaxEvaluations)
	assert.Equal(t, DefaultSettings().FunctionTol, nm.FunctionTol)
	assert.Equal(t, 2000, NelderMeadSettings(0).MaxIterations)
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "GradientConvergence", GradientConvergence.String())
	assert.Equal(t, "Status(99)", Status(99).String())
	assert.False(t, IterationLimit.Converged())
	assert.True(t, StepConvergence.Converged())
}
