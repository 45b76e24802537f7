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

	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
)

// Penalty per squared unit of distance outside the box
const boxPenalty = 1e6

// Minimizes the sum of squared residuals with the derivative-free Nelder-Mead
// simplex method. Residuals are evaluated at the point clipped to the box, plus
// a quadratic penalty on the distance outside it. The simplex works on
// coordinates divided by the magnitude of the start point, at least one, so
// parameters of very different size move at comparable rates.
// Zero settings select NelderMeadSettings.
func NelderMead(p Problem, x0 []float64, settings *Settings) (*Result, error) {
	if err := p.validate(x0); err != nil {
		return nil, err
	}
	n := len(x0)
	s := settings.withDefaults(NelderMeadSettings(n))

	start := append([]float64(nil), x0...)
	p.clamp(start)
	scale := make([]float64, n)
	y0 := make([]float64, n)
	for j, v := range start {
		scale[j] = math.Max(math.Abs(v), 1)
		y0[j] = v / scale[j]
	}

	r := make([]float64, p.M)
	x := make([]float64, n)
	xc := make([]float64, n)
	evaluations := 0
	cost := func(y []float64) float64 {
		evaluations++
		floats.MulTo(x, y, scale)
		copy(xc, x)
		p.clamp(xc)
		p.Func(r, xc)
		c := sumSquares(r)
		for j := range x {
			d := (x[j] - xc[j]) / scale[j]
			c += boxPenalty * d * d
		}
		return c
	}

	problem := optimize.Problem{Func: cost}
	opts := &optimize.Settings{
		MajorIterations: s.MaxIterations,
		FuncEvaluations: s.MaxEvaluations,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-12,
			Relative:   s.FunctionTol,
			Iterations: 100,
		},
	}
	result, err := optimize.Minimize(problem, y0, opts, &optimize.NelderMead{})

	res := &Result{Evaluations: evaluations, Status: Failure, X: make([]float64, n)}
	if result != nil {
		floats.MulTo(res.X, result.X, scale)
		res.Iterations = result.Stats.MajorIterations
		res.Status = statusFromOptimize(result.Status)
	} else {
		copy(res.X, start)
	}
	p.clamp(res.X)
	p.Func(r, res.X)
	res.Cost = sumSquares(r)
	if !isFinite(res.Cost) {
		res.Status = Failure
	}

	if err != nil {
		return res, eris.Wrapf(ErrNoConvergence, "nelder-mead: %v", err)
	}
	if !res.Status.Converged() {
		return res, eris.Wrapf(ErrNoConvergence, "nelder-mead stopped with %s after %d iterations", res.Status, res.Iterations)
	}
	return res, nil
}

func statusFromOptimize(s optimize.Status) Status {
	switch s {
	case optimize.Success, optimize.MethodConverge, optimize.FunctionThreshold, optimize.FunctionConvergence:
		return FunctionConvergence
	case optimize.StepConvergence:
		return StepConvergence
	case optimize.GradientThreshold:
		return GradientConvergence
	case optimize.IterationLimit, optimize.RuntimeLimit:
		return IterationLimit
	case optimize.FunctionEvaluationLimit:
		return EvaluationLimit
	default:
		return Failure
	}
}
