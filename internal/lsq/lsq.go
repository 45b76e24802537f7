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

// Package lsq minimizes sums of squared residuals subject to box constraints.
package lsq

import (
	"fmt"
	"math"

	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/floats"
)

var (
	ErrNoConvergence = eris.New("lsq: no convergence")
	ErrBadProblem    = eris.New("lsq: invalid problem")
	ErrSingular      = eris.New("lsq: singular normal matrix")
)

// A nonlinear least squares problem
type Problem struct {
	// Writes the M residuals at x into dst. Must not modify x.
	Func func(dst, x []float64)

	// Number of residuals
	M int

	// Box constraints, nil for unbounded. Infinite entries are allowed.
	Lower []float64
	Upper []float64
}

// Termination settings. Zero values select defaults.
type Settings struct {
	MaxIterations  int     // major iterations
	MaxEvaluations int     // residual function evaluations, including those for derivatives
	FunctionTol    float64 // relative decrease of the cost
	StepTol        float64 // relative step length
	GradientTol    float64 // infinity norm of the projected gradient
}

// Defaults of LevenbergMarquardt
func DefaultSettings() *Settings {
	return &Settings{
		MaxIterations:  1000,
		MaxEvaluations: 100000,
		FunctionTol:    1e-10,
		StepTol:        1e-10,
		GradientTol:    1e-10,
	}
}

// Defaults of NelderMead for n parameters. A simplex step moves one vertex,
// so the limits grow with the dimension.
func NelderMeadSettings(n int) *Settings {
	s := DefaultSettings()
	s.MaxIterations = 2000 * max(n, 1)
	s.MaxEvaluations = 5000 * max(n, 1)
	return s
}

// Fills zero fields of s from d
func (s *Settings) withDefaults(d *Settings) Settings {
	if s == nil {
		return *d
	}
	r := *s
	if r.MaxIterations <= 0 {
		r.MaxIterations = d.MaxIterations
	}
	if r.MaxEvaluations <= 0 {
		r.MaxEvaluations = d.MaxEvaluations
	}
	if r.FunctionTol <= 0 {
		r.FunctionTol = d.FunctionTol
	}
	if r.StepTol <= 0 {
		r.StepTol = d.StepTol
	}
	if r.GradientTol <= 0 {
		r.GradientTol = d.GradientTol
	}
	return r
}

// Why an optimization stopped
type Status int

const (
	NotTerminated Status = iota
	FunctionConvergence
	StepConvergence
	GradientConvergence
	IterationLimit
	EvaluationLimit
	Failure
)

var statusNames = []string{"NotTerminated", "FunctionConvergence", "StepConvergence",
	"GradientConvergence", "IterationLimit", "EvaluationLimit", "Failure"}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return fmt.Sprintf("Status(%d)", int(s))
	}
	return statusNames[s]
}

// True if the status signals a local minimum was found
func (s Status) Converged() bool {
	return s == FunctionConvergence || s == StepConvergence || s == GradientConvergence
}

// Outcome of a minimization
type Result struct {
	X           []float64 // best parameters found
	Cost        float64   // sum of squared residuals at X
	Iterations  int
	Evaluations int
	Status      Status
}

// A minimizer of bounded least squares problems
type Method func(p Problem, x0 []float64, s *Settings) (*Result, error)

func (p *Problem) validate(x0 []float64) error {
	if p.Func == nil {
		return eris.Wrap(ErrBadProblem, "no residual function")
	}
	if p.M <= 0 {
		return eris.Wrapf(ErrBadProblem, "%d residuals", p.M)
	}
	n := len(x0)
	if n == 0 {
		return eris.Wrap(ErrBadProblem, "no parameters")
	}
	if p.Lower != nil && len(p.Lower) != n {
		return eris.Wrapf(ErrBadProblem, "%d lower bounds for %d parameters", len(p.Lower), n)
	}
	if p.Upper != nil && len(p.Upper) != n {
		return eris.Wrapf(ErrBadProblem, "%d upper bounds for %d parameters", len(p.Upper), n)
	}
	for j := 0; j < n; j++ {
		if p.lo(j) > p.hi(j) {
			return eris.Wrapf(ErrBadProblem, "parameter %d has lower bound %g above upper bound %g", j, p.lo(j), p.hi(j))
		}
	}
	return nil
}

func (p *Problem) lo(j int) float64 {
	if p.Lower == nil {
		return math.Inf(-1)
	}
	return p.Lower[j]
}

func (p *Problem) hi(j int) float64 {
	if p.Upper == nil {
		return math.Inf(1)
	}
	return p.Upper[j]
}

// Clamps x into the box, in place
func (p *Problem) clamp(x []float64) {
	for j := range x {
		if lo := p.lo(j); x[j] < lo {
			x[j] = lo
		}
		if hi := p.hi(j); x[j] > hi {
			x[j] = hi
		}
	}
}

func sumSquares(r []float64) float64 {
	return floats.Dot(r, r)
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
