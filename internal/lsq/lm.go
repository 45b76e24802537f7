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
	"gonum.org/v1/gonum/mat"
)

const (
	lambdaInit = 1e-3
	lambdaMin  = 1e-12
	lambdaMax  = 1e16
)

// Relative step for forward difference derivatives
var sqrtEpsilon = math.Sqrt(2.220446049250313e-16)

// Minimizes the sum of squared residuals with a bounded Levenberg-Marquardt method.
//
// Each iteration holds parameters fixed which rest on a bound while the gradient
// points outward, takes a damped Gauss-Newton step in the remaining ones, and clips
// the result to the box. Damping is scaled by the largest diagonal of J^T J seen so far.
// Derivatives are forward differences stepping away from the nearest upper bound.
func LevenbergMarquardt(p Problem, x0 []float64, settings *Settings) (*Result, error) {
	if err := p.validate(x0); err != nil {
		return nil, err
	}
	s := settings.withDefaults(DefaultSettings())
	n, m := len(x0), p.M

	x := append([]float64(nil), x0...)
	p.clamp(x)
	r := make([]float64, m)
	res := &Result{}
	p.Func(r, x)
	res.Evaluations++
	cost := sumSquares(r)
	if !isFinite(cost) {
		res.X, res.Cost, res.Status = x, cost, Failure
		return res, eris.Wrap(ErrNoConvergence, "non-finite cost at initial parameters")
	}

	jac := mat.NewDense(m, n, nil)
	var jtj mat.SymDense
	var grad, delta, jstep mat.VecDense
	var chol mat.Cholesky

	diag := make([]float64, n)
	free := make([]int, 0, n)
	xNew := make([]float64, n)
	rNew := make([]float64, m)
	step := make([]float64, n)
	lambda := lambdaInit

	status := NotTerminated
	for status == NotTerminated {
		if res.Iterations >= s.MaxIterations {
			status = IterationLimit
			break
		}
		if res.Evaluations+n+1 > s.MaxEvaluations {
			status = EvaluationLimit
			break
		}
		res.Iterations++

		p.jacobian(jac, x, r, xNew, rNew)
		res.Evaluations += n
		jtj.SymOuterK(1, jac.T())
		grad.MulVec(jac.T(), mat.NewVecDense(m, r))

		free = free[:0]
		gradNorm := 0.0
		for j := 0; j < n; j++ {
			diag[j] = math.Max(diag[j], jtj.At(j, j))
			g := grad.AtVec(j)
			if diag[j] == 0 || (x[j] <= p.lo(j) && g > 0) || (x[j] >= p.hi(j) && g < 0) {
				continue
			}
			free = append(free, j)
			gradNorm = math.Max(gradNorm, math.Abs(g))
		}
		if len(free) == 0 || gradNorm <= s.GradientTol {
			status = GradientConvergence
			break
		}

		k := len(free)
		a := mat.NewSymDense(k, nil)
		b := mat.NewVecDense(k, nil)
		for {
			for ii, j := range free {
				for jj := ii + 1; jj < k; jj++ {
					a.SetSym(ii, jj, jtj.At(j, free[jj]))
				}
				a.SetSym(ii, ii, jtj.At(j, j)+lambda*diag[j])
				b.SetVec(ii, -grad.AtVec(j))
			}
			delta.Reset()
			if !chol.Factorize(a) || chol.SolveVecTo(&delta, b) != nil {
				if lambda *= 10; lambda > lambdaMax {
					status = StepConvergence
					break
				}
				continue
			}

			copy(xNew, x)
			for ii, j := range free {
				xNew[j] += delta.AtVec(ii)
			}
			p.clamp(xNew)
			floats.SubTo(step, xNew, x)
			p.Func(rNew, xNew)
			res.Evaluations++
			costNew := sumSquares(rNew)

			if isFinite(costNew) && costNew < cost {
				jstep.MulVec(jac, mat.NewVecDense(n, step))
				predicted := cost
				for i := range r {
					v := r[i] + jstep.AtVec(i)
					predicted -= v * v
				}
				actual := cost - costNew
				stepNorm, xNorm := floats.Norm(step, 2), floats.Norm(x, 2)
				costOld := cost

				x, xNew = xNew, x
				r, rNew = rNew, r
				cost = costNew
				lambda = math.Max(lambda/10, lambdaMin)

				if actual <= s.FunctionTol*costOld && math.Abs(predicted) <= s.FunctionTol*costOld {
					status = FunctionConvergence
				} else if stepNorm <= s.StepTol*(xNorm+s.StepTol) {
					status = StepConvergence
				}
				break
			}

			// rejected, increase damping
			if lambda *= 10; lambda > lambdaMax {
				status = StepConvergence
				break
			}
			if res.Evaluations >= s.MaxEvaluations {
				status = EvaluationLimit
				break
			}
		}
	}

	res.X, res.Cost, res.Status = x, cost, status
	if !status.Converged() {
		return res, eris.Wrapf(ErrNoConvergence, "levenberg-marquardt stopped with %s after %d iterations", status, res.Iterations)
	}
	return res, nil
}

// Forward difference Jacobian of the residuals at x, given residuals r at x.
// xh and rh are scratch space.
func (p *Problem) jacobian(dst *mat.Dense, x, r, xh, rh []float64) {
	copy(xh, x)
	for j := range x {
		h := sqrtEpsilon * math.Max(math.Abs(x[j]), 1)
		if x[j]+h > p.hi(j) {
			h = -h
		}
		xh[j] = x[j] + h
		h = xh[j] - x[j]
		p.Func(rh, xh)
		for i := range r {
			dst.Set(i, j, (rh[i]-r[i])/h)
		}
		xh[j] = x[j]
	}
}
