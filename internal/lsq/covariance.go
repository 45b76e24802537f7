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
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
)

// Parameter covariance at x, estimated as the inverse of J^T J with a finite
// difference Jacobian. Assumes the residuals are already weighted by their
// measurement uncertainties. Differences are central inside the box and
// one-sided next to a bound, so residuals are never evaluated outside it.
func Covariance(p Problem, x []float64) (*mat.SymDense, error) {
	if err := p.validate(x); err != nil {
		return nil, err
	}
	jac := mat.NewDense(p.M, len(x), nil)
	p.boundedJacobian(jac, x)

	var jtj mat.SymDense
	jtj.SymOuterK(1, jac.T())

	var chol mat.Cholesky
	if !chol.Factorize(&jtj) {
		return nil, eris.Wrap(ErrSingular, "J^T J is not positive definite")
	}
	var cov mat.SymDense
	if err := chol.InverseTo(&cov); err != nil {
		return nil, eris.Wrap(ErrSingular, err.Error())
	}
	return &cov, nil
}

// Differentiates one parameter at a time, with steps relative to its magnitude
func (p *Problem) boundedJacobian(dst *mat.Dense, x []float64) {
	m := p.M
	xh := append([]float64(nil), x...)
	for j := range x {
		mag := math.Max(math.Abs(x[j]), 1)
		formula := fd.Central
		switch {
		case x[j]-fd.Central.Step*mag >= p.lo(j) && x[j]+fd.Central.Step*mag <= p.hi(j):
		case x[j]+fd.Forward.Step*mag <= p.hi(j):
			formula = fd.Forward
		default:
			formula = fd.Backward
		}
		column := func(r, z []float64) {
			xh[j] = z[0]
			p.Func(r, xh)
		}
		col := dst.Slice(0, m, j, j+1).(*mat.Dense)
		fd.Jacobian(col, column, x[j:j+1], &fd.JacobianSettings{Formula: formula, Step: formula.Step * mag})
		xh[j] = x[j]
	}
}

// Square roots of the diagonal of a covariance matrix. Negative variances
// from round-off map to NaN.
func StdErrors(cov *mat.SymDense) []float64 {
	n := cov.SymmetricDim()
	errs := make([]float64, n)
	for i := range errs {
		v := cov.At(i, i)
		if v < 0 {
			errs[i] = math.NaN()
		} else {
			errs[i] = math.Sqrt(v)
		}
	}
	return errs
}
