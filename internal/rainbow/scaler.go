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

	"github.com/mlnoga/rainbow/internal/qsort"
	"github.com/mlnoga/rainbow/internal/terms"
	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/floats"
)

// Maps times, fluxes and parameters of one light curve into the unit range
// and back. Created per fit.
type scaler struct {
	timeShift float64
	timeScale float64
	fluxScale float64
	bandShift []float64 // per band median flux in baseline mode, zeros otherwise
	averageNu float64
}

func newScaler(t, m []float64, bandIdx []int, numBands int, withBaseline bool, averageNu float64) (*scaler, error) {
	tMin, tMax := floats.Min(t), floats.Max(t)
	span := tMax - tMin
	if !(span > 0) || math.IsInf(span, 0) {
		return nil, eris.Wrapf(ErrDegenerateInput, "time span %g of %d observations", span, len(t))
	}
	s := &scaler{
		timeShift: tMin,
		timeScale: span,
		bandShift: make([]float64, numBands),
		averageNu: averageNu,
	}

	mMin, mMax := floats.Min(m), floats.Max(m)
	if withBaseline {
		s.fluxScale = mMax - mMin
		for b, values := range groupByBand(m, bandIdx, numBands) {
			s.bandShift[b] = qsort.MedianInPlace(values)
		}
	} else {
		s.fluxScale = math.Max(math.Abs(mMin), math.Abs(mMax))
	}
	if !(s.fluxScale > 0) || math.IsInf(s.fluxScale, 0) {
		s.fluxScale = 1
	}
	return s, nil
}

// Fluxes per band, in observation order
func groupByBand(m []float64, bandIdx []int, numBands int) [][]float64 {
	groups := make([][]float64, numBands)
	for i, b := range bandIdx {
		groups[b] = append(groups[b], m[i])
	}
	return groups
}

// Scales observations into new slices
func (s *scaler) scaleData(t, m, sigma []float64, bandIdx []int) (ts, ms, ss []float64) {
	ts = make([]float64, len(t))
	ms = make([]float64, len(m))
	ss = make([]float64, len(sigma))
	for i := range t {
		ts[i] = (t[i] - s.timeShift) / s.timeScale
		ms[i] = (m[i] - s.bandShift[bandIdx[i]]) / s.fluxScale
		ss[i] = sigma[i] / s.fluxScale
	}
	return ts, ms, ss
}

// Scales a parameter value with the given role. Band is only used for baselines.
func (s *scaler) forward(role terms.Role, band int, x float64) float64 {
	switch role {
	case terms.RoleTime:
		return (x - s.timeShift) / s.timeScale
	case terms.RoleTimescale:
		return x / s.timeScale
	case terms.RoleFlux:
		return x / (s.averageNu * s.fluxScale)
	case terms.RoleBaseline:
		return (x - s.bandShift[band]) / s.fluxScale
	default:
		return x
	}
}

// Inverse of forward
func (s *scaler) inverse(role terms.Role, band int, x float64) float64 {
	switch role {
	case terms.RoleTime:
		return s.timeShift + s.timeScale*x
	case terms.RoleTimescale:
		return s.timeScale * x
	case terms.RoleFlux:
		return s.averageNu * s.fluxScale * x
	case terms.RoleBaseline:
		return s.bandShift[band] + s.fluxScale*x
	default:
		return x
	}
}

// Unscales an uncertainty, which carries the scale factor but no shift
func (s *scaler) inverseError(role terms.Role, e float64) float64 {
	switch role {
	case terms.RoleTime, terms.RoleTimescale:
		return s.timeScale * e
	case terms.RoleFlux:
		return s.averageNu * s.fluxScale * e
	case terms.RoleBaseline:
		return s.fluxScale * e
	default:
		return e
	}
}
