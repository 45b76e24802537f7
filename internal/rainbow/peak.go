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

	"github.com/mlnoga/rainbow/internal/terms"
	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
)

const (
	peakWindowTimescales = 20.0
	peakGridPoints       = 2001
)

// Time of maximum bolometric flux for physical parameters in Names order,
// with or without the trailing reduced chi-square.
//
// Terms implementing terms.PeakTimer supply a closed form. For all others the
// bolometric flux is scanned on a grid within 20 timescales of the reference
// time and the best grid point refined with Nelder-Mead. The sigmoid never
// peaks, and by convention reports its reference time.
func (f *Fitter) PeakTime(params []float64) (float64, error) {
	n := f.reg.size()
	if len(params) != n && len(params) != n+1 {
		return 0, eris.Wrapf(ErrInvalidData, "%d parameters, want %d or %d", len(params), n, n+1)
	}
	p := make([]float64, len(f.reg.bolo))
	gather(p, params, f.reg.bolo)

	if pt, ok := f.bolo.(terms.PeakTimer); ok {
		return pt.PeakTime(p), nil
	}
	return numericPeakTime(f.bolo, p)
}

func numericPeakTime(term terms.Term, p []float64) (float64, error) {
	center, timescale := 0.0, 0.0
	foundTime := false
	for i, param := range term.Parameters() {
		switch param.Role {
		case terms.RoleTime:
			if !foundTime {
				center, foundTime = p[i], true
			}
		case terms.RoleTimescale:
			timescale = math.Max(timescale, math.Abs(p[i]))
		}
	}
	if !(timescale > 0) {
		timescale = 1
	}
	if !isFinite(center) || !isFinite(timescale) {
		return 0, eris.Wrapf(ErrInvalidData, "non-finite peak window around %g with timescale %g", center, timescale)
	}

	lo, hi := center-peakWindowTimescales*timescale, center+peakWindowTimescales*timescale
	grid := make([]float64, peakGridPoints)
	floats.Span(grid, lo, hi)
	values := make([]float64, len(grid))
	term.Value(values, grid, p)
	best := floats.MaxIdx(values)

	// refine between the neighbouring grid points
	left, right := grid[max(best-1, 0)], grid[min(best+1, len(grid)-1)]
	one, tOne := make([]float64, 1), make([]float64, 1)
	negFlux := func(x []float64) float64 {
		tOne[0] = math.Min(math.Max(x[0], left), right)
		term.Value(one, tOne, p)
		return -one[0]
	}
	res, err := optimize.Minimize(optimize.Problem{Func: negFlux}, []float64{grid[best]}, nil, &optimize.NelderMead{})
	if err != nil || res == nil || -res.F < values[best] {
		return grid[best], nil
	}
	return math.Min(math.Max(res.X[0], left), right), nil
}

// Bolometric maximum of a light curve
type Peak struct {
	Time           float64 `json:"time" yaml:"time"`
	BolometricFlux float64 `json:"bolometric_flux" yaml:"bolometric_flux"`
	Temperature    float64 `json:"temperature" yaml:"temperature"`
}

// Time of maximum bolometric flux, with the flux and temperature at that time
func (f *Fitter) Peak(params []float64) (*Peak, error) {
	t, err := f.PeakTime(params)
	if err != nil {
		return nil, err
	}
	lum, err := f.Bolometric([]float64{t}, params)
	if err != nil {
		return nil, err
	}
	temp, err := f.Temperature([]float64{t}, params)
	if err != nil {
		return nil, err
	}
	return &Peak{Time: t, BolometricFlux: lum[0], Temperature: temp[0]}, nil
}
