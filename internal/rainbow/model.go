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
	"github.com/mlnoga/rainbow/internal/terms"
	"github.com/rotisserie/eris"
)

// Scratch buffers for evaluating the model on n observations
type workspace struct {
	boloParams  []float64
	tempParams  []float64
	luminosity  []float64
	temperature []float64
}

func (f *Fitter) newWorkspace(n int) *workspace {
	return &workspace{
		boloParams:  make([]float64, len(f.reg.bolo)),
		tempParams:  make([]float64, len(f.reg.temp)),
		luminosity:  make([]float64, n),
		temperature: make([]float64, n),
	}
}

// Writes predicted fluxes into dst. Params is the joint vector with the
// amplitude divided by the average band frequency.
func (f *Fitter) evaluate(dst, t []float64, bandIdx []int, params []float64, ws *workspace) {
	gather(ws.boloParams, params, f.reg.bolo)
	gather(ws.tempParams, params, f.reg.temp)
	f.bolo.Value(ws.luminosity, t, ws.boloParams)
	f.temp.Value(ws.temperature, t, ws.tempParams)

	for i, b := range bandIdx {
		dst[i] = ws.luminosity[i] * f.averageNu * planckRatio(f.nu[b], ws.temperature[i])
		if f.reg.baseline != nil {
			dst[i] += params[f.reg.baseline[b]]
		}
	}
}

// Predicted fluxes for observations at times t in the given bands.
// Params are physical parameters in Names order, with or without the
// trailing reduced chi-square.
func (f *Fitter) Model(t []float64, band []string, params []float64) ([]float64, error) {
	if len(t) != len(band) {
		return nil, eris.Wrapf(ErrInvalidData, "%d times but %d bands", len(t), len(band))
	}
	p, err := f.internalParams(params)
	if err != nil {
		return nil, err
	}
	bandIdx, err := f.set.Indices(band)
	if err != nil {
		return nil, eris.Wrapf(ErrInvalidData, "%v", err)
	}
	dst := make([]float64, len(t))
	f.evaluate(dst, t, bandIdx, p, f.newWorkspace(len(t)))
	return dst, nil
}

// Copies physical parameters, dropping a trailing chi-square and dividing
// the amplitude by the average band frequency
func (f *Fitter) internalParams(params []float64) ([]float64, error) {
	n := f.reg.size()
	if len(params) != n && len(params) != n+1 {
		return nil, eris.Wrapf(ErrInvalidData, "%d parameters, want %d or %d", len(params), n, n+1)
	}
	p := append([]float64(nil), params[:n]...)
	for j, role := range f.reg.roles {
		if role == terms.RoleFlux {
			p[j] /= f.averageNu
		}
	}
	return p, nil
}

// Bolometric flux at times t for physical parameters
func (f *Fitter) Bolometric(t []float64, params []float64) ([]float64, error) {
	return f.termValues(f.bolo, f.reg.bolo, t, params)
}

// Temperature in Kelvin at times t for physical parameters
func (f *Fitter) Temperature(t []float64, params []float64) ([]float64, error) {
	return f.termValues(f.temp, f.reg.temp, t, params)
}

func (f *Fitter) termValues(term terms.Term, idx []int, t []float64, params []float64) ([]float64, error) {
	n := f.reg.size()
	if len(params) != n && len(params) != n+1 {
		return nil, eris.Wrapf(ErrInvalidData, "%d parameters, want %d or %d", len(params), n, n+1)
	}
	p := make([]float64, len(idx))
	gather(p, params, idx)
	dst := make([]float64, len(t))
	term.Value(dst, t, p)
	return dst, nil
}
