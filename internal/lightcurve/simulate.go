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

package lightcurve

import (
	"math"
	"math/rand/v2"

	"github.com/mlnoga/rainbow/internal/qsort"
	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/stat/distuv"
)

// Predicted fluxes at times t in the given bands
type ModelFunc func(t []float64, band []string, params []float64) ([]float64, error)

// Sampling and noise of a simulated light curve
type SimulateOptions struct {
	ID    string
	N     int      // number of observations
	TMin  float64  // observation times are uniform in [TMin, TMax]
	TMax  float64
	Bands []string // each observation picks one uniformly
	SNR   float64  // signal to noise ratio of the faintest observation
	Seed  uint64
}

// Simulates a light curve from a model with Poisson-like Gaussian noise.
// The uncertainty of an observation with flux f is sqrt(f * fmin) / SNR,
// where fmin is the smallest positive model flux. Times are sorted.
func Simulate(model ModelFunc, params []float64, opts SimulateOptions) (*LightCurve, error) {
	if opts.N <= 0 || len(opts.Bands) == 0 || !(opts.TMax > opts.TMin) || !(opts.SNR > 0) {
		return nil, eris.Wrapf(ErrInvalid, "cannot simulate with %+v", opts)
	}
	src := rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15)
	rng := rand.New(src)

	lc := &LightCurve{
		ID:    opts.ID,
		T:     make([]float64, opts.N),
		Sigma: make([]float64, opts.N),
		Band:  make([]string, opts.N),
	}
	times := distuv.Uniform{Min: opts.TMin, Max: opts.TMax, Src: src}
	for i := range lc.T {
		lc.T[i] = times.Rand()
	}
	qsort.Sort(lc.T)
	for i := range lc.Band {
		lc.Band[i] = opts.Bands[rng.IntN(len(opts.Bands))]
	}

	flux, err := model(lc.T, lc.Band, params)
	if err != nil {
		return nil, err
	}
	lc.Flux = flux

	fMin := math.Inf(1)
	for _, f := range flux {
		if f > 0 && f < fMin {
			fMin = f
		}
	}
	if math.IsInf(fMin, 1) {
		return nil, eris.Wrap(ErrInvalid, "model flux is nowhere positive")
	}
	noise := distuv.Normal{Mu: 0, Sigma: 1, Src: src}
	for i, f := range flux {
		lc.Sigma[i] = math.Sqrt(math.Max(f, fMin)*fMin) / opts.SNR
		lc.Flux[i] = f + lc.Sigma[i]*noise.Rand()
	}
	return lc, nil
}
