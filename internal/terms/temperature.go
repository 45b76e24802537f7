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

package terms

import (
	"math"
)

// Constant temperature T in Kelvin
type Constant struct{}

func (Constant) Name() string { return "constant" }

func (Constant) Parameters() []Parameter {
	return []Parameter{{"T", RoleNone}}
}

func (Constant) Value(dst, t, params []float64) {
	for i := range t {
		dst[i] = params[0]
	}
}

func (Constant) InitialGuesses(withBaseline bool, t, m []float64, band []string) map[string]float64 {
	return map[string]float64{"T": 8000.0}
}

func (Constant) Limits(withBaseline bool, t, m []float64, band []string) map[string]Bounds {
	return map[string]Bounds{"T": {1e2, 2e6}}
}

// Temperature cooling from Tmax to Tmin around the reference time:
// Tmin + (Tmax-Tmin) / (1 + exp((t-t0)/k_sig))
type Logistic struct{}

func (Logistic) Name() string { return "logistic" }

func (Logistic) Parameters() []Parameter {
	return []Parameter{
		{"reference_time", RoleTime},
		{"Tmin", RoleNone},
		{"Tmax", RoleNone},
		{"k_sig", RoleTimescale},
	}
}

func (Logistic) Value(dst, t, params []float64) {
	t0, tMin, tMax, kSig := params[0], params[1], params[2], params[3]
	for i, ti := range t {
		dt := ti - t0
		switch {
		case dt <= -GuardTimescales*kSig:
			dst[i] = tMax
		case dt >= GuardTimescales*kSig:
			dst[i] = tMin
		default:
			dst[i] = tMin + (tMax-tMin)/(1+math.Exp(dt/kSig))
		}
	}
}

func (Logistic) InitialGuesses(withBaseline bool, t, m []float64, band []string) map[string]float64 {
	return map[string]float64{
		"reference_time": timeOfMaximum(t, m),
		"Tmin":           4000.0,
		"Tmax":           10000.0,
		"k_sig":          0.1 * timeSpan(t),
	}
}

func (Logistic) Limits(withBaseline bool, t, m []float64, band []string) map[string]Bounds {
	return map[string]Bounds{
		"reference_time": timeBounds(t),
		"Tmin":           {1e2, 1e6},
		"Tmax":           {1e2, 1e6},
		"k_sig":          timescaleBounds(t),
	}
}
