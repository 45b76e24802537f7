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

// Rising sigmoid: amplitude / (1 + exp(-(t-t0)/rise_time))
type Sigmoid struct{}

func (Sigmoid) Name() string { return "sigmoid" }

func (Sigmoid) Parameters() []Parameter {
	return []Parameter{
		{"reference_time", RoleTime},
		{"amplitude", RoleFlux},
		{"rise_time", RoleTimescale},
	}
}

func (Sigmoid) Value(dst, t, params []float64) {
	t0, amplitude, riseTime := params[0], params[1], params[2]
	for i, ti := range t {
		dt := ti - t0
		if dt > -GuardTimescales*riseTime {
			dst[i] = amplitude / (math.Exp(-dt/riseTime) + 1)
		} else {
			dst[i] = 0
		}
	}
}

func (Sigmoid) InitialGuesses(withBaseline bool, t, m []float64, band []string) map[string]float64 {
	return map[string]float64{
		"reference_time": timeOfMaximum(t, m),
		"amplitude":      fluxAmplitude(withBaseline, m),
		"rise_time":      0.1 * timeSpan(t),
	}
}

func (Sigmoid) Limits(withBaseline bool, t, m []float64, band []string) map[string]Bounds {
	return map[string]Bounds{
		"reference_time": timeBounds(t),
		"amplitude":      {0, 10 * fluxAmplitude(withBaseline, m)},
		"rise_time":      timescaleBounds(t),
	}
}

// The sigmoid rises monotonically and has no finite maximum. By convention its
// peak is the reference time, where it reaches half its amplitude.
func (Sigmoid) PeakTime(params []float64) float64 {
	return params[0]
}

// Bazin function: amplitude / (exp(-(t-t0)/rise_time) + exp((t-t0)/fall_time))
type Bazin struct{}

func (Bazin) Name() string { return "bazin" }

func (Bazin) Parameters() []Parameter {
	return []Parameter{
		{"reference_time", RoleTime},
		{"amplitude", RoleFlux},
		{"rise_time", RoleTimescale},
		{"fall_time", RoleTimescale},
	}
}

func (Bazin) Value(dst, t, params []float64) {
	t0, amplitude, riseTime, fallTime := params[0], params[1], params[2], params[3]
	for i, ti := range t {
		dt := ti - t0
		if dt > -GuardTimescales*riseTime && dt < GuardTimescales*fallTime {
			dst[i] = amplitude / (math.Exp(-dt/riseTime) + math.Exp(dt/fallTime))
		} else {
			dst[i] = 0
		}
	}
}

func (b Bazin) InitialGuesses(withBaseline bool, t, m []float64, band []string) map[string]float64 {
	riseTime := 0.1 * timeSpan(t)
	fallTime := 0.1 * timeSpan(t)
	t0 := timeOfMaximum(t, m) - bazinPeakOffset(riseTime, fallTime)
	return map[string]float64{
		"reference_time": t0,
		"amplitude":      fluxAmplitude(withBaseline, m),
		"rise_time":      riseTime,
		"fall_time":      fallTime,
	}
}

func (Bazin) Limits(withBaseline bool, t, m []float64, band []string) map[string]Bounds {
	return map[string]Bounds{
		"reference_time": timeBounds(t),
		"amplitude":      {0, 10 * fluxAmplitude(withBaseline, m)},
		"rise_time":      timescaleBounds(t),
		"fall_time":      timescaleBounds(t),
	}
}

// Root of the time derivative
func (Bazin) PeakTime(params []float64) float64 {
	return params[0] + bazinPeakOffset(params[2], params[3])
}

func bazinPeakOffset(riseTime, fallTime float64) float64 {
	return math.Log(fallTime/riseTime) * riseTime * fallTime / (riseTime + fallTime)
}
