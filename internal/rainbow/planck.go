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

	"github.com/mlnoga/rainbow/internal/bands"
)

// CODATA 2018 in cgs units
const (
	PlanckConstant  = 6.62607004e-27         // erg s
	BoltzmannConst  = 1.380649e-16           // erg/K
	StefanBoltzmann = 5.6703744191844314e-05 // erg/(cm^2 s K^4)
)

// Planck spectral radiance B_nu in erg/(s cm^2 Hz sr) at frequency nu in Hz
// and temperature T in Kelvin. Zero where the temperature is not positive and
// finite, or where the Wien tail underflows.
func PlanckNu(nu, T float64) float64 {
	if !(T > 0) || math.IsInf(T, 1) {
		return 0
	}
	d := math.Expm1(PlanckConstant * nu / (BoltzmannConst * T))
	if math.IsInf(d, 1) {
		return 0
	}
	c := bands.SpeedOfLight
	return 2 * PlanckConstant * nu * nu * nu / (c * c) / d
}

// Fraction of the bolometric flux emitted per unit frequency at nu, for a
// blackbody of temperature T: pi B_nu / (sigma_SB T^4), in 1/Hz
func planckRatio(nu, T float64) float64 {
	r := math.Pi * PlanckNu(nu, T) / (StefanBoltzmann * T * T * T * T)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	return r
}
