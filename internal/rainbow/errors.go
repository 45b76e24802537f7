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
	"github.com/rotisserie/eris"
)

var (
	// Invalid term, band or optimizer configuration. Raised by New and never masked.
	ErrConfig = eris.New("rainbow: invalid configuration")

	// Mismatched lengths, unknown bands, or non-finite values. Never masked.
	ErrInvalidData = eris.New("rainbow: invalid data")

	// All observation times coincide, so time cannot be rescaled
	ErrDegenerateInput = eris.New("rainbow: degenerate input")

	// No more observations than fit parameters
	ErrNotEnoughObservations = eris.New("rainbow: not enough observations")

	// The optimizer hit its iteration or evaluation limit, or the cost became non-finite
	ErrNoConvergence = eris.New("rainbow: no convergence")
)

// True for fit failures which a fill value may replace
func IsFitFailure(err error) bool {
	return eris.Is(err, ErrDegenerateInput) || eris.Is(err, ErrNotEnoughObservations) || eris.Is(err, ErrNoConvergence)
}
