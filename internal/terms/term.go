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

// Package terms provides the parametric bolometric flux and temperature
// evolution forms combined by the Rainbow fit.
//
// A term evaluates a function of time from an ordered list of named
// parameters, and supplies initial guesses and bounds from the observed light
// curve. Each parameter declares a Role, which decides how it is rescaled for
// fitting. Parameter values with RoleFlux are returned by InitialGuesses and
// Limits in input flux units, that is bolometric flux divided by the mean
// frequency of the band set.
package terms

import (
	"math"
	"sort"

	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/floats"
)

// Exponentials are only evaluated within this many timescales of the reference time
const GuardTimescales = 100.0

var ErrUnknownTerm = eris.New("terms: unknown term")

// Scaling behaviour of a parameter
type Role int

const (
	RoleNone      Role = iota // dimensionless, e.g. temperatures
	RoleTime                  // a point in time, shifted and scaled
	RoleTimescale             // a duration, scaled only
	RoleFlux                  // the bolometric amplitude
	RoleBaseline              // a per-band additive flux offset
)

var roleNames = []string{"none", "time", "timescale", "flux", "baseline"}

func (r Role) String() string {
	if r < 0 || int(r) >= len(roleNames) {
		return "unknown"
	}
	return roleNames[r]
}

// A named parameter with its scaling role
type Parameter struct {
	Name string
	Role Role
}

// Lower and upper bound of a parameter
type Bounds struct {
	Lo float64
	Hi float64
}

// Clamps x into the bounds
func (b Bounds) Clamp(x float64) float64 {
	if x < b.Lo {
		return b.Lo
	}
	if x > b.Hi {
		return b.Hi
	}
	return x
}

// A parametric function of time
type Term interface {
	Name() string

	// Ordered, unique parameters
	Parameters() []Parameter

	// Writes the function value at times t into dst, using params in Parameters() order
	Value(dst, t, params []float64)

	// Initial parameter guesses from a light curve sorted by time
	InitialGuesses(withBaseline bool, t, m []float64, band []string) map[string]float64

	// Parameter bounds from a light curve sorted by time
	Limits(withBaseline bool, t, m []float64, band []string) map[string]Bounds
}

// Implemented by bolometric terms with a closed form for the time of maximum flux
type PeakTimer interface {
	PeakTime(params []float64) float64
}

var bolometricTerms = map[string]func() Term{
	"sigmoid": func() Term { return Sigmoid{} },
	"bazin":   func() Term { return Bazin{} },
}

var temperatureTerms = map[string]func() Term{
	"constant": func() Term { return Constant{} },
	"logistic": func() Term { return Logistic{} },
}

// Looks up a built-in bolometric term by name
func Bolometric(name string) (Term, error) {
	f, ok := bolometricTerms[name]
	if !ok {
		return nil, eris.Wrapf(ErrUnknownTerm, "bolometric %q, want one of %v", name, BolometricNames())
	}
	return f(), nil
}

// Looks up a built-in temperature term by name
func Temperature(name string) (Term, error) {
	f, ok := temperatureTerms[name]
	if !ok {
		return nil, eris.Wrapf(ErrUnknownTerm, "temperature %q, want one of %v", name, TemperatureNames())
	}
	return f(), nil
}

func BolometricNames() []string  { return sortedKeys(bolometricTerms) }
func TemperatureNames() []string { return sortedKeys(temperatureTerms) }

func sortedKeys(m map[string]func() Term) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Names of the given parameters, in order
func Names(ps []Parameter) []string {
	names := make([]string, len(ps))
	for i, p := range ps {
		names[i] = p.Name
	}
	return names
}

// Time span and flux amplitude shared by the guesses and limits of several terms
func timeSpan(t []float64) float64 {
	return floats.Max(t) - floats.Min(t)
}

func fluxAmplitude(withBaseline bool, m []float64) float64 {
	var a float64
	if withBaseline {
		a = floats.Max(m) - floats.Min(m)
	} else {
		a = floats.Max(m)
	}
	if !(a > 0) {
		a = math.Max(math.Abs(floats.Max(m)), math.Abs(floats.Min(m)))
	}
	if !(a > 0) {
		a = 1
	}
	return a
}

func timeBounds(t []float64) Bounds {
	span := timeSpan(t)
	return Bounds{floats.Min(t) - 10*span, floats.Max(t) + 10*span}
}

func timescaleBounds(t []float64) Bounds {
	span := timeSpan(t)
	return Bounds{1e-4 * math.Min(1, span), 10 * span}
}

func timeOfMaximum(t, m []float64) float64 {
	return t[floats.MaxIdx(m)]
}
