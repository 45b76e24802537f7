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
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allTerms(t *testing.T) []Term {
	var ts []Term
	for _, name := range BolometricNames() {
		term, err := Bolometric(name)
		require.NoError(t, err)
		ts = append(ts, term)
	}
	for _, name := range TemperatureNames() {
		term, err := Temperature(name)
		require.NoError(t, err)
		ts = append(ts, term)
	}
	return ts
}

func TestLookup(t *testing.T) {
	assert.Equal(t, []string{"bazin", "sigmoid"}, BolometricNames())
	assert.Equal(t, []string{"constant", "logistic"}, TemperatureNames())

	_, err := Bolometric("logistic")
	assert.True(t, eris.Is(err, ErrUnknownTerm))
	_, err = Temperature("bazin")
	assert.True(t, eris.Is(err, ErrUnknownTerm))
}

func TestParameterNamesUnique(t *testing.T) {
	for _, term := range allTerms(t) {
		seen := map[string]bool{}
		for _, p := range term.Parameters() {
			assert.False(t, seen[p.Name], "%s declares %s twice", term.Name(), p.Name)
			seen[p.Name] = true
		}
		assert.NotEmpty(t, seen, term.Name())
	}
}

func TestGuessesWithinLimits(t *testing.T) {
	ts := []float64{0, 1, 2, 5, 10, 20, 40}
	ms := []float64{0.1, 0.5, 1.0, 3.0, 2.0, 1.0, 0.3}
	band := []string{"g", "r", "g", "r", "g", "r", "g"}
	for _, term := range allTerms(t) {
		for _, withBaseline := range []bool{false, true} {
			guesses := term.InitialGuesses(withBaseline, ts, ms, band)
			limits := term.Limits(withBaseline, ts, ms, band)
			for _, p := range term.Parameters() {
				g, ok := guesses[p.Name]
				require.True(t, ok, "%s: no guess for %s", term.Name(), p.Name)
				b, ok := limits[p.Name]
				require.True(t, ok, "%s: no limits for %s", term.Name(), p.Name)
				assert.Less(t, b.Lo, b.Hi, "%s.%s", term.Name(), p.Name)
				assert.GreaterOrEqual(t, g, b.Lo, "%s.%s", term.Name(), p.Name)
				assert.LessOrEqual(t, g, b.Hi, "%s.%s", term.Name(), p.Name)
			}
		}
	}
}

// Values just inside and just outside the guarded region must agree
func TestGuardContinuity(t *testing.T) {
	type testCase struct {
		term     Term
		params   []float64
		boundary []float64
	}
	eps := 1e-9
	tcs := []testCase{
		{Sigmoid{}, []float64{100, 2.5, 3}, []float64{100 - GuardTimescales*3}},
		{Bazin{}, []float64{100, 2.5, 3, 7}, []float64{100 - GuardTimescales*3, 100 + GuardTimescales*7}},
		{Logistic{}, []float64{100, 5000, 15000, 4}, []float64{100 - GuardTimescales*4, 100 + GuardTimescales*4}},
	}
	for _, tc := range tcs {
		for _, b := range tc.boundary {
			ts := []float64{b * (1 - eps), b, b * (1 + eps)}
			vs := make([]float64, len(ts))
			tc.term.Value(vs, ts, tc.params)
			scale := math.Max(1, math.Abs(vs[1]))
			for i := 1; i < len(vs); i++ {
				if d := math.Abs(vs[i] - vs[i-1]); d > 1e-12*scale {
					t.Errorf("%s at %g: jump %g between %g and %g", tc.term.Name(), b, d, vs[i-1], vs[i])
				}
			}
		}
	}
}

func TestNoOverflowFarFromReference(t *testing.T) {
	ts := []float64{-1e9, -1e5, 0, 1e5, 1e9}
	for _, term := range allTerms(t) {
		params := make([]float64, len(term.Parameters()))
		for i, p := range term.Parameters() {
			switch p.Role {
			case RoleTime:
				params[i] = 0
			case RoleTimescale:
				params[i] = 1e-3
			default:
				params[i] = 5000
			}
		}
		vs := make([]float64, len(ts))
		term.Value(vs, ts, params)
		for i, v := range vs {
			assert.False(t, math.IsNaN(v) || math.IsInf(v, 0), "%s at t=%g: %g", term.Name(), ts[i], v)
		}
	}
}

func TestLogisticAsymptotes(t *testing.T) {
	vs := make([]float64, 3)
	Logistic{}.Value(vs, []float64{-1e6, 0, 1e6}, []float64{0, 5000, 15000, 4})
	assert.Equal(t, 15000.0, vs[0])
	assert.InDelta(t, 10000.0, vs[1], 1e-9)
	assert.Equal(t, 5000.0, vs[2])
}

func TestBazinPeakTime(t *testing.T) {
	params := []float64{60000, 1, 5, 30}
	peak := Bazin{}.PeakTime(params)

	// numerical derivative changes sign at the peak
	h := 1e-4
	vs := make([]float64, 3)
	Bazin{}.Value(vs, []float64{peak - h, peak, peak + h}, params)
	assert.Greater(t, vs[1], vs[0])
	assert.Greater(t, vs[1], vs[2])

	// symmetric form peaks at the reference time
	assert.Equal(t, 60000.0, Bazin{}.PeakTime([]float64{60000, 1, 5, 5}))
}

func TestRoleString(t *testing.T) {
	assert.Equal(t, "timescale", RoleTimescale.String())
	assert.Equal(t, "unknown", Role(42).String())
}
