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

package bands

import (
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromAngstrom(t *testing.T) {
	s, err := FromAngstrom(map[string]float64{"r": 6231.0, "g": 4770.0})
	require.NoError(t, err)

	assert.Equal(t, []string{"g", "r"}, s.Names())
	assert.InDelta(t, 4770e-8, s.Band(0).WaveCM, 1e-15)
	assert.InEpsilon(t, SpeedOfLight/4770e-8, s.Nu(0), 1e-12)
	assert.InDelta(t, 6231.0, s.Band(1).Angstrom(), 1e-9)

	want := 0.5 * (SpeedOfLight/4770e-8 + SpeedOfLight/6231e-8)
	assert.InEpsilon(t, want, s.AverageNu(), 1e-12)
}

func TestUnitsAgree(t *testing.T) {
	aa, err := FromAngstrom(map[string]float64{"g": 4770.0})
	require.NoError(t, err)
	cm, err := FromWavelengthsCM(map[string]float64{"g": 4770e-8})
	require.NoError(t, err)
	hz, err := FromFrequencies(map[string]float64{"g": SpeedOfLight / 4770e-8})
	require.NoError(t, err)

	assert.InEpsilon(t, aa.Nu(0), cm.Nu(0), 1e-12)
	assert.InEpsilon(t, aa.Nu(0), hz.Nu(0), 1e-12)
}

func TestNewRejectsBadInput(t *testing.T) {
	_, err := New(nil)
	assert.True(t, eris.Is(err, ErrEmpty))

	_, err = New([]Band{NewBand("g", 4770e-8), NewBand("g", 5000e-8)})
	assert.True(t, eris.Is(err, ErrInvalid))

	_, err = New([]Band{{Name: "g", WaveCM: -1}})
	assert.True(t, eris.Is(err, ErrInvalid))

	_, err = New([]Band{NewBand("", 4770e-8)})
	assert.True(t, eris.Is(err, ErrInvalid))
}

func TestIndices(t *testing.T) {
	s, err := Preset("ztf")
	require.NoError(t, err)

	idx, err := s.Indices([]string{"i", "g", "g", "r"})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 0, 0, 1}, idx)

	_, err = s.Indices([]string{"g", "z"})
	assert.True(t, eris.Is(err, ErrUnknownBand))
}

func TestPresets(t *testing.T) {
	for _, name := range PresetNames() {
		s, err := Preset(name)
		require.NoError(t, err, name)
		for i := 1; i < s.Len(); i++ {
			if s.Band(i).WaveCM <= s.Band(i-1).WaveCM {
				t.Errorf("preset %s: band %s is not redder than %s", name, s.Band(i).Name, s.Band(i-1).Name)
			}
		}
	}
	_, err := Preset("nope")
	assert.Error(t, err)
}
