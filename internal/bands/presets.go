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
	"sort"

	"github.com/rotisserie/eris"
)

// Effective wavelengths in Angstrom of commonly used filter systems
var presets = map[string][]struct {
	name string
	aa   float64
}{
	"ztf": {
		{"g", 4770.0},
		{"r", 6231.0},
		{"i", 7625.0},
	},
	"griz": {
		{"g", 4770.0},
		{"r", 6231.0},
		{"i", 7625.0},
		{"z", 9134.0},
	},
	"lsst": {
		{"u", 3671.0},
		{"g", 4827.0},
		{"r", 6223.0},
		{"i", 7546.0},
		{"z", 8691.0},
		{"y", 9712.0},
	},
}

// Returns the band set of a named filter system, in blue to red order
func Preset(name string) (*Set, error) {
	p, ok := presets[name]
	if !ok {
		return nil, eris.Wrapf(ErrUnknownBand, "no preset %q", name)
	}
	bs := make([]Band, len(p))
	for i, b := range p {
		bs[i] = NewBand(b.name, b.aa*cmPerAngstrom)
	}
	return New(bs)
}

// Names of the available presets, sorted
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
