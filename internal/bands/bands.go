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

// Package bands holds the photometric passbands a light curve is observed in,
// with their effective wavelengths and frequencies.
package bands

import (
	"math"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
)

// Speed of light in cm/s
const SpeedOfLight = 2.99792458e10

// Centimeters per Angstrom
const cmPerAngstrom = 1e-8

var (
	ErrEmpty       = eris.New("bands: empty band set")
	ErrUnknownBand = eris.New("bands: unknown band")
	ErrInvalid     = eris.New("bands: invalid band")
)

// A photometric band with its effective wavelength in cm and frequency in Hz
type Band struct {
	Name   string  `json:"name"   yaml:"name"`
	WaveCM float64 `json:"waveCM" yaml:"wave_cm"`
	Nu     float64 `json:"nu"     yaml:"nu"`
}

// Creates a band from its effective wavelength in cm
func NewBand(name string, waveCM float64) Band {
	return Band{Name: name, WaveCM: waveCM, Nu: SpeedOfLight / waveCM}
}

// Effective wavelength in Angstrom
func (b Band) Angstrom() float64 { return b.WaveCM / cmPerAngstrom }

// An ordered, immutable collection of uniquely named bands
type Set struct {
	bands     []Band
	index     map[string]int
	averageNu float64
}

// Creates a band set. Order of the given bands is preserved.
func New(bands []Band) (*Set, error) {
	if len(bands) == 0 {
		return nil, ErrEmpty
	}
	s := &Set{
		bands: make([]Band, len(bands)),
		index: make(map[string]int, len(bands)),
	}
	sumNu := 0.0
	for i, b := range bands {
		if b.Name == "" {
			return nil, eris.Wrapf(ErrInvalid, "band %d has no name", i)
		}
		if strings.ContainsAny(b.Name, " \t\n") {
			return nil, eris.Wrapf(ErrInvalid, "band name %q contains whitespace", b.Name)
		}
		if _, dup := s.index[b.Name]; dup {
			return nil, eris.Wrapf(ErrInvalid, "duplicate band %q", b.Name)
		}
		if !(b.WaveCM > 0) || math.IsInf(b.WaveCM, 0) {
			return nil, eris.Wrapf(ErrInvalid, "band %q has wavelength %g", b.Name, b.WaveCM)
		}
		if b.Nu == 0 {
			b.Nu = SpeedOfLight / b.WaveCM
		}
		s.bands[i] = b
		s.index[b.Name] = i
		sumNu += b.Nu
	}
	s.averageNu = sumNu / float64(len(bands))
	return s, nil
}

// Creates a band set from a map of band names to effective wavelengths in cm.
// Bands are ordered by name.
func FromWavelengthsCM(waveCM map[string]float64) (*Set, error) {
	return fromMap(waveCM, func(v float64) float64 { return v })
}

// Creates a band set from a map of band names to effective wavelengths in Angstrom.
// Bands are ordered by name.
func FromAngstrom(waveAA map[string]float64) (*Set, error) {
	return fromMap(waveAA, func(v float64) float64 { return v * cmPerAngstrom })
}

// Creates a band set from a map of band names to effective frequencies in Hz.
// Bands are ordered by name.
func FromFrequencies(nu map[string]float64) (*Set, error) {
	return fromMap(nu, func(v float64) float64 { return SpeedOfLight / v })
}

func fromMap(m map[string]float64, toCM func(float64) float64) (*Set, error) {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	bs := make([]Band, len(names))
	for i, name := range names {
		bs[i] = NewBand(name, toCM(m[name]))
	}
	return New(bs)
}

// Number of bands in the set
func (s *Set) Len() int { return len(s.bands) }

// Band at the given position
func (s *Set) Band(i int) Band { return s.bands[i] }

// Frequency in Hz of the band at the given position
func (s *Set) Nu(i int) float64 { return s.bands[i].Nu }

// Mean frequency over all bands in the set
func (s *Set) AverageNu() float64 { return s.averageNu }

// Band names in set order
func (s *Set) Names() []string {
	names := make([]string, len(s.bands))
	for i, b := range s.bands {
		names[i] = b.Name
	}
	return names
}

// Position of the named band
func (s *Set) Index(name string) (int, bool) {
	i, ok := s.index[name]
	return i, ok
}

// Maps band names to positions in the set, failing on the first unknown name
func (s *Set) Indices(names []string) ([]int, error) {
	idx := make([]int, len(names))
	for i, name := range names {
		j, ok := s.index[name]
		if !ok {
			return nil, eris.Wrapf(ErrUnknownBand, "%q at observation %d", name, i)
		}
		idx[i] = j
	}
	return idx, nil
}
