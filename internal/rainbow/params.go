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
	"github.com/mlnoga/rainbow/internal/bands"
	"github.com/mlnoga/rainbow/internal/terms"
	"github.com/rotisserie/eris"
)

// Name of the trailing goodness of fit slot in the output vector
const ReducedChi2Name = "r_chi2"

// Name of the additive flux offset parameter of a band. Baselines follow the
// band set's order: by name for sets built from maps, as listed for presets
// and bands.New. Look them up by name rather than by position.
func BaselineName(band string) string {
	return "baseline_" + band
}

// Joint parameter vector of a bolometric and a temperature term.
//
// Names are ordered as: parameters common to both terms in bolometric order,
// bolometric-only, temperature-only, then one baseline per band in band order.
type registry struct {
	names    []string
	roles    []terms.Role
	band     []int          // band index of baseline parameters, -1 elsewhere
	index    map[string]int // name to position
	bolo     []int          // positions of the bolometric term's parameters, in its order
	temp     []int          // positions of the temperature term's parameters, in its order
	common   []string
	baseline []int // position of each band's baseline, nil without baseline
}

func newRegistry(bolo, temp terms.Term, set *bands.Set, withBaseline bool) (*registry, error) {
	if set == nil || set.Len() == 0 {
		return nil, eris.Wrap(ErrConfig, "empty band set")
	}
	reserved := make(map[string]bool, set.Len())
	for _, name := range set.Names() {
		reserved[BaselineName(name)] = true
	}
	reserved[ReducedChi2Name] = true

	boloParams, err := termParameters(bolo, reserved)
	if err != nil {
		return nil, err
	}
	tempParams, err := termParameters(temp, reserved)
	if err != nil {
		return nil, err
	}
	tempRoles := make(map[string]terms.Role, len(tempParams))
	for _, p := range tempParams {
		tempRoles[p.Name] = p.Role
	}
	boloRoles := make(map[string]terms.Role, len(boloParams))
	for _, p := range boloParams {
		boloRoles[p.Name] = p.Role
	}

	r := &registry{index: map[string]int{}}
	add := func(name string, role terms.Role, band int) {
		r.index[name] = len(r.names)
		r.names = append(r.names, name)
		r.roles = append(r.roles, role)
		r.band = append(r.band, band)
	}

	for _, p := range boloParams {
		role, ok := tempRoles[p.Name]
		if !ok {
			continue
		}
		if role != p.Role {
			return nil, eris.Wrapf(ErrConfig, "parameter %s is a %s in %s but a %s in %s",
				p.Name, p.Role, bolo.Name(), role, temp.Name())
		}
		r.common = append(r.common, p.Name)
		add(p.Name, p.Role, -1)
	}
	for _, p := range boloParams {
		if _, ok := tempRoles[p.Name]; !ok {
			add(p.Name, p.Role, -1)
		}
	}
	for _, p := range tempParams {
		if _, ok := boloRoles[p.Name]; !ok {
			add(p.Name, p.Role, -1)
		}
	}
	if withBaseline {
		r.baseline = make([]int, set.Len())
		for b, name := range set.Names() {
			r.baseline[b] = len(r.names)
			add(BaselineName(name), terms.RoleBaseline, b)
		}
	}

	r.bolo = r.positions(boloParams)
	r.temp = r.positions(tempParams)
	return r, nil
}

// Validated parameters of a term
func termParameters(term terms.Term, reserved map[string]bool) ([]terms.Parameter, error) {
	if term == nil {
		return nil, eris.Wrap(ErrConfig, "missing term")
	}
	ps := term.Parameters()
	if len(ps) == 0 {
		return nil, eris.Wrapf(ErrConfig, "term %s declares no parameters", term.Name())
	}
	seen := make(map[string]bool, len(ps))
	for _, p := range ps {
		switch {
		case p.Name == "":
			return nil, eris.Wrapf(ErrConfig, "term %s declares an unnamed parameter", term.Name())
		case seen[p.Name]:
			return nil, eris.Wrapf(ErrConfig, "term %s declares parameter %s twice", term.Name(), p.Name)
		case reserved[p.Name]:
			return nil, eris.Wrapf(ErrConfig, "parameter %s of term %s collides with a reserved name", p.Name, term.Name())
		case p.Role < terms.RoleNone || p.Role >= terms.RoleBaseline:
			return nil, eris.Wrapf(ErrConfig, "parameter %s of term %s has unsupported role %s", p.Name, term.Name(), p.Role)
		}
		seen[p.Name] = true
	}
	return ps, nil
}

func (r *registry) positions(ps []terms.Parameter) []int {
	idx := make([]int, len(ps))
	for i, p := range ps {
		idx[i] = r.index[p.Name]
	}
	return idx
}

// Number of fit parameters, excluding the goodness of fit slot
func (r *registry) size() int { return len(r.names) }

// Copies the entries of src at the given positions into dst
func gather(dst, src []float64, idx []int) {
	for i, j := range idx {
		dst[i] = src[j]
	}
}
