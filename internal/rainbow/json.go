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
	"encoding/json"
	"math"
)

// Wire form of Result. JSON has no NaN or infinities, so those encode as null
// and decode as NaN.
type resultJSON struct {
	Names       []string   `json:"names"`
	Params      []*float64 `json:"params"`
	ReducedChi2 *float64   `json:"r_chi2"`
	Errors      []*float64 `json:"errors,omitempty"`
	Iterations  int        `json:"iterations"`
	Evaluations int        `json:"evaluations"`
	Status      string     `json:"status"`
}

func (r Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(resultJSON{
		Names:       r.Names,
		Params:      toNullable(r.Params),
		ReducedChi2: nullable(r.ReducedChi2),
		Errors:      toNullable(r.Errors),
		Iterations:  r.Iterations,
		Evaluations: r.Evaluations,
		Status:      r.Status,
	})
}

func (r *Result) UnmarshalJSON(data []byte) error {
	var w resultJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*r = Result{
		Names:       w.Names,
		Params:      fromNullable(w.Params),
		ReducedChi2: orNaN(w.ReducedChi2),
		Errors:      fromNullable(w.Errors),
		Iterations:  w.Iterations,
		Evaluations: w.Evaluations,
		Status:      w.Status,
	}
	return nil
}

func nullable(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func orNaN(p *float64) float64 {
	if p == nil {
		return math.NaN()
	}
	return *p
}

func toNullable(vs []float64) []*float64 {
	if vs == nil {
		return nil
	}
	res := make([]*float64, len(vs))
	for i, v := range vs {
		res[i] = nullable(v)
	}
	return res
}

func fromNullable(ps []*float64) []float64 {
	if ps == nil {
		return nil
	}
	res := make([]float64, len(ps))
	for i, p := range ps {
		res[i] = orNaN(p)
	}
	return res
}
