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

package lightcurve

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"io"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
)

// Reads observations from CSV with a header row naming the columns
// t, flux, sigma, band and optionally id. Rows are grouped by id.
func ReadCSV(r io.Reader) ([]*LightCurve, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.TrimLeadingSpace = true
	dec, err := csvutil.NewDecoder(cr)
	if err != nil {
		return nil, eris.Wrap(err, "lightcurve: reading csv header")
	}
	for _, col := range []string{"t", "flux", "sigma", "band"} {
		if !hasColumn(dec.Header(), col) {
			return nil, eris.Wrapf(ErrInvalid, "csv header %v lacks column %q", dec.Header(), col)
		}
	}

	var obs []Observation
	for {
		var o Observation
		if err := dec.Decode(&o); err == io.EOF {
			break
		} else if err != nil {
			return nil, eris.Wrap(err, "lightcurve: decoding csv")
		}
		obs = append(obs, o)
	}
	if len(obs) == 0 {
		return nil, eris.Wrap(ErrInvalid, "csv contains no observations")
	}
	return Group(obs), nil
}

func hasColumn(header []string, col string) bool {
	for _, h := range header {
		if h == col {
			return true
		}
	}
	return false
}

// Writes light curves as CSV observations with a header row
func WriteCSV(w io.Writer, lcs []*LightCurve) error {
	data, err := csvutil.Marshal(Flatten(lcs))
	if err != nil {
		return eris.Wrap(err, "lightcurve: encoding csv")
	}
	if _, err := w.Write(data); err != nil {
		return eris.Wrap(err, "lightcurve: writing csv")
	}
	return nil
}

// Reads a JSON light curve object, or an array of them
func ReadJSON(r io.Reader) ([]*LightCurve, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "lightcurve: reading json")
	}
	data = bytes.TrimSpace(data)
	var lcs []*LightCurve
	if len(data) > 0 && data[0] == '[' {
		err = json.Unmarshal(data, &lcs)
	} else {
		var lc LightCurve
		err = json.Unmarshal(data, &lc)
		lcs = []*LightCurve{&lc}
	}
	if err != nil {
		return nil, eris.Wrap(err, "lightcurve: decoding json")
	}
	for _, lc := range lcs {
		if err := lc.Validate(); err != nil {
			return nil, err
		}
	}
	return lcs, nil
}
