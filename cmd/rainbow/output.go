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

package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/mlnoga/rainbow/internal/batch"
	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Writes v as JSON or YAML, depending on the output format
func writeValue(w io.Writer, v any) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(v), "write json")
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return eris.Wrap(err, "write yaml")
		}
		return eris.Wrap(enc.Close(), "write yaml")
	default:
		return eris.Errorf("output format %q not supported here, use json or yaml", format)
	}
}

// Writes fit outcomes in the output format. CSV and table output have one
// row per light curve and one column per parameter.
func writeOutcomes(w io.Writer, names []string, outs []batch.Outcome) error {
	switch format {
	case "csv":
		cw := csv.NewWriter(w)
		if err := cw.WriteAll(outcomeRows(names, outs)); err != nil {
			return eris.Wrap(err, "write csv")
		}
		return nil
	case "table":
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		for _, row := range outcomeRows(names, outs) {
			fmt.Fprintln(tw, strings.Join(row, "\t"))
		}
		return eris.Wrap(tw.Flush(), "write table")
	default:
		return writeValue(w, outs)
	}
}

func outcomeRows(names []string, outs []batch.Outcome) [][]string {
	header := append([]string{"id", "n", "status"}, names...)
	header = append(header, "peak_time", "peak_bolometric_flux", "peak_temperature", "color", "error")
	rows := [][]string{header}
	for _, o := range outs {
		row := []string{o.ID, strconv.Itoa(o.N)}
		if o.Result != nil {
			row = append(row, outcomeStatus(o))
			for _, p := range o.Result.Vector() {
				row = append(row, formatFloat(p))
			}
		} else {
			row = append(row, "failed")
			for range names {
				row = append(row, "")
			}
		}
		if o.Peak != nil {
			row = append(row, formatFloat(o.Peak.Time), formatFloat(o.Peak.BolometricFlux), formatFloat(o.Peak.Temperature))
		} else {
			row = append(row, "", "", "")
		}
		row = append(row, o.Color, o.Error)
		rows = append(rows, row)
	}
	return rows
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 8, 64)
}

func outcomeStatus(o batch.Outcome) string {
	if o.Filled {
		return "filled"
	}
	return "ok"
}
