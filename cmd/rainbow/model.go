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
	"fmt"
	"text/tabwriter"

	"github.com/jszwec/csvutil"
	"github.com/mlnoga/rainbow/internal/color"
	"github.com/mlnoga/rainbow/internal/rainbow"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/floats"
)

var (
	params     []float64
	modelTMin  float64
	modelTMax  float64
	modelN     int
	modelBands []string
)

// Model flux of one band at one time
type modelPoint struct {
	T    float64 `csv:"t" json:"t" yaml:"t"`
	Band string  `csv:"band" json:"band" yaml:"band"`
	Flux float64 `csv:"flux" json:"flux" yaml:"flux"`
}

type peakDetail struct {
	rainbow.Peak `yaml:",inline"`
	Color        string `json:"color" yaml:"color"`
}

var modelCmd = &cobra.Command{
	Use:   "model",
	Short: "Evaluate the model on a time grid",
	Long: `Evaluates the model with the given parameters, in parameter order, at n
evenly spaced times from tmin to tmax in every requested band.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		f, err := cfg.Fitter(logger)
		if err != nil {
			return err
		}
		points, err := modelGrid(f, params, modelTMin, modelTMax, modelN, modelBands)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		switch format {
		case "csv":
			b, err := csvutil.Marshal(points)
			if err != nil {
				return eris.Wrap(err, "write csv")
			}
			_, err = w.Write(b)
			return err
		case "table":
			tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "T\tBAND\tFLUX")
			for _, p := range points {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", formatFloat(p.T), p.Band, formatFloat(p.Flux))
			}
			return eris.Wrap(tw.Flush(), "write table")
		default:
			return writeValue(w, points)
		}
	},
}

var peakCmd = &cobra.Command{
	Use:   "peak",
	Short: "Time, bolometric flux, temperature and colour at maximum light",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		f, err := cfg.Fitter(logger)
		if err != nil {
			return err
		}
		peak, err := f.Peak(params)
		if err != nil {
			return err
		}
		return writeValue(cmd.OutOrStdout(), peakDetail{Peak: *peak, Color: color.Hex(peak.Temperature)})
	},
}

func init() {
	for _, c := range []*cobra.Command{modelCmd, peakCmd} {
		c.Flags().Float64SliceVarP(&params, "params", "p", nil, "comma-separated parameter values in parameter order")
		c.MarkFlagRequired("params") //nolint:errcheck
	}
	modelCmd.Flags().Float64Var(&modelTMin, "tmin", 0, "first time of the grid")
	modelCmd.Flags().Float64Var(&modelTMax, "tmax", 100, "last time of the grid")
	modelCmd.Flags().IntVar(&modelN, "n", 101, "number of grid times")
	modelCmd.Flags().StringSliceVar(&modelBands, "bands", nil, "bands to evaluate, defaults to all configured bands")
	rootCmd.AddCommand(modelCmd, peakCmd)
}

// Model fluxes on an even time grid, band by band
func modelGrid(f *rainbow.Fitter, params []float64, tmin, tmax float64, n int, bandNames []string) ([]modelPoint, error) {
	if n < 1 {
		return nil, eris.Errorf("grid of %d times", n)
	}
	if len(bandNames) == 0 {
		bandNames = f.Bands().Names()
	}
	grid := make([]float64, n)
	if n == 1 {
		grid[0] = tmin
	} else {
		floats.Span(grid, tmin, tmax)
	}

	ts := make([]float64, 0, n*len(bandNames))
	bs := make([]string, 0, n*len(bandNames))
	for _, b := range bandNames {
		ts = append(ts, grid...)
		for range grid {
			bs = append(bs, b)
		}
	}
	flux, err := f.Model(ts, bs, params)
	if err != nil {
		return nil, err
	}
	points := make([]modelPoint, len(ts))
	for i := range ts {
		points[i] = modelPoint{T: ts[i], Band: bs[i], Flux: flux[i]}
	}
	return points, nil
}
