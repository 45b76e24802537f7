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

	"github.com/mlnoga/rainbow/internal/lightcurve"
	"github.com/spf13/cobra"
)

var simOpts struct {
	id    string
	count int
	n     int
	tmin  float64
	tmax  float64
	snr   float64
	seed  uint64
	bands []string
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Simulate noisy light curves from the model",
	Long: `Draws observation times uniformly in [tmin, tmax] and bands uniformly from
the configured set, evaluates the model with the given parameters and adds
Gaussian noise. Use --format csv to obtain input for the fit command.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		f, err := cfg.Fitter(logger)
		if err != nil {
			return err
		}
		bands := simOpts.bands
		if len(bands) == 0 {
			bands = f.Bands().Names()
		}
		lcs := make([]*lightcurve.LightCurve, 0, simOpts.count)
		for i := 0; i < simOpts.count; i++ {
			id := simOpts.id
			if simOpts.count > 1 {
				id = fmt.Sprintf("%s%d", simOpts.id, i)
			}
			lc, err := lightcurve.Simulate(f.Model, params, lightcurve.SimulateOptions{
				ID:    id,
				N:     simOpts.n,
				TMin:  simOpts.tmin,
				TMax:  simOpts.tmax,
				Bands: bands,
				SNR:   simOpts.snr,
				Seed:  simOpts.seed + uint64(i),
			})
			if err != nil {
				return err
			}
			lcs = append(lcs, lc)
		}
		if format == "csv" {
			return lightcurve.WriteCSV(cmd.OutOrStdout(), lcs)
		}
		return writeValue(cmd.OutOrStdout(), lcs)
	},
}

func init() {
	fl := simulateCmd.Flags()
	fl.Float64SliceVarP(&params, "params", "p", nil, "comma-separated parameter values in parameter order")
	simulateCmd.MarkFlagRequired("params") //nolint:errcheck
	fl.StringVar(&simOpts.id, "id", "sim", "object id, suffixed with a counter for several light curves")
	fl.IntVar(&simOpts.count, "count", 1, "number of light curves")
	fl.IntVar(&simOpts.n, "n", 200, "observations per light curve")
	fl.Float64Var(&simOpts.tmin, "tmin", 0, "earliest observation time")
	fl.Float64Var(&simOpts.tmax, "tmax", 100, "latest observation time")
	fl.Float64Var(&simOpts.snr, "snr", 20, "signal to noise ratio of the faintest observation")
	fl.Uint64Var(&simOpts.seed, "seed", 1, "random seed")
	fl.StringSliceVar(&simOpts.bands, "bands", nil, "bands to observe, defaults to all configured bands")
	rootCmd.AddCommand(simulateCmd)
}
