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
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mlnoga/rainbow/internal/batch"
	"github.com/mlnoga/rainbow/internal/lightcurve"
	"github.com/mlnoga/rainbow/internal/rainbow"
	"github.com/mlnoga/rainbow/internal/store"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	inputFormat string
	sorted      bool
	storePath   string
)

var fitCmd = &cobra.Command{
	Use:   "fit [file]",
	Short: "Fit light curves from a CSV or JSON file",
	Long: `Fits every light curve in the input, a CSV file with columns id, t, flux,
sigma and band, or a JSON light curve or array of light curves. Reads
standard input when no file or "-" is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, outs, err := fitInput(cmd, args)
		if err != nil {
			return err
		}
		return writeOutcomes(cmd.OutOrStdout(), f.Names(), outs)
	},
}

var batchCmd = &cobra.Command{
	Use:   "batch [file]",
	Short: "Fit light curves and store the outcomes as a run",
	Long: `Like fit, but additionally records the outcomes as a run in the SQLite
database given by --store or store.path.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := configuredStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		f, outs, err := fitInput(cmd, args)
		if err != nil {
			return err
		}
		run, err := st.CreateRun(ctx, store.ModelOf(f))
		if err != nil {
			return err
		}
		if err := st.SaveOutcomes(ctx, run.ID, outs); err != nil {
			return err
		}
		logger.Info("stored run", zap.String("run", run.ID), zap.Int("fits", len(outs)))
		return writeOutcomes(cmd.OutOrStdout(), f.Names(), outs)
	},
}

func init() {
	for _, c := range []*cobra.Command{fitCmd, batchCmd} {
		c.Flags().StringVar(&inputFormat, "input", "", "input format, csv or json. Defaults to the file extension, then csv")
		c.Flags().BoolVar(&sorted, "sorted", false, "observations are already sorted by time")
	}
	batchCmd.Flags().StringVar(&storePath, "store", "", "SQLite database `file`, overrides store.path")
	rootCmd.AddCommand(fitCmd, batchCmd)
}

// Reads the light curves named by args and fits them concurrently
func fitInput(cmd *cobra.Command, args []string) (*rainbow.Fitter, []batch.Outcome, error) {
	name := "-"
	if len(args) > 0 {
		name = args[0]
	}
	lcs, err := readLightCurves(cmd.InOrStdin(), name, inputFormat)
	if err != nil {
		return nil, nil, err
	}
	f, err := cfg.Fitter(logger)
	if err != nil {
		return nil, nil, err
	}
	opts := cfg.FitOptions()
	opts.Sorted = sorted
	outs, err := batch.FitAll(cmd.Context(), f, lcs, threads(), opts, logger)
	if err != nil {
		return nil, nil, err
	}
	return f, outs, nil
}

func readLightCurves(stdin io.Reader, name, inFormat string) ([]*lightcurve.LightCurve, error) {
	r := stdin
	if name != "-" {
		file, err := os.Open(name)
		if err != nil {
			return nil, eris.Wrapf(err, "open %s", name)
		}
		defer file.Close()
		r = file
	}
	if inFormat == "" {
		inFormat = "csv"
		if strings.EqualFold(filepath.Ext(name), ".json") {
			inFormat = "json"
		}
	}
	switch inFormat {
	case "csv":
		return lightcurve.ReadCSV(r)
	case "json":
		return lightcurve.ReadJSON(r)
	default:
		return nil, eris.Errorf("unknown input format %q", inFormat)
	}
}

func openStore(cmd *cobra.Command, path string) (*store.SQLite, error) {
	st, err := store.NewSQLite(path)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(cmd.Context()); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}
