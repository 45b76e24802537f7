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
	"io"
	"strings"
	"text/tabwriter"

	"github.com/mlnoga/rainbow/internal/store"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var runsLimit int

type runDetail struct {
	store.Run `yaml:",inline"`
	Fits      []store.Fit `json:"fits" yaml:"fits"`
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect stored batch runs",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored runs, most recent first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		st, err := configuredStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		runs, err := st.ListRuns(cmd.Context(), runsLimit)
		if err != nil {
			return eris.Wrap(err, "runs list")
		}
		if format == "table" {
			return formatRunsList(cmd.OutOrStdout(), runs)
		}
		return writeValue(cmd.OutOrStdout(), runs)
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show a run and its fits",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := configuredStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		ctx := cmd.Context()
		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrapf(err, "runs show %s", args[0])
		}
		fits, err := st.ListFits(ctx, run.ID)
		if err != nil {
			return err
		}
		return writeValue(cmd.OutOrStdout(), runDetail{Run: *run, Fits: fits})
	},
}

func init() {
	runsCmd.PersistentFlags().StringVar(&storePath, "store", "", "SQLite database `file`, overrides store.path")
	runsListCmd.Flags().IntVar(&runsLimit, "limit", 100, "maximum number of runs to list")
	runsCmd.AddCommand(runsListCmd, runsShowCmd)
	rootCmd.AddCommand(runsCmd)
}

func configuredStore(cmd *cobra.Command) (*store.SQLite, error) {
	path := storePath
	if path == "" {
		path = cfg.Store.Path
	}
	if path == "" {
		return nil, eris.New("no store configured, set --store or store.path")
	}
	return openStore(cmd, path)
}

func formatRunsList(w io.Writer, runs []store.Run) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tMODEL\tBANDS\tFITS\tFAILED")
	for _, r := range runs {
		model := r.Model.Bolometric + "/" + r.Model.Temperature
		if r.Model.WithBaseline {
			model += "+baseline"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\n",
			r.ID, r.CreatedAt.Format("2006-01-02 15:04"), model,
			strings.Join(r.Model.Bands, ","), r.Total, r.Failed)
	}
	return eris.Wrap(tw.Flush(), "write table")
}
