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

	"github.com/mlnoga/rainbow/internal/bands"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

type bandInfo struct {
	Preset   string  `json:"preset" yaml:"preset"`
	Name     string  `json:"name" yaml:"name"`
	Angstrom float64 `json:"angstrom" yaml:"angstrom"`
	Nu       float64 `json:"nu" yaml:"nu"`
}

var bandsCmd = &cobra.Command{
	Use:   "bands [preset...]",
	Short: "List passband presets with wavelengths and frequencies",
	RunE: func(cmd *cobra.Command, args []string) error {
		names := args
		if len(names) == 0 {
			names = bands.PresetNames()
		}
		var infos []bandInfo
		for _, name := range names {
			set, err := bands.Preset(name)
			if err != nil {
				return err
			}
			for i := 0; i < set.Len(); i++ {
				b := set.Band(i)
				infos = append(infos, bandInfo{
					Preset:   name,
					Name:     b.Name,
					Angstrom: b.Angstrom(),
					Nu:       b.Nu,
				})
			}
		}
		if format != "table" {
			return writeValue(cmd.OutOrStdout(), infos)
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "PRESET\tBAND\tANGSTROM\tNU [HZ]")
		for _, b := range infos {
			fmt.Fprintf(tw, "%s\t%s\t%.1f\t%.4e\n", b.Preset, b.Name, b.Angstrom, b.Nu)
		}
		return eris.Wrap(tw.Flush(), "write table")
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "rainbow %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(bandsCmd, versionCmd)
}
