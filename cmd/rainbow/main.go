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
	"os"
	"runtime"

	"github.com/mlnoga/rainbow/internal/config"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const version = "0.1.0"

var (
	cfg        *config.Config
	logger     = zap.NewNop()
	configFile string
	format     string
)

var rootCmd = &cobra.Command{
	Use:   "rainbow",
	Short: "Multi-band blackbody light curve fitting",
	Long: `Fits multi-band light curves of transients with a time-varying blackbody:
a bolometric flux term times the Planck spectrum of a temperature term,
plus optional per-band baselines.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(configFile)
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		cfg = c

		l, err := config.InitLogger(cfg.Log)
		if err != nil {
			return eris.Wrap(err, "init logger")
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "read configuration from `file` instead of ./rainbow.yaml")
	rootCmd.PersistentFlags().StringVarP(&format, "format", "f", "json", "output format, one of json, yaml, csv, table")
}

// Number of concurrent fits, from the configuration or the CPU count
func threads() int {
	if cfg.Batch.Threads > 0 {
		return cfg.Batch.Threads
	}
	return runtime.NumCPU()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
