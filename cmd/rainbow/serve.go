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
	"os/signal"
	"syscall"

	"github.com/mlnoga/rainbow/internal/rest"
	"github.com/spf13/cobra"
)

var serveOpts struct {
	addr   string
	chroot string
	setuid int
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve fits over HTTP",
	Long: `Starts the REST server with routes under /api/v1 and Prometheus metrics at
/metrics. Stops gracefully on SIGINT or SIGTERM.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		f, err := cfg.Fitter(logger)
		if err != nil {
			return err
		}
		if err := rest.MakeSandbox(serveOpts.chroot, serveOpts.setuid, logger); err != nil {
			return err
		}
		addr := serveOpts.addr
		if addr == "" {
			addr = cfg.Server.Addr
		}
		srv := rest.New(f, cfg.FitOptions(), threads(), rest.NewMetrics(), logger)
		return srv.Serve(ctx, addr)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveOpts.addr, "addr", "", "listen address, overrides server.addr")
	serveCmd.Flags().StringVar(&serveOpts.chroot, "chroot", "", "change the filesystem root to `dir` before serving, requires root")
	serveCmd.Flags().IntVar(&serveOpts.setuid, "setuid", -1, "switch to user `id` before serving, -1 keeps the current user")
	rootCmd.AddCommand(serveCmd)
}
