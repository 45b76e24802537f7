//go:build unix

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

package rest

import (
	"os"
	"syscall"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Secures the serving process by changing the filesystem root (requires root)
// and then dropping to a user ID without elevated rights. An empty chroot and
// a negative setuid skip the respective step.
func MakeSandbox(chroot string, setuid int, log *zap.Logger) error {
	if len(chroot) > 0 {
		log.Info("changing filesystem root", zap.String("root", chroot))
		if err := syscall.Chroot(chroot); err != nil {
			return eris.Wrapf(err, "rest: chroot %s", chroot)
		}
		if err := os.Chdir("/"); err != nil {
			return eris.Wrapf(err, "rest: chdir into %s", chroot)
		}
	}
	if setuid >= 0 {
		log.Info("setting user id", zap.Int("uid", syscall.Getuid()), zap.Int("euid", syscall.Geteuid()), zap.Int("new", setuid))
		if err := syscall.Setuid(setuid); err != nil {
			return eris.Wrapf(err, "rest: setuid %d", setuid)
		}
	}
	return nil
}
