//go:build linux
// +build linux

/*
pwlookup - account and shadow database lookup diagnostic.
Copyright © 2019-2020 Max Mazurov <fox.cpp@disroot.org>, Maddy Mail Server contributors

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package clitools

import (
	"os"

	"golang.org/x/sys/unix"
)

// rawMode disables echo and canonical mode on tty and returns the function
// restoring the original flags. It fails if tty is not a terminal.
func rawMode(tty *os.File) (func() error, error) {
	fd := int(tty.Fd())
	termios, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return nil, err
	}
	orig := *termios

	termios.Lflag &^= unix.ECHO | unix.ICANON | unix.ISIG
	termios.Iflag &^= unix.IXON
	termios.Iflag |= unix.IUTF8
	if err := unix.IoctlSetTermios(fd, unix.TCSETS, termios); err != nil {
		return nil, err
	}

	return func() error {
		return unix.IoctlSetTermios(fd, unix.TCSETS, &orig)
	}, nil
}
