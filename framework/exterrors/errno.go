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

package exterrors

import (
	"errors"
	"syscall"
)

type errnoErr struct {
	err   error
	errno syscall.Errno
}

func (e errnoErr) Error() string {
	return e.err.Error()
}

func (e errnoErr) Unwrap() error {
	return e.err
}

// WithErrno attaches the errno value that describes err the way libc would.
// Errno prefers it over any errno found deeper in the chain.
func WithErrno(err error, errno syscall.Errno) error {
	return errnoErr{err, errno}
}

// Errno returns the errno value associated with err, or 0.
//
// Values attached by WithErrno take precedence, then the first
// syscall.Errno in the chain (e.g. inside *os.PathError).
func Errno(err error) syscall.Errno {
	var attached errnoErr
	if errors.As(err, &attached) {
		return attached.errno
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno
	}
	return 0
}
