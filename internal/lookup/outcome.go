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

package lookup

import (
	"errors"
	"syscall"

	"github.com/foxcpp/pwlookup/framework/exterrors"
	"github.com/foxcpp/pwlookup/internal/pwent"
	"github.com/foxcpp/pwlookup/internal/shadow"
)

type Status int

const (
	Found Status = iota
	NotFound
	PermissionDenied
	OtherError
)

func (s Status) String() string {
	switch s {
	case Found:
		return "found"
	case NotFound:
		return "not_found"
	case PermissionDenied:
		return "permission_denied"
	case OtherError:
		return "error"
	}
	return "unknown"
}

// Outcome describes the result of a single database request.
//
// Errno is the value a libc caller would have found in errno after the
// equivalent getpwnam/getspnam call: 0 on success, ENOENT for a missing
// entry, EACCES for denied access and so on.
type Outcome struct {
	Status Status
	Errno  syscall.Errno
	Err    error
}

// Classify maps an error returned by AccountDB or ShadowDB to an Outcome.
func Classify(err error) Outcome {
	if err == nil {
		return Outcome{Status: Found}
	}
	if errors.Is(err, pwent.ErrNoSuchUser) || errors.Is(err, shadow.ErrNoSuchUser) {
		return Outcome{Status: NotFound, Errno: syscall.ENOENT, Err: err}
	}

	errno := exterrors.Errno(err)
	switch {
	case errno == syscall.EACCES || errno == syscall.EPERM:
		return Outcome{Status: PermissionDenied, Errno: errno, Err: err}
	case errno != 0:
		return Outcome{Status: OtherError, Errno: errno, Err: err}
	case exterrors.IsTemporary(err):
		return Outcome{Status: OtherError, Errno: syscall.EAGAIN, Err: err}
	}
	return Outcome{Status: OtherError, Errno: syscall.EIO, Err: err}
}
