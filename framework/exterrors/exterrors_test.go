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
	"fmt"
	"os"
	"syscall"
	"testing"
)

func TestErrno(t *testing.T) {
	check := func(err error, want syscall.Errno) {
		t.Helper()
		if got := Errno(err); got != want {
			t.Errorf("Errno(%v) = %d, want %d", err, got, want)
		}
	}

	check(nil, 0)
	check(errors.New("plain"), 0)
	check(&os.PathError{Op: "open", Path: "/etc/shadow", Err: syscall.EACCES}, syscall.EACCES)
	check(fmt.Errorf("shadow: %w", &os.PathError{Op: "open", Path: "/etc/shadow", Err: syscall.ENOENT}), syscall.ENOENT)
	check(WithErrno(errors.New("timeout"), syscall.EAGAIN), syscall.EAGAIN)
	check(WithErrno(&os.PathError{Op: "open", Path: "x", Err: syscall.EACCES}, syscall.EIO), syscall.EIO)
}

func TestFields(t *testing.T) {
	inner := WithFields(errors.New("inner"), map[string]interface{}{"a": 1, "b": 2})
	outer := WithFields(fmt.Errorf("outer: %w", inner), map[string]interface{}{"a": 3})

	fields := Fields(outer)
	if fields["a"] != 3 || fields["b"] != 2 {
		t.Errorf("unexpected fields: %v", fields)
	}
}

func TestIsTemporary(t *testing.T) {
	if IsTemporary(errors.New("x")) {
		t.Error("plain error is not temporary")
	}
	if !IsTemporary(fmt.Errorf("wrapped: %w", WithTemporary(errors.New("x"), true))) {
		t.Error("wrapped temporary error not detected")
	}
}
