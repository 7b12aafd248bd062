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

// Package report renders lookup results as the human-readable text printed
// by pwlookup.
package report

import (
	"errors"
	"fmt"
	"io"

	"github.com/foxcpp/pwlookup/internal/lookup"
	"github.com/foxcpp/pwlookup/internal/shadow"
)

// Options enables output beyond the default report. The zero value
// produces the default report.
type Options struct {
	// Print account and password expiration state.
	Aging bool

	// If not nil, verify the password against the shadow entry.
	Password *string
}

// Write prints res to w:
//
//	testing getpwnam(<name>)...
//
//	name: <name>
//	uid: <uid>, gid: <gid>
//	dir: <dir>
//	shadow: <pass>              (or: shadow get failed: <errno>)
//
// Nothing but the banner is printed if there is no account entry, even if
// the shadow lookup failed.
func Write(w io.Writer, res lookup.Result, opts Options) error {
	ew := &errWriter{w: w}

	ew.printf("\ntesting getpwnam(%s)...\n\n", res.Name)
	if res.Account == nil {
		return ew.err
	}

	ew.printf("name: %s\n", res.Account.Name)
	ew.printf("uid: %d, gid: %d\n", res.Account.UID, res.Account.GID)
	ew.printf("dir: %s\n", res.Account.Dir)
	if res.Shadow == nil {
		ew.printf("shadow get failed: %d\n", int(res.ShadowOutcome.Errno))
		return ew.err
	}
	ew.printf("shadow: %s\n", res.Shadow.Pass)

	if opts.Aging {
		ew.printf("account expired: %v\n", !res.Shadow.IsAccountValid())
		ew.printf("password expired: %v\n", !res.Shadow.IsPasswordValid())
	}
	if opts.Password != nil {
		err := res.Shadow.VerifyPassword(*opts.Password)
		switch {
		case err == nil:
			ew.printf("password: ok\n")
		case errors.Is(err, shadow.ErrWrongPassword):
			ew.printf("password: mismatch\n")
		default:
			ew.printf("password: %v\n", err)
		}
	}

	return ew.err
}

// WriteAll prints a block for every result that has a shadow entry.
func WriteAll(w io.Writer, results []lookup.Result) error {
	ew := &errWriter{w: w}

	ew.printf("testing getpwent()...\n")
	for _, res := range results {
		if res.Account == nil || res.Shadow == nil {
			continue
		}
		ew.printf("name: %s\n", res.Account.Name)
		ew.printf(" - shadow: %s\n\n", res.Shadow.Pass)
	}
	return ew.err
}

// errWriter remembers the first write error and skips writes after it.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...interface{}) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}
