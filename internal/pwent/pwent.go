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

// Package pwent implements reading of the account database in passwd(5)
// format.
package pwent

import "strconv"

// Entry is a single account record.
type Entry struct {
	Name  string
	Pass  string
	UID   uint32
	GID   uint32
	Gecos string
	Dir   string
	Shell string
}

// String formats the entry back into a passwd(5) line.
func (e Entry) String() string {
	return e.Name + ":" + e.Pass + ":" +
		strconv.FormatUint(uint64(e.UID), 10) + ":" + strconv.FormatUint(uint64(e.GID), 10) + ":" +
		e.Gecos + ":" + e.Dir + ":" + e.Shell
}
