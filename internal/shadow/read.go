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

package shadow

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var (
	ErrNoSuchUser    = errors.New("shadow: user entry is not present in database")
	ErrWrongPassword = errors.New("shadow: wrong password")
)

// DefaultPath is the location of the system shadow database.
const DefaultPath = "/etc/shadow"

// Read reads shadow entries from r until EOF.
//
// Empty lines and lines starting with '#' are skipped. Malformed lines
// abort reading, entries parsed before them are returned along with the
// error.
func Read(r io.Reader) ([]Entry, error) {
	scnr := bufio.NewScanner(r)

	var (
		res    []Entry
		lineNo int
	)
	for scnr.Scan() {
		lineNo++
		line := scnr.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		ent, err := ParseEntry(line)
		if err != nil {
			return res, fmt.Errorf("shadow: line %d: %w", lineNo, err)
		}

		res = append(res, *ent)
	}
	if err := scnr.Err(); err != nil {
		return res, err
	}
	return res, nil
}

// ParseEntry parses a single shadow(5) line.
func ParseEntry(line string) (*Entry, error) {
	parts := strings.Split(line, ":")
	if len(parts) != 9 {
		return nil, errors.New("read: malformed entry")
	}

	res := &Entry{
		Name: parts[0],
		Pass: parts[1],
	}

	for i, value := range [...]*int{
		&res.LastChange, &res.MinPassAge, &res.MaxPassAge,
		&res.WarnPeriod, &res.InactivityPeriod, &res.AcctExpiry, &res.Flags,
	} {
		if parts[2+i] == "" {
			*value = -1
		} else {
			var err error
			*value, err = strconv.Atoi(parts[2+i])
			if err != nil {
				return nil, fmt.Errorf("read: invalid value for field %d", 2+i)
			}
		}
	}

	return res, nil
}

// Find scans r for the first entry named name.
func Find(r io.Reader, name string) (*Entry, error) {
	scnr := bufio.NewScanner(r)
	for scnr.Scan() {
		line := scnr.Text()
		if !strings.HasPrefix(line, name+":") {
			continue
		}
		return ParseEntry(line)
	}
	if err := scnr.Err(); err != nil {
		return nil, err
	}
	return nil, ErrNoSuchUser
}
