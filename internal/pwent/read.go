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

package pwent

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var ErrNoSuchUser = errors.New("pwent: user entry is not present in database")

// DefaultPath is the location of the system account database.
const DefaultPath = "/etc/passwd"

// ParseEntry parses a single passwd(5) line.
func ParseEntry(line string) (*Entry, error) {
	parts := strings.Split(line, ":")
	if len(parts) != 7 {
		return nil, errors.New("read: malformed entry")
	}
	if parts[0] == "" {
		return nil, errors.New("read: empty user name")
	}

	uid, err := strconv.ParseUint(parts[2], 10, 32)
	if err != nil {
		return nil, fmt.Errorf("read: invalid uid: %q", parts[2])
	}
	gid, err := strconv.ParseUint(parts[3], 10, 32)
	if err != nil {
		return nil, fmt.Errorf("read: invalid gid: %q", parts[3])
	}

	return &Entry{
		Name:  parts[0],
		Pass:  parts[1],
		UID:   uint32(uid),
		GID:   uint32(gid),
		Gecos: parts[4],
		Dir:   parts[5],
		Shell: parts[6],
	}, nil
}

// Scanner iterates over entries of a passwd(5) stream, like getpwent does.
//
// Comments, empty lines and NIS compat lines ('+' and '-' prefixed) are
// skipped. Malformed lines are skipped too and recorded in Skipped, unless
// Strict is set, in which case the first one stops the scan.
type Scanner struct {
	Strict bool

	scnr    *bufio.Scanner
	ent     Entry
	err     error
	lineNo  int
	skipped []error
}

func NewScanner(r io.Reader) *Scanner {
	return &Scanner{scnr: bufio.NewScanner(r)}
}

// Scan advances to the next entry. It returns false on EOF or error.
func (s *Scanner) Scan() bool {
	if s.err != nil {
		return false
	}
	for s.scnr.Scan() {
		s.lineNo++
		line := s.scnr.Text()
		if line == "" || line[0] == '#' || line[0] == '+' || line[0] == '-' {
			continue
		}

		ent, err := ParseEntry(line)
		if err != nil {
			err = fmt.Errorf("pwent: line %d: %w", s.lineNo, err)
			if s.Strict {
				s.err = err
				return false
			}
			s.skipped = append(s.skipped, err)
			continue
		}
		s.ent = *ent
		return true
	}
	s.err = s.scnr.Err()
	return false
}

func (s *Scanner) Entry() Entry {
	return s.ent
}

func (s *Scanner) Err() error {
	return s.err
}

// Skipped returns errors for the malformed lines passed over so far.
func (s *Scanner) Skipped() []error {
	return s.skipped
}

// Read reads all entries from r. Unlike Find, it fails on the first
// malformed line.
func Read(r io.Reader) ([]Entry, error) {
	scnr := NewScanner(r)
	scnr.Strict = true
	var res []Entry
	for scnr.Scan() {
		res = append(res, scnr.Entry())
	}
	return res, scnr.Err()
}

// Find returns the first entry named name.
//
// Malformed lines are skipped, the way getpwnam does it.
func Find(r io.Reader, name string) (*Entry, error) {
	scnr := NewScanner(r)
	for scnr.Scan() {
		if ent := scnr.Entry(); ent.Name == name {
			return &ent, nil
		}
	}
	if err := scnr.Err(); err != nil {
		return nil, err
	}
	return nil, ErrNoSuchUser
}
