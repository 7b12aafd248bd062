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
	"context"
	"fmt"
	"os"
)

// FileDB is a shadow database stored in a shadow(5) formatted file.
//
// The file is opened anew for each request so the permission check happens
// at lookup time, the way getspnam does it.
type FileDB struct {
	Path string
}

// OpenFile returns a FileDB for path. It does not touch the file.
func OpenFile(path string) *FileDB {
	if path == "" {
		path = DefaultPath
	}
	return &FileDB{Path: path}
}

func (db *FileDB) LookupName(_ context.Context, name string) (*Entry, error) {
	f, err := os.Open(db.Path)
	if err != nil {
		return nil, fmt.Errorf("shadow: %w", err)
	}
	defer f.Close()

	return Find(f, name)
}

func (db *FileDB) All(_ context.Context) ([]Entry, error) {
	f, err := os.Open(db.Path)
	if err != nil {
		return nil, fmt.Errorf("shadow: %w", err)
	}
	defer f.Close()

	return Read(f)
}

func (db *FileDB) Close() error {
	return nil
}
