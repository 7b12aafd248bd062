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

package testutils

import (
	"os"
	"path/filepath"
	"testing"
)

// Dir creates a temporary directory removed at the end of the test.
func Dir(t *testing.T) string {
	t.Helper()

	dir, err := os.MkdirTemp("", "pwlookup-tests-")
	if err != nil {
		t.Fatalf("can't create test dir: %v", err)
	}
	t.Cleanup(func() {
		os.RemoveAll(dir)
	})
	return dir
}

// WriteFile creates a file named name in a fresh Dir and returns its path.
func WriteFile(t *testing.T, name, contents string) string {
	t.Helper()

	path := filepath.Join(Dir(t), name)
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}
