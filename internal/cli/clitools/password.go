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
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

const maxPasswordLen = 512

var ErrPromptRejected = errors.New("ReadPassword: prompt rejected")

func readPass(tty io.Reader, output []byte) ([]byte, error) {
	cursor := output[0:1]
	readen := 0
	for {
		n, err := tty.Read(cursor)
		if err != nil {
			if errors.Is(err, io.EOF) && readen != 0 {
				break
			}
			return nil, errors.New("ReadPassword: " + err.Error())
		}
		if n != 1 {
			return nil, errors.New("ReadPassword: invalid read size when not in canonical mode")
		}
		if cursor[0] == '\n' || cursor[0] == '\r' {
			break
		}
		// Esc or Ctrl+D or Ctrl+C.
		if cursor[0] == '\x1b' || cursor[0] == '\x04' || cursor[0] == '\x03' {
			return nil, ErrPromptRejected
		}
		if cursor[0] == '\x7F' /* DEL */ {
			if readen != 0 {
				readen--
				cursor = output[readen : readen+1]
			}
			continue
		}

		if readen == cap(output)-1 {
			return nil, errors.New("ReadPassword: too long password")
		}

		readen++
		cursor = output[readen : readen+1]
	}

	return output[0:readen], nil
}

// ReadPassword reads a single line from in.
//
// If in is a terminal, echo is disabled while reading and the prompt is
// written to promptOut. Otherwise the line is read as is and no prompt is
// shown.
func ReadPassword(in io.Reader, promptOut io.Writer, prompt string) (string, error) {
	if f, ok := in.(*os.File); ok {
		restore, err := rawMode(f)
		if err == nil {
			// There is no meaningful way to handle error here.
			//nolint:errcheck
			defer restore()

			fmt.Fprintf(promptOut, "%s: ", prompt)
			buf, err := readPass(f, make([]byte, maxPasswordLen))
			fmt.Fprintln(promptOut)
			if err != nil {
				return "", err
			}
			return string(buf), nil
		}
	}

	scnr := bufio.NewScanner(in)
	if !scnr.Scan() {
		if err := scnr.Err(); err != nil {
			return "", err
		}
		return "", io.ErrUnexpectedEOF
	}
	return strings.TrimSuffix(scnr.Text(), "\r"), nil
}
