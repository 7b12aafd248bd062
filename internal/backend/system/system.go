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

// Package system implements the account database on top of the system
// name service (os/user, which goes through NSS when built with cgo).
package system

import (
	"context"
	"errors"
	"fmt"
	"os/user"
	"strconv"

	"github.com/foxcpp/pwlookup/internal/pwent"
)

// DB is stateless, Close is a no-op.
type DB struct {
	lookup func(string) (*user.User, error)
}

func New() *DB {
	return &DB{lookup: user.Lookup}
}

func (db *DB) LookupName(_ context.Context, name string) (*pwent.Entry, error) {
	u, err := db.lookup(name)
	if err != nil {
		var unknown user.UnknownUserError
		if errors.As(err, &unknown) {
			return nil, pwent.ErrNoSuchUser
		}
		return nil, fmt.Errorf("system: %w", err)
	}
	return fromUser(u)
}

func fromUser(u *user.User) (*pwent.Entry, error) {
	uid, err := strconv.ParseUint(u.Uid, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("system: non-numeric uid %q for %s", u.Uid, u.Username)
	}
	gid, err := strconv.ParseUint(u.Gid, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("system: non-numeric gid %q for %s", u.Gid, u.Username)
	}
	return &pwent.Entry{
		Name:  u.Username,
		Pass:  "x",
		UID:   uint32(uid),
		GID:   uint32(gid),
		Gecos: u.Name,
		Dir:   u.HomeDir,
	}, nil
}

// All is not supported: os/user has no enumeration interface.
func (db *DB) All(context.Context) ([]pwent.Entry, error) {
	return nil, errors.New("system: enumeration is not supported, use the files backend")
}

func (db *DB) Close() error {
	return nil
}
