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

package httpdb

import (
	"context"
	"errors"

	"github.com/foxcpp/pwlookup/internal/pwent"
)

type passwdJSON struct {
	Name   string `json:"name"`
	Passwd string `json:"passwd"`
	UID    uint32 `json:"uid"`
	GID    uint32 `json:"gid"`
	Gecos  string `json:"gecos"`
	Dir    string `json:"dir"`
	Shell  string `json:"shell"`
}

func (p passwdJSON) entry() pwent.Entry {
	return pwent.Entry{
		Name:  p.Name,
		Pass:  p.Passwd,
		UID:   p.UID,
		GID:   p.GID,
		Gecos: p.Gecos,
		Dir:   p.Dir,
		Shell: p.Shell,
	}
}

type AccountDB struct {
	c *Client
}

func (db *AccountDB) LookupName(ctx context.Context, name string) (*pwent.Entry, error) {
	var p passwdJSON
	if err := db.c.get(ctx, "passwd", "name", name, &p); err != nil {
		if errors.Is(err, errNotFound) {
			return nil, pwent.ErrNoSuchUser
		}
		return nil, err
	}
	ent := p.entry()
	return &ent, nil
}

func (db *AccountDB) All(ctx context.Context) ([]pwent.Entry, error) {
	var list []passwdJSON
	if err := db.c.get(ctx, "passwd", "", "", &list); err != nil {
		if errors.Is(err, errNotFound) {
			return nil, nil
		}
		return nil, err
	}
	res := make([]pwent.Entry, 0, len(list))
	for _, p := range list {
		res = append(res, p.entry())
	}
	return res, nil
}

func (db *AccountDB) Close() error {
	return db.c.Close()
}
