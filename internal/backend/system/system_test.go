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

package system

import (
	"context"
	"errors"
	"os/user"
	"testing"

	"github.com/foxcpp/pwlookup/internal/pwent"
)

func TestLookupName(t *testing.T) {
	db := &DB{lookup: func(name string) (*user.User, error) {
		switch name {
		case "alice":
			return &user.User{Uid: "1001", Gid: "1001", Username: "alice", Name: "Alice", HomeDir: "/home/alice"}, nil
		case "broken":
			return &user.User{Uid: "S-1-5-21", Gid: "1", Username: "broken"}, nil
		case "failing":
			return nil, errors.New("nss unavailable")
		}
		return nil, user.UnknownUserError(name)
	}}
	defer db.Close()

	ent, err := db.LookupName(context.Background(), "alice")
	if err != nil {
		t.Fatal(err)
	}
	if ent.UID != 1001 || ent.GID != 1001 || ent.Dir != "/home/alice" || ent.Gecos != "Alice" {
		t.Errorf("unexpected entry: %+v", ent)
	}

	if _, err := db.LookupName(context.Background(), "mallory"); !errors.Is(err, pwent.ErrNoSuchUser) {
		t.Errorf("expected ErrNoSuchUser, got %v", err)
	}
	if _, err := db.LookupName(context.Background(), "broken"); err == nil || errors.Is(err, pwent.ErrNoSuchUser) {
		t.Errorf("expected parse failure, got %v", err)
	}
	if _, err := db.LookupName(context.Background(), "failing"); err == nil || errors.Is(err, pwent.ErrNoSuchUser) {
		t.Errorf("expected lookup failure, got %v", err)
	}
}

func TestCurrentUser(t *testing.T) {
	cur, err := user.Current()
	if err != nil {
		t.Skip("no current user:", err)
	}

	ent, err := New().LookupName(context.Background(), cur.Username)
	if err != nil {
		t.Skip("current user is not resolvable by name:", err)
	}
	if ent.Name != cur.Username || ent.Dir != cur.HomeDir {
		t.Errorf("entry does not match user.Current: %+v vs %+v", ent, cur)
	}
}
