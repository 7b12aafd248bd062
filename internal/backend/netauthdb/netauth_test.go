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

package netauthdb

import (
	"context"
	"errors"
	"strings"
	"syscall"
	"testing"

	"github.com/foxcpp/pwlookup/framework/exterrors"
	"github.com/foxcpp/pwlookup/internal/pwent"
	"github.com/foxcpp/pwlookup/internal/shadow"
	"github.com/foxcpp/pwlookup/internal/testutils"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type fakeDirectory struct {
	entities map[string]entity
	groupMap map[string][]group
	err      error
}

func (f fakeDirectory) entity(_ context.Context, id string) (entity, error) {
	if f.err != nil {
		return entity{}, f.err
	}
	e, ok := f.entities[id]
	if !ok {
		return entity{}, status.Error(codes.NotFound, "no such entity")
	}
	return e, nil
}

func (f fakeDirectory) groups(_ context.Context, id string) ([]group, error) {
	return f.groupMap[id], nil
}

func TestLookupName(t *testing.T) {
	db := &DB{
		dir: fakeDirectory{
			entities: map[string]entity{
				"alice": {ID: "alice", Number: 1001, PrimaryGroup: "users", Home: "/home/alice", Shell: "/bin/sh"},
				"bob":   {ID: "bob", Number: 1002, PrimaryGroup: "ghosts", Home: "/home/bob"},
				"carol": {ID: "carol", Number: -1},
			},
			groupMap: map[string][]group{
				"alice": {{Name: "wheel", Number: 10}, {Name: "users", Number: 100}},
			},
		},
		log: testutils.Logger(t, "netauth"),
	}
	ctx := context.Background()

	ent, err := db.LookupName(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if *ent != (pwent.Entry{Name: "alice", Pass: "x", UID: 1001, GID: 100, Dir: "/home/alice", Shell: "/bin/sh"}) {
		t.Errorf("unexpected entry: %+v", ent)
	}

	ent, err = db.LookupName(ctx, "bob")
	if err != nil {
		t.Fatal(err)
	}
	if ent.GID != 0 {
		t.Errorf("unknown primary group must give gid 0, got %d", ent.GID)
	}

	if _, err := db.LookupName(ctx, "carol"); err == nil || !strings.Contains(err.Error(), "no number") {
		t.Errorf("expected missing number error, got %v", err)
	}
	if _, err := db.LookupName(ctx, "mallory"); !errors.Is(err, pwent.ErrNoSuchUser) {
		t.Errorf("expected ErrNoSuchUser, got %v", err)
	}
}

func TestLookupErrors(t *testing.T) {
	check := func(err error, errno syscall.Errno, temporary bool) {
		t.Helper()

		db := &DB{dir: fakeDirectory{err: err}, log: testutils.Logger(t, "netauth")}
		_, lookupErr := db.LookupName(context.Background(), "alice")
		if exterrors.Errno(lookupErr) != errno {
			t.Errorf("errno for %v = %d, want %d", err, exterrors.Errno(lookupErr), errno)
		}
		if exterrors.IsTemporary(lookupErr) != temporary {
			t.Errorf("temporary for %v = %v, want %v", err, exterrors.IsTemporary(lookupErr), temporary)
		}
	}

	check(status.Error(codes.PermissionDenied, "denied"), syscall.EACCES, false)
	check(status.Error(codes.Unavailable, "down"), syscall.EAGAIN, true)
	check(errors.New("other"), 0, false)
}

func TestShadow(t *testing.T) {
	db := &DB{dir: fakeDirectory{}, log: testutils.Logger(t, "netauth")}
	if _, err := db.Shadow().LookupName(context.Background(), "alice"); !errors.Is(err, shadow.ErrNoSuchUser) {
		t.Errorf("expected ErrNoSuchUser, got %v", err)
	}
}
