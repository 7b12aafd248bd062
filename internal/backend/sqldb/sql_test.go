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

package sqldb

import (
	"context"
	"errors"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/foxcpp/pwlookup/framework/exterrors"
	"github.com/foxcpp/pwlookup/internal/pwent"
	"github.com/foxcpp/pwlookup/internal/shadow"
	"github.com/foxcpp/pwlookup/internal/testutils"
	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(context.Background(), Config{
		DSN: filepath.Join(testutils.Dir(t), "nss.db"),
		Init: []string{
			"CREATE TABLE passwd (name TEXT PRIMARY KEY, passwd TEXT, uid INTEGER, gid INTEGER, gecos TEXT, dir TEXT, shell TEXT)",
			"CREATE TABLE shadow (name TEXT PRIMARY KEY, passwd TEXT, last_change INTEGER, min_days INTEGER, max_days INTEGER, warn_days INTEGER, inactive_days INTEGER, expire_date INTEGER, flag INTEGER)",
			"INSERT INTO passwd VALUES ('root', 'x', 0, 0, 'root', '/root', '/bin/sh')",
			"INSERT INTO passwd VALUES ('alice', NULL, 1001, 1001, NULL, '/home/alice', '/bin/zsh')",
			"INSERT INTO shadow VALUES ('root', '$6$x$y', 19000, 0, 99999, 7, NULL, NULL, NULL)",
		},
	})
	if err != nil {
		t.Fatal("Open failed:", err)
	}
	t.Cleanup(func() {
		db.Close()
	})
	return db
}

func TestAccounts(t *testing.T) {
	accounts := openTestDB(t).Accounts()
	ctx := context.Background()

	ent, err := accounts.LookupName(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if *ent != (pwent.Entry{Name: "alice", Pass: "x", UID: 1001, GID: 1001, Dir: "/home/alice", Shell: "/bin/zsh"}) {
		t.Errorf("unexpected entry: %+v", ent)
	}

	if _, err := accounts.LookupName(ctx, "mallory"); !errors.Is(err, pwent.ErrNoSuchUser) {
		t.Errorf("expected ErrNoSuchUser, got %v", err)
	}

	all, err := accounts.All(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 || all[0].Name != "root" || all[1].Name != "alice" {
		t.Errorf("unexpected entries: %+v", all)
	}
}

func TestShadow(t *testing.T) {
	db := openTestDB(t)
	shadows := db.Shadow()
	ctx := context.Background()

	ent, err := shadows.LookupName(ctx, "root")
	if err != nil {
		t.Fatal(err)
	}
	want := shadow.Entry{
		Name: "root", Pass: "$6$x$y", LastChange: 19000, MinPassAge: 0, MaxPassAge: 99999,
		WarnPeriod: 7, InactivityPeriod: -1, AcctExpiry: -1, Flags: -1,
	}
	if *ent != want {
		t.Errorf("wrong result\n want %+v\n got %+v", want, *ent)
	}

	if _, err := shadows.LookupName(ctx, "alice"); !errors.Is(err, shadow.ErrNoSuchUser) {
		t.Errorf("expected ErrNoSuchUser, got %v", err)
	}

	all, err := shadows.All(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 {
		t.Errorf("unexpected entries: %+v", all)
	}

	// Both views share the handle, closing twice is fine.
	if err := shadows.Close(); err != nil {
		t.Fatal(err)
	}
	if err := db.Accounts().Close(); err != nil {
		t.Error("second Close failed:", err)
	}
}

func TestOpenErrors(t *testing.T) {
	ctx := context.Background()
	if _, err := Open(ctx, Config{}); err == nil {
		t.Error("expected failure without DSN")
	}
	if _, err := Open(ctx, Config{Driver: "no-such-driver", DSN: "x"}); err == nil {
		t.Error("expected failure for unknown driver")
	}

	// Default queries reference tables that do not exist.
	if _, err := Open(ctx, Config{DSN: filepath.Join(testutils.Dir(t), "empty.db")}); err == nil {
		t.Error("expected failure to prepare queries")
	}
}

func TestClassifyErr(t *testing.T) {
	check := func(err error, want syscall.Errno) {
		t.Helper()
		if got := exterrors.Errno(classifyErr(err)); got != want {
			t.Errorf("errno for %v = %d, want %d", err, got, want)
		}
	}

	check(&pq.Error{Code: "42501", Message: "permission denied for table shadow"}, syscall.EACCES)
	check(&pq.Error{Code: "42P01", Message: "relation does not exist"}, 0)
	check(&mysql.MySQLError{Number: 1142, Message: "SELECT command denied"}, syscall.EACCES)
	check(&mysql.MySQLError{Number: 1064, Message: "syntax error"}, 0)
	check(errors.New("other"), 0)
}
