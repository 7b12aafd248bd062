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

package ldapdb

import (
	"context"
	"errors"
	"io"
	"net"
	"syscall"
	"testing"
	"time"

	"github.com/foxcpp/pwlookup/framework/exterrors"
	"github.com/foxcpp/pwlookup/internal/testutils"
	"github.com/go-ldap/ldap/v3"
)

func TestExpandFilter(t *testing.T) {
	check := func(name, want string) {
		t.Helper()
		if got := expandFilter(DefaultAccountFilter, name); got != want {
			t.Errorf("expandFilter(%q) = %q, want %q", name, got, want)
		}
	}

	check("alice", "(&(objectClass=posixAccount)(uid=alice))")
	check("*)(uid=*", `(&(objectClass=posixAccount)(uid=\2a\29\28uid=\2a))`)

	if got := wildcardFilter(DefaultShadowFilter); got != "(&(objectClass=shadowAccount)(uid=*))" {
		t.Errorf("unexpected wildcard filter: %s", got)
	}
}

func TestAccountFromLDAP(t *testing.T) {
	ent, err := accountFromLDAP(ldap.NewEntry("uid=alice,ou=people,dc=example,dc=org", map[string][]string{
		"uid":           {"alice"},
		"uidNumber":     {"1001"},
		"gidNumber":     {"100"},
		"cn":            {"Alice Liddell"},
		"homeDirectory": {"/home/alice"},
		"loginShell":    {"/bin/zsh"},
	}))
	if err != nil {
		t.Fatal(err)
	}
	if ent.Name != "alice" || ent.UID != 1001 || ent.GID != 100 || ent.Dir != "/home/alice" || ent.Gecos != "Alice Liddell" {
		t.Errorf("unexpected entry: %+v", ent)
	}

	_, err = accountFromLDAP(ldap.NewEntry("uid=bob,dc=example,dc=org", map[string][]string{
		"uid":       {"bob"},
		"gidNumber": {"100"},
	}))
	if err == nil {
		t.Error("expected failure for entry without uidNumber")
	}
}

func TestShadowFromLDAP(t *testing.T) {
	ent, err := shadowFromLDAP(ldap.NewEntry("uid=alice,dc=example,dc=org", map[string][]string{
		"uid":              {"alice"},
		"userPassword":     {"{SSHA}abcdef", "{crypt}$6$salt$hash"},
		"shadowLastChange": {"19000"},
		"shadowMax":        {"99999"},
	}))
	if err != nil {
		t.Fatal(err)
	}
	if ent.Pass != "$6$salt$hash" || ent.LastChange != 19000 || ent.MaxPassAge != 99999 || ent.MinPassAge != -1 || ent.AcctExpiry != -1 {
		t.Errorf("unexpected entry: %+v", ent)
	}

	ent, err = shadowFromLDAP(ldap.NewEntry("uid=bob,dc=example,dc=org", map[string][]string{
		"uid":          {"bob"},
		"userPassword": {"{SSHA}abcdef"},
	}))
	if err != nil {
		t.Fatal(err)
	}
	if ent.Pass != "*" {
		t.Errorf("non-crypt password must be masked, got %q", ent.Pass)
	}

	_, err = shadowFromLDAP(ldap.NewEntry("uid=carol,dc=example,dc=org", map[string][]string{
		"uid": {"carol"},
	}))
	if exterrors.Errno(err) != syscall.EACCES {
		t.Errorf("expected EACCES for hidden userPassword, got %v", err)
	}

	_, err = shadowFromLDAP(ldap.NewEntry("uid=dave,dc=example,dc=org", map[string][]string{
		"uid":          {"dave"},
		"userPassword": {"{CRYPT}x"},
		"shadowMin":    {"soon"},
	}))
	if err == nil {
		t.Error("expected failure for non-numeric shadowMin")
	}
}

func TestClassifyErr(t *testing.T) {
	denied := ldap.NewError(ldap.LDAPResultInsufficientAccessRights, errors.New("denied"))
	if exterrors.Errno(classifyErr(denied)) != syscall.EACCES {
		t.Error("insufficient access rights must map to EACCES")
	}

	busy := ldap.NewError(ldap.LDAPResultBusy, errors.New("busy"))
	if err := classifyErr(busy); !exterrors.IsTemporary(err) || exterrors.Errno(err) != syscall.EAGAIN {
		t.Errorf("busy must be temporary EAGAIN, got %v", err)
	}

	other := ldap.NewError(ldap.LDAPResultOperationsError, errors.New("other"))
	if exterrors.Errno(classifyErr(other)) != 0 {
		t.Error("unrelated errors must not get an errno")
	}
}

func TestDialConfig(t *testing.T) {
	l := testutils.Logger(t, "ldapdb")
	if _, err := Dial(Config{BaseDN: "dc=example,dc=org"}, l); err == nil {
		t.Error("expected failure without URLs")
	}
	if _, err := Dial(Config{URLs: []string{"ldap://127.0.0.1:1"}}, l); err == nil {
		t.Error("expected failure without base DN")
	}

	_, err := Dial(Config{URLs: []string{"ldap://127.0.0.1:1"}, BaseDN: "dc=example,dc=org"}, l)
	if exterrors.Errno(err) != syscall.EHOSTUNREACH {
		t.Errorf("expected EHOSTUNREACH for unreachable servers, got %v", err)
	}
}

// silentDB returns a DB connected to a server that never answers.
func silentDB(t *testing.T) *DB {
	t.Helper()

	client, server := net.Pipe()
	go io.Copy(io.Discard, server) //nolint:errcheck
	t.Cleanup(func() { server.Close() })

	conn := ldap.NewConn(client, false)
	conn.Start()

	db := &DB{
		cfg: Config{
			BaseDN:        "dc=example,dc=org",
			AccountFilter: DefaultAccountFilter,
			ShadowFilter:  DefaultShadowFilter,
		},
		conn: conn,
		log:  testutils.Logger(t, "ldapdb"),
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestLookupHonoursContext(t *testing.T) {
	db := silentDB(t)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := db.Accounts().LookupName(ctx, "alice")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if exterrors.Errno(err) != syscall.EAGAIN || !exterrors.IsTemporary(err) {
		t.Errorf("expected temporary EAGAIN error, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("lookup was not interrupted in time: %v", elapsed)
	}

	// Already cancelled context does not reach the server.
	ctx, cancel = context.WithCancel(context.Background())
	cancel()
	if _, err := db.Shadow().All(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected cancellation error, got %v", err)
	}
}
