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
	"net/http"
	"net/http/httptest"
	"strconv"
	"syscall"
	"testing"
	"time"

	"github.com/foxcpp/pwlookup/framework/exterrors"
	"github.com/foxcpp/pwlookup/internal/pwent"
	"github.com/foxcpp/pwlookup/internal/shadow"
	"github.com/foxcpp/pwlookup/internal/testutils"
)

func testServer(t *testing.T, delay time.Duration) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/passwd", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-UID") == "" || r.Header.Get("X-PID") == "" || r.Header.Get("X-Request-ID") == "" {
			http.Error(w, "missing caller headers", http.StatusBadRequest)
			return
		}
		if r.Header.Get("X-PID") != strconv.Itoa(syscall.Getpid()) {
			http.Error(w, "wrong pid", http.StatusBadRequest)
			return
		}
		switch r.URL.Query().Get("name") {
		case "":
			w.Write([]byte(`[{"name":"root","passwd":"x","uid":0,"gid":0,"gecos":"root","dir":"/root","shell":"/bin/sh"},
				{"name":"alice","passwd":"x","uid":1001,"gid":1001,"gecos":"","dir":"/home/alice","shell":"/bin/sh"}]`))
		case "alice":
			w.Write([]byte(`{"name":"alice","passwd":"x","uid":1001,"gid":1001,"gecos":"","dir":"/home/alice","shell":"/bin/sh"}`))
		case "garbage":
			w.Write([]byte(`{"name":`))
		case "broken":
			http.Error(w, "database is down", http.StatusServiceUnavailable)
		case "slow":
			time.Sleep(delay)
			w.Write([]byte(`{}`))
		default:
			http.NotFound(w, r)
		}
	})
	mux.HandleFunc("/shadow", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("name") {
		case "alice":
			w.Write([]byte(`{"name":"alice","passwd":"$6$x$y","last_change":19000,"change_min_days":0,
				"change_max_days":99999,"change_warn_days":7,"change_inactive_days":-1,"expire_date":-1,"reserved":0}`))
		default:
			http.NotFound(w, r)
		}
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testClient(t *testing.T, endpoint string, timeout time.Duration, setuid bool) *Client {
	t.Helper()

	c, err := New(endpoint, timeout, testutils.Logger(t, "httpdb").Zap())
	if err != nil {
		t.Fatal(err)
	}
	c.shadowAllowed = func() bool { return setuid }
	return c
}

func TestNew(t *testing.T) {
	for _, endpoint := range []string{"", "ftp://example.org", "://"} {
		if _, err := New(endpoint, 0, nil); err == nil {
			t.Errorf("expected failure for %q", endpoint)
		}
	}
}

func TestAccountLookup(t *testing.T) {
	srv := testServer(t, 0)
	db := testClient(t, srv.URL+"/", time.Second, false).Accounts()
	defer db.Close()
	ctx := context.Background()

	ent, err := db.LookupName(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if *ent != (pwent.Entry{Name: "alice", Pass: "x", UID: 1001, GID: 1001, Dir: "/home/alice", Shell: "/bin/sh"}) {
		t.Errorf("unexpected entry: %+v", ent)
	}

	// Server errors are not distinguished from a missing entry.
	for _, name := range []string{"mallory", "garbage", "broken"} {
		_, err := db.LookupName(ctx, name)
		if !errors.Is(err, pwent.ErrNoSuchUser) {
			t.Errorf("%s: expected ErrNoSuchUser, got %v", name, err)
		}
		if exterrors.IsTemporary(err) {
			t.Errorf("%s: error must not be temporary", name)
		}
	}

	all, err := db.All(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 || all[1].Name != "alice" {
		t.Errorf("unexpected entries: %+v", all)
	}
}

func TestTimeout(t *testing.T) {
	srv := testServer(t, 500*time.Millisecond)
	db := testClient(t, srv.URL, 50*time.Millisecond, false).Accounts()

	_, err := db.LookupName(context.Background(), "slow")
	if !exterrors.IsTemporary(err) {
		t.Errorf("expected temporary error, got %v", err)
	}
	if exterrors.Errno(err) != syscall.EAGAIN {
		t.Errorf("expected EAGAIN, got %v", exterrors.Errno(err))
	}
}

func TestShadowLookup(t *testing.T) {
	srv := testServer(t, 0)
	ctx := context.Background()

	db := testClient(t, srv.URL, time.Second, true).Shadow()
	ent, err := db.LookupName(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if ent.Pass != "$6$x$y" || ent.MaxPassAge != 99999 || ent.AcctExpiry != -1 {
		t.Errorf("unexpected entry: %+v", ent)
	}
	if _, err := db.LookupName(ctx, "mallory"); !errors.Is(err, shadow.ErrNoSuchUser) {
		t.Errorf("expected ErrNoSuchUser, got %v", err)
	}

	// Without setuid bit the server is not even asked.
	db = testClient(t, srv.URL, time.Second, false).Shadow()
	if _, err := db.LookupName(ctx, "alice"); !errors.Is(err, shadow.ErrNoSuchUser) {
		t.Errorf("expected ErrNoSuchUser, got %v", err)
	}
	all, err := db.All(ctx)
	if err != nil || len(all) != 0 {
		t.Errorf("expected no entries, got %v, %v", all, err)
	}
}
