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

package pwlookup

import (
	"context"
	"fmt"
	"io"

	"github.com/foxcpp/pwlookup/framework/log"
	"github.com/foxcpp/pwlookup/internal/backend/httpdb"
	"github.com/foxcpp/pwlookup/internal/backend/ldapdb"
	"github.com/foxcpp/pwlookup/internal/backend/netauthdb"
	"github.com/foxcpp/pwlookup/internal/backend/sqldb"
	"github.com/foxcpp/pwlookup/internal/backend/system"
	"github.com/foxcpp/pwlookup/internal/cli/clitools"
	"github.com/foxcpp/pwlookup/internal/lookup"
	"github.com/foxcpp/pwlookup/internal/pwent"
	"github.com/foxcpp/pwlookup/internal/report"
	"github.com/foxcpp/pwlookup/internal/shadow"
)

// openDatabases opens the account and shadow databases selected by cfg.
//
// A database that cannot be opened is replaced with one failing every
// request, so the failure shows up in the report like a failed lookup would.
func openDatabases(ctx context.Context, cfg Config, l log.Logger) (lookup.AccountDB, lookup.ShadowDB) {
	failed := func(err error) (lookup.AccountDB, lookup.ShadowDB) {
		l.Error("failed to open database", err, "backend", cfg.Backend)
		return lookup.FailedAccountDB(err), lookup.FailedShadowDB(err)
	}

	switch cfg.Backend {
	case "files":
		accounts, err := pwent.OpenFile(cfg.PasswdFile)
		if err != nil {
			l.Error("failed to open database", err, "backend", cfg.Backend, "database", "passwd")
			return lookup.FailedAccountDB(err), shadow.OpenFile(cfg.ShadowFile)
		}
		return accounts, shadow.OpenFile(cfg.ShadowFile)
	case "system":
		return system.New(), shadow.OpenFile(cfg.ShadowFile)
	case "http":
		c, err := httpdb.New(cfg.Endpoint, cfg.RequestTimeout, l.Sublogger("http").Zap())
		if err != nil {
			return failed(err)
		}
		return c.Accounts(), c.Shadow()
	case "ldap":
		db, err := ldapdb.Dial(cfg.LDAP, l.Sublogger("ldap"))
		if err != nil {
			return failed(err)
		}
		return db.Accounts(), db.Shadow()
	case "sql":
		db, err := sqldb.Open(ctx, cfg.SQL)
		if err != nil {
			return failed(err)
		}
		return db.Accounts(), db.Shadow()
	case "netauth":
		db, err := netauthdb.New(cfg.NetAuthService, l.Sublogger("netauth"))
		if err != nil {
			return failed(err)
		}
		return db, db.Shadow()
	}
	return failed(fmt.Errorf("%w: %q", errUnknownBackend, cfg.Backend))
}

func closeDB(l log.Logger, name string, db io.Closer) {
	if err := db.Close(); err != nil {
		l.Error("close failed", err, "database", name)
	}
}

// Run performs the lookup described by cfg and writes the report to stdout.
//
// Lookup failures are part of the report. Failure to write the report is
// logged.
func Run(ctx context.Context, cfg Config, l log.Logger, stdin io.Reader, stdout, stderr io.Writer) {
	accounts, shadows := openDatabases(ctx, cfg, l)
	defer closeDB(l, "passwd", accounts)
	defer closeDB(l, "shadow", shadows)

	defer func() {
		if cfg.MetricsFile == "" {
			return
		}
		if err := lookup.WriteMetrics(cfg.MetricsFile); err != nil {
			l.Error("failed to write metrics", err, "path", cfg.MetricsFile)
		}
	}()

	if cfg.All {
		results, err := lookup.All(ctx, l, accounts, shadows)
		if err != nil {
			l.Error("account enumeration failed", err)
		}
		if err := report.WriteAll(stdout, results); err != nil {
			l.Error("failed to write report", err)
		}
		return
	}

	var opts report.Options
	opts.Aging = cfg.Aging
	if cfg.Verify {
		pass, err := clitools.ReadPassword(stdin, stderr, "Password")
		if err != nil {
			l.Error("failed to read password, verification skipped", err)
		} else {
			opts.Password = &pass
		}
	}

	res := lookup.Lookup(ctx, l, accounts, shadows, cfg.User)
	if err := report.Write(stdout, res, opts); err != nil {
		l.Error("failed to write report", err)
	}
}
