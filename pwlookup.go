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
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/foxcpp/pwlookup/framework/log"
	"github.com/foxcpp/pwlookup/internal/backend/httpdb"
	"github.com/foxcpp/pwlookup/internal/backend/ldapdb"
	"github.com/foxcpp/pwlookup/internal/backend/sqldb"
	pwcli "github.com/foxcpp/pwlookup/internal/cli"
	"github.com/foxcpp/pwlookup/internal/pwent"
	"github.com/foxcpp/pwlookup/internal/shadow"
	"github.com/urfave/cli/v2"
)

// DefaultUser is looked up when no user name is given.
const DefaultUser = "root"

var (
	stdin  io.Reader = os.Stdin
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

var flags = []cli.Flag{
	&cli.StringFlag{
		Name:    "backend",
		Usage:   "database backend to query: files, system, http, ldap, sql or netauth",
		EnvVars: []string{"PWLOOKUP_BACKEND"},
		Value:   "files",
	},
	&cli.PathFlag{
		Name:    "passwd-file",
		Usage:   "passwd(5) file used by the files backend",
		EnvVars: []string{"PWLOOKUP_PASSWD"},
		Value:   pwent.DefaultPath,
	},
	&cli.PathFlag{
		Name:    "shadow-file",
		Usage:   "shadow(5) file used by the files and system backends",
		EnvVars: []string{"PWLOOKUP_SHADOW"},
		Value:   shadow.DefaultPath,
	},
	&cli.StringFlag{
		Name:    "endpoint",
		Usage:   "base URL of the HTTP account API",
		EnvVars: []string{"NSS_HTTP_API_ENDPOINT"},
	},
	&cli.IntFlag{
		Name:    "request-timeout",
		Usage:   "timeout for network requests, in seconds",
		EnvVars: []string{"NSS_HTTP_API_REQUEST_TIMEOUT"},
		Value:   int(httpdb.DefaultTimeout / time.Second),
	},
	&cli.StringSliceFlag{
		Name:    "ldap-url",
		Usage:   "LDAP server `URL`, can be repeated",
		EnvVars: []string{"PWLOOKUP_LDAP_URL"},
	},
	&cli.StringFlag{
		Name:    "ldap-base-dn",
		Usage:   "base DN for account searches",
		EnvVars: []string{"PWLOOKUP_LDAP_BASE_DN"},
	},
	&cli.StringFlag{
		Name:    "ldap-filter",
		Usage:   "account search filter, {username} is replaced with the user name",
		EnvVars: []string{"PWLOOKUP_LDAP_FILTER"},
		Value:   ldapdb.DefaultAccountFilter,
	},
	&cli.StringFlag{
		Name:    "ldap-shadow-filter",
		Usage:   "shadow search filter, {username} is replaced with the user name",
		EnvVars: []string{"PWLOOKUP_LDAP_SHADOW_FILTER"},
		Value:   ldapdb.DefaultShadowFilter,
	},
	&cli.StringFlag{
		Name:    "ldap-bind-dn",
		Usage:   "DN to bind as, anonymous access is used if not set",
		EnvVars: []string{"PWLOOKUP_LDAP_BIND_DN"},
	},
	&cli.StringFlag{
		Name:    "ldap-bind-pw",
		Usage:   "password for --ldap-bind-dn",
		EnvVars: []string{"PWLOOKUP_LDAP_BIND_PW"},
	},
	&cli.BoolFlag{
		Name:    "ldap-starttls",
		Usage:   "upgrade ldap:// connections using StartTLS",
		EnvVars: []string{"PWLOOKUP_LDAP_STARTTLS"},
	},
	&cli.StringFlag{
		Name:    "sql-driver",
		Usage:   "database/sql driver: " + sqldb.DefaultSQLiteDriver + ", postgres or mysql",
		EnvVars: []string{"PWLOOKUP_SQL_DRIVER"},
		Value:   sqldb.DefaultSQLiteDriver,
	},
	&cli.StringFlag{
		Name:    "sql-dsn",
		Usage:   "driver-specific data source name",
		EnvVars: []string{"PWLOOKUP_SQL_DSN"},
	},
	&cli.StringSliceFlag{
		Name:    "sql-init",
		Usage:   "statement to execute after connecting, can be repeated",
		EnvVars: []string{"PWLOOKUP_SQL_INIT"},
	},
	&cli.StringFlag{
		Name:    "sql-passwd-query",
		Usage:   "query returning name, passwd, uid, gid, gecos, dir, shell for $1",
		EnvVars: []string{"PWLOOKUP_SQL_PASSWD_QUERY"},
		Value:   sqldb.DefaultPasswdQuery,
	},
	&cli.StringFlag{
		Name:    "sql-shadow-query",
		Usage:   "query returning the nine shadow(5) columns for $1",
		EnvVars: []string{"PWLOOKUP_SQL_SHADOW_QUERY"},
		Value:   sqldb.DefaultShadowQuery,
	},
	&cli.StringFlag{
		Name:    "sql-list-query",
		Usage:   "query listing all passwd entries, used by --all",
		EnvVars: []string{"PWLOOKUP_SQL_LIST_QUERY"},
		Value:   sqldb.DefaultPasswdListQuery,
	},
	&cli.StringFlag{
		Name:    "netauth-service",
		Usage:   "service name reported to the NetAuth server",
		EnvVars: []string{"PWLOOKUP_NETAUTH_SERVICE"},
		Value:   "pwlookup",
	},
	&cli.BoolFlag{
		Name:  "all",
		Usage: "enumerate all accounts instead of looking up one",
	},
	&cli.BoolFlag{
		Name:  "verify",
		Usage: "read a password from stdin and check it against the shadow entry",
	},
	&cli.BoolFlag{
		Name:  "aging",
		Usage: "report account and password expiration",
	},
	&cli.PathFlag{
		Name:    "metrics-file",
		Usage:   "write lookup counters to this file in Prometheus text format",
		EnvVars: []string{"PWLOOKUP_METRICS_FILE"},
	},
	&cli.BoolFlag{
		Name:    "debug",
		Usage:   "enable debug logging",
		EnvVars: []string{"NSS_HTTP_API_DEBUG"},
	},
	&cli.StringFlag{
		Name:    "log",
		Usage:   "where to write diagnostics: stderr, syslog or off",
		EnvVars: []string{"PWLOOKUP_LOG"},
		Value:   "stderr",
	},
}

func init() {
	for _, f := range flags {
		pwcli.AddGlobalFlag(f)
	}
	pwcli.SetAction(lookupAction)
}

// Config is the complete set of settings for a single run.
type Config struct {
	User string

	Backend    string
	PasswdFile string
	ShadowFile string

	Endpoint       string
	RequestTimeout time.Duration

	LDAP ldapdb.Config
	SQL  sqldb.Config

	NetAuthService string

	All         bool
	Verify      bool
	Aging       bool
	MetricsFile string
}

var errUnknownBackend = errors.New("unknown backend")

func configFromContext(c *cli.Context) (Config, error) {
	cfg := Config{
		User:           DefaultUser,
		Backend:        c.String("backend"),
		PasswdFile:     c.Path("passwd-file"),
		ShadowFile:     c.Path("shadow-file"),
		Endpoint:       c.String("endpoint"),
		NetAuthService: c.String("netauth-service"),
		All:            c.Bool("all"),
		Verify:         c.Bool("verify"),
		Aging:          c.Bool("aging"),
		MetricsFile:    c.Path("metrics-file"),
	}
	if c.Args().Len() != 0 {
		cfg.User = c.Args().First()
	}

	timeout := c.Int("request-timeout")
	if timeout <= 0 {
		return Config{}, fmt.Errorf("request timeout must be positive, got %d", timeout)
	}
	cfg.RequestTimeout = time.Duration(timeout) * time.Second

	switch cfg.Backend {
	case "files", "system", "netauth":
	case "http":
		if cfg.Endpoint == "" {
			return Config{}, errors.New("--endpoint (NSS_HTTP_API_ENDPOINT) is required for the http backend")
		}
	case "ldap":
		cfg.LDAP = ldapdb.Config{
			URLs:           c.StringSlice("ldap-url"),
			BaseDN:         c.String("ldap-base-dn"),
			AccountFilter:  c.String("ldap-filter"),
			ShadowFilter:   c.String("ldap-shadow-filter"),
			BindDN:         c.String("ldap-bind-dn"),
			BindPassword:   c.String("ldap-bind-pw"),
			StartTLS:       c.Bool("ldap-starttls"),
			ConnectTimeout: cfg.RequestTimeout,
			RequestTimeout: cfg.RequestTimeout,
		}
		if len(cfg.LDAP.URLs) == 0 {
			return Config{}, errors.New("--ldap-url is required for the ldap backend")
		}
		if cfg.LDAP.BaseDN == "" {
			return Config{}, errors.New("--ldap-base-dn is required for the ldap backend")
		}
	case "sql":
		cfg.SQL = sqldb.Config{
			Driver:          c.String("sql-driver"),
			DSN:             c.String("sql-dsn"),
			Init:            c.StringSlice("sql-init"),
			PasswdQuery:     c.String("sql-passwd-query"),
			PasswdListQuery: c.String("sql-list-query"),
			ShadowQuery:     c.String("sql-shadow-query"),
		}
		if cfg.SQL.DSN == "" {
			return Config{}, errors.New("--sql-dsn is required for the sql backend")
		}
	default:
		return Config{}, fmt.Errorf("%w: %q", errUnknownBackend, cfg.Backend)
	}

	return cfg, nil
}

func setupLogging(c *cli.Context) error {
	switch target := c.String("log"); target {
	case "stderr":
		log.DefaultLogger.Out = log.WriterOutput(os.Stderr, false)
	case "syslog":
		out, err := log.SyslogOutput()
		if err != nil {
			return err
		}
		log.DefaultLogger.Out = out
	case "off":
		log.DefaultLogger.Out = log.NopOutput{}
	default:
		return fmt.Errorf("unknown log target: %q", target)
	}
	log.DefaultLogger.Debug = c.Bool("debug")
	return nil
}

func lookupAction(c *cli.Context) error {
	if err := setupLogging(c); err != nil {
		return pwcli.UsageError(err)
	}
	defer log.DefaultLogger.Out.Close()

	cfg, err := configFromContext(c)
	if err != nil {
		return pwcli.UsageError(err)
	}

	ctx, cancel := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	Run(ctx, cfg, log.DefaultLogger, stdin, stdout, stderr)
	return nil
}
