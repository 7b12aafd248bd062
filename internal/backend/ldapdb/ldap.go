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

// Package ldapdb implements account and shadow databases stored in an LDAP
// directory using the RFC 2307 posixAccount and shadowAccount schemas.
package ldapdb

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/foxcpp/pwlookup/framework/exterrors"
	"github.com/foxcpp/pwlookup/framework/log"
	"github.com/go-ldap/ldap/v3"
)

const (
	DefaultAccountFilter = "(&(objectClass=posixAccount)(uid={username}))"
	DefaultShadowFilter  = "(&(objectClass=shadowAccount)(uid={username}))"
)

type Config struct {
	URLs   []string
	BaseDN string

	// Search filters, {username} is replaced with the escaped user name.
	AccountFilter string
	ShadowFilter  string

	// Simple bind credentials, no bind is done if BindDN is empty.
	BindDN       string
	BindPassword string

	StartTLS       bool
	TLSConfig      *tls.Config
	ConnectTimeout time.Duration
	RequestTimeout time.Duration
}

// DB is an open LDAP connection. Accounts and Shadow views share it.
type DB struct {
	cfg  Config
	conn *ldap.Conn
	log  log.Logger

	closeOnce sync.Once
	closeErr  error
}

// Dial connects to the first reachable server from cfg.URLs and binds.
func Dial(cfg Config, l log.Logger) (*DB, error) {
	if len(cfg.URLs) == 0 {
		return nil, errors.New("ldapdb: no server URLs")
	}
	if cfg.BaseDN == "" {
		return nil, errors.New("ldapdb: base DN is not set")
	}
	if cfg.AccountFilter == "" {
		cfg.AccountFilter = DefaultAccountFilter
	}
	if cfg.ShadowFilter == "" {
		cfg.ShadowFilter = DefaultShadowFilter
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = time.Minute
	}

	db := &DB{cfg: cfg, log: l}
	conn, err := db.newConn()
	if err != nil {
		return nil, err
	}
	db.conn = conn
	return db, nil
}

func (db *DB) newConn() (*ldap.Conn, error) {
	var (
		conn   *ldap.Conn
		tlsCfg *tls.Config
		dialer = &net.Dialer{Timeout: db.cfg.ConnectTimeout}
	)
	for _, u := range db.cfg.URLs {
		parsedURL, err := url.Parse(u)
		if err != nil {
			return nil, fmt.Errorf("ldapdb: invalid server URL: %w", err)
		}
		if db.cfg.TLSConfig != nil {
			tlsCfg = db.cfg.TLSConfig.Clone()
		} else {
			tlsCfg = &tls.Config{}
		}
		tlsCfg.ServerName = parsedURL.Hostname()

		conn, err = ldap.DialURL(u, ldap.DialWithDialer(dialer), ldap.DialWithTLSConfig(tlsCfg))
		if err != nil {
			db.log.Error("cannot contact directory server", err, "url", u)
			continue
		}
		break
	}
	if conn == nil {
		return nil, exterrors.WithErrno(
			errors.New("ldapdb: all directory servers are unreachable"), syscall.EHOSTUNREACH)
	}

	if db.cfg.RequestTimeout != 0 {
		conn.SetTimeout(db.cfg.RequestTimeout)
	}

	if db.cfg.StartTLS {
		if err := conn.StartTLS(tlsCfg); err != nil {
			conn.Close()
			return nil, fmt.Errorf("ldapdb: %w", err)
		}
	}

	if db.cfg.BindDN != "" {
		if err := conn.Bind(db.cfg.BindDN, db.cfg.BindPassword); err != nil {
			conn.Close()
			return nil, fmt.Errorf("ldapdb: bind: %w", classifyErr(err))
		}
	}

	return conn, nil
}

func expandFilter(template, username string) string {
	return strings.ReplaceAll(template, "{username}", ldap.EscapeFilter(username))
}

// wildcardFilter turns a lookup filter into one matching all entries.
func wildcardFilter(template string) string {
	return strings.ReplaceAll(template, "{username}", "*")
}

// withContext runs f and aborts it by closing the connection if ctx is done
// first. The connection is not usable after that.
func (db *DB) withContext(ctx context.Context, f func() error) error {
	ctxErr := func() error {
		return exterrors.WithErrno(
			exterrors.WithTemporary(ctx.Err(), true),
			syscall.EAGAIN)
	}

	if ctx.Err() != nil {
		return ctxErr()
	}
	if ctx.Done() == nil {
		return f()
	}

	done := make(chan error, 1)
	go func() {
		done <- f()
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		db.log.Debugln("request aborted:", ctx.Err())
		db.conn.Close()
		<-done
		return ctxErr()
	}
}

// search runs filter under BaseDN. It returns nil entry if nothing matched.
func (db *DB) search(ctx context.Context, filter string, attrs []string) (*ldap.Entry, error) {
	req := ldap.NewSearchRequest(
		db.cfg.BaseDN, ldap.ScopeWholeSubtree, ldap.NeverDerefAliases,
		2, 0, false,
		filter, attrs, nil)
	var res *ldap.SearchResult
	err := db.withContext(ctx, func() (err error) {
		res, err = db.conn.Search(req)
		return err
	})
	if err != nil {
		if ldap.IsErrorWithCode(err, ldap.LDAPResultNoSuchObject) {
			return nil, nil
		}
		return nil, fmt.Errorf("ldapdb: search: %w", classifyErr(err))
	}
	if len(res.Entries) > 1 {
		return nil, fmt.Errorf("ldapdb: too many entries returned (%d)", len(res.Entries))
	}
	if len(res.Entries) == 0 {
		return nil, nil
	}
	return res.Entries[0], nil
}

func (db *DB) searchAll(ctx context.Context, filter string, attrs []string) ([]*ldap.Entry, error) {
	req := ldap.NewSearchRequest(
		db.cfg.BaseDN, ldap.ScopeWholeSubtree, ldap.NeverDerefAliases,
		0, 0, false,
		filter, attrs, nil)
	var res *ldap.SearchResult
	err := db.withContext(ctx, func() (err error) {
		res, err = db.conn.SearchWithPaging(req, 500)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("ldapdb: search: %w", classifyErr(err))
	}
	return res.Entries, nil
}

// classifyErr attaches errno values to LDAP errors.
func classifyErr(err error) error {
	switch {
	case ldap.IsErrorWithCode(err, ldap.LDAPResultInsufficientAccessRights),
		ldap.IsErrorWithCode(err, ldap.LDAPResultInvalidCredentials):
		return exterrors.WithErrno(err, syscall.EACCES)
	case ldap.IsErrorWithCode(err, ldap.ErrorNetwork),
		ldap.IsErrorWithCode(err, ldap.LDAPResultBusy),
		ldap.IsErrorWithCode(err, ldap.LDAPResultUnavailable),
		ldap.IsErrorWithCode(err, ldap.LDAPResultTimeLimitExceeded):
		return exterrors.WithErrno(exterrors.WithTemporary(err, true), syscall.EAGAIN)
	}
	return err
}

func (db *DB) Accounts() *AccountDB {
	return &AccountDB{db: db}
}

func (db *DB) Shadow() *ShadowDB {
	return &ShadowDB{db: db}
}

// Close closes the connection. It is safe to call it more than once.
func (db *DB) Close() error {
	db.closeOnce.Do(func() {
		db.closeErr = db.conn.Close()
	})
	return db.closeErr
}
