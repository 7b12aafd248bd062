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

// Package sqldb implements account and shadow databases stored in an SQL
// database reachable through database/sql.
//
// Queries are configurable, they receive the user name as the only argument
// and must return columns in passwd(5) and shadow(5) order.
package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"syscall"

	"github.com/foxcpp/pwlookup/framework/exterrors"
	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
)

const (
	DefaultPasswdQuery     = "SELECT name, passwd, uid, gid, gecos, dir, shell FROM passwd WHERE name = $1"
	DefaultPasswdListQuery = "SELECT name, passwd, uid, gid, gecos, dir, shell FROM passwd ORDER BY uid"
	DefaultShadowQuery     = "SELECT name, passwd, last_change, min_days, max_days, warn_days, inactive_days, expire_date, flag FROM shadow WHERE name = $1"
	DefaultShadowListQuery = "SELECT name, passwd, last_change, min_days, max_days, warn_days, inactive_days, expire_date, flag FROM shadow"
)

type Config struct {
	Driver string
	DSN    string

	// Statements executed right after connecting.
	Init []string

	PasswdQuery     string
	PasswdListQuery string
	ShadowQuery     string
	ShadowListQuery string
}

type DB struct {
	db *sql.DB

	passwd     *sql.Stmt
	passwdList *sql.Stmt
	shadow     *sql.Stmt
	shadowList *sql.Stmt

	closeOnce sync.Once
	closeErr  error
}

func Open(ctx context.Context, cfg Config) (*DB, error) {
	if cfg.Driver == "" {
		cfg.Driver = DefaultSQLiteDriver
	}
	if cfg.DSN == "" {
		return nil, errors.New("sqldb: DSN is not set")
	}
	if cfg.PasswdQuery == "" {
		cfg.PasswdQuery = DefaultPasswdQuery
	}
	if cfg.PasswdListQuery == "" {
		cfg.PasswdListQuery = DefaultPasswdListQuery
	}
	if cfg.ShadowQuery == "" {
		cfg.ShadowQuery = DefaultShadowQuery
	}
	if cfg.ShadowListQuery == "" {
		cfg.ShadowListQuery = DefaultShadowListQuery
	}

	sqlDB, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("sqldb: failed to open db: %w", err)
	}
	db := &DB{db: sqlDB}

	for _, init := range cfg.Init {
		if _, err := sqlDB.ExecContext(ctx, init); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqldb: init query failed: %w", classifyErr(err))
		}
	}

	for _, s := range []struct {
		query string
		stmt  **sql.Stmt
		name  string
	}{
		{cfg.PasswdQuery, &db.passwd, "passwd"},
		{cfg.PasswdListQuery, &db.passwdList, "passwd list"},
		{cfg.ShadowQuery, &db.shadow, "shadow"},
		{cfg.ShadowListQuery, &db.shadowList, "shadow list"},
	} {
		*s.stmt, err = sqlDB.PrepareContext(ctx, s.query)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("sqldb: failed to prepare %s query: %w", s.name, classifyErr(err))
		}
	}

	return db, nil
}

// classifyErr attaches errno values to driver errors that mean the
// connection user is not allowed to see the data.
func classifyErr(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "42501" {
		return exterrors.WithErrno(err, syscall.EACCES)
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case 1044, 1045, 1142, 1143:
			return exterrors.WithErrno(err, syscall.EACCES)
		}
	}
	return err
}

func (db *DB) Accounts() *AccountDB {
	return &AccountDB{db: db}
}

func (db *DB) Shadow() *ShadowDB {
	return &ShadowDB{db: db}
}

// Close releases prepared statements and the connection pool. It is safe to
// call it more than once.
func (db *DB) Close() error {
	db.closeOnce.Do(func() {
		for _, stmt := range []*sql.Stmt{db.passwd, db.passwdList, db.shadow, db.shadowList} {
			if stmt != nil {
				stmt.Close()
			}
		}
		db.closeErr = db.db.Close()
	})
	return db.closeErr
}
