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
	"database/sql"
	"errors"
	"fmt"

	"github.com/foxcpp/pwlookup/internal/pwent"
	"github.com/foxcpp/pwlookup/internal/shadow"
)

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanAccount(row scanner) (*pwent.Entry, error) {
	var (
		ent                  pwent.Entry
		pass, gecos, dir, sh sql.NullString
		uid, gid             int64
	)
	if err := row.Scan(&ent.Name, &pass, &uid, &gid, &gecos, &dir, &sh); err != nil {
		return nil, err
	}
	if uid < 0 || uid > 1<<32-1 || gid < 0 || gid > 1<<32-1 {
		return nil, fmt.Errorf("uid/gid out of range for %s", ent.Name)
	}
	ent.Pass = pass.String
	if !pass.Valid {
		ent.Pass = "x"
	}
	ent.UID = uint32(uid)
	ent.GID = uint32(gid)
	ent.Gecos = gecos.String
	ent.Dir = dir.String
	ent.Shell = sh.String
	return &ent, nil
}

func scanShadow(row scanner) (*shadow.Entry, error) {
	var (
		ent     shadow.Entry
		pass    sql.NullString
		numbers [7]sql.NullInt64
	)
	if err := row.Scan(&ent.Name, &pass,
		&numbers[0], &numbers[1], &numbers[2], &numbers[3], &numbers[4], &numbers[5], &numbers[6]); err != nil {
		return nil, err
	}
	ent.Pass = pass.String
	for i, value := range [...]*int{
		&ent.LastChange, &ent.MinPassAge, &ent.MaxPassAge,
		&ent.WarnPeriod, &ent.InactivityPeriod, &ent.AcctExpiry, &ent.Flags,
	} {
		if numbers[i].Valid {
			*value = int(numbers[i].Int64)
		} else {
			*value = -1
		}
	}
	return &ent, nil
}

type AccountDB struct {
	db *DB
}

func (a *AccountDB) LookupName(ctx context.Context, name string) (*pwent.Entry, error) {
	ent, err := scanAccount(a.db.passwd.QueryRowContext(ctx, name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, pwent.ErrNoSuchUser
		}
		return nil, fmt.Errorf("sqldb: passwd lookup %s: %w", name, classifyErr(err))
	}
	return ent, nil
}

func (a *AccountDB) All(ctx context.Context) ([]pwent.Entry, error) {
	rows, err := a.db.passwdList.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("sqldb: passwd list: %w", classifyErr(err))
	}
	defer rows.Close()

	var res []pwent.Entry
	for rows.Next() {
		ent, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("sqldb: passwd list: %w", err)
		}
		res = append(res, *ent)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqldb: passwd list: %w", classifyErr(err))
	}
	return res, nil
}

func (a *AccountDB) Close() error {
	return a.db.Close()
}

type ShadowDB struct {
	db *DB
}

func (s *ShadowDB) LookupName(ctx context.Context, name string) (*shadow.Entry, error) {
	ent, err := scanShadow(s.db.shadow.QueryRowContext(ctx, name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, shadow.ErrNoSuchUser
		}
		return nil, fmt.Errorf("sqldb: shadow lookup %s: %w", name, classifyErr(err))
	}
	return ent, nil
}

func (s *ShadowDB) All(ctx context.Context) ([]shadow.Entry, error) {
	rows, err := s.db.shadowList.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("sqldb: shadow list: %w", classifyErr(err))
	}
	defer rows.Close()

	var res []shadow.Entry
	for rows.Next() {
		ent, err := scanShadow(rows)
		if err != nil {
			return nil, fmt.Errorf("sqldb: shadow list: %w", err)
		}
		res = append(res, *ent)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqldb: shadow list: %w", classifyErr(err))
	}
	return res, nil
}

func (s *ShadowDB) Close() error {
	return s.db.Close()
}
