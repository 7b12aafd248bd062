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
	"os"

	"github.com/foxcpp/pwlookup/internal/shadow"
	"go.uber.org/zap"
)

type shadowJSON struct {
	Name               string `json:"name"`
	Passwd             string `json:"passwd"`
	LastChange         int    `json:"last_change"`
	ChangeMinDays      int    `json:"change_min_days"`
	ChangeMaxDays      int    `json:"change_max_days"`
	ChangeWarnDays     int    `json:"change_warn_days"`
	ChangeInactiveDays int    `json:"change_inactive_days"`
	ExpireDate         int    `json:"expire_date"`
	Reserved           int    `json:"reserved"`
}

func (s shadowJSON) entry() shadow.Entry {
	return shadow.Entry{
		Name:             s.Name,
		Pass:             s.Passwd,
		LastChange:       s.LastChange,
		MinPassAge:       s.ChangeMinDays,
		MaxPassAge:       s.ChangeMaxDays,
		WarnPeriod:       s.ChangeWarnDays,
		InactivityPeriod: s.ChangeInactiveDays,
		AcctExpiry:       s.ExpireDate,
		Flags:            s.Reserved,
	}
}

// executableIsSetuid reports whether the running binary has the setuid bit.
// The API discloses shadow entries only to such (privileged) callers.
func executableIsSetuid() bool {
	fi, err := os.Stat("/proc/self/exe")
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeSetuid != 0
}

type ShadowDB struct {
	c *Client
}

func (db *ShadowDB) allowed() bool {
	if db.c.shadowAllowed() {
		return true
	}
	db.c.log.Debug("executable is not setuid, shadow request skipped")
	return false
}

func (db *ShadowDB) LookupName(ctx context.Context, name string) (*shadow.Entry, error) {
	if !db.allowed() {
		return nil, shadow.ErrNoSuchUser
	}

	var s shadowJSON
	if err := db.c.get(ctx, "shadow", "name", name, &s); err != nil {
		if errors.Is(err, errNotFound) {
			return nil, shadow.ErrNoSuchUser
		}
		return nil, err
	}
	ent := s.entry()
	return &ent, nil
}

func (db *ShadowDB) All(ctx context.Context) ([]shadow.Entry, error) {
	if !db.allowed() {
		return nil, nil
	}

	var list []shadowJSON
	if err := db.c.get(ctx, "shadow", "", "", &list); err != nil {
		if errors.Is(err, errNotFound) {
			return nil, nil
		}
		return nil, err
	}
	res := make([]shadow.Entry, 0, len(list))
	for _, s := range list {
		res = append(res, s.entry())
	}
	db.c.log.Debug("shadow entries received", zap.Int("count", len(res)))
	return res, nil
}

func (db *ShadowDB) Close() error {
	return db.c.Close()
}
