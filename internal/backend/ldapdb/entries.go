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
	"fmt"
	"strconv"
	"strings"
	"syscall"

	"github.com/foxcpp/pwlookup/framework/exterrors"
	"github.com/foxcpp/pwlookup/internal/pwent"
	"github.com/foxcpp/pwlookup/internal/shadow"
	"github.com/go-ldap/ldap/v3"
)

var (
	accountAttrs = []string{"uid", "uidNumber", "gidNumber", "gecos", "cn", "homeDirectory", "loginShell"}
	shadowAttrs  = []string{"uid", "userPassword", "shadowLastChange", "shadowMin", "shadowMax",
		"shadowWarning", "shadowInactive", "shadowExpire", "shadowFlag"}
)

func accountFromLDAP(e *ldap.Entry) (*pwent.Entry, error) {
	uid, err := strconv.ParseUint(e.GetAttributeValue("uidNumber"), 10, 32)
	if err != nil {
		return nil, fmt.Errorf("ldapdb: %s: invalid uidNumber", e.DN)
	}
	gid, err := strconv.ParseUint(e.GetAttributeValue("gidNumber"), 10, 32)
	if err != nil {
		return nil, fmt.Errorf("ldapdb: %s: invalid gidNumber", e.DN)
	}
	gecos := e.GetAttributeValue("gecos")
	if gecos == "" {
		gecos = e.GetAttributeValue("cn")
	}
	return &pwent.Entry{
		Name:  e.GetAttributeValue("uid"),
		Pass:  "x",
		UID:   uint32(uid),
		GID:   uint32(gid),
		Gecos: gecos,
		Dir:   e.GetAttributeValue("homeDirectory"),
		Shell: e.GetAttributeValue("loginShell"),
	}, nil
}

func shadowFromLDAP(e *ldap.Entry) (*shadow.Entry, error) {
	pass := ""
	for _, v := range e.GetAttributeValues("userPassword") {
		if len(v) > len("{CRYPT}") && strings.EqualFold(v[:len("{CRYPT}")], "{CRYPT}") {
			pass = v[len("{CRYPT}"):]
			break
		}
	}
	if pass == "" {
		if len(e.GetAttributeValues("userPassword")) == 0 {
			// Directory ACLs usually hide the attribute instead of failing
			// the search.
			return nil, exterrors.WithErrno(
				fmt.Errorf("ldapdb: %s: userPassword is not readable", e.DN), syscall.EACCES)
		}
		// Non-crypt schemes cannot be represented in shadow(5).
		pass = "*"
	}

	ent := &shadow.Entry{
		Name: e.GetAttributeValue("uid"),
		Pass: pass,
	}
	for attr, value := range map[string]*int{
		"shadowLastChange": &ent.LastChange,
		"shadowMin":        &ent.MinPassAge,
		"shadowMax":        &ent.MaxPassAge,
		"shadowWarning":    &ent.WarnPeriod,
		"shadowInactive":   &ent.InactivityPeriod,
		"shadowExpire":     &ent.AcctExpiry,
		"shadowFlag":       &ent.Flags,
	} {
		raw := e.GetAttributeValue(attr)
		if raw == "" {
			*value = -1
			continue
		}
		var err error
		*value, err = strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("ldapdb: %s: invalid %s", e.DN, attr)
		}
	}
	return ent, nil
}

type AccountDB struct {
	db *DB
}

func (a *AccountDB) LookupName(ctx context.Context, name string) (*pwent.Entry, error) {
	e, err := a.db.search(ctx, expandFilter(a.db.cfg.AccountFilter, name), accountAttrs)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, pwent.ErrNoSuchUser
	}
	return accountFromLDAP(e)
}

func (a *AccountDB) All(ctx context.Context) ([]pwent.Entry, error) {
	entries, err := a.db.searchAll(ctx, wildcardFilter(a.db.cfg.AccountFilter), accountAttrs)
	if err != nil {
		return nil, err
	}
	res := make([]pwent.Entry, 0, len(entries))
	for _, e := range entries {
		ent, err := accountFromLDAP(e)
		if err != nil {
			a.db.log.Error("skipping malformed entry", err)
			continue
		}
		res = append(res, *ent)
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
	e, err := s.db.search(ctx, expandFilter(s.db.cfg.ShadowFilter, name), shadowAttrs)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, shadow.ErrNoSuchUser
	}
	return shadowFromLDAP(e)
}

func (s *ShadowDB) All(ctx context.Context) ([]shadow.Entry, error) {
	entries, err := s.db.searchAll(ctx, wildcardFilter(s.db.cfg.ShadowFilter), shadowAttrs)
	if err != nil {
		return nil, err
	}
	res := make([]shadow.Entry, 0, len(entries))
	for _, e := range entries {
		ent, err := shadowFromLDAP(e)
		if err != nil {
			s.db.log.Error("skipping unusable entry", err)
			continue
		}
		res = append(res, *ent)
	}
	return res, nil
}

func (s *ShadowDB) Close() error {
	return s.db.Close()
}
