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

// Package netauthdb implements the account database on top of a NetAuth
// server.
//
// NetAuth never discloses entity secrets, so the shadow view reports every
// entry as missing.
package netauthdb

import (
	"context"
	"fmt"
	"syscall"

	"github.com/foxcpp/pwlookup/framework/exterrors"
	"github.com/foxcpp/pwlookup/framework/log"
	"github.com/foxcpp/pwlookup/internal/pwent"
	"github.com/foxcpp/pwlookup/internal/shadow"
	"github.com/hashicorp/go-hclog"
	"github.com/netauth/netauth/pkg/netauth"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const modName = "netauth"

type entity struct {
	ID           string
	Number       int32
	PrimaryGroup string
	GECOS        string
	Home         string
	Shell        string
}

type group struct {
	Name   string
	Number int32
}

// directory is the subset of the NetAuth client used here.
type directory interface {
	entity(ctx context.Context, id string) (entity, error)
	groups(ctx context.Context, id string) ([]group, error)
}

type clientDirectory struct {
	nacl *netauth.Client
}

func (c clientDirectory) entity(ctx context.Context, id string) (entity, error) {
	e, err := c.nacl.EntityInfo(ctx, id)
	if err != nil {
		return entity{}, err
	}
	meta := e.GetMeta()
	return entity{
		ID:           e.GetID(),
		Number:       e.GetNumber(),
		PrimaryGroup: meta.GetPrimaryGroup(),
		GECOS:        meta.GetGECOS(),
		Home:         meta.GetHome(),
		Shell:        meta.GetShell(),
	}, nil
}

func (c clientDirectory) groups(ctx context.Context, id string) ([]group, error) {
	grps, err := c.nacl.EntityGroups(ctx, id)
	if err != nil {
		return nil, err
	}
	res := make([]group, 0, len(grps))
	for _, g := range grps {
		res = append(res, group{Name: g.GetName(), Number: g.GetNumber()})
	}
	return res, nil
}

type DB struct {
	dir directory
	log log.Logger
}

// New creates a NetAuth client using the system NetAuth configuration.
func New(serviceName string, l log.Logger) (*DB, error) {
	hl := hclog.New(&hclog.LoggerOptions{
		Name:   modName,
		Output: l,
		Level:  hclog.Info,
	})
	if l.Debug {
		hl.SetLevel(hclog.Debug)
	}

	nacl, err := netauth.NewWithLog(hl)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", modName, err)
	}
	nacl.SetServiceName(serviceName)

	l.Debugf("client initialized, service name: %s", serviceName)
	return &DB{dir: clientDirectory{nacl: nacl}, log: l}, nil
}

func classifyErr(err error) error {
	switch status.Code(err) {
	case codes.NotFound:
		return pwent.ErrNoSuchUser
	case codes.PermissionDenied, codes.Unauthenticated:
		return exterrors.WithErrno(err, syscall.EACCES)
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted:
		return exterrors.WithErrno(exterrors.WithTemporary(err, true), syscall.EAGAIN)
	}
	return err
}

func (db *DB) LookupName(ctx context.Context, name string) (*pwent.Entry, error) {
	e, err := db.dir.entity(ctx, name)
	if err != nil {
		if err := classifyErr(err); err == pwent.ErrNoSuchUser {
			return nil, err
		}
		return nil, fmt.Errorf("%s: entity info: %w", modName, classifyErr(err))
	}
	if e.Number < 0 {
		return nil, fmt.Errorf("%s: entity %s has no number assigned", modName, name)
	}

	ent := &pwent.Entry{
		Name:  e.ID,
		Pass:  "x",
		UID:   uint32(e.Number),
		Gecos: e.GECOS,
		Dir:   e.Home,
		Shell: e.Shell,
	}

	if e.PrimaryGroup != "" {
		grps, err := db.dir.groups(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("%s: groups: %w", modName, classifyErr(err))
		}
		found := false
		for _, g := range grps {
			if g.Name == e.PrimaryGroup && g.Number >= 0 {
				ent.GID = uint32(g.Number)
				found = true
				break
			}
		}
		if !found {
			db.log.Msg("primary group is not among entity groups, using gid 0",
				"entity", name, "group", e.PrimaryGroup)
		}
	}

	return ent, nil
}

// All is not supported: NetAuth has no cheap enumeration of entities with
// their metadata.
func (db *DB) All(context.Context) ([]pwent.Entry, error) {
	return nil, fmt.Errorf("%s: enumeration is not supported", modName)
}

func (db *DB) Close() error {
	return nil
}

// Shadow returns a ShadowDB that never finds anything.
func (db *DB) Shadow() *ShadowDB {
	return &ShadowDB{log: db.log}
}

type ShadowDB struct {
	log log.Logger
}

func (s *ShadowDB) LookupName(_ context.Context, name string) (*shadow.Entry, error) {
	s.log.Debugf("shadow entries are not available from NetAuth (%s)", name)
	return nil, shadow.ErrNoSuchUser
}

func (s *ShadowDB) All(context.Context) ([]shadow.Entry, error) {
	return nil, nil
}

func (s *ShadowDB) Close() error {
	return nil
}
