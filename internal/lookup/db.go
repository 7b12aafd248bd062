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

// Package lookup performs account and shadow database queries for a single
// user and classifies their results.
package lookup

import (
	"context"

	"github.com/foxcpp/pwlookup/internal/pwent"
	"github.com/foxcpp/pwlookup/internal/shadow"
)

// AccountDB is an open handle to an account (passwd) database.
//
// LookupName returns pwent.ErrNoSuchUser if there is no such account.
type AccountDB interface {
	LookupName(ctx context.Context, name string) (*pwent.Entry, error)
	All(ctx context.Context) ([]pwent.Entry, error)
	Close() error
}

// ShadowDB is an open handle to a shadow credential database.
//
// LookupName returns shadow.ErrNoSuchUser if there is no such entry.
type ShadowDB interface {
	LookupName(ctx context.Context, name string) (*shadow.Entry, error)
	All(ctx context.Context) ([]shadow.Entry, error)
	Close() error
}

// FailedAccountDB returns an AccountDB that fails every request with err.
// It stands in for a database that could not be opened.
func FailedAccountDB(err error) AccountDB {
	return failedAccounts{err}
}

type failedAccounts struct{ err error }

func (f failedAccounts) LookupName(context.Context, string) (*pwent.Entry, error) {
	return nil, f.err
}

func (f failedAccounts) All(context.Context) ([]pwent.Entry, error) {
	return nil, f.err
}

func (failedAccounts) Close() error { return nil }

// FailedShadowDB is the ShadowDB counterpart of FailedAccountDB.
func FailedShadowDB(err error) ShadowDB {
	return failedShadow{err}
}

type failedShadow struct{ err error }

func (f failedShadow) LookupName(context.Context, string) (*shadow.Entry, error) {
	return nil, f.err
}

func (f failedShadow) All(context.Context) ([]shadow.Entry, error) {
	return nil, f.err
}

func (failedShadow) Close() error { return nil }
