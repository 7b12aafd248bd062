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

package lookup

import (
	"context"

	"github.com/foxcpp/pwlookup/framework/log"
	"github.com/foxcpp/pwlookup/internal/pwent"
	"github.com/foxcpp/pwlookup/internal/shadow"
)

// Result holds everything found about a single user.
type Result struct {
	Name string

	Account        *pwent.Entry
	AccountOutcome Outcome

	Shadow        *shadow.Entry
	ShadowOutcome Outcome
}

// Lookup queries the account database and then the shadow database for
// name. The shadow query is performed even if there is no account entry.
//
// Failures other than a missing entry are logged using l and reflected in
// the returned Result, Lookup itself never fails.
func Lookup(ctx context.Context, l log.Logger, accounts AccountDB, shadows ShadowDB, name string) Result {
	res := Result{Name: name}

	var err error
	res.Account, err = accounts.LookupName(ctx, name)
	res.AccountOutcome = Classify(err)
	observe("passwd", res.AccountOutcome)
	logOutcome(l, "passwd", name, res.AccountOutcome)

	res.Shadow, err = shadows.LookupName(ctx, name)
	res.ShadowOutcome = Classify(err)
	observe("shadow", res.ShadowOutcome)
	logOutcome(l, "shadow", name, res.ShadowOutcome)

	return res
}

// All enumerates the account database and looks up the shadow entry for each
// account.
func All(ctx context.Context, l log.Logger, accounts AccountDB, shadows ShadowDB) ([]Result, error) {
	ents, err := accounts.All(ctx)
	observe("passwd", Classify(err))
	if err != nil {
		return nil, err
	}

	res := make([]Result, 0, len(ents))
	for i := range ents {
		r := Result{
			Name:           ents[i].Name,
			Account:        &ents[i],
			AccountOutcome: Outcome{Status: Found},
		}
		r.Shadow, err = shadows.LookupName(ctx, r.Name)
		r.ShadowOutcome = Classify(err)
		observe("shadow", r.ShadowOutcome)
		logOutcome(l, "shadow", r.Name, r.ShadowOutcome)
		res = append(res, r)
	}
	return res, nil
}

func logOutcome(l log.Logger, database, name string, o Outcome) {
	switch o.Status {
	case Found:
		l.DebugMsg("entry found", "database", database, "user", name)
	case NotFound:
		l.DebugMsg("entry not found", "database", database, "user", name)
	default:
		l.Error("lookup failed", o.Err, "database", database, "user", name, "errno", int(o.Errno))
	}
}
