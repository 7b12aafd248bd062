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

package pwcli

import (
	"fmt"
	"os"

	"github.com/foxcpp/pwlookup/framework/log"
	"github.com/urfave/cli/v2"
)

var app *cli.App

func init() {
	app = cli.NewApp()
	app.Name = "pwlookup"
	app.Usage = "account and shadow database lookup diagnostic"
	app.ArgsUsage = "[username]"
	app.Description = `pwlookup queries the account (passwd) database and the shadow password
database for a single user and prints what it got back.

Without arguments the "root" account is looked up. The exit status is 0
whatever the outcome of the lookup is, failures are reported in the output.
`
	app.Authors = []*cli.Author{
		{
			Name:  "pwlookup contributors",
			Email: "fox.cpp@disroot.org",
		},
	}
	app.ExitErrHandler = func(c *cli.Context, err error) {
		cli.HandleExitCoder(err)
		if err != nil {
			log.Println(err)
			cli.OsExiter(1)
		}
	}
	app.EnableBashCompletion = true
	app.Commands = []*cli.Command{
		{
			Name:   "generate-man",
			Hidden: true,
			Action: func(c *cli.Context) error {
				man, err := app.ToMan()
				if err != nil {
					return err
				}
				fmt.Println(man)
				return nil
			},
		},
		{
			Name:   "generate-fish-completion",
			Hidden: true,
			Action: func(c *cli.Context) error {
				cp, err := app.ToFishCompletion()
				if err != nil {
					return err
				}
				fmt.Println(cp)
				return nil
			},
		},
	}
}

func AddGlobalFlag(f cli.Flag) {
	app.Flags = append(app.Flags, f)
}

// SetAction registers the function executed when no subcommand is given.
func SetAction(action cli.ActionFunc) {
	app.Action = action
}

// UsageError wraps err so that Run exits with status 1.
func UsageError(err error) error {
	return cli.Exit(err.Error(), 1)
}

func Run() {
	// Actual entry point is registered in pwlookup.go.

	if err := app.Run(os.Args); err != nil {
		log.DefaultLogger.Error("app.Run failed", err)
		cli.OsExiter(1)
	}
}
