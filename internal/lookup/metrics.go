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
	"github.com/prometheus/client_golang/prometheus"
)

var lookupsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "pwlookup",
		Name:      "lookups_total",
		Help:      "Database requests made, by database and outcome",
	},
	[]string{"database", "status"},
)

// Registry holds pwlookup metrics only, so a textfile dump does not
// duplicate Go runtime metrics exported elsewhere.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(lookupsTotal)
}

func observe(database string, o Outcome) {
	lookupsTotal.WithLabelValues(database, o.Status.String()).Inc()
}

// WriteMetrics dumps Registry into path in the text exposition format,
// suitable for node_exporter textfile collector.
func WriteMetrics(path string) error {
	return prometheus.WriteToTextfile(path, Registry)
}
