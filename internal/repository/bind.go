package repository

import (
	"strconv"
	"strings"
)

// Driver names accepted by the repository constructors
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// bindFunc rewrites a query's placeholders for the target driver
type bindFunc func(string) string

func binderFor(driver string) bindFunc {
	if driver == DriverPostgres {
		return rebindPostgres
	}
	return func(q string) string { return q }
}

// rebindPostgres converts ?-style placeholders to the $n form. Queries
// never contain a literal question mark.
func rebindPostgres(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
