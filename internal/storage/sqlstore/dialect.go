package sqlstore

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect selects the SQL flavour and database/sql driver.
type Dialect string

const (
	MySQL    Dialect = "mysql"
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

func ParseDialect(s string) (Dialect, error) {
	switch d := Dialect(strings.ToLower(strings.TrimSpace(s))); d {
	case MySQL, Postgres, SQLite:
		return d, nil
	case "postgresql", "pgx":
		return Postgres, nil
	case "sqlite3":
		return SQLite, nil
	}
	return "", fmt.Errorf("unknown store driver %q", s)
}

// driverName is the database/sql driver registered for d.
func (d Dialect) driverName() string {
	switch d {
	case Postgres:
		return "pgx"
	case SQLite:
		return "sqlite"
	}
	return "mysql"
}

func (d Dialect) schema() []schemaStmt {
	switch d {
	case Postgres:
		return schemaPostgres
	case SQLite:
		return schemaSQLite
	}
	return schemaMySQL
}

func (d Dialect) insertSourceSQL() string {
	if d == MySQL {
		return insertSourceMySQL
	}
	return insertSourceStd
}

func (d Dialect) reviewsUpsertSuffix() string {
	if d == MySQL {
		return insertReviewsOnDupMySQL
	}
	return insertReviewsOnConflictStd
}

// rebind rewrites ? placeholders to $n for postgres. Queries here never carry a literal '?'.
func (d Dialect) rebind(q string) string {
	if d != Postgres || !strings.Contains(q, "?") {
		return q
	}
	var b strings.Builder
	b.Grow(len(q) + 16)
	n := 0
	for i := 0; i < len(q); i++ {
		if q[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(q[i])
	}
	return b.String()
}

func placeholders(n int) string {
	if n <= 0 {
		return "()"
	}
	return "(" + strings.TrimSuffix(strings.Repeat("?,", n), ",") + ")"
}
