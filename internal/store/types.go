package store

import "strings"

type DatabaseType string

const (
	DBTypePostgres DatabaseType = "postgres"
	DBTypeSQLite   DatabaseType = "sqlite"
)

// TypeFromDSN picks the backend from the DSN shape. Anything that is not a
// postgres URL is treated as a SQLite path.
func TypeFromDSN(dsn string) DatabaseType {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return DBTypePostgres
	}
	return DBTypeSQLite
}
