package app

import (
	"github.com/shrimpsizemoose/kardemumma/internal/store"
	"github.com/shrimpsizemoose/kardemumma/internal/store/postgres"
	"github.com/shrimpsizemoose/kardemumma/internal/store/sqlite"
)

func NewStore(dsn string) (store.GradeStore, error) {
	switch store.TypeFromDSN(dsn) {
	case store.DBTypePostgres:
		return postgres.NewPostgresStore(dsn)
	default:
		return sqlite.NewSQLiteStore(dsn)
	}
}
