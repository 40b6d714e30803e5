package postgres

import (
	"invoice-desk/internal/storage"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX = storage.DBTX

type rowScanner interface {
	Scan(dest ...any) error
}

func likePattern(query string) string {
	return "%" + query + "%"
}
