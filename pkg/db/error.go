package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

const pgUniqueViolation = "23505"

func IsDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == pgUniqueViolation {
		return true
	}

	msg := err.Error()
	// PostgreSQL through drivers that flatten the error.
	if strings.Contains(msg, "duplicate key value violates unique constraint") {
		return true
	}
	// MySQL 1062
	if strings.Contains(msg, "Error 1062") {
		return true
	}
	// SQLite 2067
	if strings.Contains(msg, "UNIQUE constraint failed") {
		return true
	}

	return false
}
