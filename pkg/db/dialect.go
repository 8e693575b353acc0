package db

import (
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const (
	DialectPostgres = "postgres"
	DialectMySQL    = "mysql"
	DialectSQLite   = "sqlite"
)

func Dialect(cfg Config) (gorm.Dialector, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Type)) {
	case DialectMySQL:
		return mysql.Open(fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			cfg.User,
			cfg.Password,
			cfg.Host,
			cfg.Port,
			cfg.Name,
		)), nil
	case DialectPostgres:
		return postgres.Open(fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
			cfg.Host,
			cfg.User,
			cfg.Password,
			cfg.Name,
			cfg.Port,
			cfg.SSLMode,
		)), nil
	case DialectSQLite:
		name := strings.TrimSpace(cfg.Name)
		if name == "" {
			name = "commcredit.db"
		}
		return sqlite.Open(name + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"), nil
	default:
		return nil, fmt.Errorf("unsupported %s type", cfg.Type)
	}
}

// IsSQLite reports whether the connection cannot take row locks.
func IsSQLite(db *gorm.DB) bool {
	if db == nil || db.Dialector == nil {
		return false
	}
	return strings.EqualFold(db.Dialector.Name(), DialectSQLite)
}
