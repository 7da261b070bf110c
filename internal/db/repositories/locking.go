package repositories

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// forUpdate adds SELECT ... FOR UPDATE. The SQLite dialect drops the clause,
// which is fine for the single-connection test databases.
func forUpdate(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

func notFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
