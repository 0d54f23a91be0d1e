package postgres

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/SAP-F-2025/course-marketplace/internal/repositories"
)

// handleDBError wraps a driver error with the failed operation and maps the
// gorm sentinels onto the repository ones
func handleDBError(err error, operation string) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s failed: %w", operation, repositories.ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s failed: %w", operation, repositories.ErrDuplicate)
	}

	return fmt.Errorf("%s failed: %w", operation, err)
}

// getDB returns tx when the caller supplied one
func getDB(base, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return base
}

// lockForUpdate adds SELECT ... FOR UPDATE on dialects that support it
func lockForUpdate(db *gorm.DB) *gorm.DB {
	if db.Dialector != nil && db.Dialector.Name() == "postgres" {
		return db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return db
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds a case-folded LIKE pattern matching s anywhere
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
}

// applyPagination applies limit and offset when set
func applyPagination(query *gorm.DB, limit, offset int) *gorm.DB {
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	return query
}

// requireAffected turns a write that matched nothing into ErrNotFound
func requireAffected(result *gorm.DB, operation string) error {
	if result.Error != nil {
		return handleDBError(result.Error, operation)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%s failed: %w", operation, repositories.ErrNotFound)
	}
	return nil
}
