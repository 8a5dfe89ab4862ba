package mysql

import (
	"testing"

	"loanflow/internal/domain/loan"
	"loanflow/internal/domain/transition"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// openTestDB creates an in-memory sqlite DB with the loan schema. A single
// connection keeps every query on the same in-memory database.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(&loan.Loan{}, &transition.Record{}); err != nil {
		t.Fatalf("auto-migrate: %v", err)
	}
	return db
}
