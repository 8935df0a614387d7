package database

import (
	"path/filepath"
	"testing"

	"gorm.io/gorm"
)

// TestDSNParams 与生产一致：写事务立即加锁，并发写排队等待。
const TestDSNParams = "?_busy_timeout=5000&_txlock=immediate&_foreign_keys=1"

// OpenTemp opens a migrated SQLite database in a per-test temp dir.
func OpenTemp(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db") + TestDSNParams)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := Migrate(db); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}
