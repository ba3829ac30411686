package db

import (
	"fmt"

	"gorm.io/gorm"
)

// CreateListIndexes creates the composite (created_at DESC, id DESC) indexes
// backing cursor pagination. AutoMigrate covers the single-column indexes;
// the composite ordering matters for the keyset queries, so it is created
// explicitly.
func CreateListIndexes(orm *gorm.DB) error {
	stmts := []struct {
		name  string
		table string
	}{
		{"idx_posts_created_id_desc", "posts"},
		{"idx_threads_created_id_desc", "threads"},
	}
	for _, s := range stmts {
		sql := fmt.Sprintf(
			`CREATE INDEX IF NOT EXISTS %s ON %s (created_at DESC, id DESC);`,
			s.name, s.table,
		)
		if err := orm.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", s.name, err)
		}
	}
	return nil
}
