package realtime

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// RegisterCallbacks publishes a Change for every successful gorm
// create/update/delete that touched at least one row. Writes inside a
// transaction publish before commit; a rolled back write costs watchers one
// needless refresh.
func RegisterCallbacks(db *gorm.DB, hub *Hub) error {
	cb := db.Callback()
	if err := cb.Create().After("gorm:create").Register("realtime:after_create", publisher(hub, EventInsert)); err != nil {
		return fmt.Errorf("register create callback: %w", err)
	}
	if err := cb.Update().After("gorm:update").Register("realtime:after_update", publisher(hub, EventUpdate)); err != nil {
		return fmt.Errorf("register update callback: %w", err)
	}
	if err := cb.Delete().After("gorm:delete").Register("realtime:after_delete", publisher(hub, EventDelete)); err != nil {
		return fmt.Errorf("register delete callback: %w", err)
	}
	return nil
}

func publisher(hub *Hub, t EventType) func(*gorm.DB) {
	return func(tx *gorm.DB) {
		if tx.Error != nil || tx.RowsAffected == 0 || tx.Statement.Table == "" {
			return
		}
		hub.Publish(Change{Table: tx.Statement.Table, Type: t, At: time.Now()})
	}
}
