// Package db implements the durable stores backing the coordination
// engine: room records, chat messages, and user accounts.
package db

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/studysync/studysync/models"
)

// Store bundles the durable repositories over one database handle.
type Store struct {
	DB       *gorm.DB
	Rooms    *RoomStore
	Messages *MessageStore
	Users    *UserStore
}

// Open connects to the SQLite database and runs migrations.
func Open(path string) (*Store, error) {
	gdb, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := gdb.AutoMigrate(&models.RoomRecord{}, &models.ChatMessage{}, &models.User{}); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	return &Store{
		DB:       gdb,
		Rooms:    &RoomStore{db: gdb},
		Messages: &MessageStore{db: gdb},
		Users:    &UserStore{db: gdb},
	}, nil
}
