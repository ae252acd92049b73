package db

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/studysync/studysync/models"
)

// RoomStore persists room records, keyed by unique room name.
type RoomStore struct {
	db *gorm.DB
}

// Create inserts a new room record. Returns ErrRoomExists when the name
// is taken.
func (s *RoomStore) Create(record *models.RoomRecord) error {
	var count int64
	if err := s.db.Model(&models.RoomRecord{}).Where("name = ?", record.Name).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return models.ErrRoomExists
	}

	record.CreatedAt = time.Now()
	record.LastActive = record.CreatedAt
	return s.db.Create(record).Error
}

// Find returns the record for a room name, or nil when absent.
func (s *RoomStore) Find(name string) (*models.RoomRecord, error) {
	var record models.RoomRecord
	err := s.db.Where("name = ?", name).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// SaveSnapshot updates the host and member snapshot of an existing
// record, bumping its last-active timestamp. Missing records are ignored
// so that a stale live room cannot resurrect a deleted one.
func (s *RoomStore) SaveSnapshot(name, host string, members []models.Presence) error {
	record, err := s.Find(name)
	if err != nil || record == nil {
		return err
	}
	if members == nil {
		members = []models.Presence{}
	}
	record.Host = host
	record.Members = members
	record.LastActive = time.Now()
	return s.db.Save(record).Error
}

// Delete removes a room record.
func (s *RoomStore) Delete(name string) error {
	return s.db.Where("name = ?", name).Delete(&models.RoomRecord{}).Error
}

// List returns all room records.
func (s *RoomStore) List() ([]models.RoomRecord, error) {
	var records []models.RoomRecord
	if err := s.db.Order("created_at").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
