package badger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/placetunes/internal/interfaces"
	"github.com/ternarybob/placetunes/internal/models"
)

// CallbackStorage implements the CallbackStorage interface for Badger
type CallbackStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewCallbackStorage creates a new CallbackStorage instance
func NewCallbackStorage(db *BadgerDB, logger arbor.ILogger) interfaces.CallbackStorage {
	return &CallbackStorage{
		db:     db,
		logger: logger,
	}
}

func (s *CallbackStorage) StoreCallback(ctx context.Context, taskID string, payload json.RawMessage) error {
	if taskID == "" {
		return fmt.Errorf("task ID is required")
	}

	log := &models.CallbackLog{
		TaskID:     taskID,
		Payload:    payload,
		ReceivedAt: time.Now(),
	}

	if err := s.db.Store().Insert(badgerhold.NextSequence(), log); err != nil {
		return fmt.Errorf("failed to store callback: %w", err)
	}
	return nil
}

func (s *CallbackStorage) GetCallbacks(ctx context.Context, taskID string) ([]*models.CallbackLog, error) {
	var logs []models.CallbackLog
	if err := s.db.Store().Find(&logs, badgerhold.Where("TaskID").Eq(taskID).SortBy("ReceivedAt")); err != nil {
		return nil, fmt.Errorf("failed to get callbacks: %w", err)
	}

	result := make([]*models.CallbackLog, len(logs))
	for i := range logs {
		result[i] = &logs[i]
	}
	return result, nil
}
