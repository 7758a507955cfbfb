package store

import (
	"fmt"
	"sync"

	"filtro/internal/core/domain"

	"github.com/gofrs/uuid/v5"
	"github.com/rs/zerolog/log"
)

// Memory is an append-only image store living for the lifetime of the process.
// A single lock covers id assignment, record insertion and the owner index, so
// concurrent Puts can never tear the index or collide on an id.
type Memory struct {
	mu      sync.RWMutex
	records map[string]*domain.ImageRecord
	byOwner map[string][]string
}

func NewMemory() *Memory {
	return &Memory{
		records: make(map[string]*domain.ImageRecord),
		byOwner: make(map[string][]string),
	}
}

func (s *Memory) Put(owner string, record *domain.ImageRecord) (string, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return "", fmt.Errorf("failed to generate image id: %w", err)
	}

	record.ID = id.String()
	record.Owner = owner

	s.mu.Lock()
	s.records[record.ID] = record
	s.byOwner[owner] = append(s.byOwner[owner], record.ID)
	s.mu.Unlock()

	log.Debug().Str("imageId", record.ID).Str("owner", owner).Msg("stored image")

	return record.ID, nil
}

func (s *Memory) Get(id string) (*domain.ImageRecord, error) {
	s.mu.RLock()
	record, ok := s.records[id]
	s.mu.RUnlock()

	if !ok {
		return nil, domain.ErrNotFound
	}

	return record, nil
}

func (s *Memory) ListForOwner(owner string) []*domain.ImageRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byOwner[owner]
	records := make([]*domain.ImageRecord, 0, len(ids))

	for _, id := range ids {
		if record, ok := s.records[id]; ok {
			records = append(records, record)
		}
	}

	return records
}
