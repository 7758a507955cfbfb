package port

import "filtro/internal/core/domain"

type ImageStore interface {
	// Put assigns a fresh unique id to the record, inserts it and appends the id
	// to the owner's index. Safe for concurrent use.
	Put(owner string, record *domain.ImageRecord) (string, error)
	// Get retrieves a record by id or returns domain.ErrNotFound.
	Get(id string) (*domain.ImageRecord, error)
	// ListForOwner returns the owner's records in insertion order. The list is
	// empty for owners without any records.
	ListForOwner(owner string) []*domain.ImageRecord
}
