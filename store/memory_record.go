package store

import (
	"context"

	"github.com/pkg/errors"
)

// MemoryRecord is one entry in a user's long-term memory namespace: a
// document with its embedding vector. The namespace is append-only; no
// update or delete path exists.
type MemoryRecord struct {
	ID        int64
	UID       string // caller-assigned unique identifier
	UserID    int64
	Text      string
	Embedding []float32
	CreatedTs int64
}

// MemoryRecordWithScore is a vector search result with its similarity score.
type MemoryRecordWithScore struct {
	Record *MemoryRecord
	Score  float32 // cosine similarity, higher is more similar
}

// SearchMemoryRecords is the condition for a similarity search over one
// user's namespace.
type SearchMemoryRecords struct {
	UserID    int64
	Embedding []float32
	Limit     int
}

// Validate validates the search condition and applies the default limit.
func (s *SearchMemoryRecords) Validate() error {
	if s.UserID <= 0 {
		return errors.Errorf("invalid UserID: %d", s.UserID)
	}
	if len(s.Embedding) == 0 {
		return errors.New("embedding cannot be empty")
	}
	if s.Limit < 0 {
		return errors.Errorf("limit cannot be negative: %d", s.Limit)
	}
	if s.Limit == 0 {
		s.Limit = 3
	}
	if s.Limit > 1000 {
		return errors.Errorf("limit too large (max 1000): %d", s.Limit)
	}
	return nil
}

// AddMemoryRecord appends one record to the user's namespace.
func (s *Store) AddMemoryRecord(ctx context.Context, add *MemoryRecord) (*MemoryRecord, error) {
	if add.UID == "" {
		return nil, errors.New("uid required")
	}
	if len(add.Embedding) == 0 {
		return nil, errors.New("embedding cannot be empty")
	}
	return s.driver.AddMemoryRecord(ctx, add)
}

// SearchMemoryRecords returns the nearest records in the user's namespace,
// ranked by similarity.
func (s *Store) SearchMemoryRecords(ctx context.Context, search *SearchMemoryRecords) ([]*MemoryRecordWithScore, error) {
	if err := search.Validate(); err != nil {
		return nil, err
	}
	return s.driver.SearchMemoryRecords(ctx, search)
}
