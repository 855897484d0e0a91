package signoff

import (
	"context"
	"fmt"
	"sync"
)

// Store keeps sign-off history. Blocks are appended and never updated or
// removed. History returns blocks in append order.
type Store interface {
	Append(ctx context.Context, b *Block) error
	History(ctx context.Context, documentID string) ([]*Block, error)
	Latest(ctx context.Context, documentID string) (*Block, error)
	Close() error
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu     sync.RWMutex
	blocks map[string][]*Block
	seen   map[string]bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		blocks: make(map[string][]*Block),
		seen:   make(map[string]bool),
	}
}

// Append records b. Appending a block ID twice is an error.
func (s *MemoryStore) Append(ctx context.Context, b *Block) error {
	if err := validateForAppend(b); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.seen[b.ID] {
		return fmt.Errorf("append sign-off %s: duplicate block id", b.ID)
	}
	s.seen[b.ID] = true
	s.blocks[b.DocumentID] = append(s.blocks[b.DocumentID], b.Clone())
	return nil
}

// History returns copies of every block for documentID, oldest first.
func (s *MemoryStore) History(ctx context.Context, documentID string) ([]*Block, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.blocks[documentID]
	out := make([]*Block, len(stored))
	for i, b := range stored {
		out[i] = b.Clone()
	}
	return out, nil
}

// Latest returns the most recent block for documentID.
func (s *MemoryStore) Latest(ctx context.Context, documentID string) (*Block, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.blocks[documentID]
	if len(stored) == 0 {
		return nil, fmt.Errorf("document %s: %w", documentID, ErrNotFound)
	}
	return stored[len(stored)-1].Clone(), nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}

func validateForAppend(b *Block) error {
	switch {
	case b == nil:
		return fmt.Errorf("append sign-off: nil block")
	case b.ID == "":
		return fmt.Errorf("append sign-off: block id is required")
	case b.DocumentID == "":
		return fmt.Errorf("append sign-off %s: document id is required", b.ID)
	}
	return nil
}
