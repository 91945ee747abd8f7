package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/wolfman30/lysandra-ai-platform/internal/store"
	"github.com/wolfman30/lysandra-ai-platform/pkg/logging"
)

// Store reads and writes the knowledge/company override record.
type Store struct {
	docs   store.DocumentStore
	cache  Cache
	logger *logging.Logger

	mu       sync.Mutex
	onChange []func()
}

// NewStore wires the document store and an optional cache.
func NewStore(docs store.DocumentStore, cache Cache, logger *logging.Logger) *Store {
	if docs == nil {
		docs = store.Unavailable{}
	}
	if logger == nil {
		logger = logging.Default()
	}
	s := &Store{docs: docs, logger: logger}
	// A typed nil *RedisCache must not be stored as a non-nil interface.
	if rc, ok := cache.(*RedisCache); !ok || rc != nil {
		s.cache = cache
	}
	return s
}

// OnChange registers fn to run after every successful Update or Reset.
func (s *Store) OnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = append(s.onChange, fn)
}

// Get returns the override record, or the bundled default when the
// override is absent, unreadable, or invalid. It never fails.
func (s *Store) Get(ctx context.Context) Company {
	raw, err := s.loadRaw(ctx)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.logger.Warn("knowledge: override unavailable, using default", "error", err)
		}
		return Default()
	}
	k, err := Parse(raw)
	if err != nil {
		s.logger.Warn("knowledge: override invalid, using default", "error", err)
		return Default()
	}
	return k
}

func (s *Store) loadRaw(ctx context.Context) ([]byte, error) {
	if s.cache != nil {
		raw, ok, err := s.cache.Get(ctx)
		if err != nil {
			s.logger.Debug("knowledge: cache read failed", "error", err)
		} else if ok {
			return raw, nil
		}
	}
	raw, err := s.docs.GetDocument(ctx, store.CollectionKnowledge, store.DocKnowledgeCompany)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, raw); err != nil {
			s.logger.Debug("knowledge: cache fill failed", "error", err)
		}
	}
	return raw, nil
}

// Update deep-merges patch into the persisted override. With no override
// yet, the bundled default is the merge base.
func (s *Store) Update(ctx context.Context, patch json.RawMessage) error {
	base, err := s.docs.GetDocument(ctx, store.CollectionKnowledge, store.DocKnowledgeCompany)
	switch {
	case errors.Is(err, store.ErrNotFound):
		base = DefaultJSON()
	case err != nil:
		return fmt.Errorf("knowledge: load override: %w", err)
	}

	merged, err := store.MergeJSON(base, patch)
	if err != nil {
		return fmt.Errorf("knowledge: merge: %w", err)
	}
	if _, err := Parse(merged); err != nil {
		if !errors.Is(err, ErrInvalidKnowledge) {
			err = fmt.Errorf("%w: %w", ErrInvalidKnowledge, err)
		}
		return err
	}
	if err := s.docs.SetDocument(ctx, store.CollectionKnowledge, store.DocKnowledgeCompany, merged); err != nil {
		return fmt.Errorf("knowledge: save override: %w", err)
	}
	s.changed(ctx)
	return nil
}

// Reset overwrites the override with the bundled default.
func (s *Store) Reset(ctx context.Context) error {
	if err := s.docs.SetDocument(ctx, store.CollectionKnowledge, store.DocKnowledgeCompany, DefaultJSON()); err != nil {
		return fmt.Errorf("knowledge: reset override: %w", err)
	}
	s.changed(ctx)
	return nil
}

// Default returns the bundled default record.
func (s *Store) Default() Company {
	return Default()
}

func (s *Store) changed(ctx context.Context) {
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			s.logger.Warn("knowledge: cache invalidate failed", "error", err)
		}
	}
	s.mu.Lock()
	hooks := append([]func(){}, s.onChange...)
	s.mu.Unlock()
	for _, fn := range hooks {
		fn()
	}
}
