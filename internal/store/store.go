// Package store provides a generic in-memory entity collection with one
// inverted index per declared field. All operations are guarded by a single
// lock so the primary map and every index move together.
package store

import (
	"fmt"
	"sort"
	"sync"
)

// Store is a keyed collection of entities of type T identified by ID.
type Store[T any, ID comparable] struct {
	mu      sync.RWMutex
	idOf    func(T) ID
	items   map[ID]T
	seq     map[ID]uint64 // insertion sequence; results are ordered by it
	nextSeq uint64
	fields  []Field[T]
	indexes map[string]*fieldIndex[ID]
}

// New creates an empty store. idOf extracts the primary key; fields declares
// the secondary indexes available to QueryAll.
func New[T any, ID comparable](idOf func(T) ID, fields ...Field[T]) *Store[T, ID] {
	s := &Store[T, ID]{
		idOf:    idOf,
		items:   make(map[ID]T),
		seq:     make(map[ID]uint64),
		fields:  fields,
		indexes: make(map[string]*fieldIndex[ID], len(fields)),
	}
	for _, f := range fields {
		s.indexes[f.Name] = newFieldIndex[ID](f.Accepts)
	}
	return s
}

// Fields returns the declared index names in declaration order.
func (s *Store[T, ID]) Fields() []string {
	names := make([]string, len(s.fields))
	for i, f := range s.fields {
		names[i] = f.Name
	}
	return names
}

// Len returns the number of stored entities.
func (s *Store[T, ID]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Create inserts entity. It fails with ErrAlreadyExists if the id is taken.
func (s *Store[T, ID]) Create(entity T) error {
	id := s.idOf(entity)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; ok {
		return &Error{Op: "create", ID: id, Err: ErrAlreadyExists}
	}
	s.items[id] = entity
	s.seq[id] = s.nextSeq
	s.nextSeq++
	for _, f := range s.fields {
		s.indexes[f.Name].add(f.Extract(entity), id)
	}
	return nil
}

// Read returns the entity with the given id.
func (s *Store[T, ID]) Read(id ID) (T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.items[id]
	if !ok {
		var zero T
		return zero, &Error{Op: "read", ID: id, Err: ErrNotFound}
	}
	return e, nil
}

// Update replaces the stored entity with the same id. Only indexes whose
// extracted value changed are touched.
func (s *Store[T, ID]) Update(entity T) error {
	id := s.idOf(entity)

	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.items[id]
	if !ok {
		return &Error{Op: "update", ID: id, Err: ErrNotFound}
	}
	for _, f := range s.fields {
		oldKey, newKey := f.Extract(old), f.Extract(entity)
		if oldKey == newKey {
			continue
		}
		ix := s.indexes[f.Name]
		ix.remove(oldKey, id)
		ix.add(newKey, id)
	}
	s.items[id] = entity
	return nil
}

// Delete removes the entity from every index and then from the primary map.
func (s *Store[T, ID]) Delete(id ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.items[id]
	if !ok {
		return &Error{Op: "delete", ID: id, Err: ErrNotFound}
	}
	for _, f := range s.fields {
		s.indexes[f.Name].remove(f.Extract(e), id)
	}
	delete(s.items, id)
	delete(s.seq, id)
	return nil
}

// QueryAll returns the entities matching every filter (field name → value).
// With no filters it returns every entity. Results follow insertion order.
// Only the matched ids are ordered, so a narrow query stays cheap however
// large the store grows.
func (s *Store[T, ID]) QueryAll(filters map[string]any) ([]T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(filters) == 0 {
		ids := make([]ID, 0, len(s.items))
		for id := range s.items {
			ids = append(ids, id)
		}
		return s.collectLocked(ids), nil
	}

	matched, err := s.matchLocked(filters)
	if err != nil {
		return nil, err
	}
	ids := make([]ID, 0, len(matched))
	for id := range matched {
		ids = append(ids, id)
	}
	return s.collectLocked(ids), nil
}

// collectLocked sorts ids by insertion sequence and returns their entities.
func (s *Store[T, ID]) collectLocked(ids []ID) []T {
	sort.Slice(ids, func(i, j int) bool { return s.seq[ids[i]] < s.seq[ids[j]] })
	out := make([]T, len(ids))
	for i, id := range ids {
		out[i] = s.items[id]
	}
	return out
}

// matchLocked intersects the per-field candidate buckets, smallest first,
// stopping as soon as the running intersection is empty.
func (s *Store[T, ID]) matchLocked(filters map[string]any) (map[ID]struct{}, error) {
	candidates := make([]map[ID]struct{}, 0, len(filters))
	for name, value := range filters {
		ix, ok := s.indexes[name]
		if !ok {
			return nil, &Error{Op: "query", ID: name, Err: ErrUnknownField}
		}
		if !ix.accepts(value) {
			return nil, &Error{Op: "query", ID: name, Err: fmt.Errorf("%w: %T", ErrInvalidValue, value)}
		}
		candidates = append(candidates, ix.bucket(value))
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return len(candidates[i]) < len(candidates[j])
	})

	result := make(map[ID]struct{}, len(candidates[0]))
	for id := range candidates[0] {
		result[id] = struct{}{}
	}
	for _, next := range candidates[1:] {
		if len(result) == 0 {
			break
		}
		for id := range result {
			if _, ok := next[id]; !ok {
				delete(result, id)
			}
		}
	}
	return result, nil
}
