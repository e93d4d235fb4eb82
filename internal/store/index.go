package store

import "reflect"

// Field declares a secondary index: a name used by queries and the function
// that extracts the indexed value from an entity.
type Field[T any] struct {
	Name    string
	Extract func(T) any
	// Accepts reports whether a query value has the indexed type. Nil
	// accepts any comparable value.
	Accepts func(v any) bool
}

// NewField builds a Field from a typed extractor. Queries against it must
// pass a value of exactly type V.
func NewField[T any, V comparable](name string, extract func(T) V) Field[T] {
	return Field[T]{
		Name:    name,
		Extract: func(e T) any { return extract(e) },
		Accepts: func(v any) bool {
			_, ok := v.(V)
			return ok
		},
	}
}

// fieldIndex is an inverted index for one field: value → set of ids.
type fieldIndex[ID comparable] struct {
	buckets map[any]map[ID]struct{}
	check   func(any) bool
}

func newFieldIndex[ID comparable](check func(any) bool) *fieldIndex[ID] {
	return &fieldIndex[ID]{buckets: make(map[any]map[ID]struct{}), check: check}
}

// accepts reports whether v can be looked up without panicking and has the
// field's type.
func (ix *fieldIndex[ID]) accepts(v any) bool {
	if ix.check != nil {
		return ix.check(v)
	}
	return v != nil && reflect.ValueOf(v).Comparable()
}

func (ix *fieldIndex[ID]) add(key any, id ID) {
	b, ok := ix.buckets[key]
	if !ok {
		b = make(map[ID]struct{})
		ix.buckets[key] = b
	}
	b[id] = struct{}{}
}

// remove drops id from the bucket and prunes the bucket once it is empty.
func (ix *fieldIndex[ID]) remove(key any, id ID) {
	b, ok := ix.buckets[key]
	if !ok {
		return
	}
	delete(b, id)
	if len(b) == 0 {
		delete(ix.buckets, key)
	}
}

// bucket returns the live bucket for key, or nil. Callers must not mutate it.
func (ix *fieldIndex[ID]) bucket(key any) map[ID]struct{} {
	return ix.buckets[key]
}
