package compiler

// Table is a keyed store for one kind of declared entity. Keys are unique
// within a table; uniqueness is checked at declare time, not lazily. Each
// compile builds its own tables and shares nothing across compilations.
type Table[T any] struct {
	kind    EntityKind
	entries map[string]T
	keys    []string // declaration order
}

// NewTable creates an empty table for the given entity kind.
func NewTable[T any](kind EntityKind) *Table[T] {
	return &Table[T]{
		kind:    kind,
		entries: make(map[string]T),
	}
}

// Declare records an entity under key. Re-declaring a key fails with
// DuplicateKeyError and leaves the table unchanged.
func (t *Table[T]) Declare(key string, entity T) error {
	if _, ok := t.entries[key]; ok {
		return &DuplicateKeyError{Kind: t.kind, Key: key}
	}
	t.entries[key] = entity
	t.keys = append(t.keys, key)
	return nil
}

// Lookup returns the entity declared under key, or UnknownKeyError if the
// key was never declared.
func (t *Table[T]) Lookup(key string) (T, error) {
	entity, ok := t.entries[key]
	if !ok {
		var zero T
		return zero, &UnknownKeyError{Kind: t.kind, Key: key}
	}
	return entity, nil
}

// Keys returns the declared keys in declaration order.
func (t *Table[T]) Keys() []string {
	keys := make([]string, len(t.keys))
	copy(keys, t.keys)
	return keys
}

// Len returns the number of declared entities.
func (t *Table[T]) Len() int {
	return len(t.entries)
}
