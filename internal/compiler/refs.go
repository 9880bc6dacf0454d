package compiler

import "errors"

// Resolve looks up key in table and attributes a miss to the referencing
// entity, so the resulting error names both ends of the broken reference.
func Resolve[T any](table *Table[T], key string, referencedBy string) (T, error) {
	entity, err := table.Lookup(key)
	if err != nil {
		var unknown *UnknownKeyError
		if errors.As(err, &unknown) {
			unknown.ReferencedBy = referencedBy
		}
		var zero T
		return zero, err
	}
	return entity, nil
}

// ResolveAll resolves every key against table, continuing past failures so
// that all dangling references surface in one pass. The returned handles
// preserve the order of keys exactly, including duplicates; positions that
// failed to resolve are omitted from handles but reported in errs.
func ResolveAll[T any](table *Table[T], keys []string, referencedBy string) (handles []T, errs []error) {
	for _, key := range keys {
		entity, err := Resolve(table, key, referencedBy)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		handles = append(handles, entity)
	}
	return handles, errs
}
