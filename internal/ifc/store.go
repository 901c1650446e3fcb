package ifc

import (
	"sort"
	"strings"
)

// Store is the id-keyed arena of parsed entities plus a type index.
// It is populated by a single parse pass and read-only afterwards.
type Store struct {
	entities      map[int]*Entity
	byType        map[string][]int
	materialNames map[int]string
	skipped       int
}

func newStore() *Store {
	return &Store{
		entities:      make(map[int]*Entity),
		byType:        make(map[string][]int),
		materialNames: make(map[int]string),
	}
}

// add registers a parsed entity. A later record with the same id replaces
// the earlier one.
func (s *Store) add(e *Entity) {
	if prev, ok := s.entities[e.ID]; ok {
		s.removeFromType(prev)
		delete(s.materialNames, prev.ID)
	}
	s.entities[e.ID] = e
	s.byType[e.Type] = append(s.byType[e.Type], e.ID)

	// Seeded here so material resolution never needs a second full scan.
	if e.Type == TypeMaterial {
		s.materialNames[e.ID] = e.Name
	}
}

func (s *Store) removeFromType(e *Entity) {
	ids := s.byType[e.Type]
	for i, id := range ids {
		if id == e.ID {
			s.byType[e.Type] = append(ids[:i], ids[i+1:]...)
			return
		}
	}
}

// Get returns the entity with the given id.
func (s *Store) Get(id int) (*Entity, bool) {
	e, ok := s.entities[id]
	return e, ok
}

// GetByType returns the ids of all entities of the given type in ascending
// order. The type name is matched case-insensitively.
func (s *Store) GetByType(typeName string) []int {
	return s.byType[strings.ToUpper(typeName)]
}

// MaterialName returns the name of an IFCMATERIAL entity.
func (s *Store) MaterialName(id int) (string, bool) {
	name, ok := s.materialNames[id]
	return name, ok
}

// Len returns the number of parsed entities.
func (s *Store) Len() int {
	return len(s.entities)
}

// Skipped returns how many data statements did not match the record shape.
func (s *Store) Skipped() int {
	return s.skipped
}

// MaterialCount returns the number of seeded material names.
func (s *Store) MaterialCount() int {
	return len(s.materialNames)
}

// Types returns every entity type present, sorted.
func (s *Store) Types() []string {
	types := make([]string, 0, len(s.byType))
	for t, ids := range s.byType {
		if len(ids) > 0 {
			types = append(types, t)
		}
	}
	sort.Strings(types)
	return types
}

// IDs returns every entity id in ascending order.
func (s *Store) IDs() []int {
	ids := make([]int, 0, len(s.entities))
	for id := range s.entities {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
