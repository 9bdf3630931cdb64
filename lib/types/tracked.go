package types

import (
	"reflect"

	"github.com/pkg/errors"
)

// ErrIndexOutOfRange is returned by TrackedList operations on invalid indices
var ErrIndexOutOfRange = errors.New("index out of range")

// ErrNotFound is returned by TrackedList.Remove if the value is not present
var ErrNotFound = errors.New("value not found")

// --------------------------------------------------------------------------
// TrackedList
// --------------------------------------------------------------------------

// TrackedList is a list that records whether it was modified. Elements may
// be of any type, including maps (object arrays).
type TrackedList[T any] struct {
	items []T
	dirty bool
}

// NewTrackedList copies items into a new clean list
func NewTrackedList[T any](items ...T) *TrackedList[T] {
	return &TrackedList[T]{items: append([]T(nil), items...)}
}

func (l *TrackedList[T]) Len() int {
	return len(l.items)
}

// Get returns the element at i, negative indices count from the end
func (l *TrackedList[T]) Get(i int) (T, error) {
	idx, err := l.index(i)
	if err != nil {
		var zero T
		return zero, err
	}
	return l.items[idx], nil
}

// Values returns a copy of the elements
func (l *TrackedList[T]) Values() []T {
	return append([]T(nil), l.items...)
}

func (l *TrackedList[T]) Set(i int, v T) error {
	idx, err := l.index(i)
	if err != nil {
		return err
	}
	l.items[idx] = v
	l.dirty = true
	return nil
}

func (l *TrackedList[T]) Append(v T) {
	l.items = append(l.items, v)
	l.dirty = true
}

// Insert inserts v before position i. Positions past the end append,
// negative positions count from the end (like list.insert).
func (l *TrackedList[T]) Insert(i int, v T) {
	if i < 0 {
		i = max(len(l.items)+i, 0)
	}
	if i > len(l.items) {
		i = len(l.items)
	}
	var zero T
	l.items = append(l.items, zero)
	copy(l.items[i+1:], l.items[i:])
	l.items[i] = v
	l.dirty = true
}

func (l *TrackedList[T]) Extend(vs ...T) {
	l.items = append(l.items, vs...)
	l.dirty = true
}

// Pop removes and returns the element at i (-1 for the last element)
func (l *TrackedList[T]) Pop(i int) (T, error) {
	idx, err := l.index(i)
	if err != nil {
		var zero T
		return zero, err
	}
	v := l.items[idx]
	l.items = append(l.items[:idx], l.items[idx+1:]...)
	l.dirty = true
	return v, nil
}

// Remove removes the first element deeply equal to v
func (l *TrackedList[T]) Remove(v T) error {
	return l.RemoveFunc(func(item T) bool {
		return reflect.DeepEqual(item, v)
	})
}

// RemoveFunc removes the first element for which match returns true
func (l *TrackedList[T]) RemoveFunc(match func(T) bool) error {
	for i, item := range l.items {
		if match(item) {
			l.items = append(l.items[:i], l.items[i+1:]...)
			l.dirty = true
			return nil
		}
	}
	return ErrNotFound
}

func (l *TrackedList[T]) IsDirty() bool {
	return l.dirty
}

func (l *TrackedList[T]) ClearDirty() {
	l.dirty = false
}

func (l *TrackedList[T]) index(i int) (int, error) {
	idx := i
	if idx < 0 {
		idx += len(l.items)
	}
	if idx < 0 || idx >= len(l.items) {
		return 0, errors.Wrapf(ErrIndexOutOfRange, "index %d, length %d", i, len(l.items))
	}
	return idx, nil
}

// --------------------------------------------------------------------------
// TrackedMap
// --------------------------------------------------------------------------

// TrackedMap is a map that records which keys were set or deleted. A key
// that was set and later deleted stays in ChangedKeys.
type TrackedMap[K comparable, V any] struct {
	items   map[K]V
	changed map[K]struct{}
	deleted map[K]struct{}
}

// NewTrackedMap copies items into a new clean map
func NewTrackedMap[K comparable, V any](items map[K]V) *TrackedMap[K, V] {
	m := &TrackedMap[K, V]{
		items:   make(map[K]V, len(items)),
		changed: make(map[K]struct{}),
		deleted: make(map[K]struct{}),
	}
	for k, v := range items {
		m.items[k] = v
	}
	return m
}

func (m *TrackedMap[K, V]) Len() int {
	return len(m.items)
}

func (m *TrackedMap[K, V]) Get(k K) (V, bool) {
	v, ok := m.items[k]
	return v, ok
}

// Values returns a copy of the underlying map
func (m *TrackedMap[K, V]) Values() map[K]V {
	out := make(map[K]V, len(m.items))
	for k, v := range m.items {
		out[k] = v
	}
	return out
}

func (m *TrackedMap[K, V]) Set(k K, v V) {
	m.items[k] = v
	delete(m.deleted, k)
	m.changed[k] = struct{}{}
}

// Delete removes k, deleting a missing key is not a modification
func (m *TrackedMap[K, V]) Delete(k K) bool {
	if _, ok := m.items[k]; !ok {
		return false
	}
	delete(m.items, k)
	m.deleted[k] = struct{}{}
	return true
}

func (m *TrackedMap[K, V]) ChangedKeys() []K {
	return keys(m.changed)
}

func (m *TrackedMap[K, V]) DeletedKeys() []K {
	return keys(m.deleted)
}

func (m *TrackedMap[K, V]) IsDirty() bool {
	return len(m.changed) > 0 || len(m.deleted) > 0
}

func (m *TrackedMap[K, V]) ClearDirty() {
	clear(m.changed)
	clear(m.deleted)
}

func keys[K comparable](set map[K]struct{}) []K {
	out := make([]K, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return out
}
