package dispatch

import (
	"fmt"
	"reflect"
)

// slab is the fixed payload storage of one Observable. Slot indices circulate
// through free; a slot is owned by exactly one of: the free list, a producer
// between acquire and enqueue, a queue, or the dispatcher during delivery.
type slab[T any] struct {
	slots []T
	free  chan uint32
}

func newSlab[T any](n int) *slab[T] {
	s := &slab[T]{
		slots: make([]T, n),
		free:  make(chan uint32, n),
	}
	for i := 0; i < n; i++ {
		s.free <- uint32(i)
	}
	return s
}

func (s *slab[T]) acquire() (uint32, bool) {
	select {
	case i := <-s.free:
		return i, true
	default:
		return 0, false
	}
}

// release zeroes the slot and returns it to the free list. It reports false
// if the index is out of range or the free list is already full, which means
// the slot was released twice.
func (s *slab[T]) release(i uint32) bool {
	if int(i) >= len(s.slots) {
		return false
	}
	var zero T
	s.slots[i] = zero
	select {
	case s.free <- i:
		return true
	default:
		return false
	}
}

func (s *slab[T]) inUse() int { return len(s.slots) - len(s.free) }

// slabSize is the number of slots given to each Observable: enough for both
// queues to be full of its events twice over, plus the one being delivered.
func slabSize(high, normal int) int {
	return 2*(high+normal) + 1
}

// validatePayload checks that t is a flat value type no larger than max bytes.
func validatePayload(t reflect.Type, max uintptr) error {
	if t.Size() > max {
		return fmt.Errorf("%w: %s is %d bytes, limit is %d", ErrInvalidModel, t, t.Size(), max)
	}
	if path, ok := indirection(t, t.String()); ok {
		return fmt.Errorf("%w: %s holds a reference at %s", ErrInvalidModel, t, path)
	}
	return nil
}

// indirection returns the path of the first field whose kind refers to memory
// outside the value.
func indirection(t reflect.Type, path string) (string, bool) {
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return "", false
	case reflect.Array:
		return indirection(t.Elem(), path+"[]")
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if p, ok := indirection(f.Type, path+"."+f.Name); ok {
				return p, true
			}
		}
		return "", false
	default:
		return path, true
	}
}
