package utils

import (
	"reflect"
	"sync"

	"github.com/cockroachdb/errors"
)

var pointerFreeCache sync.Map

// PointerFree reports whether values of type t can be stored in memory the garbage collector does
// not scan. Results are cached per type.
func PointerFree(t reflect.Type) bool {
	if cached, ok := pointerFreeCache.Load(t); ok {
		return cached.(bool)
	}

	result := pointerFree(t)
	pointerFreeCache.Store(t, result)
	return result
}

func pointerFree(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return true
	case reflect.Array:
		return t.Len() == 0 || pointerFree(t.Elem())
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if !pointerFree(t.Field(i).Type) {
				return false
			}
		}
		return true
	default:
		// Pointers, unsafe.Pointer, slices, strings, maps, chans, funcs and interfaces
		return false
	}
}

// TypeOf returns the reflect.Type of T without requiring a value, which also works for interface types
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// MustBePointerFree panics if T contains Go pointers. Memory handed out by the allocators in this
// module is not scanned by the garbage collector, so storing pointers there would let their targets
// be collected out from under them.
func MustBePointerFree[T any](operation string) {
	t := TypeOf[T]()
	if !PointerFree(t) {
		panic(errors.AssertionFailedf("%s: type %s contains Go pointers and cannot be stored in allocator memory", operation, t))
	}
}
