package util

import (
	"cmp"
	"fmt"
	"reflect"
)

// CheckKeyType reports why t cannot serve as a cache key type, or nil.
// Accepted kinds are the structurally immutable ones: bool, integers, floats,
// complex numbers, strings, and arrays or structs built only from those.
// Pointers, channels, interfaces and the non-comparable kinds are rejected
// because a key must not change identity or content behind the cache's back.
func CheckKeyType(t reflect.Type) error {
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128,
		reflect.String:
		return nil
	case reflect.Array:
		if err := CheckKeyType(t.Elem()); err != nil {
			return fmt.Errorf("%s: element: %w", t, err)
		}
		return nil
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if err := CheckKeyType(f.Type); err != nil {
				return fmt.Errorf("%s: field %s: %w", t, f.Name, err)
			}
		}
		return nil
	case reflect.Interface:
		return fmt.Errorf("%s is an interface; declare a concrete key type", t)
	default:
		return fmt.Errorf("%s (%s) is mutable or not comparable", t, t.Kind())
	}
}

// Orderable reports whether t has a natural total order usable by NaturalLess:
// numbers (not complex), strings, bools, and arrays/structs of those compared
// lexicographically.
func Orderable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.String:
		return true
	case reflect.Array:
		return Orderable(t.Elem())
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if !Orderable(t.Field(i).Type) {
				return false
			}
		}
		return true
	}
	return false
}

// NaturalLess orders two keys of the same orderable dynamic type.
// Common scalar types take a fast path; arrays and structs compare
// element by element. The caller guarantees a and b share a type that
// passed Orderable.
func NaturalLess[K comparable](a, b K) bool {
	switch x := any(a).(type) {
	case int:
		return x < any(b).(int)
	case int64:
		return x < any(b).(int64)
	case int32:
		return x < any(b).(int32)
	case uint64:
		return x < any(b).(uint64)
	case uint32:
		return x < any(b).(uint32)
	case uint:
		return x < any(b).(uint)
	case float64:
		return x < any(b).(float64)
	case string:
		return x < any(b).(string)
	}
	return compareValues(reflect.ValueOf(a), reflect.ValueOf(b)) < 0
}

func compareValues(a, b reflect.Value) int {
	switch a.Kind() {
	case reflect.Bool:
		return cmp.Compare(boolInt(a.Bool()), boolInt(b.Bool()))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return cmp.Compare(a.Int(), b.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return cmp.Compare(a.Uint(), b.Uint())
	case reflect.Float32, reflect.Float64:
		return cmp.Compare(a.Float(), b.Float())
	case reflect.String:
		return cmp.Compare(a.String(), b.String())
	case reflect.Array:
		for i := 0; i < a.Len(); i++ {
			if c := compareValues(a.Index(i), b.Index(i)); c != 0 {
				return c
			}
		}
		return 0
	case reflect.Struct:
		for i := 0; i < a.NumField(); i++ {
			if c := compareValues(a.Field(i), b.Field(i)); c != 0 {
				return c
			}
		}
		return 0
	case reflect.Interface:
		return compareValues(a.Elem(), b.Elem())
	}
	panic(fmt.Sprintf("util.NaturalLess: unordered key kind %s", a.Kind()))
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
