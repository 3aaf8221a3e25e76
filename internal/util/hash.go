// Package util contains internal helpers (hashing, sharding, key types, padding).
//revive:disable:var-naming  // allow 'util' as an internal helpers package name
package util

import (
	"encoding/binary"
	"fmt"
	"math"
	"reflect"

	"github.com/cespare/xxhash/v2"
)

// Fnv64a hashes a key using 64-bit FNV-1a. It is the default shard hasher.
// Strings and scalar keys take an allocation-free fast path; arrays, structs
// and other comparable keys are hashed through their canonical encoding
// (see AppendKey). The result depends only on the key's value, so it is
// stable across processes.
func Fnv64a[K comparable](k K) uint64 {
	if s, ok := any(k).(string); ok {
		return fnv64aFromString(s)
	}
	if u, ok := scalarBits(any(k)); ok {
		return fnv64aFromUint64(u)
	}
	return fnv64aFromBytes(AppendKey(nil, any(k)))
}

// XXHash hashes a key with xxHash64 over the same canonical encoding as Fnv64a.
func XXHash[K comparable](k K) uint64 {
	if s, ok := any(k).(string); ok {
		return xxhash.Sum64String(s)
	}
	if u, ok := scalarBits(any(k)); ok {
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], u)
		return xxhash.Sum64(b[:])
	}
	return xxhash.Sum64(AppendKey(nil, any(k)))
}

// scalarBits maps bool, integer and float keys to 64 bits.
// Floats are normalised so that 0.0 and -0.0 (equal as map keys) agree.
func scalarBits(k any) (uint64, bool) {
	switch v := k.(type) {
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	case uint8:
		return uint64(v), true
	case uint16:
		return uint64(v), true
	case uint32:
		return uint64(v), true
	case uint64:
		return v, true
	case uint:
		return uint64(v), true
	case uintptr:
		return uint64(v), true
	case int8:
		return uint64(uint8(v)), true
	case int16:
		return uint64(uint16(v)), true
	case int32:
		return uint64(uint32(v)), true
	case int64:
		return uint64(v), true
	case int:
		return uint64(v), true
	case float32:
		return floatBits(float64(v)), true
	case float64:
		return floatBits(v), true
	}
	return 0, false
}

func floatBits(f float64) uint64 {
	if f == 0 {
		return 0
	}
	return math.Float64bits(f)
}

// AppendKey appends a canonical little-endian encoding of k to buf.
// Strings are length-prefixed so that adjacent fields cannot collide
// ("ab","c" vs "a","bc"). Pointer-like kinds encode their address.
func AppendKey(buf []byte, k any) []byte {
	return appendValue(buf, reflect.ValueOf(k))
}

func appendValue(buf []byte, v reflect.Value) []byte {
	switch v.Kind() {
	case reflect.Invalid:
		return append(buf, 0)
	case reflect.Bool:
		if v.Bool() {
			return append(buf, 1)
		}
		return append(buf, 0)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return binary.LittleEndian.AppendUint64(buf, uint64(v.Int()))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return binary.LittleEndian.AppendUint64(buf, v.Uint())
	case reflect.Float32, reflect.Float64:
		return binary.LittleEndian.AppendUint64(buf, floatBits(v.Float()))
	case reflect.Complex64, reflect.Complex128:
		c := v.Complex()
		buf = binary.LittleEndian.AppendUint64(buf, floatBits(real(c)))
		return binary.LittleEndian.AppendUint64(buf, floatBits(imag(c)))
	case reflect.String:
		s := v.String()
		buf = binary.LittleEndian.AppendUint64(buf, uint64(len(s)))
		return append(buf, s...)
	case reflect.Array:
		for i := 0; i < v.Len(); i++ {
			buf = appendValue(buf, v.Index(i))
		}
		return buf
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			buf = appendValue(buf, v.Field(i))
		}
		return buf
	case reflect.Interface:
		return appendValue(buf, v.Elem())
	case reflect.Pointer, reflect.Chan, reflect.UnsafePointer:
		return binary.LittleEndian.AppendUint64(buf, uint64(v.Pointer()))
	default:
		if v.CanInterface() {
			return fmt.Appendf(buf, "%T:%v", v.Interface(), v.Interface())
		}
		return append(buf, v.Type().String()...)
	}
}

const (
	fnvOffset64 = 1469598103934665603
	fnvPrime64  = 1099511628211
)

func fnv64aFromBytes(b []byte) uint64 {
	h := uint64(fnvOffset64)
	for _, c := range b {
		h ^= uint64(c)
		h *= fnvPrime64
	}
	return h
}

func fnv64aFromString(s string) uint64 {
	h := uint64(fnvOffset64)
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= fnvPrime64
	}
	return h
}

func fnv64aFromUint64(u uint64) uint64 {
	// Hash the 8 little-endian bytes of u without allocating.
	h := uint64(fnvOffset64)
	for i := 0; i < 8; i++ {
		h ^= uint64(byte(u))
		h *= fnvPrime64
		u >>= 8
	}
	return h
}
