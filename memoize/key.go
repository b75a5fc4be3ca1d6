package memoize

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
)

var (
	// ErrUnhashable is returned by Call when an argument cannot be turned
	// into a cache key (slices, maps, functions, non-comparable structs).
	ErrUnhashable = errors.New("memoize: unhashable argument")

	// ErrPositionalAfterNamed is returned by Call when a positional
	// argument follows a named one.
	ErrPositionalAfterNamed = errors.New("memoize: positional argument after named argument")
)

// NamedArg is a keyword-style argument. Named arguments participate in
// key construction in call-site order, so Call(Named("x", 1), Named("y", 2))
// and Call(Named("y", 2), Named("x", 1)) are cached separately.
type NamedArg struct {
	Name  string
	Value any
}

// Named builds a NamedArg. Named arguments must follow all positional ones.
func Named(name string, value any) NamedArg { return NamedArg{Name: name, Value: value} }

// Key is the canonical, comparable representation of one call's arguments.
// Either raw holds a single fast-path value, or digest holds the canonical
// encoding of the full argument sequence; exactly one of the two is set.
type Key struct {
	raw    any
	digest string
}

// nilValue is the explicit stand-in for an untyped nil argument, so that
// a nil key is distinct from the zero Key of an empty composite.
type nilValue struct{}

// Encoding tags. Each argument is encoded as a tag byte plus a fixed or
// length-prefixed payload, making the digest injective over argument
// sequences: no two distinct sequences share an encoding.
const (
	tagNil      = 'z'
	tagBool     = 'b'
	tagInt      = 'i'
	tagUint     = 'u'
	tagFloat    = 'f'
	tagString   = 's'
	tagBytes    = 'x'
	tagStringer = 'S'
	tagPointer  = 'p'
	tagOther    = 'o'
	tagType     = 't'
	tagBoundary = '|' // separates positional from named arguments
	tagName     = 'n'
)

// makeKey builds a cache key from the arguments of one call.
// Positional values come first; NamedArg values follow in their original
// order behind a boundary tag so that f(1, "a") and f(1, Named("x", "a"))
// cannot collide. With typed set, each argument's concrete type is
// appended after the values, so equal-valued calls of different types map
// to distinct keys.
func makeKey(args []any, typed bool) (Key, error) {
	named := false
	for _, a := range args {
		if _, ok := a.(NamedArg); ok {
			named = true
		} else if named {
			return Key{}, ErrPositionalAfterNamed
		}
	}

	// Fast path: a single positional argument whose normalized value is an
	// integer, a string, or nil is its own key, skipping the composite
	// encoding entirely.
	if !typed && len(args) == 1 && !named {
		switch v := normalize(args[0]).(type) {
		case int64, string, nilValue:
			return Key{raw: v}, nil
		}
	}

	var b strings.Builder
	for _, a := range args {
		if _, ok := a.(NamedArg); ok {
			break
		}
		if err := encodeValue(&b, a); err != nil {
			return Key{}, err
		}
	}
	if named {
		b.WriteByte(tagBoundary)
		for _, a := range args {
			na, ok := a.(NamedArg)
			if !ok {
				continue
			}
			b.WriteByte(tagName)
			writeString(&b, na.Name)
			if err := encodeValue(&b, na.Value); err != nil {
				return Key{}, err
			}
		}
	}
	if typed {
		for _, a := range args {
			if na, ok := a.(NamedArg); ok {
				a = na.Value
			}
			encodeType(&b, a)
		}
	}
	return Key{digest: b.String()}, nil
}

// normalize collapses numeric kinds so that equal numbers of different
// widths produce equal keys when typed mode is off: every signed integer,
// every unsigned integer that fits, and every integral float becomes an
// int64. Typed mode restores the distinction by appending types.
func normalize(v any) any {
	switch n := v.(type) {
	case nil:
		return nilValue{}
	case int:
		return int64(n)
	case int8:
		return int64(n)
	case int16:
		return int64(n)
	case int32:
		return int64(n)
	case int64:
		return n
	case uint8:
		return int64(n)
	case uint16:
		return int64(n)
	case uint32:
		return int64(n)
	case uint:
		if uint64(n) <= math.MaxInt64 {
			return int64(n)
		}
		return uint64(n)
	case uintptr:
		if uint64(n) <= math.MaxInt64 {
			return int64(n)
		}
		return uint64(n)
	case uint64:
		if n <= math.MaxInt64 {
			return int64(n)
		}
		return n
	case float32:
		return normalizeFloat(float64(n))
	case float64:
		return normalizeFloat(n)
	default:
		return v
	}
}

// normalizeFloat maps an integral float back to int64 when the conversion
// is exact, so f(3) and f(3.0) share a key in untyped mode.
func normalizeFloat(f float64) any {
	// Floats at |f| >= 2^63 are not representable as int64; 2^53 is the
	// last point where float64 is exact anyway, so the cutoff is safe.
	if f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 {
		return int64(f)
	}
	return f
}

// encodeValue appends the canonical encoding of one argument value.
func encodeValue(b *strings.Builder, v any) error {
	switch n := normalize(v).(type) {
	case nilValue:
		b.WriteByte(tagNil)
	case bool:
		b.WriteByte(tagBool)
		if n {
			b.WriteByte(1)
		} else {
			b.WriteByte(0)
		}
	case int64:
		b.WriteByte(tagInt)
		writeUint64(b, uint64(n))
	case uint64:
		b.WriteByte(tagUint)
		writeUint64(b, n)
	case float64:
		b.WriteByte(tagFloat)
		writeUint64(b, math.Float64bits(n))
	case string:
		b.WriteByte(tagString)
		writeString(b, n)
	case []byte:
		b.WriteByte(tagBytes)
		writeString(b, string(n))
	case fmt.Stringer:
		// Stringer keys carry their type name: two types with identical
		// String output must not collide.
		b.WriteByte(tagStringer)
		writeString(b, reflect.TypeOf(v).String())
		writeString(b, n.String())
	default:
		rv := reflect.ValueOf(v)
		switch rv.Kind() {
		case reflect.Pointer, reflect.Chan, reflect.UnsafePointer:
			// Pointers and channels compare by identity, so the key is
			// the address, never a rendering of the pointee: two distinct
			// pointers to equal values are distinct arguments.
			b.WriteByte(tagPointer)
			writeString(b, reflect.TypeOf(v).String())
			writeUint64(b, uint64(rv.Pointer()))
			return nil
		}
		if !rv.Comparable() {
			return fmt.Errorf("%w: %T", ErrUnhashable, v)
		}
		b.WriteByte(tagOther)
		writeString(b, reflect.TypeOf(v).String())
		writeString(b, fmt.Sprintf("%#v", v))
	}
	return nil
}

// encodeType appends the concrete type of one argument (typed mode).
func encodeType(b *strings.Builder, v any) {
	b.WriteByte(tagType)
	if v == nil {
		writeString(b, "<nil>")
		return
	}
	writeString(b, reflect.TypeOf(v).String())
}

func writeUint64(b *strings.Builder, u uint64) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], u)
	b.Write(buf[:])
}

func writeString(b *strings.Builder, s string) {
	var buf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(buf[:], uint64(len(s)))
	b.Write(buf[:n])
	b.WriteString(s)
}
