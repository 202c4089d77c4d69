package delta

import (
	"math"
	"reflect"
	"time"
)

var timeType = reflect.TypeOf(time.Time{})

// Equal reports whether a and b should be treated as unchanged.
//
// In shallow mode, comparable values use == and reference types (slices,
// maps, funcs, channels) compare by identity. NaN never equals itself.
//
// In deep mode, values are compared structurally: maps by key set and
// values, structs field by field, slices and arrays element-wise, pointers
// and interfaces by what they point to.
func Equal(a, b any, deep bool) bool {
	if deep {
		c := comparator{}
		return c.equal(reflect.ValueOf(a), reflect.ValueOf(b))
	}
	return shallowEqual(reflect.ValueOf(a), reflect.ValueOf(b))
}

// EqualDates is deep Equal that compares time.Time values by instant rather
// than by representation. Only the base watcher compares this way; pausable
// and filtered watchers use plain deep Equal.
func EqualDates(a, b any) bool {
	c := comparator{dates: true}
	return c.equal(reflect.ValueOf(a), reflect.ValueOf(b))
}

func shallowEqual(a, b reflect.Value) bool {
	if !a.IsValid() || !b.IsValid() {
		return a.IsValid() == b.IsValid()
	}
	if a.Type() != b.Type() {
		return false
	}
	switch a.Kind() {
	case reflect.Slice:
		return a.Len() == b.Len() && a.Pointer() == b.Pointer()
	case reflect.Map, reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return a.Pointer() == b.Pointer()
	}
	if a.Comparable() {
		return a.Equal(b)
	}
	// Structs and arrays holding reference types: fall back to member identity.
	return deepShallow(a, b)
}

func deepShallow(a, b reflect.Value) bool {
	switch a.Kind() {
	case reflect.Struct:
		for i := 0; i < a.NumField(); i++ {
			if !shallowEqual(a.Field(i), b.Field(i)) {
				return false
			}
		}
		return true
	case reflect.Array:
		for i := 0; i < a.Len(); i++ {
			if !shallowEqual(a.Index(i), b.Index(i)) {
				return false
			}
		}
		return true
	case reflect.Interface:
		return shallowEqual(a.Elem(), b.Elem())
	}
	return false
}

// visit marks a pair of references already under comparison, so cyclic
// values terminate. Slices sharing a backing array differ by length, so the
// lengths are part of the key.
type visit struct {
	a, b       uintptr
	typ        reflect.Type
	lenA, lenB int
}

type comparator struct {
	dates bool
	seen  map[visit]bool
}

func (c *comparator) cycle(a, b reflect.Value) bool {
	switch a.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice:
	default:
		return false
	}
	if a.IsNil() || b.IsNil() {
		return false
	}
	v := visit{a: a.Pointer(), b: b.Pointer(), typ: a.Type()}
	if a.Kind() == reflect.Slice {
		v.lenA, v.lenB = a.Len(), b.Len()
	}
	if c.seen == nil {
		c.seen = make(map[visit]bool)
	}
	if c.seen[v] {
		return true
	}
	c.seen[v] = true
	return false
}

func (c *comparator) equal(a, b reflect.Value) bool {
	if !a.IsValid() || !b.IsValid() {
		return a.IsValid() == b.IsValid()
	}
	if a.Type() != b.Type() {
		return false
	}
	if c.cycle(a, b) {
		return true
	}

	if c.dates && a.Type() == timeType && a.CanInterface() && b.CanInterface() {
		return a.Interface().(time.Time).Equal(b.Interface().(time.Time))
	}

	switch a.Kind() {
	case reflect.Bool:
		return a.Bool() == b.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return a.Int() == b.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return a.Uint() == b.Uint()
	case reflect.Float32, reflect.Float64:
		return a.Float() == b.Float()
	case reflect.Complex64, reflect.Complex128:
		return a.Complex() == b.Complex()
	case reflect.String:
		return a.String() == b.String()
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return a.Pointer() == b.Pointer()
	case reflect.Pointer, reflect.Interface:
		if a.IsNil() || b.IsNil() {
			return a.IsNil() == b.IsNil()
		}
		if a.Kind() == reflect.Pointer && a.Pointer() == b.Pointer() {
			return true
		}
		return c.equal(a.Elem(), b.Elem())
	case reflect.Slice:
		if a.IsNil() != b.IsNil() {
			return false
		}
		fallthrough
	case reflect.Array:
		if a.Len() != b.Len() {
			return false
		}
		for i := 0; i < a.Len(); i++ {
			if !c.equal(a.Index(i), b.Index(i)) {
				return false
			}
		}
		return true
	case reflect.Map:
		if a.IsNil() != b.IsNil() || a.Len() != b.Len() {
			return false
		}
		iter := a.MapRange()
		for iter.Next() {
			bv := b.MapIndex(iter.Key())
			if !bv.IsValid() || !c.equal(iter.Value(), bv) {
				return false
			}
		}
		return true
	case reflect.Struct:
		for i := 0; i < a.NumField(); i++ {
			if !c.equal(a.Field(i), b.Field(i)) {
				return false
			}
		}
		return true
	}
	return false
}

// Truthy reports whether v counts as present for Whenever. Zero values and
// NaN are falsy; everything else, including empty non-nil slices and maps,
// is truthy.
func Truthy(v any) bool {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return false
	}
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		return f != 0 && !math.IsNaN(f)
	case reflect.Slice, reflect.Map:
		return !rv.IsNil()
	}
	return !rv.IsZero()
}

// isNil reports whether v is an untyped nil or a nil value of a nillable kind.
func isNil(v any) bool {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return true
	}
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
