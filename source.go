package delta

import "fmt"

// Source is either a literal value or a zero-argument getter producing one.
// The zero Source resolves to the zero value of V.
type Source[V any] struct {
	value  V
	getter func() V
}

// Value returns a Source that always resolves to v.
func Value[V any](v V) Source[V] {
	return Source[V]{value: v}
}

// Getter returns a Source that invokes fn on every resolution.
func Getter[V any](fn func() V) Source[V] {
	return Source[V]{getter: fn}
}

// IsGetter reports whether the source is backed by a getter.
func (s Source[V]) IsGetter() bool {
	return s.getter != nil
}

// Resolve returns the current value of src. Getters are invoked without
// recovery: a panicking getter propagates to the caller.
func Resolve[V any](src Source[V]) V {
	if src.getter != nil {
		return src.getter()
	}
	return src.value
}

// CloneFunc produces an independent copy of a value.
type CloneFunc[V any] func(V) (V, error)

// CodecClone returns a CloneFunc that round-trips values through codec.
// Members the codec cannot represent (funcs, channels, cycles) are lost or
// produce an error, depending on the codec.
func CodecClone[V any](codec Codec) CloneFunc[V] {
	return func(v V) (V, error) {
		var out V
		data, err := codec.Marshal(v)
		if err != nil {
			return out, fmt.Errorf("%w: marshal: %w", ErrSnapshot, err)
		}
		if err := codec.Unmarshal(data, &out); err != nil {
			return out, fmt.Errorf("%w: unmarshal: %w", ErrSnapshot, err)
		}
		return out, nil
	}
}

// Snapshot resolves src and, when deep is set, returns a clone so later
// mutation of the live value cannot reach the snapshot. A nil clone falls
// back to a JSON round trip.
func Snapshot[V any](src Source[V], deep bool, clone CloneFunc[V]) (V, error) {
	v := Resolve(src)
	if !deep {
		return v, nil
	}
	if clone == nil {
		clone = CodecClone[V](JSONCodec{})
	}
	return clone(v)
}
