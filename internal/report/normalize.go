package report

import (
	"encoding/json"
	"math"
	"reflect"
	"sort"
)

// Recorder is implemented by values that describe themselves as an ordered
// mapping, such as column summaries.
type Recorder interface {
	Record() *Object
}

// Normalize reduces v to values the JSON encoder handles natively: nil, bool,
// int64, uint64, float64, string, []any and *Object. Fixed-width integers and
// floats (including named types built on them) are widened, slices and arrays
// become sequences, string-keyed maps become objects with sorted keys.
// Non-finite floats become nil since JSON has no literal for them.
// Values of any other kind are returned unchanged.
func Normalize(v any) any {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer && rv.IsNil() {
		return nil
	}
	switch x := v.(type) {
	case *Object:
		out := NewObject()
		for _, k := range x.keys {
			out.Set(k, Normalize(x.vals[k]))
		}
		return out
	case Recorder:
		return Normalize(x.Record())
	case json.Number:
		return x
	case json.Marshaler:
		return x
	}

	switch rv.Kind() {
	case reflect.Bool:
		return rv.Bool()
	case reflect.String:
		return rv.String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint()
	case reflect.Float32, reflect.Float64:
		return finite(rv.Float())
	case reflect.Pointer, reflect.Interface:
		return Normalize(rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = Normalize(rv.Index(i).Interface())
		}
		return out
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return v
		}
		keys := make([]string, 0, rv.Len())
		byKey := make(map[string]reflect.Value, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			k := iter.Key().String()
			keys = append(keys, k)
			byKey[k] = iter.Value()
		}
		sort.Strings(keys)
		out := NewObject()
		for _, k := range keys {
			out.Set(k, Normalize(byKey[k].Interface()))
		}
		return out
	}
	return v
}

func finite(f float64) any {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return f
}
