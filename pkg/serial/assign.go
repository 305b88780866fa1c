package serial

import (
	"math"
	"reflect"

	errs "github.com/matzehuels/objgraph/pkg/errors"
)

// assignField stores val under key on an imported instance: a struct
// field for pointer-to-struct instances, an entry for map instances.
func assignField(inst reflect.Value, key string, val any) error {
	switch inst.Kind() {
	case reflect.Map:
		ev, err := convertValue(val, inst.Type().Elem())
		if err != nil {
			return err
		}
		inst.SetMapIndex(reflect.ValueOf(key).Convert(inst.Type().Key()), ev)
		return nil

	case reflect.Pointer:
		target := inst.Elem()
		f, ok := lookupField(target.Type(), key)
		if !ok {
			return errs.New(errs.ErrCodeFieldAssignment, "%s has no field %q", target.Type(), key)
		}
		fv, ok := fieldByIndexAlloc(target, f.index)
		if !ok || !fv.CanSet() {
			return errs.New(errs.ErrCodeFieldAssignment, "field %q of %s is not settable", key, target.Type())
		}
		cv, err := convertValue(val, fv.Type())
		if err != nil {
			return errs.Wrap(errs.ErrCodeFieldAssignment, err, "field %q of %s", key, target.Type())
		}
		fv.Set(cv)
		return nil
	}
	return errs.New(errs.ErrCodeFieldAssignment, "cannot assign fields on %s", inst.Type())
}

// convertValue adapts an imported value to type t. Codecs widen numbers
// (JSON yields float64 or int64, CBOR yields uint64) and import yields
// []any and map[string]any for containers, so conversion is structural.
func convertValue(val any, t reflect.Type) (reflect.Value, error) {
	if val == nil {
		return reflect.Zero(t), nil
	}
	v := reflect.ValueOf(val)
	if v.Type().AssignableTo(t) {
		return v, nil
	}

	switch t.Kind() {
	case reflect.Pointer:
		if v.Kind() == reflect.Pointer && v.Type().ConvertibleTo(t) {
			return v.Convert(t), nil
		}
		elem, err := convertValue(val, t.Elem())
		if err != nil {
			return reflect.Value{}, err
		}
		p := reflect.New(t.Elem())
		p.Elem().Set(elem)
		return p, nil

	case reflect.Struct:
		if v.Kind() == reflect.Pointer && v.Type().Elem() == t {
			return v.Elem(), nil
		}

	case reflect.Bool:
		if v.Kind() == reflect.Bool {
			return v.Convert(t), nil
		}

	case reflect.String:
		if v.Kind() == reflect.String {
			return v.Convert(t), nil
		}

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if n, ok := toInt64(val); ok {
			out := reflect.New(t).Elem()
			if out.OverflowInt(n) {
				return reflect.Value{}, conversionError(val, t, "overflows")
			}
			out.SetInt(n)
			return out, nil
		}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if n, ok := toUint64(val); ok {
			out := reflect.New(t).Elem()
			if out.OverflowUint(n) {
				return reflect.Value{}, conversionError(val, t, "overflows")
			}
			out.SetUint(n)
			return out, nil
		}

	case reflect.Float32, reflect.Float64:
		if f, ok := toFloat64(val); ok {
			out := reflect.New(t).Elem()
			if out.OverflowFloat(f) {
				return reflect.Value{}, conversionError(val, t, "overflows")
			}
			out.SetFloat(f)
			return out, nil
		}

	case reflect.Slice:
		if v.Kind() == reflect.Slice || v.Kind() == reflect.Array {
			out := reflect.MakeSlice(t, v.Len(), v.Len())
			for i := 0; i < v.Len(); i++ {
				ev, err := convertValue(v.Index(i).Interface(), t.Elem())
				if err != nil {
					return reflect.Value{}, err
				}
				out.Index(i).Set(ev)
			}
			return out, nil
		}

	case reflect.Array:
		if (v.Kind() == reflect.Slice || v.Kind() == reflect.Array) && v.Len() <= t.Len() {
			out := reflect.New(t).Elem()
			for i := 0; i < v.Len(); i++ {
				ev, err := convertValue(v.Index(i).Interface(), t.Elem())
				if err != nil {
					return reflect.Value{}, err
				}
				out.Index(i).Set(ev)
			}
			return out, nil
		}

	case reflect.Map:
		if t.Key().Kind() == reflect.String && v.Kind() == reflect.Map && v.Type().Key().Kind() == reflect.String {
			out := reflect.MakeMapWithSize(t, v.Len())
			iter := v.MapRange()
			for iter.Next() {
				ev, err := convertValue(iter.Value().Interface(), t.Elem())
				if err != nil {
					return reflect.Value{}, err
				}
				out.SetMapIndex(iter.Key().Convert(t.Key()), ev)
			}
			return out, nil
		}
	}
	return reflect.Value{}, conversionError(val, t, "cannot be assigned to")
}

func conversionError(val any, t reflect.Type, verb string) error {
	return errs.New(errs.ErrCodeFieldAssignment, "%T value %v %s %s", val, val, verb, t)
}

type int64er interface {
	Int64() (int64, error)
}

type float64er interface {
	Float64() (float64, error)
}

// toInt64 accepts any integral number, including floats without a
// fractional part and numeric strings that implement Int64 (json.Number).
func toInt64(val any) (int64, bool) {
	if n, ok := val.(int64er); ok {
		i, err := n.Int64()
		return i, err == nil
	}
	v := reflect.ValueOf(val)
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := v.Uint()
		if u > math.MaxInt64 {
			return 0, false
		}
		return int64(u), true
	case reflect.Float32, reflect.Float64:
		f := v.Float()
		if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
			return 0, false
		}
		return int64(f), true
	}
	return 0, false
}

func toUint64(val any) (uint64, bool) {
	v := reflect.ValueOf(val)
	if v.Kind() >= reflect.Uint && v.Kind() <= reflect.Uint64 {
		return v.Uint(), true
	}
	n, ok := toInt64(val)
	if !ok || n < 0 {
		return 0, false
	}
	return uint64(n), true
}

func toFloat64(val any) (float64, bool) {
	if n, ok := val.(float64er); ok {
		f, err := n.Float64()
		return f, err == nil
	}
	v := reflect.ValueOf(val)
	switch v.Kind() {
	case reflect.Float32, reflect.Float64:
		return v.Float(), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint()), true
	}
	return 0, false
}
