package starbind

import (
	"fmt"
	"reflect"

	"go.starlark.net/starlark"
)

// interfaceToStarlarkValue converts a Go value returned by the converter
// or the session into a starlark.Value.
func interfaceToStarlarkValue(v interface{}) starlark.Value {
	switch v := v.(type) {
	case uint8:
		return starlark.MakeUint64(uint64(v))
	case uint32:
		return starlark.MakeUint64(uint64(v))
	case uint64:
		return starlark.MakeUint64(v)
	case uint:
		return starlark.MakeUint64(uint64(v))
	case int32:
		return starlark.MakeInt64(int64(v))
	case int64:
		return starlark.MakeInt64(v)
	case int:
		return starlark.MakeInt64(int64(v))
	case bool:
		return starlark.Bool(v)
	case string:
		return starlark.String(v)
	case []byte:
		return starlark.Bytes(v)
	case nil:
		return starlark.None
	case error:
		return starlark.String(v.Error())
	default:
		vval := reflect.ValueOf(v)
		switch vval.Kind() {
		case reflect.Ptr:
			if vval.IsNil() {
				return starlark.None
			}
			return interfaceToStarlarkValue(vval.Elem().Interface())
		case reflect.Struct:
			return structToDict(vval)
		case reflect.Slice:
			r := make([]starlark.Value, vval.Len())
			for i := range r {
				r[i] = interfaceToStarlarkValue(vval.Index(i).Interface())
			}
			return starlark.NewList(r)
		}
		return starlark.String(fmt.Sprintf("%v", v))
	}
}

// structToDict converts the exported fields of a struct into a frozen dict
// keyed by field name.
func structToDict(v reflect.Value) *starlark.Dict {
	r := starlark.NewDict(v.NumField())
	for i := 0; i < v.NumField(); i++ {
		f := v.Type().Field(i)
		if f.PkgPath != "" {
			continue
		}
		r.SetKey(starlark.String(f.Name), interfaceToStarlarkValue(v.Field(i).Interface()))
	}
	r.Freeze()
	return r
}

// toUint64 converts a starlark integer to uint64.
func toUint64(v starlark.Int) (uint64, error) {
	n, ok := v.Uint64()
	if !ok {
		return 0, fmt.Errorf("%s out of range for an unsigned 64-bit integer", v)
	}
	return n, nil
}

// toInt64 converts a starlark integer to int64.
func toInt64(v starlark.Int) (int64, error) {
	n, ok := v.Int64()
	if !ok {
		return 0, fmt.Errorf("%s out of range for a signed 64-bit integer", v)
	}
	return n, nil
}
