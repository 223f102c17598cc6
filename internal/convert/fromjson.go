package convert

import (
	"encoding/json"
	"reflect"
	"strconv"

	"github.com/beanbridge/bridge/internal/domain"
)

// FromJSON converts a raw JSON value into a Go value assignable to target,
// the symmetric direction of spec.md §4.8: primitive types parse from their
// JSON scalar form, declared collection types build the matching shape,
// composite/tabular types require a JSON object literal, arrays accept JSON
// arrays.
func FromJSON(raw json.RawMessage, target reflect.Type) (any, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return reflect.Zero(target).Interface(), nil
	}

	switch target.Kind() {
	case reflect.String:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, domain.Invalidf("value is not a string: %v", err)
		}
		return s, nil
	case reflect.Bool:
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, domain.Invalidf("value is not a bool: %v", err)
		}
		return b, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := parseJSONNumber(raw)
		if err != nil {
			return nil, err
		}
		return reflect.ValueOf(n).Convert(target).Interface(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := parseJSONNumber(raw)
		if err != nil {
			return nil, err
		}
		if n < 0 {
			return nil, domain.Invalidf("value %d cannot convert to unsigned %s", n, target)
		}
		return reflect.ValueOf(n).Convert(target).Interface(), nil
	case reflect.Float32, reflect.Float64:
		var f float64
		if err := json.Unmarshal(raw, &f); err != nil {
			return nil, domain.Invalidf("value is not a number: %v", err)
		}
		return reflect.ValueOf(f).Convert(target).Interface(), nil
	case reflect.Slice, reflect.Array:
		var elems []json.RawMessage
		if err := json.Unmarshal(raw, &elems); err != nil {
			return nil, domain.Invalidf("value is not a JSON array: %v", err)
		}
		elemType := target.Elem()
		var out reflect.Value
		if target.Kind() == reflect.Array {
			if len(elems) != target.Len() {
				return nil, domain.Invalidf("JSON array of %d elements cannot convert to %s", len(elems), target)
			}
			out = reflect.New(target).Elem()
		} else {
			out = reflect.MakeSlice(reflect.SliceOf(elemType), len(elems), len(elems))
		}
		for i, e := range elems {
			v, err := FromJSON(e, elemType)
			if err != nil {
				return nil, err
			}
			out.Index(i).Set(reflect.ValueOf(v))
		}
		return out.Interface(), nil
	case reflect.Map:
		var m map[string]json.RawMessage
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, domain.Invalidf("value is not a JSON object: %v", err)
		}
		valType := target.Elem()
		out := reflect.MakeMapWithSize(target, len(m))
		for k, rawv := range m {
			v, err := FromJSON(rawv, valType)
			if err != nil {
				return nil, err
			}
			out.SetMapIndex(reflect.ValueOf(k), reflect.ValueOf(v))
		}
		return out.Interface(), nil
	case reflect.Struct:
		var m map[string]json.RawMessage
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, domain.Invalidf("composite/tabular value must be a JSON object: %v", err)
		}
		out := reflect.New(target).Elem()
		for i := 0; i < target.NumField(); i++ {
			f := target.Field(i)
			if !f.IsExported() {
				continue
			}
			name := jsonFieldName(f)
			rawv, ok := m[name]
			if !ok {
				continue
			}
			v, err := FromJSON(rawv, f.Type)
			if err != nil {
				return nil, err
			}
			out.Field(i).Set(reflect.ValueOf(v))
		}
		return out.Interface(), nil
	case reflect.Ptr:
		v, err := FromJSON(raw, target.Elem())
		if err != nil {
			return nil, err
		}
		p := reflect.New(target.Elem())
		p.Elem().Set(reflect.ValueOf(v))
		return p.Interface(), nil
	case reflect.Interface:
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, domain.Invalidf("invalid JSON value: %v", err)
		}
		return v, nil
	default:
		return nil, domain.Invalidf("unsupported target type %s for JSON conversion", target)
	}
}

func jsonFieldName(f reflect.StructField) string {
	tag := f.Tag.Get("json")
	if tag == "" || tag == "-" {
		return f.Name
	}
	if idx := indexComma(tag); idx >= 0 {
		if tag[:idx] == "" {
			return f.Name
		}
		return tag[:idx]
	}
	return tag
}

func parseJSONNumber(raw json.RawMessage) (int64, error) {
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, domain.Invalidf("value is not a number: %v", err)
	}
	i, err := strconv.ParseInt(string(n), 10, 64)
	if err != nil {
		f, ferr := n.Float64()
		if ferr != nil {
			return 0, domain.Invalidf("value %q is not an integer: %v", string(n), err)
		}
		return int64(f), nil
	}
	return i, nil
}
