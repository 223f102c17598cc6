// Package convert implements the value-to-JSON converter of spec.md §4.8: a
// dispatch table keyed on the runtime shape of a value, path-guided descent,
// depth/collection/object budgets, and cycle detection via an identity set
// of in-progress compound values.
package convert

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"

	"github.com/beanbridge/bridge/internal/domain"
)

// TruncatedMarker is inserted in place of elements dropped due to
// MaxCollectionSize, or as the whole value when MaxObjects is exhausted.
const TruncatedMarker = "[truncated]"

// Options bounds a single conversion (spec.md §4.8).
type Options struct {
	MaxDepth          int // levels expanded before values become their string form; <= 0 uses DefaultOptions().MaxDepth
	MaxCollectionSize int // elements kept per collection before the truncation marker; <= 0 uses DefaultOptions().MaxCollectionSize
	MaxObjects        int // global budget across the whole conversion; <= 0 uses DefaultOptions().MaxObjects
	FaultPolicy       domain.ValueFaultPolicy
}

// DefaultOptions mirrors Jolokia-style sane defaults: deep enough for typical
// bean graphs, bounded enough to never hang on a pathological object.
func DefaultOptions() Options {
	return Options{MaxDepth: 7, MaxCollectionSize: 1000, MaxObjects: 100000, FaultPolicy: domain.FaultIgnore}
}

func (o Options) normalized() Options {
	if o.MaxDepth <= 0 {
		o.MaxDepth = DefaultOptions().MaxDepth
	}
	if o.MaxCollectionSize <= 0 {
		o.MaxCollectionSize = DefaultOptions().MaxCollectionSize
	}
	if o.MaxObjects <= 0 {
		o.MaxObjects = DefaultOptions().MaxObjects
	}
	if o.FaultPolicy == "" {
		o.FaultPolicy = domain.FaultIgnore
	}
	return o
}

// Composite is implemented by values with a fixed, named-field schema that
// should convert to a JSON object of exactly those fields (the "composite
// record" shape of spec.md §4.8). Plain structs are handled reflectively
// without requiring this interface; it exists for types that want to
// control their own field set (e.g., hide internal bookkeeping fields).
type Composite interface {
	CompositeFields() map[string]any
}

// Tabular is implemented by values representing rows indexed by a typed key
// set (the "tabular record" shape of spec.md §4.8, e.g., JMX TabularData).
type Tabular interface {
	TabularRows() []map[string]any
}

type converter struct {
	opts      Options
	remaining int // remaining object budget
	visited   map[uintptr]bool
}

// ToJSON converts v, honoring path descent and the configured budgets. If
// path cannot be fully consumed, the fault policy governs: FaultStrict
// returns a NotFound BridgeError; otherwise nil is returned with no error
// (the caller's ignore-vs-null choice is spec.md §4.8 step 2).
func ToJSON(v any, path []string, opts Options) (any, error) {
	c := &converter{opts: opts.normalized(), visited: make(map[uintptr]bool)}
	c.remaining = c.opts.MaxObjects
	rv := reflect.ValueOf(v)
	return c.descend(rv, path)
}

func (c *converter) descend(rv reflect.Value, path []string) (any, error) {
	if len(path) == 0 {
		return c.expand(rv, c.opts.MaxDepth)
	}
	seg := path[0]
	sub, ok, err := c.step(rv, seg)
	if err != nil {
		return nil, err
	}
	if !ok {
		if c.opts.FaultPolicy == domain.FaultStrict {
			return nil, domain.NotFoundf("path segment %q not found", seg)
		}
		return nil, nil
	}
	return c.descend(sub, path[1:])
}

// step addresses one path segment against rv, returning the sub-value.
func (c *converter) step(rv reflect.Value, seg string) (reflect.Value, bool, error) {
	rv = indirect(rv)
	if !rv.IsValid() {
		return reflect.Value{}, false, nil
	}
	switch rv.Kind() {
	case reflect.Map:
		for _, k := range rv.MapKeys() {
			if fmt.Sprintf("%v", k.Interface()) == seg {
				return rv.MapIndex(k), true, nil
			}
		}
		return reflect.Value{}, false, nil
	case reflect.Slice, reflect.Array:
		var idx int
		if _, err := fmt.Sscanf(seg, "%d", &idx); err != nil {
			return reflect.Value{}, false, nil
		}
		if idx < 0 || idx >= rv.Len() {
			return reflect.Value{}, false, nil
		}
		return rv.Index(idx), true, nil
	case reflect.Struct:
		if c, ok := rv.Interface().(Composite); ok {
			fields := c.CompositeFields()
			if val, ok := fields[seg]; ok {
				return reflect.ValueOf(val), true, nil
			}
			return reflect.Value{}, false, nil
		}
		ft, ok := fieldByJSONOrName(rv.Type(), seg)
		if !ok {
			return reflect.Value{}, false, nil
		}
		return rv.FieldByIndex(ft.Index), true, nil
	default:
		return reflect.Value{}, false, nil
	}
}

func indirect(rv reflect.Value) reflect.Value {
	for rv.IsValid() && (rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface) {
		if rv.IsNil() {
			return reflect.Value{}
		}
		rv = rv.Elem()
	}
	return rv
}

func fieldByJSONOrName(t reflect.Type, name string) (reflect.StructField, bool) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		tag := f.Tag.Get("json")
		tagName := tag
		if idx := indexComma(tag); idx >= 0 {
			tagName = tag[:idx]
		}
		if tagName == name || f.Name == name {
			return f, true
		}
	}
	return reflect.StructField{}, false
}

func indexComma(s string) int {
	for i, r := range s {
		if r == ',' {
			return i
		}
	}
	return -1
}

// expand fully converts rv into JSON-native types, subject to depth,
// collection-size and object budgets, breaking cycles via c.visited.
func (c *converter) expand(rv reflect.Value, depth int) (any, error) {
	rv = indirect(rv)
	if !rv.IsValid() {
		return nil, nil
	}

	if c.remaining <= 0 {
		return TruncatedMarker, nil
	}
	c.remaining--

	if depth <= 0 {
		return c.stringForm(rv), nil
	}

	switch rv.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return rv.Interface(), nil
	}

	if rv.CanAddr() || rv.Kind() == reflect.Map || rv.Kind() == reflect.Slice {
		ptr := identityOf(rv)
		if ptr != 0 {
			if c.visited[ptr] {
				return c.stringForm(rv), nil
			}
			c.visited[ptr] = true
			defer delete(c.visited, ptr)
		}
	}

	if t, ok := rv.Interface().(Tabular); ok {
		rows := t.TabularRows()
		return c.expandCollection(len(rows), func(i int) (any, error) {
			return c.expand(reflect.ValueOf(rows[i]), depth-1)
		})
	}
	if cmp, ok := rv.Interface().(Composite); ok {
		return c.expandMap(cmp.CompositeFields(), depth)
	}

	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		return c.expandCollection(rv.Len(), func(i int) (any, error) {
			return c.expand(rv.Index(i), depth-1)
		})
	case reflect.Map:
		keys := rv.MapKeys()
		sort.Slice(keys, func(i, j int) bool {
			return fmt.Sprintf("%v", keys[i].Interface()) < fmt.Sprintf("%v", keys[j].Interface())
		})
		out := make(map[string]any, len(keys))
		n := 0
		for _, k := range keys {
			if c.opts.MaxCollectionSize > 0 && n >= c.opts.MaxCollectionSize {
				out["..."] = TruncatedMarker
				break
			}
			v, err := c.expand(rv.MapIndex(k), depth-1)
			if err != nil {
				return nil, err
			}
			out[fmt.Sprintf("%v", k.Interface())] = v
			n++
		}
		return out, nil
	case reflect.Struct:
		return c.expandStruct(rv, depth)
	default:
		return c.stringForm(rv), nil
	}
}

func (c *converter) expandCollection(n int, at func(i int) (any, error)) (any, error) {
	out := make([]any, 0, n)
	limit := n
	truncated := false
	if c.opts.MaxCollectionSize > 0 && n > c.opts.MaxCollectionSize {
		limit = c.opts.MaxCollectionSize
		truncated = true
	}
	for i := 0; i < limit; i++ {
		v, err := at(i)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if truncated {
		out = append(out, TruncatedMarker)
	}
	return out, nil
}

func (c *converter) expandMap(m map[string]any, depth int) (any, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make(map[string]any, len(m))
	n := 0
	for _, k := range keys {
		if c.opts.MaxCollectionSize > 0 && n >= c.opts.MaxCollectionSize {
			out["..."] = TruncatedMarker
			break
		}
		v, err := c.expand(reflect.ValueOf(m[k]), depth-1)
		if err != nil {
			return nil, err
		}
		out[k] = v
		n++
	}
	return out, nil
}

func (c *converter) expandStruct(rv reflect.Value, depth int) (any, error) {
	t := rv.Type()
	out := make(map[string]any)
	n := 0
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := f.Name
		if tag := f.Tag.Get("json"); tag != "" {
			if idx := indexComma(tag); idx >= 0 {
				if tag[:idx] == "-" {
					continue
				}
				name = tag[:idx]
			} else if tag == "-" {
				continue
			} else {
				name = tag
			}
		}
		if c.opts.MaxCollectionSize > 0 && n >= c.opts.MaxCollectionSize {
			out["..."] = TruncatedMarker
			break
		}
		v, err := c.expand(rv.Field(i), depth-1)
		if err != nil {
			return nil, err
		}
		out[name] = v
		n++
	}
	return out, nil
}

func (c *converter) stringForm(rv reflect.Value) string {
	if !rv.IsValid() {
		return ""
	}
	if s, ok := rv.Interface().(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%v", rv.Interface())
}

func identityOf(rv reflect.Value) uintptr {
	switch rv.Kind() {
	case reflect.Map, reflect.Slice:
		return rv.Pointer()
	case reflect.Ptr:
		return rv.Pointer()
	default:
		if rv.CanAddr() {
			return rv.Addr().Pointer()
		}
	}
	return 0
}

// Marshal is a convenience for encoding the converted value with
// encoding/json, used by the HTTP façade.
func Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}
