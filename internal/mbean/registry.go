// Package mbean models the in-process management-bean registries the bridge
// dispatches against (spec.md glossary: "bean registry"). A Registry is
// addressable by object name and exposes readable/writable attributes,
// invocable operations, and reflective metadata.
//
// LocalRegistry registers plain Go structs by reflection, using the same
// struct-tag-driven technique the teacher's domain package documents for
// JSON field mapping (see internal/domain's P10-37-style note, here applied
// to bean metadata instead): a field tagged `mbean:"name"` becomes a
// readable attribute, writable as well when it also carries
// `mbean-rw:"true"`; a function attached with RegisterOperation becomes an
// invocable operation.
package mbean

import (
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/beanbridge/bridge/internal/domain"
	"github.com/beanbridge/bridge/internal/objname"
)

// AttributeInfo describes one attribute in a bean's metadata.
type AttributeInfo struct {
	Name     string
	Type     string
	Readable bool
	Writable bool
}

// OperationInfo describes one operation in a bean's metadata.
type OperationInfo struct {
	Name      string
	ParamTypes []reflect.Type
}

// Info is the reflective metadata of a registered bean (the "MBeanInfo" of
// spec.md §4.6).
type Info struct {
	ClassName  string
	Attributes []AttributeInfo
	Operations []OperationInfo
}

// ReadableAttributeNames returns the names of attributes flagged Readable,
// used to expand "all attributes" reads (spec.md §4.6).
func (i Info) ReadableAttributeNames() []string {
	var names []string
	for _, a := range i.Attributes {
		if a.Readable {
			names = append(names, a.Name)
		}
	}
	sort.Strings(names)
	return names
}

// FindOperation resolves an operation by name and arity (spec.md §4.7:
// "resolve the operation signature by name + arity").
func (i Info) FindOperation(name string, arity int) (OperationInfo, bool) {
	for _, op := range i.Operations {
		if op.Name == name && len(op.ParamTypes) == arity {
			return op, true
		}
	}
	return OperationInfo{}, false
}

// Registry is an in-process catalog of management beans addressable by
// object name (spec.md glossary).
type Registry interface {
	Name() string
	IsRegistered(name objname.Name) bool
	QueryNames(pattern objname.Name) ([]objname.Name, error)
	GetMBeanInfo(name objname.Name) (Info, error)
	GetAttribute(name objname.Name, attr string) (any, error)
	SetAttribute(name objname.Name, attr string, value any) (any, error)
	Invoke(name objname.Name, op string, args []any) (any, error)
}

type registeredBean struct {
	name  objname.Name
	value reflect.Value // addressable struct value (via pointer Elem())
	info  Info
	ops   map[string]func([]any) (any, error)
}

// LocalRegistry is the bridge's own in-process bean registry.
type LocalRegistry struct {
	regName string
	mu      sync.RWMutex
	beans   map[string]*registeredBean // keyed by canonical name
}

// NewLocalRegistry creates an empty LocalRegistry identified by regName (used
// in log messages and the "platform registry" slot of the bean-server
// handler).
func NewLocalRegistry(regName string) *LocalRegistry {
	return &LocalRegistry{regName: regName, beans: make(map[string]*registeredBean)}
}

func (r *LocalRegistry) Name() string { return r.regName }

// Register registers ptr (must be a pointer to a struct) under name. Struct
// fields tagged `mbean:"attrName"` become readable attributes; if the field
// is also tagged `mbean-rw:"true"` it becomes writable too.
func (r *LocalRegistry) Register(name objname.Name, ptr any) error {
	v := reflect.ValueOf(ptr)
	if v.Kind() != reflect.Pointer || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("mbean: Register requires a pointer to struct, got %T", ptr)
	}
	elem := v.Elem()
	t := elem.Type()

	info := Info{ClassName: t.String()}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		attrName, ok := f.Tag.Lookup("mbean")
		if !ok || attrName == "" {
			continue
		}
		writable := f.Tag.Get("mbean-rw") == "true"
		info.Attributes = append(info.Attributes, AttributeInfo{
			Name:     attrName,
			Type:     f.Type.String(),
			Readable: true,
			Writable: writable,
		})
	}

	bean := &registeredBean{name: name, value: elem, info: info, ops: make(map[string]func([]any) (any, error))}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.beans[name.Canonical()] = bean
	return nil
}

// RegisterOperation attaches an invocable operation named op to the bean
// previously registered under name. fn receives the already-converted
// argument list and returns the (possibly nil) result or an error.
func (r *LocalRegistry) RegisterOperation(name objname.Name, op string, paramTypes []reflect.Type, fn func([]any) (any, error)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	bean, ok := r.beans[name.Canonical()]
	if !ok {
		return fmt.Errorf("mbean: %s not registered", name.Canonical())
	}
	bean.info.Operations = append(bean.info.Operations, OperationInfo{Name: op, ParamTypes: paramTypes})
	bean.ops[operationKey(op, len(paramTypes))] = fn
	return nil
}

// Unregister removes a previously registered bean. No-op if absent.
func (r *LocalRegistry) Unregister(name objname.Name) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.beans, name.Canonical())
}

func operationKey(op string, arity int) string { return fmt.Sprintf("%s/%d", op, arity) }

func (r *LocalRegistry) IsRegistered(name objname.Name) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.beans[name.Canonical()]
	return ok
}

func (r *LocalRegistry) QueryNames(pattern objname.Name) ([]objname.Name, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []objname.Name
	for _, b := range r.beans {
		if b.name.Matches(pattern) {
			out = append(out, b.name)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Canonical() < out[j].Canonical() })
	return out, nil
}

func (r *LocalRegistry) lookup(name objname.Name) (*registeredBean, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.beans[name.Canonical()]
	if !ok {
		return nil, domain.NotFoundf("instance not found: %s", name.Canonical())
	}
	return b, nil
}

func (r *LocalRegistry) GetMBeanInfo(name objname.Name) (Info, error) {
	b, err := r.lookup(name)
	if err != nil {
		return Info{}, err
	}
	return b.info, nil
}

func (r *LocalRegistry) GetAttribute(name objname.Name, attr string) (any, error) {
	b, err := r.lookup(name)
	if err != nil {
		return nil, err
	}
	fv := b.value.FieldByNameFunc(func(fieldName string) bool {
		f, ok := b.value.Type().FieldByName(fieldName)
		return ok && f.Tag.Get("mbean") == attr
	})
	if !fv.IsValid() {
		return nil, domain.NotFoundf("attribute not found: %s", attr)
	}
	return fv.Interface(), nil
}

func (r *LocalRegistry) SetAttribute(name objname.Name, attr string, value any) (any, error) {
	b, err := r.lookup(name)
	if err != nil {
		return nil, err
	}
	var target reflect.StructField
	found := false
	t := b.value.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Tag.Get("mbean") == attr {
			target = f
			found = true
			break
		}
	}
	if !found {
		return nil, domain.NotFoundf("attribute not found: %s", attr)
	}
	if target.Tag.Get("mbean-rw") != "true" {
		return nil, domain.TargetFailuref(nil, "attribute not writable: %s", attr)
	}
	fv := b.value.FieldByIndex(target.Index)
	prev := fv.Interface()

	rv := reflect.ValueOf(value)
	if !rv.IsValid() {
		fv.Set(reflect.Zero(fv.Type()))
	} else if rv.Type().AssignableTo(fv.Type()) {
		fv.Set(rv)
	} else if rv.Type().ConvertibleTo(fv.Type()) {
		fv.Set(rv.Convert(fv.Type()))
	} else {
		return nil, domain.Invalidf("cannot assign %T to attribute %s (%s)", value, attr, fv.Type())
	}
	return prev, nil
}

func (r *LocalRegistry) Invoke(name objname.Name, op string, args []any) (any, error) {
	b, err := r.lookup(name)
	if err != nil {
		return nil, err
	}
	fn, ok := b.ops[operationKey(op, len(args))]
	if !ok {
		return nil, domain.NotFoundf("operation not found: %s(%d args)", op, len(args))
	}
	return fn(args)
}
